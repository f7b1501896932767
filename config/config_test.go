package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var vars = []string{"APP_NAME", "PROFILE", "LOG_LEVEL", "RELAYS", "RELAY_FILE",
	"ACCOUNTS_KEY", "RETRY_DELAY", "CONNECT_TIMEOUT", "PPROF"}

func clearEnv(t *testing.T) {
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	profile := t.TempDir()
	t.Setenv("PROFILE", profile)
	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "luminaflow", cfg.AppName)
	require.Equal(t, profile, cfg.Profile)
	require.Equal(t, 5*time.Second, cfg.RetryDelay)
	require.Equal(t, 7*time.Second, cfg.ConnectTimeout)
	require.Equal(t, filepath.Join(profile, "relay_list.txt"), cfg.RelayFilePath())
	require.Equal(t, filepath.Join(profile, "accounts"), cfg.AccountsPath())
	require.NotEmpty(t, cfg.RelayList())
}

func TestEnvFile(t *testing.T) {
	clearEnv(t)
	profile := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(profile, EnvFile), []byte(`
# settings
export ACCOUNTS_KEY="from file"
RELAYS=wss://a.example.com,wss://b.example.com
RETRY_DELAY=250ms
LOG_LEVEL=debug
not a setting
`), 0600))
	t.Setenv("PROFILE", profile)
	t.Setenv("LOG_LEVEL", "trace")
	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "from file", cfg.AccountsKey)
	require.Equal(t, []string{"wss://a.example.com", "wss://b.example.com"}, cfg.RelayList())
	require.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	// the environment wins over the file
	require.Equal(t, "trace", cfg.LogLevel)
	require.Equal(t, profile, cfg.Profile)
}

func TestPrintEnv(t *testing.T) {
	cfg := &C{AppName: "luminaflow", Relays: []string{"wss://a", "wss://b"},
		RetryDelay: time.Second, Pprof: true}
	var buf bytes.Buffer
	PrintEnv(cfg, &buf)
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "#!/usr/bin/env bash\n"))
	require.Contains(t, out, `export APP_NAME="luminaflow"`)
	require.Contains(t, out, `export RELAYS="wss://a,wss://b"`)
	require.Contains(t, out, `export RETRY_DELAY="1s"`)
	require.Contains(t, out, `export PPROF="true"`)
	require.Less(t, strings.Index(out, "ACCOUNTS_KEY"), strings.Index(out, "APP_NAME"))
}
