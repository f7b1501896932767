// Package config is the configuration of the luminaflow command, read from
// environment variables and from a .env file in the profile directory.
package config

import (
	"os"
	"path/filepath"
	"time"

	"go-simpler.org/env"

	"luminaflow.lol/appdata"
	"luminaflow.lol/relaylist"
)

// C is the configuration. Environment variables take precedence over the
// .env file in the profile directory.
type C struct {
	AppName        st            `env:"APP_NAME" default:"luminaflow" usage:"name of the application, used for the default profile directory"`
	Profile        st            `env:"PROFILE" usage:"directory for accounts, caches and the relay list (default is the XDG data directory of the application)"`
	LogLevel       st            `env:"LOG_LEVEL" default:"info" usage:"log level: fatal error warn info debug trace"`
	Relays         []st          `env:"RELAYS" usage:"comma separated relay addresses, overriding the relay list file"`
	RelayFile      st            `env:"RELAY_FILE" default:"relay_list.txt" usage:"relay list file, relative to the profile directory"`
	AccountsKey    st            `env:"ACCOUNTS_KEY" usage:"passphrase the account store is encrypted with"`
	RetryDelay     time.Duration `env:"RETRY_DELAY" default:"5s" usage:"wait between relay connection attempts"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" default:"7s" usage:"limit on each relay connection attempt"`
	Pprof          bo            `env:"PPROF" default:"false" usage:"write a CPU profile to the profile directory"`
}

// EnvFile is the name of the file of variables in the profile directory.
const EnvFile = ".env"

// New loads the configuration from the environment, then again with the
// .env file of the profile directory filling in what the environment does not
// set.
func New() (cfg *C, err er) {
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{SliceSep: ","}); chk.E(err) {
		return
	}
	if cfg.Profile == "" {
		cfg.Profile = appdata.Dir(cfg.AppName)
	}
	path := filepath.Join(cfg.Profile, EnvFile)
	var e Env
	if e, err = GetEnv(path); err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	log.D.F("reading configuration from %s", path)
	profile := cfg.Profile
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{SliceSep: ",", Source: e}); chk.E(err) {
		return
	}
	if cfg.Profile == "" {
		cfg.Profile = profile
	}
	return
}

// RelayFilePath is where the relay list file is.
func (cfg *C) RelayFilePath() st {
	if cfg.RelayFile == "" {
		cfg.RelayFile = relaylist.FileName
	}
	if filepath.IsAbs(cfg.RelayFile) {
		return cfg.RelayFile
	}
	return filepath.Join(cfg.Profile, cfg.RelayFile)
}

// RelayList is the configured relays, or else those of the relay list file.
func (cfg *C) RelayList() []st {
	if len(cfg.Relays) > 0 {
		return cfg.Relays
	}
	return relaylist.Load(cfg.RelayFilePath())
}

// AccountsPath is the directory of the account store.
func (cfg *C) AccountsPath() st { return filepath.Join(cfg.Profile, "accounts") }

// AccountCache is the cache directory of an account.
func (cfg *C) AccountCache(pubkeyHex st) st {
	return appdata.AccountCache(cfg.Profile, pubkeyHex)
}
