package appdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

func TestDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", home)
	xdg.Reload()
	defer xdg.Reload()
	tests := []struct {
		appName st
		want    st
	}{
		{"luminaflow", filepath.Join(home, "luminaflow")},
		{"LuminaFlow", filepath.Join(home, "luminaflow")},
		{".luminaflow", filepath.Join(home, "luminaflow")},
		{"", "."},
		{".", "."},
	}
	for i, test := range tests {
		if got := Dir(test.appName); got != test.want {
			t.Errorf("Dir #%d (%q): got %s, want %s", i, test.appName, got, test.want)
		}
	}
}

func TestEnsure(t *testing.T) {
	dir := filepath.Join(AccountCache(t.TempDir(), "ab12"), "deeper")
	if err := Ensure(dir); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.IsDir() || fi.Mode().Perm() != 0700 {
		t.Errorf("got mode %v", fi.Mode())
	}
}
