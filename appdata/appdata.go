// Package appdata finds where an application keeps its files, following the
// XDG base directory conventions of each platform.
package appdata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Name makes an application name usable as a directory name: without a
// leading dot, in lower case.
func Name(appName st) st {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(appName), "."))
}

// Dir is the data directory of an application. An empty name gives the
// current directory.
func Dir(appName st) st {
	n := Name(appName)
	if n == "" {
		return "."
	}
	return filepath.Join(xdg.DataHome, n)
}

// AccountCache is the directory under a profile that holds the cached data of
// one account.
func AccountCache(profile, pubkeyHex st) st {
	return filepath.Join(profile, "cache", pubkeyHex)
}

// Ensure creates a directory, private to the user, if it does not exist.
func Ensure(dir st) (err er) {
	if err = os.MkdirAll(dir, 0700); chk.E(err) {
		return
	}
	return
}
