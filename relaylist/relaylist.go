// Package relaylist is the file of relay addresses an application picks its
// relay from. The first address is the default.
package relaylist

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"luminaflow.lol/normalize"
)

// FileName is the default name of the relay list file.
const FileName = "relay_list.txt"

// Default is the list used when there is no relay list file.
var Default = []st{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay2.nostrchat.io",
	"wss://relay1.nostrchat.io",
	"wss://relay.nostrati.com",
	"wss://strfry.iris.to",
	"wss://relay1.snort.social",
	"wss://nostr-pub.wellorder.net",
	"wss://nostr.rocks",
	"wss://relay.noswhere.com",
}

// Load reads one address per line, skipping blank lines, lines starting
// with # and duplicates. A missing file, or one with no addresses, gives the
// default list.
func Load(path st) (relays []st) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.W.F("reading relay list %s: %v", path, err)
		}
		return Defaults()
	}
	if relays = parse(b); len(relays) == 0 {
		log.W.F("relay list %s has no relays, using the defaults", path)
		return Defaults()
	}
	return
}

// Defaults returns a copy of the default list.
func Defaults() []st { return append([]st(nil), Default...) }

func parse(b by) (relays []st) {
	seen := make(map[st]bo)
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u := st(normalize.URL(line))
		if u == "" {
			log.W.F("skipping invalid relay address %q", line)
			continue
		}
		if !seen[u] {
			seen[u] = true
			relays = append(relays, u)
		}
	}
	return
}

// Add appends an address to the list, unless it is there already. Adding to
// a missing file starts from the default list.
func Add(path, url st) (relays []st, err er) {
	u := st(normalize.URL(url))
	if u == "" {
		err = errorf.E("invalid relay address %q", url)
		return
	}
	relays = Load(path)
	for _, r := range relays {
		if r == u {
			return
		}
	}
	relays = append(relays, u)
	err = save(path, relays)
	return
}

// Remove takes an address off the list.
func Remove(path, url st) (relays []st, err er) {
	u := st(normalize.URL(url))
	for _, r := range Load(path) {
		if r != u {
			relays = append(relays, r)
		}
	}
	err = save(path, relays)
	return
}

func save(path st, relays []st) (err er) {
	if err = os.MkdirAll(filepath.Dir(path), 0700); chk.E(err) {
		return
	}
	var buf bytes.Buffer
	for _, r := range relays {
		buf.WriteString(r)
		buf.WriteByte('\n')
	}
	if err = os.WriteFile(path, buf.Bytes(), 0600); chk.E(err) {
		return
	}
	return
}
