// Package contacts is the locally cached follow list of an account, and the
// kind 3 events that publish it.
package contacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"luminaflow.lol/event"
	"luminaflow.lol/keys"
	"luminaflow.lol/kind"
	"luminaflow.lol/signer"
	"luminaflow.lol/tag"
	"luminaflow.lol/tags"
	"luminaflow.lol/timestamp"
)

// FileName is the name of the cache file in an account's cache directory.
const FileName = "contacts.json"

// Store is a set of hex public keys backed by a JSON file. Members are only
// ever added.
type Store struct {
	mx   sync.Mutex
	path st
	set  map[st]struct{}
}

// Load reads the set from a file. A missing or unreadable file gives an
// empty set.
func Load(path st) (s *Store) {
	s = &Store{path: path, set: make(map[st]struct{})}
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.W.F("reading contacts from %s: %v", path, err)
		}
		return
	}
	var members []st
	if err = json.Unmarshal(b, &members); err != nil {
		log.W.F("contacts file %s is corrupt, starting empty: %v", path, err)
		return
	}
	for _, m := range members {
		if pk, ok := normal(m); ok {
			s.set[pk] = struct{}{}
		}
	}
	return
}

func normal(pk st) (st, bo) {
	pk = strings.ToLower(strings.TrimSpace(pk))
	return pk, keys.IsValid32ByteHex(pk)
}

// Path is where the set is persisted.
func (s *Store) Path() st { return s.path }

// Merge adds the given keys to the set and persists it. Keys that are not
// 64 hex characters are skipped.
func (s *Store) Merge(pubkeys ...st) (err er) {
	s.mx.Lock()
	defer s.mx.Unlock()
	var added no
	for _, p := range pubkeys {
		pk, ok := normal(p)
		if !ok {
			log.W.F("not merging invalid contact %q", p)
			continue
		}
		if _, ok = s.set[pk]; !ok {
			s.set[pk] = struct{}{}
			added++
		}
	}
	log.D.F("merged %d new contacts, %d in total", added, len(s.set))
	return s.persist()
}

// persist writes the set to a temporary file and renames it over the cache
// file.
func (s *Store) persist() (err er) {
	if s.path == "" {
		return
	}
	var b by
	if b, err = json.Marshal(s.members()); chk.E(err) {
		return
	}
	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0700); chk.E(err) {
		return
	}
	var f *os.File
	if f, err = os.CreateTemp(dir, ".contacts-*"); chk.E(err) {
		return
	}
	tmp := f.Name()
	if _, err = f.Write(b); chk.E(err) {
		f.Close()
		os.Remove(tmp)
		return
	}
	if err = f.Close(); chk.E(err) {
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, s.path); chk.E(err) {
		os.Remove(tmp)
	}
	return
}

func (s *Store) members() (m []st) {
	m = make([]st, 0, len(s.set))
	for pk := range s.set {
		m = append(m, pk)
	}
	sort.Strings(m)
	return
}

// Members returns the set in sorted order.
func (s *Store) Members() []st {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.members()
}

// Has reports whether a key is in the set.
func (s *Store) Has(pubkey st) (ok bo) {
	pk, _ := normal(pubkey)
	s.mx.Lock()
	defer s.mx.Unlock()
	_, ok = s.set[pk]
	return
}

// Len is the number of members.
func (s *Store) Len() no {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.set)
}

// FollowListEvent makes a signed kind 3 event with a p tag for each key, in
// the order given, and empty content.
func FollowListEvent(sign signer.I, set []st) (ev *event.T, err er) {
	t := tags.New()
	for _, pk := range set {
		t.AppendTags(tag.New("p", pk))
	}
	ev = &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.FollowList,
		Tags:      t,
		Content:   by{},
	}
	if err = ev.Sign(sign); chk.E(err) {
		return nil, err
	}
	return
}

// FromEvent returns the p tag values of a follow list event, or nothing for
// any other kind.
func FromEvent(ev *event.T) (friends []st) {
	if ev == nil || !ev.Kind.Equal(kind.FollowList) {
		return
	}
	return ev.Tags.Values("p")
}

// Publisher sends an event and reports the result on the channel.
type Publisher interface {
	Publish(c cx, ev *event.T) <-chan er
}

// Publish sends a follow list holding exactly fullSet, which replaces the
// list the relay has. Reconciling with the remote list first is up to the
// caller.
func Publish(c cx, p Publisher, sign signer.I, fullSet []st) <-chan er {
	ev, err := FollowListEvent(sign, fullSet)
	if err != nil {
		res := make(chan er, 1)
		res <- err
		return res
	}
	log.I.F("publishing follow list of %d contacts", len(fullSet))
	return p.Publish(c, ev)
}
