// Package filter is the query a subscription sends to a relay, and the
// matching of events against it.
package filter

import (
	"encoding/json"
	"sort"
	"strconv"

	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/hex"
	"luminaflow.lol/kind"
	"luminaflow.lol/text"
	"luminaflow.lol/timestamp"
)

// T is a nostr filter. Empty fields do not constrain the match.
type T struct {
	IDs     []by
	Authors []by
	Kinds   []*kind.T
	// Tags maps a single letter tag key to the values a matching event must
	// have one of, sent as "#<key>".
	Tags  map[st][]st
	Since *timestamp.T
	Until *timestamp.T
	Limit *uint
}

// New creates a new, empty filter.
func New() (f *T) { return &T{} }

// AuthorsKinds is the common filter of some kinds of events from some
// authors.
func AuthorsKinds(authors []by, kinds ...*kind.T) (f *T) {
	return &T{Authors: authors, Kinds: kinds}
}

var (
	jIDs     = by("ids")
	jAuthors = by("authors")
	jKinds   = by("kinds")
	jSince   = by("since")
	jUntil   = by("until")
	jLimit   = by("limit")
)

// Marshal appends the JSON object form of the filter, omitting empty fields.
func (f *T) Marshal(dst by) (b by) {
	first := true
	sep := func() {
		if !first {
			dst = append(dst, ',')
		}
		first = false
	}
	dst = append(dst, '{')
	if len(f.IDs) > 0 {
		sep()
		dst = text.JSONKey(dst, jIDs)
		dst = text.MarshalHexArray(dst, f.IDs)
	}
	if len(f.Kinds) > 0 {
		sep()
		dst = text.JSONKey(dst, jKinds)
		dst = append(dst, '[')
		for i, k := range f.Kinds {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = k.Marshal(dst)
		}
		dst = append(dst, ']')
	}
	if len(f.Authors) > 0 {
		sep()
		dst = text.JSONKey(dst, jAuthors)
		dst = text.MarshalHexArray(dst, f.Authors)
	}
	if len(f.Tags) > 0 {
		keys := make([]st, 0, len(f.Tags))
		for k := range f.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sep()
			dst = text.JSONKey(dst, by("#"+k))
			dst = text.MarshalStringArray(dst, f.Tags[k])
		}
	}
	if f.Since != nil {
		sep()
		dst = text.JSONKey(dst, jSince)
		dst = f.Since.Marshal(dst)
	}
	if f.Until != nil {
		sep()
		dst = text.JSONKey(dst, jUntil)
		dst = f.Until.Marshal(dst)
	}
	if f.Limit != nil {
		sep()
		dst = text.JSONKey(dst, jLimit)
		dst = strconv.AppendUint(dst, uint64(*f.Limit), 10)
	}
	dst = append(dst, '}')
	b = dst
	return
}

func (f *T) Serialize() (b by) { return f.Marshal(nil) }

// Unmarshal decodes a filter from its JSON object form.
func (f *T) Unmarshal(b by) (err er) {
	var m map[st]json.RawMessage
	if err = json.Unmarshal(b, &m); err != nil {
		return errs.Wrap(errs.BadFrame, err, "decoding filter")
	}
	*f = T{}
	for k, v := range m {
		switch {
		case k == st(jIDs):
			if f.IDs, err = unmarshalHexArray(v); err != nil {
				return
			}
		case k == st(jAuthors):
			if f.Authors, err = unmarshalHexArray(v); err != nil {
				return
			}
		case k == st(jKinds):
			var ks []uint16
			if err = json.Unmarshal(v, &ks); err != nil {
				return errs.Wrap(errs.BadFrame, err, "decoding kinds")
			}
			for _, kk := range ks {
				f.Kinds = append(f.Kinds, kind.New(kk))
			}
		case k == st(jSince), k == st(jUntil):
			var ts int64
			if err = json.Unmarshal(v, &ts); err != nil {
				return errs.Wrap(errs.BadFrame, err, "decoding %s", k)
			}
			if k == st(jSince) {
				f.Since = timestamp.FromUnix(ts)
			} else {
				f.Until = timestamp.FromUnix(ts)
			}
		case k == st(jLimit):
			var l uint
			if err = json.Unmarshal(v, &l); err != nil {
				return errs.Wrap(errs.BadFrame, err, "decoding limit")
			}
			f.Limit = &l
		case len(k) == 2 && k[0] == '#':
			var vals []st
			if err = json.Unmarshal(v, &vals); err != nil {
				return errs.Wrap(errs.BadFrame, err, "decoding %s", k)
			}
			if f.Tags == nil {
				f.Tags = make(map[st][]st)
			}
			f.Tags[k[1:]] = vals
		default:
			log.D.F("ignoring unknown filter field %q", k)
		}
	}
	return
}

func unmarshalHexArray(v json.RawMessage) (out []by, err er) {
	var hs []st
	if err = json.Unmarshal(v, &hs); err != nil {
		return nil, errs.Wrap(errs.BadFrame, err, "decoding hex array")
	}
	for _, h := range hs {
		if !hex.IsLower(h) {
			return nil, errs.New(errs.InvalidHex, "%q is not lower case hex", h)
		}
		var b by
		if b, err = hex.Dec(h); err != nil {
			return nil, errs.Wrap(errs.InvalidHex, err, "decoding %q", h)
		}
		out = append(out, b)
	}
	return
}

func containsBytes(list []by, b by) bo {
	for _, x := range list {
		if equals(x, b) {
			return true
		}
	}
	return false
}

// Matches reports whether an event satisfies every constraint of the filter.
// Limit plays no part in matching.
func (f *T) Matches(ev *event.T) bo {
	if ev == nil {
		return false
	}
	if len(f.IDs) > 0 && !containsBytes(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsBytes(f.Authors, ev.Pubkey) {
		return false
	}
	if len(f.Kinds) > 0 {
		var found bo
		for _, k := range f.Kinds {
			if k.Equal(ev.Kind) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for k, vals := range f.Tags {
		var found bo
		for _, v := range vals {
			if ev.Tags.ContainsValue(k, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt.I64() < f.Since.I64() {
		return false
	}
	if f.Until != nil && ev.CreatedAt.I64() > f.Until.I64() {
		return false
	}
	return true
}
