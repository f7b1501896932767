// Package profile is the kind 0 metadata event of an account.
package profile

import (
	"encoding/json"
	"sort"

	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/kind"
	"luminaflow.lol/signer"
	"luminaflow.lol/tags"
	"luminaflow.lol/timestamp"
)

// Metadata is the JSON content of a kind 0 event. Fields other than the
// known ones are kept in Extra and written back out unchanged.
type Metadata struct {
	Name        st
	DisplayName st
	About       st
	Picture     st
	Extra       map[st]json.RawMessage
}

const (
	jName        = "name"
	jDisplayName = "display_name"
	jAbout       = "about"
	jPicture     = "picture"
)

// MarshalJSON writes the known fields, omitting empty ones except name, and
// then the extra fields, all in key order.
func (md *Metadata) MarshalJSON() (b by, err er) {
	fields := make(map[st]json.RawMessage, len(md.Extra)+4)
	for k, v := range md.Extra {
		fields[k] = v
	}
	set := func(k, v st, always bo) {
		if v == "" && !always {
			return
		}
		var raw by
		if raw, err = json.Marshal(v); err == nil {
			fields[k] = raw
		}
	}
	set(jName, md.Name, true)
	set(jDisplayName, md.DisplayName, false)
	set(jAbout, md.About, false)
	set(jPicture, md.Picture, false)
	if err != nil {
		return
	}
	keys := make([]st, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b = append(b, '{')
	for i, k := range keys {
		if i > 0 {
			b = append(b, ',')
		}
		var kb by
		if kb, err = json.Marshal(k); err != nil {
			return
		}
		b = append(b, kb...)
		b = append(b, ':')
		b = append(b, fields[k]...)
	}
	b = append(b, '}')
	return
}

// UnmarshalJSON reads the known fields and keeps the rest.
func (md *Metadata) UnmarshalJSON(b by) (err er) {
	var fields map[st]json.RawMessage
	if err = json.Unmarshal(b, &fields); err != nil {
		return
	}
	*md = Metadata{}
	get := func(k st, dst *st) {
		v, ok := fields[k]
		if !ok {
			return
		}
		delete(fields, k)
		if string(v) == "null" {
			return
		}
		if e := json.Unmarshal(v, dst); e != nil && err == nil {
			err = e
		}
	}
	get(jName, &md.Name)
	get(jDisplayName, &md.DisplayName)
	get(jAbout, &md.About)
	get(jPicture, &md.Picture)
	if len(fields) > 0 {
		md.Extra = fields
	}
	return
}

// Event makes a signed kind 0 event carrying the metadata.
func Event(sign signer.I, md *Metadata) (ev *event.T, err er) {
	var content by
	if content, err = json.Marshal(md); chk.E(err) {
		return
	}
	ev = &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.ProfileMetadata,
		Tags:      tags.New(),
		Content:   content,
	}
	if err = ev.Sign(sign); chk.E(err) {
		return nil, err
	}
	return
}

// Parse reads the metadata of a kind 0 event.
func Parse(ev *event.T) (md *Metadata, err er) {
	if ev == nil || !ev.Kind.Equal(kind.ProfileMetadata) {
		err = errs.New(errs.BadFrame, "not a profile metadata event")
		return
	}
	md = &Metadata{}
	if err = json.Unmarshal(ev.Content, md); err != nil {
		err = errs.Encode(err, "profile metadata of %s", ev.PubkeyString())
		md = nil
	}
	return
}
