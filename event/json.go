package event

import (
	"encoding/json"

	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/kind"
	"luminaflow.lol/tags"
	"luminaflow.lol/text"
	"luminaflow.lol/timestamp"
)

var (
	jId        = by("id")
	jPubkey    = by("pubkey")
	jCreatedAt = by("created_at")
	jKind      = by("kind")
	jTags      = by("tags")
	jContent   = by("content")
	jSig       = by("sig")
)

// Marshal appends the JSON object form of an event.T to dst.
func (ev *T) Marshal(dst by) (b by) {
	dst = append(dst, '{')
	dst = text.JSONKey(dst, jId)
	dst = text.AppendQuote(dst, ev.ID, hex.EncAppend)
	dst = append(dst, ',')
	dst = text.JSONKey(dst, jPubkey)
	dst = text.AppendQuote(dst, ev.Pubkey, hex.EncAppend)
	dst = append(dst, ',')
	dst = text.JSONKey(dst, jCreatedAt)
	dst = ev.CreatedAt.Marshal(dst)
	dst = append(dst, ',')
	dst = text.JSONKey(dst, jKind)
	dst = ev.Kind.Marshal(dst)
	dst = append(dst, ',')
	dst = text.JSONKey(dst, jTags)
	dst = ev.Tags.Marshal(dst)
	dst = append(dst, ',')
	dst = text.JSONKey(dst, jContent)
	dst = text.AppendQuote(dst, ev.Content, text.NostrEscape)
	dst = append(dst, ',')
	dst = text.JSONKey(dst, jSig)
	dst = text.AppendQuote(dst, ev.Sig, hex.EncAppend)
	dst = append(dst, '}')
	b = dst
	return
}

// Serialize renders the event as JSON.
func (ev *T) Serialize() (b by) { return ev.Marshal(nil) }

func (ev *T) String() st { return st(ev.Marshal(nil)) }

// J is the decoded JSON form of an event, with strings where T has bytes.
type J struct {
	ID        st     `json:"id"`
	Pubkey    st     `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      [][]st `json:"tags"`
	Content   st     `json:"content"`
	Sig       st     `json:"sig"`
}

// ToEventJ converts an event.T to its J form.
func (ev *T) ToEventJ() (j *J) {
	return &J{
		ID:        hex.Enc(ev.ID),
		Pubkey:    hex.Enc(ev.Pubkey),
		CreatedAt: ev.CreatedAt.I64(),
		Kind:      ev.Kind.ToInt(),
		Tags:      ev.Tags.ToStringSlices(),
		Content:   st(ev.Content),
		Sig:       hex.Enc(ev.Sig),
	}
}

// ToEvent converts the J form to an event.T, checking the hex fields have the
// right length.
func (j *J) ToEvent() (ev *T, err er) {
	ev = &T{
		CreatedAt: timestamp.FromUnix(j.CreatedAt),
		Tags:      tags.FromStringSlices(j.Tags),
		Content:   by(j.Content),
	}
	if j.Kind < 0 || j.Kind > 0xffff {
		err = errs.New(errs.BadFrame, "kind %d out of range", j.Kind)
		return
	}
	ev.Kind = kind.New(j.Kind)
	for _, f := range []struct {
		name st
		src  st
		dst  *by
		size no
	}{
		{"id", j.ID, &ev.ID, 32},
		{"pubkey", j.Pubkey, &ev.Pubkey, 32},
		{"sig", j.Sig, &ev.Sig, 64},
	} {
		if !hex.IsLower(f.src) {
			err = errs.New(errs.InvalidHex, "event %s is not lower case hex: %q",
				f.name, f.src)
			return
		}
		if len(f.src) != f.size*2 {
			err = errs.New(errs.InvalidLength, "event %s must be %d bytes, got %d hex characters",
				f.name, f.size, len(f.src))
			return
		}
		if *f.dst, err = hex.Dec(f.src); err != nil {
			err = errs.Wrap(errs.InvalidHex, err, "event %s", f.name)
			return
		}
	}
	return
}

// Unmarshal decodes an event from its JSON object form.
func (ev *T) Unmarshal(b by) (err er) {
	var j J
	if err = json.Unmarshal(b, &j); err != nil {
		err = errs.Wrap(errs.BadFrame, err, "decoding event")
		return
	}
	var e *T
	if e, err = j.ToEvent(); err != nil {
		return
	}
	*ev = *e
	return
}
