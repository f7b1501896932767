// Package okenvelope is the OK message a relay sends in reply to a published
// event.
package okenvelope

import (
	"encoding/json"

	"luminaflow.lol/envelopes"
	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/text"
)

const L = "OK"

// T is ["OK", <event id>, <accepted>, <reason>].
type T struct {
	EventID by
	OK      bo
	Reason  by
}

var _ envelopes.I = (*T)(nil)

func New() *T { return &T{} }

func NewFrom(eid by, ok bo, reason ...by) *T {
	var m by
	if len(reason) > 0 {
		m = reason[0]
	}
	return &T{EventID: eid, OK: ok, Reason: m}
}

func (en *T) Label() st { return L }

func (en *T) ReasonString() st { return st(en.Reason) }

func (en *T) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, func(o by) by {
		o = text.AppendQuote(o, en.EventID, hex.EncAppend)
		o = append(o, ',')
		if en.OK {
			o = append(o, "true"...)
		} else {
			o = append(o, "false"...)
		}
		o = append(o, ',')
		return text.AppendQuote(o, en.Reason, text.NostrEscape)
	})
}

func (en *T) Unmarshal(b by) (r by, err er) {
	var els []json.RawMessage
	if els, err = envelopes.Elements(b); err != nil {
		return
	}
	if err = envelopes.Count(L, els, 2); err != nil {
		return
	}
	var id st
	if id, err = envelopes.String(els[0]); err != nil {
		return
	}
	if len(id) != 64 || !hex.IsLower(id) {
		err = errs.New(errs.BadFrame, "OK event id %q is not 64 hex characters", id)
		return
	}
	if en.EventID, err = hex.Dec(id); err != nil {
		err = errs.Wrap(errs.BadFrame, err, "OK event id")
		return
	}
	if err = json.Unmarshal(els[1], &en.OK); err != nil {
		err = errs.Wrap(errs.BadFrame, err, "OK status")
		return
	}
	en.Reason = nil
	if len(els) > 2 {
		var reason st
		if reason, err = envelopes.String(els[2]); err != nil {
			return
		}
		en.Reason = by(reason)
	}
	return
}
