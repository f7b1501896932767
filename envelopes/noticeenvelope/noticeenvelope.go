// Package noticeenvelope is the NOTICE message, a human readable message from
// a relay.
package noticeenvelope

import (
	"encoding/json"

	"luminaflow.lol/envelopes"
)

const L = "NOTICE"

// T is ["NOTICE", <message>].
type T struct {
	Message st
}

var _ envelopes.I = (*T)(nil)

func New() *T { return &T{} }

func NewFrom(s st) *T { return &T{Message: s} }

func (en *T) Label() st { return L }

func (en *T) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, func(o by) by {
		return envelopes.AppendString(o, en.Message)
	})
}

func (en *T) Unmarshal(b by) (r by, err er) {
	var els []json.RawMessage
	if els, err = envelopes.Elements(b); err != nil {
		return
	}
	if err = envelopes.Count(L, els, 1); err != nil {
		return
	}
	en.Message, err = envelopes.String(els[0])
	return
}
