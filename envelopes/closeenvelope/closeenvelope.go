// Package closeenvelope is the CLOSE message, which a client sends to end a
// subscription.
package closeenvelope

import (
	"encoding/json"

	"luminaflow.lol/envelopes"
)

const L = "CLOSE"

// T is ["CLOSE", <subscription id>].
type T struct {
	Subscription st
}

var _ envelopes.I = (*T)(nil)

func New() *T { return &T{} }

func NewFrom(s st) *T { return &T{Subscription: s} }

func (en *T) Label() st { return L }

func (en *T) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, func(o by) by {
		return envelopes.AppendString(o, en.Subscription)
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
	en.Subscription, err = envelopes.String(els[0])
	return
}
