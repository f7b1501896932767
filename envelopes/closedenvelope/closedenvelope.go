// Package closedenvelope is the CLOSED message a relay sends when it ends or
// refuses a subscription.
package closedenvelope

import (
	"encoding/json"

	"luminaflow.lol/envelopes"
)

const L = "CLOSED"

// T is ["CLOSED", <subscription id>, <reason>].
type T struct {
	Subscription st
	Reason       by
}

var _ envelopes.I = (*T)(nil)

func New() *T { return &T{} }

func NewFrom(id st, reason by) *T { return &T{Subscription: id, Reason: reason} }

func (en *T) Label() st { return L }

func (en *T) ReasonString() st { return st(en.Reason) }

func (en *T) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, func(o by) by {
		o = envelopes.AppendString(o, en.Subscription)
		o = append(o, ',')
		return envelopes.AppendString(o, st(en.Reason))
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
	if en.Subscription, err = envelopes.String(els[0]); err != nil {
		return
	}
	en.Reason = nil
	if len(els) > 1 {
		var reason st
		if reason, err = envelopes.String(els[1]); err != nil {
			return
		}
		en.Reason = by(reason)
	}
	return
}
