// Package reqenvelope is the REQ message a client sends to open a
// subscription.
package reqenvelope

import (
	"encoding/json"

	"luminaflow.lol/envelopes"
	"luminaflow.lol/filter"
)

const L = "REQ"

// T is ["REQ", <subscription id>, <filter>...].
type T struct {
	Subscription st
	Filters      []*filter.T
}

var _ envelopes.I = (*T)(nil)

func New() *T { return &T{} }

func NewFrom(id st, filters ...*filter.T) *T { return &T{Subscription: id, Filters: filters} }

func (en *T) Label() st { return L }

func (en *T) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, func(o by) by {
		o = envelopes.AppendString(o, en.Subscription)
		for _, f := range en.Filters {
			o = append(o, ',')
			o = f.Marshal(o)
		}
		return o
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
	en.Filters = en.Filters[:0]
	for _, el := range els[1:] {
		f := filter.New()
		if err = f.Unmarshal(el); err != nil {
			return
		}
		en.Filters = append(en.Filters, f)
	}
	return
}
