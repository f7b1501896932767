// Package eventenvelope is the EVENT message, which a client sends to
// publish an event and a relay sends to deliver one to a subscription.
package eventenvelope

import (
	"encoding/json"

	"luminaflow.lol/envelopes"
	"luminaflow.lol/event"
)

const L = "EVENT"

// Submission is ["EVENT", <event>], sent by a client to publish.
type Submission struct {
	*event.T
}

var _ envelopes.I = (*Submission)(nil)

func NewSubmission() *Submission                { return &Submission{T: &event.T{}} }
func NewSubmissionWith(ev *event.T) *Submission { return &Submission{T: ev} }
func (en *Submission) Label() st                { return L }

func (en *Submission) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, en.T.Marshal)
}

func (en *Submission) Unmarshal(b by) (r by, err er) {
	var els []json.RawMessage
	if els, err = envelopes.Elements(b); err != nil {
		return
	}
	if err = envelopes.Count(L, els, 1); err != nil {
		return
	}
	en.T = &event.T{}
	err = en.T.Unmarshal(els[0])
	return
}

// Result is ["EVENT", <subscription id>, <event>], sent by a relay for an
// event matching a subscription.
type Result struct {
	Subscription st
	Event        *event.T
}

var _ envelopes.I = (*Result)(nil)

func NewResult() *Result { return &Result{} }

func NewResultWith(id st, ev *event.T) *Result { return &Result{Subscription: id, Event: ev} }

func (en *Result) Label() st { return L }

func (en *Result) Marshal(dst by) (b by) {
	return envelopes.Marshal(dst, L, func(o by) by {
		o = envelopes.AppendString(o, en.Subscription)
		o = append(o, ',')
		return en.Event.Marshal(o)
	})
}

func (en *Result) Unmarshal(b by) (r by, err er) {
	var els []json.RawMessage
	if els, err = envelopes.Elements(b); err != nil {
		return
	}
	if err = envelopes.Count(L, els, 2); err != nil {
		return
	}
	if en.Subscription, err = envelopes.String(els[0]); err != nil {
		return
	}
	en.Event = &event.T{}
	err = en.Event.Unmarshal(els[1])
	return
}
