package ws

import (
	"sync"
	"sync/atomic"

	"luminaflow.lol/context"
	"luminaflow.lol/envelopes/closeenvelope"
	"luminaflow.lol/envelopes/reqenvelope"
	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/filter"
	"luminaflow.lol/subscription"
)

// Handler receives the events of a subscription. It is called on the reader
// goroutine, so a slow handler holds up every other message from the relay.
type Handler func(ev *event.T)

// Subscription is a filter registered on a Client, and the handlers its
// messages go to.
type Subscription struct {
	Client *Client
	Filter *filter.T

	id            st
	label         st
	handler       Handler
	eoseHandler   func()
	closedHandler func(reason st)
	eosed         atomic.Bool
	mx            sync.Mutex
}

// ID is the subscription id sent to the relay.
func (sub *Subscription) ID() st { return sub.id }

// EOSEd reports whether the relay has signalled the end of stored events since
// the subscription was last sent.
func (sub *Subscription) EOSEd() bo { return sub.eosed.Load() }

func (sub *Subscription) dispatchEvent(ev *event.T) {
	sub.mx.Lock()
	h := sub.handler
	sub.mx.Unlock()
	if h != nil {
		h(ev)
	}
}

func (sub *Subscription) dispatchEOSE() {
	if !sub.eosed.CompareAndSwap(false, true) {
		return
	}
	if sub.eoseHandler != nil {
		sub.eoseHandler()
	}
}

func (sub *Subscription) dispatchClosed(reason st) {
	if sub.closedHandler != nil {
		sub.closedHandler(reason)
	}
}

// PrepareSubscription registers a subscription under a new unique id without
// sending it.
func (r *Client) PrepareSubscription(f *filter.T, h Handler,
	opts ...SubscriptionOption) (sub *Subscription) {

	sub = &Subscription{Client: r, Filter: f, handler: h}
	for _, opt := range opts {
		switch o := opt.(type) {
		case WithLabel:
			sub.label = st(o)
		case WithEOSEHandler:
			sub.eoseHandler = o
		case WithClosedHandler:
			sub.closedHandler = o
		}
	}
	subscription.NewID(sub.label, func(id st) bo {
		_, loaded := r.Subscriptions.LoadOrStore(id, sub)
		if !loaded {
			sub.id = id
		}
		return loaded
	})
	return
}

// Fire sends the subscription's REQ to the relay.
func (sub *Subscription) Fire(c cx) (err er) {
	r := sub.Client
	log.D.F("{%s} sending REQ %s", r.url, sub.id)
	sub.eosed.Store(false)
	select {
	case err = <-r.Write(reqenvelope.NewFrom(sub.id, sub.Filter).Marshal(nil)):
	case <-c.Done():
		err = c.Err()
	}
	return
}

// Subscribe registers a filter and sends it to the relay. Events that match
// it go to h until the subscription is closed.
//
// When sending fails, the error is returned along with the subscription,
// which stays registered and is sent again when the connection comes back.
// Call Unsub to drop it.
func (r *Client) Subscribe(c cx, f *filter.T, h Handler,
	opts ...SubscriptionOption) (sub *Subscription, err er) {

	if r.Ctx.Err() != nil {
		return nil, r.closedErr()
	}
	sub = r.PrepareSubscription(f, h, opts...)
	err = sub.Fire(c)
	return
}

// Unsubscribe stops delivery to the subscription with the given id at once
// and asks the relay to close it. Nothing happens for an unknown id.
func (r *Client) Unsubscribe(id st) {
	sub, ok := r.Subscriptions.LoadAndDelete(id)
	if !ok {
		return
	}
	sub.mx.Lock()
	sub.handler = nil
	sub.mx.Unlock()
	if !r.IsConnected() {
		return
	}
	r.enqueue(closeenvelope.NewFrom(id).Marshal(nil), func(err er) {
		if err != nil {
			log.D.F("{%s} closing %s: %v", r.url, id, err)
		}
	})
}

// Unsub closes the subscription.
func (sub *Subscription) Unsub() { sub.Client.Unsubscribe(sub.id) }

// QuerySync subscribes with the filter, collects events until the relay
// signals the end of stored events, then closes the subscription. Without a
// deadline on the context, it gives up after DefaultQueryTimeout and returns
// what it has.
func (r *Client) QuerySync(c cx, f *filter.T,
	opts ...SubscriptionOption) (evs []*event.T, err er) {

	if _, ok := c.Deadline(); !ok {
		var cancel context.F
		c, cancel = context.Timeout(c, DefaultQueryTimeout)
		defer cancel()
	}
	var (
		mx        sync.Mutex
		collected []*event.T
		closedErr er
		stopped   bo
		once      sync.Once
	)
	done := make(chan struct{})
	finish := func() { once.Do(func() { close(done) }) }
	opts = append(opts,
		WithEOSEHandler(finish),
		WithClosedHandler(func(reason st) {
			mx.Lock()
			closedErr = errs.New(errs.Rejected, "relay %s closed query: %s", r.url, reason)
			mx.Unlock()
			finish()
		}))
	var sub *Subscription
	if sub, err = r.Subscribe(c, f, func(ev *event.T) {
		mx.Lock()
		defer mx.Unlock()
		if !stopped {
			collected = append(collected, ev)
		}
	}, opts...); err != nil {
		if sub != nil {
			sub.Unsub()
		}
		return
	}
	select {
	case <-done:
	case <-c.Done():
		log.D.F("{%s} query %s ended before EOSE: %v", r.url, sub.id, c.Err())
	case <-r.Ctx.Done():
		err = r.closedErr()
	}
	sub.Unsub()
	mx.Lock()
	stopped = true
	evs = collected
	if err == nil {
		err = closedErr
	}
	mx.Unlock()
	return
}
