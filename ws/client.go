// Package ws is the session with one relay: a websocket connection that is
// kept up by reconnecting, one writer goroutine that owns every write, one
// reader goroutine that dispatches relay messages, and the registry of
// subscriptions and pending publishes.
package ws

import (
	"bytes"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"luminaflow.lol/context"
	"luminaflow.lol/envelopes"
	"luminaflow.lol/envelopes/closedenvelope"
	"luminaflow.lol/envelopes/eoseenvelope"
	"luminaflow.lol/envelopes/eventenvelope"
	"luminaflow.lol/envelopes/noticeenvelope"
	"luminaflow.lol/envelopes/okenvelope"
	"luminaflow.lol/envelopes/reqenvelope"
	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/hex"
	"luminaflow.lol/normalize"
)

const (
	DefaultRetryDelay     = 5 * time.Second
	DefaultConnectTimeout = 7 * time.Second
	DefaultPublishTimeout = 4 * time.Second
	DefaultQueryTimeout   = 7 * time.Second
	pingInterval          = 29 * time.Second
	writeTimeout          = 5 * time.Second
)

// Client is a session with a relay.
type Client struct {
	// Ctx is canceled by Close.
	Ctx    cx
	cancel context.F
	url    st
	// RequestHeader is sent with the websocket handshake, e.g. for an origin
	// header.
	RequestHeader http.Header

	mx         sync.Mutex
	status     Status
	conn       *Connection
	connCancel context.F
	wg         sync.WaitGroup
	dialMx     sync.Mutex

	reconnecting atomic.Bool
	// handlers counts caller supplied handlers that are running.
	handlers atomic.Int32

	Subscriptions *xsync.MapOf[st, *Subscription]
	okCallbacks   *xsync.MapOf[st, []*okWaiter]
	writeQueue    chan writeRequest

	retryDelay     time.Duration
	connectTimeout time.Duration
	publishTimeout time.Duration
	noticeHandler  func(notice st)
	statusHandler  func(s Status)
	errorHandler   func(err er)

	// AssumeValid skips verifying signatures of events from this relay.
	AssumeValid bo
}

// okWaiter is one Publish waiting for the relay's OK. The same event may be
// published more than once at a time, so each id holds a list of them.
type okWaiter struct {
	finish func(err er)
}

type writeRequest struct {
	msg    by
	answer func(err er)
}

// NewClient returns a new relay session, not yet connected. The session ends
// when Close is called or the context is canceled.
func NewClient(c cx, url st, opts ...Option) (r *Client) {
	ctx, cancel := context.Cancel(c)
	r = &Client{
		Ctx:            ctx,
		cancel:         cancel,
		url:            st(normalize.URL(url)),
		Subscriptions:  xsync.NewMapOf[st, *Subscription](),
		okCallbacks:    xsync.NewMapOf[st, []*okWaiter](),
		writeQueue:     make(chan writeRequest),
		retryDelay:     DefaultRetryDelay,
		connectTimeout: DefaultConnectTimeout,
		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case WithNoticeHandler:
			r.noticeHandler = o
		case WithStatusHandler:
			r.statusHandler = o
		case WithErrorHandler:
			r.errorHandler = o
		case WithRetryDelay:
			r.retryDelay = time.Duration(o)
		case WithConnectTimeout:
			r.connectTimeout = time.Duration(o)
		case WithPublishTimeout:
			r.publishTimeout = time.Duration(o)
		case WithAssumeValid:
			r.AssumeValid = bo(o)
		}
	}
	// a canceled parent context closes the session
	context.AfterFunc(ctx, func() {
		if c.Err() != nil {
			chk.D(r.Close())
		}
	})
	return
}

// Connect creates a Client and connects it, retrying until it succeeds or
// the context is done.
func Connect(c cx, url st, opts ...Option) (r *Client, err er) {
	r = NewClient(context.Bg(), url, opts...)
	if err = r.Connect(c); err != nil {
		chk.D(r.Close())
	}
	return
}

// URL is the normalized address of the relay.
func (r *Client) URL() st { return r.url }

func (r *Client) String() st { return r.url }

// Status returns the current state of the connection.
func (r *Client) Status() (s Status) {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.status
}

// IsConnected reports whether the connection is up.
func (r *Client) IsConnected() bo { return r.Status() == Connected }

func (r *Client) notify(s Status) {
	log.D.F("{%s} %s", r.url, s)
	if r.statusHandler != nil {
		r.handler(func() { r.statusHandler(s) })
	}
}

func (r *Client) reportError(err er) {
	if r.errorHandler != nil {
		r.handler(func() { r.errorHandler(err) })
	}
}

// handler runs a caller supplied handler. While any is running, Close does not
// wait for the session goroutines, since the handler may be running on one of
// them.
func (r *Client) handler(fn func()) {
	r.handlers.Add(1)
	defer r.handlers.Add(-1)
	fn()
}

func (r *Client) closedErr() er {
	return errs.New(errs.SessionClosed, "session with %s is closed", r.url)
}

// Connect dials the relay, and on failure keeps trying with a fixed delay
// between attempts, until it connects, the context is done or the Client is
// closed. Once connected, every registered subscription is sent again.
func (r *Client) Connect(c cx) (err er) {
	for {
		if err = r.dial(c); err == nil {
			return
		}
		if errs.CodeOf(err) == errs.SessionClosed {
			return
		}
		if c.Err() != nil {
			return c.Err()
		}
		log.W.F("{%s} %v; retrying in %v", r.url, err, r.retryDelay)
		r.reportError(err)
		select {
		case <-time.After(r.retryDelay):
		case <-c.Done():
			return c.Err()
		case <-r.Ctx.Done():
			return r.closedErr()
		}
	}
}

// dial makes one connection attempt, unless already connected.
func (r *Client) dial(c cx) (err er) {
	r.dialMx.Lock()
	defer r.dialMx.Unlock()
	r.mx.Lock()
	switch r.status {
	case Connected:
		r.mx.Unlock()
		return
	case Closing, Closed:
		r.mx.Unlock()
		return r.closedErr()
	}
	r.status = Connecting
	r.mx.Unlock()
	r.notify(Connecting)
	if r.url == "" {
		r.setDisconnected()
		return errs.New(errs.ConnectFailed, "invalid relay URL")
	}
	dc, cancel := context.Timeout(c, r.connectTimeout)
	defer cancel()
	stop := context.AfterFunc(r.Ctx, cancel)
	defer stop()
	var conn *Connection
	if conn, err = NewConnection(dc, r.url, r.RequestHeader, nil); err != nil {
		r.setDisconnected()
		err = errs.Wrap(errs.ConnectFailed, err, "connecting to %s", r.url)
		return
	}
	connCtx, connCancel := context.Cancel(r.Ctx)
	r.mx.Lock()
	if r.status != Connecting {
		r.mx.Unlock()
		connCancel()
		chk.D(conn.Close())
		return r.closedErr()
	}
	r.status, r.conn, r.connCancel = Connected, conn, connCancel
	r.wg.Add(2)
	r.mx.Unlock()
	go r.writeLoop(connCtx, conn)
	go r.MessageReadLoop(connCtx, conn)
	log.I.F("connected to %s", r.url)
	r.notify(Connected)
	r.resubscribe()
	return
}

func (r *Client) setDisconnected() {
	r.mx.Lock()
	changed := r.status == Connecting
	if changed {
		r.status = Disconnected
	}
	r.mx.Unlock()
	if changed {
		r.notify(Disconnected)
	}
}

// resubscribe sends the REQ of every registered subscription.
func (r *Client) resubscribe() {
	r.Subscriptions.Range(func(id st, sub *Subscription) bo {
		sub.eosed.Store(false)
		r.enqueue(reqenvelope.NewFrom(id, sub.Filter).Marshal(nil), func(err er) {
			if err != nil {
				log.D.F("{%s} resubscribing %s: %v", r.url, id, err)
			}
		})
		return true
	})
}

// connectionLost tears down a broken connection and schedules a reconnect. It
// does nothing if conn is no longer the current connection.
func (r *Client) connectionLost(conn *Connection, cause er) {
	r.mx.Lock()
	if r.conn != conn {
		r.mx.Unlock()
		return
	}
	r.conn, r.status = nil, Disconnected
	cancel := r.connCancel
	r.mx.Unlock()
	cancel()
	chk.T(conn.Close())
	err := errs.Wrap(errs.ConnectionLost, cause, "connection to %s", r.url)
	log.W.Ln(err)
	r.notify(Disconnected)
	r.reportError(err)
	r.reconnect()
}

// reconnect starts one background loop of connection attempts, if there is
// not one already.
func (r *Client) reconnect() {
	if r.Ctx.Err() != nil || !r.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		for {
			select {
			case <-time.After(r.retryDelay):
			case <-r.Ctx.Done():
				r.reconnecting.Store(false)
				return
			}
			err := r.dial(r.Ctx)
			if err == nil || errs.CodeOf(err) == errs.SessionClosed {
				r.reconnecting.Store(false)
				// the new connection may have dropped before the flag was
				// cleared, and then nobody else is reconnecting
				if err == nil && r.Status() == Disconnected {
					r.reconnect()
				}
				return
			}
			log.W.F("{%s} %v; retrying in %v", r.url, err, r.retryDelay)
			r.reportError(err)
		}
	}()
}

// writeLoop owns every write to the connection, and pings the relay
// periodically.
func (r *Client) writeLoop(c cx, conn *Connection) {
	defer r.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	var err er
	for {
		select {
		case <-ticker.C:
			if err = conn.Ping(); err != nil {
				log.D.F("{%s} error writing ping: %v", r.url, err)
				r.connectionLost(conn, err)
				return
			}
		case wr := <-r.writeQueue:
			if err = conn.WriteMessage(c, wr.msg); err != nil {
				err = errs.Wrap(errs.SendFailed, err, "writing to %s", r.url)
			}
			wr.answer(err)
			if err != nil {
				r.connectionLost(conn, err)
				return
			}
		case <-c.Done():
			return
		}
	}
}

// enqueue hands a message to the writer. answer is called exactly once with
// the result of the write, and must not block.
func (r *Client) enqueue(msg by, answer func(err er)) {
	switch r.Status() {
	case Connected:
	case Closing, Closed:
		answer(r.closedErr())
		return
	default:
		answer(errs.New(errs.SendFailed, "not connected to %s", r.url))
		r.reconnect()
		return
	}
	timeout := time.NewTimer(writeTimeout)
	defer timeout.Stop()
	select {
	case r.writeQueue <- writeRequest{msg: msg, answer: answer}:
	case <-r.Ctx.Done():
		answer(r.closedErr())
	case <-timeout.C:
		answer(errs.New(errs.SendFailed, "write to %s timed out", r.url))
	}
}

// Write queues a message to be sent to the relay. The channel receives the
// result of the write.
func (r *Client) Write(msg by) (ch chan er) {
	ch = make(chan er, 1)
	r.enqueue(msg, func(err er) { ch <- err })
	return
}

// MessageReadLoop reads messages from the connection and dispatches them
// until the connection fails.
func (r *Client) MessageReadLoop(c cx, conn *Connection) {
	defer r.wg.Done()
	for {
		buf := new(bytes.Buffer)
		if err := conn.ReadMessage(c, buf); err != nil {
			r.connectionLost(conn, err)
			return
		}
		r.HandleMessage(buf.Bytes())
	}
}

func (r *Client) badMessage(message by, err er) {
	err = errs.Wrap(errs.BadFrame, err, "from %s: %.256s", r.url, message)
	log.D.Ln(err)
	r.reportError(err)
}

// HandleMessage decodes one relay message and dispatches it. Handlers run
// here, in the order messages arrive.
func (r *Client) HandleMessage(message by) {
	var err er
	var t st
	var rem by
	if t, rem, err = envelopes.Identify(message); err != nil {
		r.badMessage(message, err)
		return
	}
	switch t {
	case noticeenvelope.L:
		env := noticeenvelope.New()
		if _, err = env.Unmarshal(rem); err != nil {
			r.badMessage(message, err)
			return
		}
		if r.noticeHandler != nil {
			r.handler(func() { r.noticeHandler(env.Message) })
		} else {
			log.I.F("NOTICE from %s: '%s'", r.url, env.Message)
		}

	case eventenvelope.L:
		env := eventenvelope.NewResult()
		if _, err = env.Unmarshal(rem); err != nil {
			r.badMessage(message, err)
			return
		}
		sub, ok := r.Subscriptions.Load(env.Subscription)
		if !ok {
			log.D.F("{%s} no subscription with id '%s'", r.url, env.Subscription)
			return
		}
		if !sub.Filter.Matches(env.Event) {
			log.D.F("{%s} filter does not match: %s ~ %s", r.url,
				sub.Filter.Serialize(), env.Event.Serialize())
			return
		}
		if !r.AssumeValid {
			if ok, err = env.Event.Verify(); !ok {
				log.D.F("{%s} dropping event %s: %v", r.url, env.Event.IDString(), err)
				return
			}
		}
		r.handler(func() { sub.dispatchEvent(env.Event) })

	case eoseenvelope.L:
		env := eoseenvelope.New()
		if _, err = env.Unmarshal(rem); err != nil {
			r.badMessage(message, err)
			return
		}
		if sub, ok := r.Subscriptions.Load(env.Subscription); ok {
			r.handler(sub.dispatchEOSE)
		}

	case closedenvelope.L:
		env := closedenvelope.New()
		if _, err = env.Unmarshal(rem); err != nil {
			r.badMessage(message, err)
			return
		}
		log.I.F("{%s} subscription %s closed by relay: %s", r.url, env.Subscription,
			env.ReasonString())
		if sub, ok := r.Subscriptions.LoadAndDelete(env.Subscription); ok {
			r.handler(func() { sub.dispatchClosed(env.ReasonString()) })
		}

	case okenvelope.L:
		env := okenvelope.New()
		if _, err = env.Unmarshal(rem); err != nil {
			r.badMessage(message, err)
			return
		}
		id := hex.Enc(env.EventID)
		waiters, ok := r.okCallbacks.LoadAndDelete(id)
		if !ok {
			log.D.F("{%s} got an unexpected OK message for event %s", r.url, id)
			return
		}
		var res er
		if env.OK {
			if normalize.IsDuplicate(env.Reason) {
				log.D.F("{%s} already had event %s", r.url, id)
			}
		} else {
			if p := normalize.PrefixOf(env.Reason); p != nil {
				log.D.F("{%s} rejected event %s as %s", r.url, id, p.S())
			}
			res = errs.New(errs.Rejected, "relay %s rejected event %s: %s", r.url, id,
				env.ReasonString())
		}
		for _, w := range waiters {
			w.finish(res)
		}

	default:
		r.badMessage(message, errs.New(errs.BadFrame, "unknown message type %q", t))
	}
}

// Publish sends an event to the relay and returns at once. The channel
// receives exactly one result: nil when the relay accepts the event, a
// Rejected error with the relay's reason, the error of a failed write, or the
// context error when no answer comes within the publish timeout. A failed
// write triggers a reconnect but the event is not sent again.
func (r *Client) Publish(c cx, ev *event.T) <-chan er {
	res := make(chan er, 1)
	id := hex.Enc(ev.ID)
	pc, cancel := context.Timeout(c, r.publishTimeout)
	w := &okWaiter{}
	var once sync.Once
	w.finish = func(err er) {
		once.Do(func() {
			r.dropWaiter(id, w)
			res <- err
			cancel()
		})
	}
	r.addWaiter(id, w)
	context.AfterFunc(pc, func() { w.finish(pc.Err()) })
	r.enqueue(eventenvelope.NewSubmissionWith(ev).Marshal(nil), func(err er) {
		if err != nil {
			w.finish(err)
		}
	})
	return res
}

func (r *Client) addWaiter(id st, w *okWaiter) {
	r.okCallbacks.Compute(id, func(old []*okWaiter, _ bo) ([]*okWaiter, bo) {
		return append(old[:len(old):len(old)], w), false
	})
}

func (r *Client) dropWaiter(id st, w *okWaiter) {
	r.okCallbacks.Compute(id, func(old []*okWaiter, _ bo) ([]*okWaiter, bo) {
		kept := make([]*okWaiter, 0, len(old))
		for _, o := range old {
			if o != w {
				kept = append(kept, o)
			}
		}
		return kept, len(kept) == 0
	})
}

// PublishSync sends an event and waits for the result.
func (r *Client) PublishSync(c cx, ev *event.T) (err er) { return <-r.Publish(c, ev) }

// Close ends the session: the socket is closed, the goroutines are waited for
// and pending publishes fail. Every later operation fails with SessionClosed.
//
// Called from a handler, or while one runs, Close returns once the socket is
// closed, and Status reports Closed after the session goroutines have exited.
func (r *Client) Close() (err er) {
	r.mx.Lock()
	if r.status == Closing || r.status == Closed {
		r.mx.Unlock()
		return
	}
	r.status = Closing
	conn := r.conn
	r.conn = nil
	r.mx.Unlock()
	r.notify(Closing)
	r.cancel()
	if conn != nil {
		chk.T(conn.Close())
	}
	if r.handlers.Load() > 0 {
		go r.closed()
		return
	}
	r.closed()
	return
}

// closed waits for the session goroutines, fails pending publishes and marks
// the session Closed.
func (r *Client) closed() {
	r.wg.Wait()
	var pending []*okWaiter
	r.okCallbacks.Range(func(_ st, ws []*okWaiter) bo {
		pending = append(pending, ws...)
		return true
	})
	err := r.closedErr()
	for _, w := range pending {
		w.finish(err)
	}
	r.mx.Lock()
	r.status = Closed
	r.mx.Unlock()
	r.notify(Closed)
}
