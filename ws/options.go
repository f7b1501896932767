package ws

import (
	"time"
)

// Option is the type of the options a Client can be created with.
type Option interface {
	IsRelayOption()
}

// WithNoticeHandler takes notices from the relay. When not given, notices are
// logged.
type WithNoticeHandler func(notice st)

// WithStatusHandler is told of every change of the connection Status. It may
// be called from any goroutine and must not block.
type WithStatusHandler func(s Status)

// WithErrorHandler is told of background errors: failed connection attempts,
// lost connections and malformed relay messages.
type WithErrorHandler func(err er)

// WithRetryDelay is the fixed wait between connection attempts.
type WithRetryDelay time.Duration

// WithConnectTimeout bounds each connection attempt.
type WithConnectTimeout time.Duration

// WithPublishTimeout is how long Publish waits for the relay's OK.
type WithPublishTimeout time.Duration

// WithAssumeValid skips signature verification of events from this relay.
type WithAssumeValid bo

func (_ WithNoticeHandler) IsRelayOption()  {}
func (_ WithStatusHandler) IsRelayOption()  {}
func (_ WithErrorHandler) IsRelayOption()   {}
func (_ WithRetryDelay) IsRelayOption()     {}
func (_ WithConnectTimeout) IsRelayOption() {}
func (_ WithPublishTimeout) IsRelayOption() {}
func (_ WithAssumeValid) IsRelayOption()    {}

var (
	_ Option = (WithNoticeHandler)(nil)
	_ Option = (WithStatusHandler)(nil)
	_ Option = (WithErrorHandler)(nil)
	_ Option = WithRetryDelay(0)
	_ Option = WithConnectTimeout(0)
	_ Option = WithPublishTimeout(0)
	_ Option = WithAssumeValid(false)
)

// SubscriptionOption is the type of the options a Subscription can be made
// with.
type SubscriptionOption interface {
	IsSubscriptionOption()
}

// WithLabel puts a label on the subscription id, which is prepended to a
// random suffix.
type WithLabel st

// WithEOSEHandler is called when the relay has sent every stored event, and
// again each time the subscription is sent anew after a reconnect.
type WithEOSEHandler func()

// WithClosedHandler is called when the relay ends the subscription with a
// CLOSED message.
type WithClosedHandler func(reason st)

func (_ WithLabel) IsSubscriptionOption()         {}
func (_ WithEOSEHandler) IsSubscriptionOption()   {}
func (_ WithClosedHandler) IsSubscriptionOption() {}

var (
	_ SubscriptionOption = WithLabel("")
	_ SubscriptionOption = (WithEOSEHandler)(nil)
	_ SubscriptionOption = (WithClosedHandler)(nil)
)
