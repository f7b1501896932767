// Package normalize cleans up relay addresses and reads the machine readable
// prefix of relay OK and CLOSED messages.
package normalize

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var schemes = map[st]st{"ws": "ws", "wss": "wss", "http": "ws", "https": "wss"}

func scheme(u st) (s st, ok bo) {
	i := strings.Index(u, "://")
	if i < 0 {
		return
	}
	s, ok = schemes[u[:i]]
	return
}

// URL turns a relay address into a websocket URL:
//
//   - an address with no scheme gets wss://, unless it names a port other
//     than 443, which gets ws://
//   - http and https become ws and wss
//   - case, surrounding space and trailing slashes are dropped
//
// An address that cannot be made into a websocket URL returns nil.
func URL[V st | by](v V) by {
	u := strings.ToLower(strings.TrimSpace(st(v)))
	if u == "" {
		return nil
	}
	if _, ok := scheme(u); !ok {
		if strings.Contains(u, "://") {
			log.D.F("unsupported scheme in '%s'", u)
			return nil
		}
		host, rest, _ := strings.Cut(u, "/")
		name, port, hasPort := strings.Cut(host, ":")
		switch {
		case !hasPort:
			u = "wss://" + u
		case strings.Contains(port, ":"):
			log.D.F("more than one ':' in URL: '%s'", u)
			return nil
		default:
			p, err := strconv.ParseUint(port, 10, 16)
			if err != nil {
				log.D.F("normalizing URL '%s': %s", u, err)
				return nil
			}
			if p == 443 {
				u = "wss://" + name
				if rest != "" {
					u += "/" + rest
				}
			} else {
				u = "ws://" + u
			}
		}
	}
	p, err := url.Parse(u)
	if err != nil {
		log.D.F("normalizing URL '%s': %s", u, err)
		return nil
	}
	p.Scheme, _ = scheme(u)
	if p.Host == "" {
		return nil
	}
	p.Path = strings.TrimRight(p.Path, "/")
	return by(p.String())
}

// Reason is the machine readable prefix of a relay's OK or CLOSED message.
type Reason by

var (
	AuthRequired = Reason("auth-required")
	PoW          = Reason("pow")
	Duplicate    = Reason("duplicate")
	Blocked      = Reason("blocked")
	RateLimited  = Reason("rate-limited")
	Invalid      = Reason("invalid")
	Error        = Reason("error")
	Restricted   = Reason("restricted")
)

func (r Reason) S() st { return st(r) }

// IsPrefix reports whether the message starts with the reason.
func (r Reason) IsPrefix(msg by) bo {
	return bytes.HasPrefix(msg, r) && len(msg) > len(r) && msg[len(r)] == ':'
}

// F formats a message carrying the reason as its prefix.
func (r Reason) F(format st, params ...any) by { return Msg(r, format, params...) }

// Msg formats a message with a reason prefix, "error" when none is given.
func Msg(r Reason, format st, params ...any) by {
	if len(r) == 0 {
		r = Error
	}
	return fmt.Appendf(append(append(by(nil), r...), ": "...), format, params...)
}

// PrefixOf returns the reason at the start of a message, or nil if the message
// has no prefix.
func PrefixOf(msg by) Reason {
	i := bytes.IndexByte(msg, ':')
	if i <= 0 || bytes.ContainsAny(msg[:i], " \t") {
		return nil
	}
	return Reason(msg[:i])
}

// IsDuplicate reports whether an OK message says the relay already had the
// event.
func IsDuplicate(msg by) bo { return Duplicate.IsPrefix(msg) }
