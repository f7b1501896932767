// Package errs is the typed error taxonomy of the client. Every failure the
// protocol, crypto and session layers report is an *E carrying a Class and a
// Code, so callers can branch with errors.Is against the sentinels here.
package errs

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Class is the broad family an error belongs to.
type Class uint8

const (
	NoClass Class = iota
	Encoding
	Crypto
	Network
	Protocol
	Session
)

var classNames = map[Class]string{
	NoClass:  "error",
	Encoding: "encoding",
	Crypto:   "crypto",
	Network:  "network",
	Protocol: "protocol",
	Session:  "session",
}

func (c Class) String() string { return classNames[c] }

// Code is the specific failure.
type Code uint8

const (
	NoCode Code = iota
	InvalidPrefix
	InvalidLength
	ChecksumError
	InvalidHex
	InvalidKey
	MalformedPayload
	DecryptionFailed
	BadSignature
	BadID
	SessionClosed
	Rejected
	ConnectFailed
	SendFailed
	ConnectionLost
	BadFrame
)

var codes = map[Code]struct {
	name  string
	class Class
}{
	InvalidPrefix:    {"invalid prefix", Encoding},
	InvalidLength:    {"invalid length", Encoding},
	ChecksumError:    {"checksum error", Encoding},
	InvalidHex:       {"invalid hex", Encoding},
	InvalidKey:       {"invalid key", Crypto},
	MalformedPayload: {"malformed payload", Encoding},
	DecryptionFailed: {"decryption failed", Crypto},
	BadSignature:     {"bad signature", Crypto},
	BadID:            {"bad id", Crypto},
	SessionClosed:    {"session closed", Session},
	Rejected:         {"rejected", Protocol},
	ConnectFailed:    {"connect failed", Network},
	SendFailed:       {"send failed", Network},
	ConnectionLost:   {"connection lost", Network},
	BadFrame:         {"bad frame", Protocol},
}

func (c Code) String() string {
	if d, ok := codes[c]; ok {
		return d.name
	}
	return "unknown"
}

// Class returns the family a code belongs to.
func (c Code) Class() Class { return codes[c].class }

// E is a classified error. Msg is the human readable detail and Err the
// underlying cause, if any.
type E struct {
	Class Class
	Code  Code
	Msg   string
	Err   error
}

func (e *E) Error() (s string) {
	s = e.Class.String()
	if e.Code != NoCode {
		s += ": " + e.Code.String()
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return
}

func (e *E) Unwrap() error { return e.Err }

// Is matches a sentinel by Code, or by Class when the sentinel has no Code.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	if t.Code != NoCode {
		return t.Code == e.Code
	}
	return t.Class == e.Class
}

// Sentinels for errors.Is.
var (
	EncodingError = &E{Class: Encoding}
	CryptoError   = &E{Class: Crypto}
	NetworkError  = &E{Class: Network}
	ProtocolError = &E{Class: Protocol}
	SessionError  = &E{Class: Session}

	ErrInvalidPrefix    = sentinel(InvalidPrefix)
	ErrInvalidLength    = sentinel(InvalidLength)
	ErrChecksum         = sentinel(ChecksumError)
	ErrInvalidHex       = sentinel(InvalidHex)
	ErrInvalidKey       = sentinel(InvalidKey)
	ErrMalformedPayload = sentinel(MalformedPayload)
	ErrDecryptionFailed = sentinel(DecryptionFailed)
	ErrBadSignature     = sentinel(BadSignature)
	ErrBadID            = sentinel(BadID)
	ErrSessionClosed    = sentinel(SessionClosed)
	ErrRejected         = sentinel(Rejected)
	ErrConnectFailed    = sentinel(ConnectFailed)
	ErrSendFailed       = sentinel(SendFailed)
	ErrConnectionLost   = sentinel(ConnectionLost)
	ErrBadFrame         = sentinel(BadFrame)
)

func sentinel(c Code) *E { return &E{Class: c.Class(), Code: c} }

// New creates an error with the given code and a formatted message.
func New(code Code, format string, a ...any) *E {
	return &E{Class: code.Class(), Code: code, Msg: fmt.Sprintf(format, a...)}
}

// Wrap creates an error with the given code around a cause, recording the
// stack at the point of wrapping.
func Wrap(code Code, cause error, format string, a ...any) *E {
	if cause != nil {
		if _, ok := cause.(*E); !ok {
			cause = pkgerrors.WithStack(cause)
		}
	}
	return &E{Class: code.Class(), Code: code, Msg: fmt.Sprintf(format, a...),
		Err: cause}
}

// Encode wraps a failure that is an encoding error but has no finer code.
func Encode(cause error, format string, a ...any) *E {
	return &E{Class: Encoding, Msg: fmt.Sprintf(format, a...),
		Err: pkgerrors.WithStack(cause)}
}

// CodeOf returns the Code of the first *E in the chain of err.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return NoCode
}

// ClassOf returns the Class of the first *E in the chain of err.
func ClassOf(err error) Class {
	var e *E
	if errors.As(err, &e) {
		return e.Class
	}
	return NoClass
}
