// Package envelopes is the framing of relay protocol messages: JSON arrays
// whose first element is a label naming the message type.
package envelopes

import (
	"encoding/json"

	"luminaflow.lol/errs"
)

// I is a protocol message that can be written to and read from the wire.
type I interface {
	Label() st
	Marshal(dst by) (b by)
	Unmarshal(b by) (r by, err er)
}

// Identify finds the label of a message. The remainder returned starts after
// the comma that follows the label, which is what the Unmarshal of each
// envelope type expects.
func Identify(b by) (t st, rem by, err er) {
	var openBrackets, openQuotes, afterQuotes bo
	rem = b
	for ; len(rem) > 0; rem = rem[1:] {
		c := rem[0]
		switch {
		case !openBrackets:
			if c == '[' {
				openBrackets = true
			} else if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				err = errs.New(errs.BadFrame, "message is not a JSON array")
				return
			}
		case afterQuotes:
			if c == ',' {
				rem = rem[1:]
				return
			}
			if c == ']' {
				err = errs.New(errs.BadFrame, "%s message has no content", t)
				return
			}
		case openQuotes:
			for i := range rem {
				if rem[i] == '"' {
					t = st(rem[:i])
					rem = rem[i:]
					afterQuotes = true
					break
				}
			}
			if !afterQuotes {
				err = errs.New(errs.BadFrame, "unterminated label")
				return
			}
		case c == '"':
			openQuotes = true
		}
	}
	if t == "" {
		err = errs.New(errs.BadFrame, "message has no label")
	}
	return
}

// Elements decodes the remainder of a message after its label into its raw
// JSON elements.
func Elements(rem by) (els []json.RawMessage, err er) {
	b := make(by, 0, len(rem)+1)
	b = append(b, '[')
	b = append(b, rem...)
	if err = json.Unmarshal(b, &els); err != nil {
		err = errs.Wrap(errs.BadFrame, err, "decoding message elements")
	}
	return
}

// String decodes a JSON string element.
func String(el json.RawMessage) (s st, err er) {
	if err = json.Unmarshal(el, &s); err != nil {
		err = errs.Wrap(errs.BadFrame, err, "expected a string, got %s", el)
	}
	return
}

// Count checks a message has at least n elements after its label.
func Count(label st, els []json.RawMessage, n no) (err er) {
	if len(els) < n {
		err = errs.New(errs.BadFrame, "%s message needs %d elements, got %d", label,
			n, len(els))
	}
	return
}
