package envelopes

import (
	"luminaflow.lol/text"
)

// Marshaler appends the elements of a message after its label.
type Marshaler func(dst by) (b by)

// Marshal appends a message with the label and the elements m writes.
func Marshal(dst by, label st, m Marshaler) (b by) {
	b = dst
	b = append(b, '[', '"')
	b = append(b, label...)
	b = append(b, '"', ',')
	b = m(b)
	b = append(b, ']')
	return
}

// AppendString appends s as an escaped JSON string.
func AppendString(dst by, s st) by { return text.AppendQuote(dst, by(s), text.NostrEscape) }
