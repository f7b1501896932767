// Package tag provides a nostr tag, an array of strings with a usually single
// letter first "key" field, with methods to access the elements with their
// proper semantics.
package tag

import (
	"luminaflow.lol/text"
)

// The tag position meanings, so they are clear when reading.
const (
	Key = iota
	Value
	Relay
)

// T is a list of strings with a literal ordering.
//
// Not a set, there can be repeating elements.
type T struct {
	field []by
}

// New creates a new tag.T from fields that can be either strings or byte
// slices.
func New[V st | by](fields ...V) (t *T) {
	t = &T{field: make([]by, len(fields))}
	for i, field := range fields {
		t.field[i] = by(field)
	}
	return
}

// S returns a field of a tag.T as a string.
func (t *T) S(i no) (s st) {
	if t.Len() <= i {
		return
	}
	return st(t.field[i])
}

// B returns a field of a tag.T as a byte slice.
func (t *T) B(i no) (b by) {
	if t.Len() <= i {
		return
	}
	return t.field[i]
}

// Len returns the number of elements in a tag.T.
func (t *T) Len() no {
	if t == nil {
		return 0
	}
	return len(t.field)
}

// Key returns the first element of the tag.
func (t *T) Key() by { return t.B(Key) }

// Value returns the second element of the tag.
func (t *T) Value() by { return t.B(Value) }

// KeyIs reports whether the tag has the given key.
func (t *T) KeyIs(k st) bo { return t.Len() > 0 && st(t.field[Key]) == k }

// Equal reports whether two tags have the same fields in the same order.
func (t *T) Equal(t2 *T) bo {
	if t.Len() != t2.Len() {
		return false
	}
	for i := range t.field {
		if !equals(t.field[i], t2.field[i]) {
			return false
		}
	}
	return true
}

// Marshal appends the tag as a JSON array of strings.
func (t *T) Marshal(dst by) (b by) {
	if t == nil {
		return append(dst, '[', ']')
	}
	return text.MarshalStringArray(dst, t.field)
}

// ToStringSlice returns the fields as strings.
func (t *T) ToStringSlice() (s []st) {
	s = make([]st, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		s = append(s, st(t.field[i]))
	}
	return
}
