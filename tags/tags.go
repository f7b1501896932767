// Package tags is an ordered list of tag.T.
package tags

import (
	"luminaflow.lol/tag"
)

// T is a list of tag.T, in the order they appear in an event.
type T struct {
	t []*tag.T
}

// New creates a new tags.T from the given tags.
func New(fields ...*tag.T) (t *T) {
	t = &T{t: make([]*tag.T, 0, len(fields))}
	t.t = append(t.t, fields...)
	return
}

// FromStringSlices creates a tags.T from a list of lists of strings as found
// in decoded JSON.
func FromStringSlices(ss [][]st) (t *T) {
	t = &T{t: make([]*tag.T, 0, len(ss))}
	for _, s := range ss {
		t.t = append(t.t, tag.New(s...))
	}
	return
}

// Len returns the number of tags.
func (t *T) Len() no {
	if t == nil {
		return 0
	}
	return len(t.t)
}

// N returns the tag at index i, or nil.
func (t *T) N(i no) *tag.T {
	if t.Len() <= i {
		return nil
	}
	return t.t[i]
}

// AppendTags adds tags to the end of the list.
func (t *T) AppendTags(tt ...*tag.T) *T {
	t.t = append(t.t, tt...)
	return t
}

// GetAll returns every tag with the given key.
func (t *T) GetAll(key st) (found []*tag.T) {
	for _, tg := range t.all() {
		if tg.KeyIs(key) {
			found = append(found, tg)
		}
	}
	return
}

// Values returns the second field of every tag with the given key that has
// one.
func (t *T) Values(key st) (v []st) {
	for _, tg := range t.GetAll(key) {
		if tg.Len() > tag.Value {
			v = append(v, tg.S(tag.Value))
		}
	}
	return
}

// ContainsValue reports whether any tag with the key has the value.
func (t *T) ContainsValue(key, value st) bo {
	for _, tg := range t.GetAll(key) {
		if tg.S(tag.Value) == value {
			return true
		}
	}
	return false
}

func (t *T) all() []*tag.T {
	if t == nil {
		return nil
	}
	return t.t
}

// Marshal appends the tags as a JSON array of arrays of strings.
func (t *T) Marshal(dst by) (b by) {
	dst = append(dst, '[')
	for i, tg := range t.all() {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = tg.Marshal(dst)
	}
	dst = append(dst, ']')
	b = dst
	return
}

// ToStringSlices returns the tags as lists of strings.
func (t *T) ToStringSlices() (ss [][]st) {
	ss = make([][]st, 0, t.Len())
	for _, tg := range t.all() {
		ss = append(ss, tg.ToStringSlice())
	}
	return
}
