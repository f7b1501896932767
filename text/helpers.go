package text

import (
	"luminaflow.lol/hex"
)

// JSONKey generates the JSON format for an object key and terminates with the
// colon.
func JSONKey(dst, k by) (b by) {
	dst = append(dst, '"')
	dst = append(dst, k...)
	dst = append(dst, '"', ':')
	b = dst
	return
}

// MarshalHexArray appends a JSON array of hex strings.
func MarshalHexArray(dst by, ha []by) (b by) {
	dst = append(dst, '[')
	for i := range ha {
		dst = AppendQuote(dst, ha[i], hex.EncAppend)
		if i != len(ha)-1 {
			dst = append(dst, ',')
		}
	}
	dst = append(dst, ']')
	b = dst
	return
}

// MarshalStringArray appends a JSON array of escaped strings.
func MarshalStringArray[V st | by](dst by, sa []V) (b by) {
	dst = append(dst, '[')
	for i := range sa {
		dst = AppendQuote(dst, by(sa[i]), NostrEscape)
		if i != len(sa)-1 {
			dst = append(dst, ',')
		}
	}
	dst = append(dst, ']')
	b = dst
	return
}
