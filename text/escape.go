package text

const lowerHex = "0123456789abcdef"

// NostrEscape appends src to dst escaped for a JSON string in the canonical
// form used for event ids:
//
//   - A line break, 0x0A, as \n
//   - A double quote, 0x22, as \"
//   - A backslash, 0x5C, as \\
//   - A carriage return, 0x0D, as \r
//   - A tab character, 0x09, as \t
//   - A backspace, 0x08, as \b
//   - A form feed, 0x0C, as \f
//
// Any other byte below 0x20 is written as \u00xx with lower case hex. All
// other bytes, including multi-byte UTF-8 sequences, are copied verbatim.
func NostrEscape(dst, src by) by {
	for _, c := range src {
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', lowerHex[c>>4], lowerHex[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// AppendBytesClosure is a function that appends src to dst, possibly
// transforming it.
type AppendBytesClosure func(dst, src by) by

// AppendQuote appends src to dst surrounded by quotes, transformed by ac.
func AppendQuote(dst, src by, ac AppendBytesClosure) by {
	dst = append(dst, '"')
	dst = ac(dst, src)
	dst = append(dst, '"')
	return dst
}

// Noop appends src unchanged.
func Noop(dst, src by) by { return append(dst, src...) }
