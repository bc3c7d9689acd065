package canonicaljson

import (
	"bytes"
	"sort"
	"strconv"
)

// Marshal serializes v as canonical JSON: object keys sorted lexicographically
// on their UTF-8 bytes at every nesting level, no insignificant whitespace,
// integers with no fraction or exponent, and unicode encoded directly rather
// than as "\u" escapes (except for the mandatory control-character escapes).
func Marshal(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInteger:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindString:
		writeString(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, e)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		keys := v.obj.Keys()
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			val, _ := v.obj.Get(k)
			writeValue(buf, val)
		}
		buf.WriteByte('}')
	}
}

// writeString writes s as a JSON string literal using only the minimal set
// of required escapes: '"', '\\', and the control characters below 0x20.
// All other bytes, including multi-byte UTF-8 sequences, are copied through
// unchanged.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			buf.WriteString(`\"`)
		case c == '\\':
			buf.WriteString(`\\`)
		case c == '\n':
			buf.WriteString(`\n`)
		case c == '\r':
			buf.WriteString(`\r`)
		case c == '\t':
			buf.WriteString(`\t`)
		case c < 0x20:
			buf.WriteString(`\u00`)
			const hex = "0123456789abcdef"
			buf.WriteByte(hex[c>>4])
			buf.WriteByte(hex[c&0xF])
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}

// Canonicalize re-serializes arbitrary (valid) JSON bytes in canonical form.
// It is equivalent to Parse followed by Marshal, provided for callers that
// only need the byte transformation and don't want to hold onto the Value
// tree.
func Canonicalize(data []byte) ([]byte, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Marshal(v), nil
}
