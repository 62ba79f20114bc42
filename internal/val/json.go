package val

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// WriteJSON renders v as JSON into a fresh byte slice. indent selects the
// 2-space indented multi-line form (with a trailing newline) or the
// minified single-line form. Minified and indented output always parse
// back to the same tree.
//
// A Bytes value that is not valid UTF-8 can't be reinterpreted as a JSON
// string; rather than fail the whole document, it is written inline as
// an Err would be ({"ERROR": "..."}), matching how Err itself never
// aborts serialisation of its surrounding structure.
func WriteJSON(v *Val, indent bool) []byte {
	var buf bytes.Buffer
	writeVal(&buf, v, indent, 0)
	if indent {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeVal(buf *bytes.Buffer, v *Val, indent bool, depth int) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(formatNumber(v.num))
	case KindString:
		writeJSONString(buf, v.str)
	case KindErr:
		buf.WriteString(`{"ERROR":`)
		if indent {
			buf.WriteByte(' ')
		}
		writeJSONString(buf, v.str)
		buf.WriteByte('}')
	case KindBytes:
		if utf8.Valid(v.bytes) {
			writeJSONString(buf, string(v.bytes))
		} else {
			writeVal(buf, NewErr("cannot convert bytes to UTF-8 string"), indent, depth)
		}
	case KindList:
		writeList(buf, v.list, indent, depth)
	case KindMap:
		writeMap(buf, v.m, indent, depth)
	}
}

func writeList(buf *bytes.Buffer, items []*Val, indent bool, depth int) {
	if len(items) == 0 {
		buf.WriteString("[]")
		return
	}
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			if indent {
				buf.WriteString(", ")
			} else {
				buf.WriteByte(',')
			}
		}
		if indent {
			buf.WriteByte('\n')
			writeIndent(buf, depth+1)
		}
		writeVal(buf, item, indent, depth+1)
	}
	if indent {
		buf.WriteByte('\n')
		writeIndent(buf, depth)
	}
	buf.WriteByte(']')
}

func writeMap(buf *bytes.Buffer, m *Map, indent bool, depth int) {
	if m.Len() == 0 {
		buf.WriteString("{}")
		return
	}
	buf.WriteByte('{')
	for i, e := range m.order {
		if i > 0 {
			if indent {
				buf.WriteString(", ")
			} else {
				buf.WriteByte(',')
			}
		}
		if indent {
			buf.WriteByte('\n')
			writeIndent(buf, depth+1)
		}
		writeJSONMapKey(buf, e.key)
		buf.WriteByte(':')
		if indent {
			buf.WriteByte(' ')
		}
		writeVal(buf, e.val, indent, depth+1)
	}
	if indent {
		buf.WriteByte('\n')
		writeIndent(buf, depth)
	}
	buf.WriteByte('}')
}

// writeJSONMapKey renders a map key as a JSON object key. JSON object
// keys must be strings; a non-string Val key is rendered via its minified
// JSON form instead.
func writeJSONMapKey(buf *bytes.Buffer, k *Val) {
	if k.kind == KindString {
		writeJSONString(buf, k.str)
		return
	}
	writeJSONString(buf, string(WriteJSON(k, false)))
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

// formatNumber renders a float64 via the shortest decimal that round-trips
// exactly, without scientific notation.
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		case '\r':
			buf.WriteString(`\r`)
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
