package val

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// ToAny converts v into a plain Go value tree (map[string]any, []any,
// string, int64, float64, bool, nil) suitable for handing to a generic
// codec such as yaml.Marshal or toml.Marshal. Err and Bytes have no
// faithful representation in those formats; Err converts to its bare
// message string (not WriteJSON's {"ERROR": ...} object), and Bytes to its
// UTF-8 reinterpretation, or an error if it isn't valid UTF-8, as in
// WriteJSON.
func ToAny(v *Val) (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindNumber:
		// Integral values convert as int64 so YAML/TOML render them
		// without a spurious fractional part (1, not 1.0).
		if v.num == math.Trunc(v.num) && v.num >= math.MinInt64 && v.num <= math.MaxInt64 {
			return int64(v.num), nil
		}
		return v.num, nil
	case KindString:
		return v.str, nil
	case KindErr:
		return v.str, nil
	case KindBytes:
		if !utf8.Valid(v.bytes) {
			return nil, fmt.Errorf("cannot convert bytes to UTF-8 string")
		}
		return string(v.bytes), nil
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			a, err := ToAny(item)
			if err != nil {
				return nil, err
			}
			out[i] = a
		}
		return out, nil
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for _, e := range v.m.Items() {
			key := e[0]
			if key.kind != KindString {
				key = NewString(string(WriteJSON(key, false)))
			}
			a, err := ToAny(e[1])
			if err != nil {
				return nil, err
			}
			out[key.str] = a
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %s to a plain value", v.kind)
}

// FromAny converts a decoded-codec value tree back into a Val, the
// inverse of ToAny. Unknown scalar types fall back to their fmt string
// form rather than failing the whole decode.
func FromAny(a any) *Val {
	switch t := a.(type) {
	case nil:
		return Null
	case bool:
		return NewBool(t)
	case string:
		return NewString(t)
	case float64:
		return NewNumber(t)
	case float32:
		return NewNumber(float64(t))
	case int:
		return NewNumber(float64(t))
	case int64:
		return NewNumber(float64(t))
	case uint64:
		return NewNumber(float64(t))
	case []any:
		items := make([]*Val, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return NewList(items)
	case map[string]any:
		// Go map iteration order is random; sort keys so a decoded map
		// always comes out in one deterministic (lexicographic) order.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewOrderedMap()
		for _, k := range keys {
			m.Insert(NewString(k), FromAny(t[k]))
		}
		return NewMap(m)
	case map[any]any:
		m := NewOrderedMap()
		for k, v := range t {
			m.Insert(FromAny(k), FromAny(v))
		}
		return NewMap(m)
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}
