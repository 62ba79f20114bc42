package val

import (
	"bytes"
	"math"
	"sort"
)

// rank gives the variant's position in the total order:
// Err < Null < Bool < Number < String < List < Map.
func rank(k Kind) int {
	switch k {
	case KindErr:
		return 0
	case KindNull:
		return 1
	case KindBool:
		return 2
	case KindNumber:
		return 3
	case KindString:
		return 4
	case KindList:
		return 5
	case KindMap:
		return 6
	case KindBytes:
		// Bytes has no place in the language's literal total order (no
		// syntax produces a Bytes value that then gets compared against
		// a differently-kinded one in practice), so it sorts after Map.
		return 7
	}
	return -1
}

// totalOrderFloat compares two float64 with a NaN-safe total order:
// -NaN < -Inf < ... < -0 < +0 < ... < +Inf < +NaN, matching the sign-magnitude
// trick IEEE 754-2008 totalOrder uses (flip all bits if negative, flip only
// the sign bit if positive, then compare as unsigned integers).
func totalOrderFloat(a, b float64) int {
	au := flipForOrder(math.Float64bits(a))
	bu := flipForOrder(math.Float64bits(b))
	switch {
	case au < bu:
		return -1
	case au > bu:
		return 1
	default:
		return 0
	}
}

func flipForOrder(bits uint64) uint64 {
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// Equal reports structural equality. Maps compare by content regardless
// of insertion order (Compare == 0 implies Equal, and vice versa).
func (v *Val) Equal(o *Val) bool {
	return v.Compare(o) == 0
}

// Compare implements a total order over all values: variant rank first,
// then lexicographic comparison of children within a variant.
func (v *Val) Compare(o *Val) int {
	rv, ro := rank(v.kind), rank(o.kind)
	if rv != ro {
		if rv < ro {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindErr:
		return compareStrings(v.str, o.str)
	case KindBool:
		if v.b == o.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case KindNumber:
		return totalOrderFloat(v.num, o.num)
	case KindString:
		return bytes.Compare([]byte(v.str), []byte(o.str))
	case KindBytes:
		return bytes.Compare(v.bytes, o.bytes)
	case KindList:
		return compareLists(v.list, o.list)
	case KindMap:
		return compareMaps(v.m, o.m)
	}
	return 0
}

func compareStrings(a, b string) int {
	return bytes.Compare([]byte(a), []byte(b))
}

func compareLists(a, b []*Val) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func compareMaps(a, b *Map) int {
	ea := a.sortedByKeyOrder()
	eb := b.sortedByKeyOrder()
	n := len(ea)
	if len(eb) < n {
		n = len(eb)
	}
	for i := 0; i < n; i++ {
		if c := ea[i].key.Compare(eb[i].key); c != 0 {
			return c
		}
		if c := ea[i].val.Compare(eb[i].val); c != 0 {
			return c
		}
	}
	switch {
	case len(ea) < len(eb):
		return -1
	case len(ea) > len(eb):
		return 1
	default:
		return 0
	}
}

func sortEntriesByKeyOrder(entries []*entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.Compare(entries[j].key) < 0
	})
}

// SortVals stable-sorts a slice of *Val using the total order.
func SortVals(vs []*Val) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Compare(vs[j]) < 0
	})
}
