// Package val implements Val, the single universal value type the query
// engine parses, evaluates, and prints: an immutable, structurally-hashed,
// totally-ordered tagged value with eight variants (Null, Err, Number,
// Bool, String, List, Map, Bytes).
//
// Values are shared by reference and never mutated after construction,
// except for the lazily memoised structural hash, which is computed once
// on first demand and cached - see Hash. This mirrors how the rest of the
// engine treats AST nodes: built once, read many times, never rewritten.
package val

import (
	"fmt"
	"math"

	"github.com/aledsdavies/kjq/internal/invariant"
)

// Kind is the tag distinguishing a Val's variant.
type Kind int

const (
	KindNull Kind = iota
	KindErr
	KindNumber
	KindBool
	KindString
	KindList
	KindMap
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindErr:
		return "error"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Val is the universal value. The zero value is not meaningful; use the
// New* constructors. All fields are unexported - callers interact through
// the Is* predicates and the Kind-checked accessors (Num, Str, List, ...).
type Val struct {
	kind Kind

	num   float64
	str   string // String payload, or Err message
	b     bool
	bytes []byte
	list  []*Val
	m     *Map

	hashed bool
	hash   uint64
}

// Null is the canonical null value. Null is logically a singleton; this
// package exposes one shared instance so callers never need to allocate
// for it.
var Null = &Val{kind: KindNull}

// True and False are the canonical boolean values.
var (
	True  = &Val{kind: KindBool, b: true}
	False = &Val{kind: KindBool, b: false}
)

// NewBool returns True or False.
func NewBool(b bool) *Val {
	if b {
		return True
	}
	return False
}

// NewNumber wraps a float64. Integers are represented here too;
// integer-ness is a predicate (IsInt), not a separate variant.
func NewNumber(n float64) *Val {
	return &Val{kind: KindNumber, num: n}
}

// NewString wraps a UTF-8 string.
func NewString(s string) *Val {
	return &Val{kind: KindString, str: s}
}

// NewErr wraps a first-class error message.
func NewErr(msg string) *Val {
	return &Val{kind: KindErr, str: msg}
}

// NewErrf is a convenience Errorf-style wrapper around NewErr.
func NewErrf(format string, args ...any) *Val {
	return NewErr(fmt.Sprintf(format, args...))
}

// NewBytes wraps a raw byte sequence, distinct from String.
func NewBytes(b []byte) *Val {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Val{kind: KindBytes, bytes: cp}
}

// NewList wraps an ordered sequence of values. The slice is copied so the
// caller's backing array can't later mutate a supposedly-immutable Val.
func NewList(items []*Val) *Val {
	cp := make([]*Val, len(items))
	copy(cp, items)
	return &Val{kind: KindList, list: cp}
}

// NewMap wraps an already-built ordered Map.
func NewMap(m *Map) *Val {
	invariant.NotNil(m, "m")
	return &Val{kind: KindMap, m: m}
}

// Kind reports the variant tag.
func (v *Val) Kind() Kind { return v.kind }

// IsNull, IsErr, ... report whether v holds the named variant.
func (v *Val) IsNull() bool   { return v.kind == KindNull }
func (v *Val) IsErr() bool    { return v.kind == KindErr }
func (v *Val) IsNumber() bool { return v.kind == KindNumber }
func (v *Val) IsBool() bool   { return v.kind == KindBool }
func (v *Val) IsString() bool { return v.kind == KindString }
func (v *Val) IsList() bool   { return v.kind == KindList }
func (v *Val) IsMap() bool    { return v.kind == KindMap }
func (v *Val) IsBytes() bool  { return v.kind == KindBytes }

// IsInt reports whether a Number holds an integral value (x == trunc(x)).
// Panics (via invariant) if v is not a Number - callers must check Kind
// first, same discipline as every other payload accessor below.
func (v *Val) IsInt() bool {
	invariant.Precondition(v.kind == KindNumber, "IsInt called on non-number Val")
	return v.num == math.Trunc(v.num)
}

// Num returns the Number payload.
func (v *Val) Num() float64 {
	invariant.Precondition(v.kind == KindNumber, "Num called on non-number Val")
	return v.num
}

// Bool returns the Bool payload.
func (v *Val) Bool() bool {
	invariant.Precondition(v.kind == KindBool, "Bool called on non-bool Val")
	return v.b
}

// Str returns the String payload (or the Err message, for KindErr).
func (v *Val) Str() string {
	invariant.Precondition(v.kind == KindString || v.kind == KindErr, "Str called on Val that is neither string nor error")
	return v.str
}

// Bytes returns the Bytes payload. The returned slice must not be mutated.
func (v *Val) Bytes() []byte {
	invariant.Precondition(v.kind == KindBytes, "Bytes called on non-bytes Val")
	return v.bytes
}

// List returns the List payload. The returned slice must not be mutated.
func (v *Val) List() []*Val {
	invariant.Precondition(v.kind == KindList, "List called on non-list Val")
	return v.list
}

// Map returns the Map payload.
func (v *Val) Map() *Map {
	invariant.Precondition(v.kind == KindMap, "Map called on non-map Val")
	return v.m
}

// TypeName returns the variant name, used in built-in error messages and
// by the typeof() builtin.
func (v *Val) TypeName() string { return v.kind.String() }
