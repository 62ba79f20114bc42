// Package ast defines the tagged AST node and the append-only arena that
// owns it. Nodes get stable identity through a handle into the arena
// rather than raw pointers, so subtrees can be shared by reference and
// the whole tree is immutable once the parser returns it.
//
// This is a single tagged Node struct rather than one interface type per
// syntax production: there is no formatter or language-server consumer
// to serve, so a closed Kind enum plus kind-specific fields is the
// simpler, more idiomatic shape for a tree only ever walked by one
// evaluator.
package ast

import "github.com/aledsdavies/kjq/internal/invariant"

// Handle is a stable index into an Arena's node slice.
type Handle int

// NoHandle marks the absence of an optional child (e.g. an omitted slice
// endpoint).
const NoHandle Handle = -1

// Kind tags which union member of Node is populated.
type Kind int

const (
	KindDot         Kind = iota // `.`
	KindFieldAccess             // Base.Name
	KindIndexAccess             // Base[Index]
	KindSliceAccess             // Base[Start:End]
	KindReverseIdx              // `/` Inner, marks a slice/index endpoint as a reverse index
	KindLet                     // let Name = Value
	KindBinary                  // Left Op Right
	KindNot                     // not Operand
	KindNeg                     // - Operand
	KindNull
	KindTrue
	KindFalse
	KindNumber
	KindFormatString // alternating text/expr parts
	KindIdent        // bare variable reference
	KindCall         // name(args...)
	KindMapLit
	KindListLit
)

// BinOp enumerates the binary operators, all parsed by the same
// precedence-climbing loop (see internal/parser).
type BinOp int

const (
	OpPipe BinOp = iota
	OpCoalesce
	OpOr
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
)

// Arg is one call argument: positional (Name == "") or keyword (`:name expr`).
type Arg struct {
	Name  string
	Value Handle
}

// MapElemKind distinguishes the three map-literal element forms.
type MapElemKind int

const (
	MapElemKV MapElemKind = iota
	MapElemSpread
	MapElemDelete
)

// MapElem is one element of a map literal: `key: value`, `*expr`, or `-expr`.
type MapElem struct {
	Kind MapElemKind

	// For MapElemKV: exactly one of KeyIdent / KeyHandle is set.
	KeyIdent string // bare identifier key, e.g. `a: 1`
	KeyHandle Handle // `[expr]: v` or a format-string key; NoHandle if KeyIdent is set

	// Value holds the element's value expression for KV, or the spread/delete
	// operand for Spread/Delete.
	Value Handle
}

// ListElemKind distinguishes plain and spread list-literal elements.
type ListElemKind int

const (
	ListElemValue ListElemKind = iota
	ListElemSpread
)

// ListElem is one element of a list literal.
type ListElem struct {
	Kind  ListElemKind
	Value Handle
}

// FormatPartKind distinguishes a format string's literal-text chunks from
// its embedded-expression chunks.
type FormatPartKind int

const (
	FormatPartText FormatPartKind = iota
	FormatPartExpr
)

// FormatPart is one chunk of a format string's alternating text/expr
// sequence.
type FormatPart struct {
	Kind FormatPartKind
	Text string // decoded text, for FormatPartText
	Expr Handle // parsed expression, for FormatPartExpr
}

// Node is the tagged AST node. Only the fields relevant to Kind are
// populated; the rest are zero. Pos is the byte offset of the node's
// start in the source, used for diagnostics.
type Node struct {
	Kind Kind
	Pos  int

	// KindFieldAccess, KindIndexAccess, KindSliceAccess, KindNot, KindNeg
	Base Handle

	// KindFieldAccess
	Name string

	// KindIndexAccess, KindReverseIdx
	Index Handle

	// KindSliceAccess
	Start Handle // NoHandle if the start endpoint was omitted
	End   Handle // NoHandle if the end endpoint was omitted

	// KindLet
	LetName  string
	LetValue Handle

	// KindBinary
	Op    BinOp
	Left  Handle
	Right Handle

	// KindNumber
	Number float64

	// KindFormatString
	Parts []FormatPart

	// KindIdent, KindCall
	Ident string
	Args  []Arg

	// KindMapLit
	MapElems []MapElem

	// KindListLit
	ListElems []ListElem
}

// Arena is the append-only, read-only-after-construction store of AST
// nodes. The parser is the only writer; the evaluator only ever reads
// through Handle.
type Arena struct {
	nodes []Node
}

// NewArena returns an empty arena with room for a typical parse.
func NewArena() *Arena {
	return &Arena{nodes: make([]Node, 0, 64)}
}

// Add appends n and returns its stable handle.
func (a *Arena) Add(n Node) Handle {
	a.nodes = append(a.nodes, n)
	return Handle(len(a.nodes) - 1)
}

// Get dereferences h. h must have been returned by Add on this arena.
func (a *Arena) Get(h Handle) *Node {
	invariant.InRange(int(h), 0, len(a.nodes)-1, "ast handle")
	return &a.nodes[h]
}

// Len reports how many nodes have been allocated.
func (a *Arena) Len() int { return len(a.nodes) }
