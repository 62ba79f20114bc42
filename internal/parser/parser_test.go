package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/kjq/internal/ast"
)

func mustParse(t *testing.T, src string) *ParseTree {
	t.Helper()
	tree, perr := Parse(src)
	require.Nil(t, perr, "unexpected parse error for %q: %v", src, perr)
	return tree
}

func TestParseDot(t *testing.T) {
	tree := mustParse(t, ".")
	n := tree.Arena.Get(tree.Root)
	assert.Equal(t, ast.KindDot, n.Kind)
}

func TestParseFieldAccessChain(t *testing.T) {
	tree := mustParse(t, ".foo.bar")
	outer := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindFieldAccess, outer.Kind)
	assert.Equal(t, "bar", outer.Name)
	inner := tree.Arena.Get(outer.Base)
	require.Equal(t, ast.KindFieldAccess, inner.Kind)
	assert.Equal(t, "foo", inner.Name)
}

func TestParseIndexAndSliceAccess(t *testing.T) {
	tree := mustParse(t, ".xs[0]")
	idx := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindIndexAccess, idx.Kind)

	tree = mustParse(t, ".xs[1:3]")
	slice := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindSliceAccess, slice.Kind)
	assert.NotEqual(t, ast.NoHandle, slice.Start)
	assert.NotEqual(t, ast.NoHandle, slice.End)

	tree = mustParse(t, ".xs[:3]")
	slice = tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindSliceAccess, slice.Kind)
	assert.Equal(t, ast.NoHandle, slice.Start)

	tree = mustParse(t, ".xs[1:]")
	slice = tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindSliceAccess, slice.Kind)
	assert.Equal(t, ast.NoHandle, slice.End)
}

func TestParseReverseIndex(t *testing.T) {
	tree := mustParse(t, ".xs[/0]")
	idx := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindIndexAccess, idx.Kind)
	rev := tree.Arena.Get(idx.Index)
	require.Equal(t, ast.KindReverseIdx, rev.Kind)
}

func TestParsePipePrecedenceLoosestAndLeftAssociative(t *testing.T) {
	tree := mustParse(t, ".a | .b | .c")
	root := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindBinary, root.Kind)
	require.Equal(t, ast.OpPipe, root.Op)
	left := tree.Arena.Get(root.Left)
	require.Equal(t, ast.KindBinary, left.Kind)
	assert.Equal(t, ast.OpPipe, left.Op)
	right := tree.Arena.Get(root.Right)
	assert.Equal(t, ast.KindFieldAccess, right.Kind)
}

func TestParseNotBindsBelowComparison(t *testing.T) {
	tree := mustParse(t, "not 1 > 2")
	root := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindNot, root.Kind)
	operand := tree.Arena.Get(root.Base)
	require.Equal(t, ast.KindBinary, operand.Kind)
	assert.Equal(t, ast.OpGt, operand.Op)
}

func TestParseNotBindsAboveAnd(t *testing.T) {
	tree := mustParse(t, "not .a and .b")
	root := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindBinary, root.Kind)
	assert.Equal(t, ast.OpAnd, root.Op)
	left := tree.Arena.Get(root.Left)
	assert.Equal(t, ast.KindNot, left.Kind)
}

func TestParseLetValueMayContainCoalesce(t *testing.T) {
	tree := mustParse(t, "let x = .a ?? 1 | x")
	root := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindBinary, root.Kind)
	require.Equal(t, ast.OpPipe, root.Op)
	letNode := tree.Arena.Get(root.Left)
	require.Equal(t, ast.KindLet, letNode.Kind)
	value := tree.Arena.Get(letNode.LetValue)
	assert.Equal(t, ast.OpCoalesce, value.Op)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	tree := mustParse(t, "1 + 2 * 3")
	root := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindBinary, root.Kind)
	require.Equal(t, ast.OpAdd, root.Op)
	right := tree.Arena.Get(root.Right)
	require.Equal(t, ast.OpMul, right.Op)
}

func TestParseNotAndNegUnary(t *testing.T) {
	tree := mustParse(t, "not true")
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindNot, n.Kind)

	tree = mustParse(t, "-5")
	n = tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindNeg, n.Kind)
}

func TestParseLetBinding(t *testing.T) {
	tree := mustParse(t, "let x = 1")
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindLet, n.Kind)
	assert.Equal(t, "x", n.LetName)
}

func TestParseMapLiteralKinds(t *testing.T) {
	tree := mustParse(t, `{a: 1, [.k]: 2, *.rest, -.drop}`)
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindMapLit, n.Kind)
	require.Len(t, n.MapElems, 4)
	assert.Equal(t, ast.MapElemKV, n.MapElems[0].Kind)
	assert.Equal(t, "a", n.MapElems[0].KeyIdent)
	assert.Equal(t, ast.MapElemKV, n.MapElems[1].Kind)
	assert.NotEqual(t, ast.NoHandle, n.MapElems[1].KeyHandle)
	assert.Equal(t, ast.MapElemSpread, n.MapElems[2].Kind)
	assert.Equal(t, ast.MapElemDelete, n.MapElems[3].Kind)
}

func TestParseListLiteralWithSpread(t *testing.T) {
	tree := mustParse(t, "[1, *.rest, 3]")
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindListLit, n.Kind)
	require.Len(t, n.ListElems, 3)
	assert.Equal(t, ast.ListElemSpread, n.ListElems[1].Kind)
}

func TestParseCallPositionalAndKeywordArgs(t *testing.T) {
	tree := mustParse(t, `map(:by .x, .y)`)
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindCall, n.Kind)
	assert.Equal(t, "map", n.Ident)
	require.Len(t, n.Args, 2)
	assert.Equal(t, "by", n.Args[0].Name)
	assert.Equal(t, "", n.Args[1].Name)
}

func TestParseFormatStringWithEmbeddedExpr(t *testing.T) {
	tree := mustParse(t, `"hello {.name}!"`)
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindFormatString, n.Kind)
	require.Len(t, n.Parts, 3)
	assert.Equal(t, ast.FormatPartText, n.Parts[0].Kind)
	assert.Equal(t, "hello ", n.Parts[0].Text)
	assert.Equal(t, ast.FormatPartExpr, n.Parts[1].Kind)
	exprNode := tree.Arena.Get(n.Parts[1].Expr)
	assert.Equal(t, ast.KindFieldAccess, exprNode.Kind)
	assert.Equal(t, ast.FormatPartText, n.Parts[2].Kind)
	assert.Equal(t, "!", n.Parts[2].Text)
}

func TestParseFormatStringWithNestedMapLiteral(t *testing.T) {
	tree := mustParse(t, `"{ {a: 1} | .a }"`)
	n := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.KindFormatString, n.Kind)
	require.Len(t, n.Parts, 1)
	assert.Equal(t, ast.FormatPartExpr, n.Parts[0].Kind)
	pipeNode := tree.Arena.Get(n.Parts[0].Expr)
	assert.Equal(t, ast.KindBinary, pipeNode.Kind)
	assert.Equal(t, ast.OpPipe, pipeNode.Op)
}

func TestParseCoalesceAndBooleanPrecedence(t *testing.T) {
	tree := mustParse(t, "a and b or c ?? d")
	root := tree.Arena.Get(tree.Root)
	require.Equal(t, ast.OpCoalesce, root.Op)
	left := tree.Arena.Get(root.Left)
	require.Equal(t, ast.OpOr, left.Op)
}

func TestParseErrorsReportPosition(t *testing.T) {
	_, perr := Parse(".foo[")
	require.NotNil(t, perr)
	assert.Equal(t, ErrMissingExpr, perr.Kind)
	assert.Equal(t, 5, perr.Idx)
}

func TestParseEmptyBracketIsMissingBracketExpr(t *testing.T) {
	_, perr := Parse(".foo[]")
	require.NotNil(t, perr)
	assert.Equal(t, ErrMissingBracketExpr, perr.Kind)
}

func TestParseTrailingGarbageIsIncompleteParse(t *testing.T) {
	_, perr := Parse(".a )")
	require.NotNil(t, perr)
	assert.Equal(t, ErrIncompleteParse, perr.Kind)
}
