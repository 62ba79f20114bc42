package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexKinds(t *testing.T, src string) []TokKind {
	t.Helper()
	toks, perr := NewLexer(src, nil).GetTokens()
	require.Nil(t, perr, "unexpected lex error: %v", perr)
	kinds := make([]TokKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	kinds := lexKinds(t, ".foo[1:2] | a == b != c <= d >= e ?? f")
	assert.Equal(t, TDot, kinds[0])
	assert.Equal(t, TIdent, kinds[1])
	assert.Contains(t, kinds, TLBracket)
	assert.Contains(t, kinds, TColon)
	assert.Contains(t, kinds, TPipe)
	assert.Contains(t, kinds, TEq)
	assert.Contains(t, kinds, TNe)
	assert.Contains(t, kinds, TLe)
	assert.Contains(t, kinds, TGe)
	assert.Contains(t, kinds, TCoalesce)
}

func TestLexerKeywords(t *testing.T) {
	kinds := lexKinds(t, "null true false and or not let")
	assert.Equal(t, []TokKind{TNull, TTrue, TFalse, TAnd, TOr, TNot, TLet, TEOF}, kinds)
}

func TestLexerNumber(t *testing.T) {
	toks, perr := NewLexer("3.14", nil).GetTokens()
	require.Nil(t, perr)
	require.Equal(t, TNumber, toks[0].Kind)
	assert.Equal(t, "3.14", toks[0].Text)
}

func TestLexerStringSpansOuterQuotes(t *testing.T) {
	toks, perr := NewLexer(`"hello {name}"`, nil).GetTokens()
	require.Nil(t, perr)
	require.Equal(t, TString, toks[0].Kind)
	assert.Equal(t, `"hello {name}"`, toks[0].Text)
}

func TestLexerUnterminatedStringErrors(t *testing.T) {
	_, perr := NewLexer(`"unterminated`, nil).GetTokens()
	require.NotNil(t, perr)
	assert.Equal(t, ErrUnclosedQuote, perr.Kind)
}

func TestLexerBangWithoutEqualsErrors(t *testing.T) {
	_, perr := NewLexer("!x", nil).GetTokens()
	require.NotNil(t, perr)
	assert.Equal(t, ErrUnexpectedChar, perr.Kind)
}

func TestScanFormatStringSpanNestedBracesAndQuotes(t *testing.T) {
	src := `"a {b | map({x: "nested {1}"})} c"`
	end, perr := scanFormatStringSpan(src, 0)
	require.Nil(t, perr)
	assert.Equal(t, len(src), end)
}
