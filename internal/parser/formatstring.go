package parser

import (
	"strings"

	"github.com/aledsdavies/kjq/internal/ast"
)

// frameKind distinguishes the two nesting levels a format string can be
// in while scanning: inside literal text (possibly of a nested string),
// or inside an embedded `{ expr }`.
type frameKind int

const (
	frameText frameKind = iota
	frameExpr
)

type scanFrame struct {
	kind  frameKind
	quote byte // only meaningful for frameText
}

// scanFormatStringSpan finds the byte offset just past the closing quote
// of the format string starting at src[start] (a ' or "). It must track
// nesting explicitly because an embedded expression can itself contain
// quoted strings (of either quote character, each possibly with its own
// embedded expressions) and map literals (whose braces must balance the
// same way an interpolation's braces do).
func scanFormatStringSpan(src string, start int) (int, *ParseError) {
	quote := src[start]
	stack := []scanFrame{{kind: frameText, quote: quote}}
	i := start + 1
	for len(stack) > 0 {
		if i >= len(src) {
			return 0, &ParseError{Idx: start, Kind: ErrUnclosedQuote}
		}
		top := &stack[len(stack)-1]
		c := src[i]
		switch top.kind {
		case frameText:
			switch {
			case c == '\\':
				i += 2
			case c == top.quote:
				i++
				stack = stack[:len(stack)-1]
			case c == '{':
				stack = append(stack, scanFrame{kind: frameExpr})
				i++
			default:
				i++
			}
		case frameExpr:
			switch {
			case c == '\'' || c == '"':
				stack = append(stack, scanFrame{kind: frameText, quote: c})
				i++
			case c == '{':
				stack = append(stack, scanFrame{kind: frameExpr})
				i++
			case c == '}':
				stack = stack[:len(stack)-1]
				i++
			default:
				i++
			}
		}
	}
	return i, nil
}

// parseFormatString decodes the interior of a format string (the
// already-scanned span between quote and quote) into its alternating
// text/expression parts, parsing each `{ ... }` with a sub-parser that
// shares this parser's arena (see newSubParser).
func (p *parser) parseFormatString(tok Token) (ast.Handle, *ParseError) {
	quote := p.src[tok.Start]
	inner := p.src[tok.Start+1 : tok.End-1]
	innerBase := tok.Start + 1

	var parts []ast.FormatPart
	var text strings.Builder
	i := 0
	flushText := func() {
		if text.Len() > 0 {
			parts = append(parts, ast.FormatPart{Kind: ast.FormatPartText, Text: text.String()})
			text.Reset()
		}
	}

	for i < len(inner) {
		c := inner[i]
		switch {
		case c == '\\' && i+1 < len(inner):
			if decoded, ok := decodeEscape(inner[i+1]); ok {
				text.WriteByte(decoded)
				i += 2
				continue
			}
			text.WriteByte(inner[i+1])
			i += 2
		case c == '{':
			depth := 1
			j := i + 1
			// Find the matching '}' for this interpolation, skipping
			// over any nested quoted strings the same way the span
			// scanner does, so a `}` inside a nested string literal
			// doesn't end the interpolation early.
			for j < len(inner) && depth > 0 {
				switch inner[j] {
				case '\'', '"':
					nestedEnd, err := scanFormatStringSpan(inner, j)
					if err != nil {
						return 0, &ParseError{Idx: innerBase + j, Kind: ErrUnclosedQuote}
					}
					j = nestedEnd
					continue
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
			}
			if depth != 0 {
				return 0, &ParseError{Idx: innerBase + i, Kind: ErrMissingFormatExprClose}
			}
			exprSrc := inner[i+1 : j-1]
			flushText()
			sub, perr := newSubParser(exprSrc, p.arena, p.log)
			if perr != nil {
				perr.Idx += innerBase + i + 1
				return 0, perr
			}
			h, perr := sub.parseExprTop()
			if perr != nil {
				perr.Idx += innerBase + i + 1
				return 0, perr
			}
			if !sub.atEOF() {
				return 0, &ParseError{Idx: innerBase + i + 1, Kind: ErrIncompleteParse}
			}
			parts = append(parts, ast.FormatPart{Kind: ast.FormatPartExpr, Expr: h})
			i = j
		default:
			text.WriteByte(c)
			i++
		}
	}
	flushText()
	_ = quote

	n := ast.Node{Kind: ast.KindFormatString, Pos: tok.Start, Parts: parts}
	return p.arena.Add(n), nil
}

func decodeEscape(c byte) (byte, bool) {
	switch c {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	case '{':
		return '{', true
	case '}':
		return '}', true
	default:
		return 0, false
	}
}
