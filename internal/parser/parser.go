// Package parser implements the recursive-descent, precedence-climbing
// parser for the query language: a flat token scan followed by a
// hand-written parser that builds an ast.Arena, using a functional-option
// Parse entry point generalised from a shell-command grammar to this
// language's pipe/accessor/operator grammar.
package parser

import (
	"log/slog"

	"github.com/aledsdavies/kjq/internal/ast"
)

// ParseTree is the result of a successful parse: the arena plus the root
// expression handle.
type ParseTree struct {
	Arena *ast.Arena
	Root  ast.Handle
}

// Opt configures a Parse call.
type Opt func(*config)

type config struct {
	log *slog.Logger
}

// WithLogger attaches a slog.Logger the parser emits debug-level token
// and production traces to.
func WithLogger(l *slog.Logger) Opt {
	return func(c *config) { c.log = l }
}

// Parse lexes and parses src, returning the resulting tree or the first
// ParseError encountered.
func Parse(src string, opts ...Opt) (*ParseTree, *ParseError) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	arena := ast.NewArena()
	p, perr := newSubParser(src, arena, cfg.log)
	if perr != nil {
		return nil, perr
	}
	root, perr := p.parseExprTop()
	if perr != nil {
		return nil, perr
	}
	if !p.atEOF() {
		return nil, &ParseError{Idx: p.curTok().Start, Kind: ErrIncompleteParse}
	}
	return &ParseTree{Arena: arena, Root: root}, nil
}

// parser holds one lexer pass's token stream plus a cursor into it. A
// format string's embedded expressions each get their own parser sharing
// the enclosing arena (see newSubParser), so handles stay valid without
// any arena-merging step.
type parser struct {
	src    string
	tokens []Token
	pos    int
	arena  *ast.Arena
	log    *slog.Logger
}

func newSubParser(src string, arena *ast.Arena, log *slog.Logger) (*parser, *ParseError) {
	lex := NewLexer(src, log)
	toks, perr := lex.GetTokens()
	if perr != nil {
		return nil, perr
	}
	return &parser{src: src, tokens: toks, arena: arena, log: log}, nil
}

func (p *parser) curTok() Token  { return p.tokens[p.pos] }
func (p *parser) atEOF() bool    { return p.curTok().Kind == TEOF }
func (p *parser) advance() Token { t := p.tokens[p.pos]; p.pos++; return t }

func (p *parser) check(k TokKind) bool { return p.curTok().Kind == k }

func (p *parser) accept(k TokKind) (Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *parser) expect(k TokKind, errKind ErrorKind) (Token, *ParseError) {
	if t, ok := p.accept(k); ok {
		return t, nil
	}
	return Token{}, &ParseError{Idx: p.curTok().Start, Kind: errKind}
}

// parseExprTop parses one top-level expression. `let` is handled by
// parseBaseExpr like any other base production, so a leading `let` just
// falls out of the normal operator-precedence descent below; this also
// means `A | let x = E | B` parses let as the base expression on the
// right of the first pipe, with the rest of the chain folded in above it
// by parseOpExpr's ordinary operator loop.
func (p *parser) parseExprTop() (ast.Handle, *ParseError) {
	return p.parseOpExpr(0)
}

// parseLet parses `let IDENT = opExpr-without-pipe`. The let node itself
// is a single AST node; pipe-scope extension ("let scoping") is an
// evaluator concern, not a parser one - the parser just records what was
// bound and to what expression.
func (p *parser) parseLet() (ast.Handle, *ParseError) {
	letTok := p.advance() // 'let'
	nameTok, perr := p.expect(TIdent, ErrMissingIdentAfterLet)
	if perr != nil {
		return 0, perr
	}
	if _, perr := p.expect(TAssign, ErrMissingEqualsInLet); perr != nil {
		return 0, perr
	}
	value, perr := p.parseOpExpr(precedenceCoalesce)
	if perr != nil {
		return 0, perr
	}
	n := ast.Node{Kind: ast.KindLet, Pos: letTok.Start, LetName: nameTok.Text, LetValue: value}
	return p.arena.Add(n), nil
}

// Precedence levels, lowest to highest. Pipe binds loosest; a `let`'s
// right-hand side must not itself consume a pipe (the grammar's
// "opExpr-without-pipe"), hence precedenceCoalesce as the minimum level
// passed to parseOpExpr from parseLet.
const (
	precedencePipe = iota
	precedenceCoalesce
	precedenceOr
	precedenceAnd
	precedenceEquality
	precedenceAdditive
	precedenceMultiplicative
)

type opInfo struct {
	op    ast.BinOp
	level int
}

var binOps = map[TokKind]opInfo{
	TPipe:     {ast.OpPipe, precedencePipe},
	TCoalesce: {ast.OpCoalesce, precedenceCoalesce},
	TOr:       {ast.OpOr, precedenceOr},
	TAnd:      {ast.OpAnd, precedenceAnd},
	TEq:       {ast.OpEq, precedenceEquality},
	TNe:       {ast.OpNe, precedenceEquality},
	TLt:       {ast.OpLt, precedenceEquality},
	TLe:       {ast.OpLe, precedenceEquality},
	TGt:       {ast.OpGt, precedenceEquality},
	TGe:       {ast.OpGe, precedenceEquality},
	TPlus:     {ast.OpAdd, precedenceAdditive},
	TMinus:    {ast.OpSub, precedenceAdditive},
	TStar:     {ast.OpMul, precedenceMultiplicative},
	TSlash:    {ast.OpDiv, precedenceMultiplicative},
}

// parseOpExpr implements precedence climbing with an explicit minimum
// level: starting from a unary/base term, it keeps folding in binary
// operators whose level is >= minLevel, recursing with level+1 for the
// right operand so operators bind left-associatively at each level.
func (p *parser) parseOpExpr(minLevel int) (ast.Handle, *ParseError) {
	left, perr := p.parseUnary()
	if perr != nil {
		return 0, perr
	}
	for {
		info, ok := binOps[p.curTok().Kind]
		if !ok || info.level < minLevel {
			return left, nil
		}
		opTok := p.advance()
		right, perr := p.parseOpExpr(info.level + 1)
		if perr != nil {
			return 0, perr
		}
		n := ast.Node{Kind: ast.KindBinary, Pos: opTok.Start, Op: info.op, Left: left, Right: right}
		left = p.arena.Add(n)
	}
}

// parseUnary handles the two prefix unary operators (`not`, `-`) and
// otherwise falls through to the accessor-wrapped base expression. `not`
// binds between `and` and the comparison operators, so its operand is a
// whole comparison (`not 1 > 2` negates `1 > 2`); unary minus binds
// tighter than any binary operator.
func (p *parser) parseUnary() (ast.Handle, *ParseError) {
	if tok, ok := p.accept(TNot); ok {
		operand, perr := p.parseOpExpr(precedenceEquality)
		if perr != nil {
			return 0, perr
		}
		return p.arena.Add(ast.Node{Kind: ast.KindNot, Pos: tok.Start, Base: operand}), nil
	}
	if tok, ok := p.accept(TMinus); ok {
		operand, perr := p.parseUnary()
		if perr != nil {
			return 0, perr
		}
		return p.arena.Add(ast.Node{Kind: ast.KindNeg, Pos: tok.Start, Base: operand}), nil
	}
	return p.parseBaseExprAcc()
}

// parseBaseExprAcc parses a base expression followed by zero or more
// accessors (`.ident` or `[expr]`), binding tightest of any construct
// (baseExprAcc := baseExpr ( accessor )*).
func (p *parser) parseBaseExprAcc() (ast.Handle, *ParseError) {
	base, perr := p.parseBaseExpr()
	if perr != nil {
		return 0, perr
	}
	for {
		switch {
		case p.check(TDot):
			dotTok := p.advance()
			identTok, perr := p.expect(TIdent, ErrMissingIdentAfterDot)
			if perr != nil {
				return 0, perr
			}
			base = p.arena.Add(ast.Node{Kind: ast.KindFieldAccess, Pos: dotTok.Start, Base: base, Name: identTok.Text})
		case p.check(TLBracket):
			next, perr := p.parseBracketAccess(base)
			if perr != nil {
				return 0, perr
			}
			base = next
		default:
			return base, nil
		}
	}
}

// parseBracketAccess parses `[ accessExpr ]`, producing either a slice
// node (`start:end`, either endpoint optional) or a single-index node.
// Each endpoint may be prefixed with `/` to mark a reverse index
// (sliceIdx := '/'? expr).
func (p *parser) parseBracketAccess(base ast.Handle) (ast.Handle, *ParseError) {
	lbrack := p.advance() // '['

	// `[:...]`, the omitted-start form.
	if p.check(TColon) {
		p.advance()
		end := ast.NoHandle
		if !p.check(TRBracket) {
			h, perr := p.parseSliceIdx()
			if perr != nil {
				return 0, perr
			}
			end = h
		}
		if _, perr := p.expect(TRBracket, ErrUnclosedBracket); perr != nil {
			return 0, perr
		}
		return p.arena.Add(ast.Node{Kind: ast.KindSliceAccess, Pos: lbrack.Start, Base: base, Start: ast.NoHandle, End: end}), nil
	}

	if p.check(TRBracket) {
		return 0, &ParseError{Idx: p.curTok().Start, Kind: ErrMissingBracketExpr}
	}

	first, perr := p.parseSliceIdx()
	if perr != nil {
		return 0, perr
	}

	if p.check(TColon) {
		p.advance()
		end := ast.NoHandle
		if !p.check(TRBracket) {
			h, perr := p.parseSliceIdx()
			if perr != nil {
				return 0, perr
			}
			end = h
		}
		if _, perr := p.expect(TRBracket, ErrUnclosedBracket); perr != nil {
			return 0, perr
		}
		return p.arena.Add(ast.Node{Kind: ast.KindSliceAccess, Pos: lbrack.Start, Base: base, Start: first, End: end}), nil
	}

	if _, perr := p.expect(TRBracket, ErrUnclosedBracket); perr != nil {
		return 0, perr
	}
	return p.arena.Add(ast.Node{Kind: ast.KindIndexAccess, Pos: lbrack.Start, Base: base, Index: first}), nil
}

// parseSliceIdx parses one slice/index endpoint: `/`? expr.
func (p *parser) parseSliceIdx() (ast.Handle, *ParseError) {
	if tok, ok := p.accept(TSlash); ok {
		inner, perr := p.parseOpExpr(precedencePipe)
		if perr != nil {
			return 0, perr
		}
		return p.arena.Add(ast.Node{Kind: ast.KindReverseIdx, Pos: tok.Start, Index: inner}), nil
	}
	return p.parseOpExpr(precedencePipe)
}

// parseBaseExpr parses the grammar's baseExpr production: a `let`
// binding, `.`-with-optional-ident, a parenthesised expression, a
// literal, a map/list/format literal, or an identifier/call. `let` is
// tried first here rather than only at parseExprTop so that it is
// reachable wherever a base expression is expected, including as the
// right operand of a binary operator inside parseOpExpr's precedence
// climb - not just as the very first token of the input.
func (p *parser) parseBaseExpr() (ast.Handle, *ParseError) {
	tok := p.curTok()
	if tok.Kind == TLet {
		return p.parseLet()
	}
	switch tok.Kind {
	case TDot:
		p.advance()
		if p.check(TIdent) {
			identTok := p.advance()
			dot := p.arena.Add(ast.Node{Kind: ast.KindDot, Pos: tok.Start})
			return p.arena.Add(ast.Node{Kind: ast.KindFieldAccess, Pos: tok.Start, Base: dot, Name: identTok.Text}), nil
		}
		return p.arena.Add(ast.Node{Kind: ast.KindDot, Pos: tok.Start}), nil
	case TLParen:
		p.advance()
		inner, perr := p.parseExprTop()
		if perr != nil {
			return 0, perr
		}
		if _, perr := p.expect(TRParen, ErrUnclosedParen); perr != nil {
			return 0, perr
		}
		return inner, nil
	case TLBrace:
		return p.parseMapLit()
	case TLBracket:
		return p.parseListLit()
	case TString:
		p.advance()
		return p.parseFormatString(tok)
	case TNumber:
		p.advance()
		return p.arena.Add(ast.Node{Kind: ast.KindNumber, Pos: tok.Start, Number: parseNumberLiteral(tok.Text)}), nil
	case TNull:
		p.advance()
		return p.arena.Add(ast.Node{Kind: ast.KindNull, Pos: tok.Start}), nil
	case TTrue:
		p.advance()
		return p.arena.Add(ast.Node{Kind: ast.KindTrue, Pos: tok.Start}), nil
	case TFalse:
		p.advance()
		return p.arena.Add(ast.Node{Kind: ast.KindFalse, Pos: tok.Start}), nil
	case TIdent:
		p.advance()
		if p.check(TLParen) {
			return p.parseCall(tok)
		}
		return p.arena.Add(ast.Node{Kind: ast.KindIdent, Pos: tok.Start, Ident: tok.Text}), nil
	default:
		return 0, &ParseError{Idx: tok.Start, Kind: ErrMissingExpr}
	}
}

// parseCall parses `IDENT '(' args? ')'`, where each arg is either a bare
// expression (positional) or `:IDENT expr` (keyword).
func (p *parser) parseCall(nameTok Token) (ast.Handle, *ParseError) {
	p.advance() // '('
	var args []ast.Arg
	if !p.check(TRParen) {
		for {
			arg, perr := p.parseArg()
			if perr != nil {
				return 0, perr
			}
			args = append(args, arg)
			if _, ok := p.accept(TComma); !ok {
				break
			}
			if p.check(TRParen) {
				break // trailing comma
			}
		}
	}
	if _, perr := p.expect(TRParen, ErrUnclosedParen); perr != nil {
		return 0, perr
	}
	return p.arena.Add(ast.Node{Kind: ast.KindCall, Pos: nameTok.Start, Ident: nameTok.Text, Args: args}), nil
}

func (p *parser) parseArg() (ast.Arg, *ParseError) {
	if p.check(TColon) {
		p.advance()
		nameTok, perr := p.expect(TIdent, ErrMissingExpr)
		if perr != nil {
			return ast.Arg{}, perr
		}
		value, perr := p.parseOpExpr(precedencePipe)
		if perr != nil {
			return ast.Arg{}, perr
		}
		return ast.Arg{Name: nameTok.Text, Value: value}, nil
	}
	value, perr := p.parseOpExpr(precedencePipe)
	if perr != nil {
		return ast.Arg{}, perr
	}
	return ast.Arg{Value: value}, nil
}

// parseMapLit parses `{ (mapElem (',' mapElem)* ','?)? }`.
func (p *parser) parseMapLit() (ast.Handle, *ParseError) {
	lbrace := p.advance() // '{'
	var elems []ast.MapElem
	if !p.check(TRBrace) {
		for {
			elem, perr := p.parseMapElem()
			if perr != nil {
				return 0, perr
			}
			elems = append(elems, elem)
			if _, ok := p.accept(TComma); !ok {
				break
			}
			if p.check(TRBrace) {
				break
			}
		}
	}
	if _, perr := p.expect(TRBrace, ErrUnclosedBrace); perr != nil {
		return 0, perr
	}
	return p.arena.Add(ast.Node{Kind: ast.KindMapLit, Pos: lbrace.Start, MapElems: elems}), nil
}

func (p *parser) parseMapElem() (ast.MapElem, *ParseError) {
	if _, ok := p.accept(TStar); ok {
		value, perr := p.parseOpExpr(precedencePipe)
		if perr != nil {
			return ast.MapElem{}, perr
		}
		return ast.MapElem{Kind: ast.MapElemSpread, Value: value, KeyHandle: ast.NoHandle}, nil
	}
	if _, ok := p.accept(TMinus); ok {
		value, perr := p.parseOpExpr(precedencePipe)
		if perr != nil {
			return ast.MapElem{}, perr
		}
		return ast.MapElem{Kind: ast.MapElemDelete, Value: value, KeyHandle: ast.NoHandle}, nil
	}

	var key ast.MapElem
	switch {
	case p.check(TIdent), p.check(TAnd), p.check(TOr):
		// In map-key position `and`/`or` are ordinary identifiers; the
		// keyword reading only wins in expression positions.
		identTok := p.advance()
		key = ast.MapElem{KeyIdent: identTok.Text, KeyHandle: ast.NoHandle}
	case p.check(TLBracket):
		p.advance()
		keyExpr, perr := p.parseOpExpr(precedencePipe)
		if perr != nil {
			return ast.MapElem{}, perr
		}
		if _, perr := p.expect(TRBracket, ErrUnclosedBracket); perr != nil {
			return ast.MapElem{}, perr
		}
		key = ast.MapElem{KeyHandle: keyExpr}
	case p.check(TString):
		tok := p.advance()
		keyExpr, perr := p.parseFormatString(tok)
		if perr != nil {
			return ast.MapElem{}, perr
		}
		key = ast.MapElem{KeyHandle: keyExpr}
	default:
		return ast.MapElem{}, &ParseError{Idx: p.curTok().Start, Kind: ErrMissingExpr}
	}

	if _, perr := p.expect(TColon, ErrMissingColonInMap); perr != nil {
		return ast.MapElem{}, perr
	}
	value, perr := p.parseOpExpr(precedencePipe)
	if perr != nil {
		return ast.MapElem{}, perr
	}
	key.Kind = ast.MapElemKV
	key.Value = value
	return key, nil
}

// parseListLit parses `[ (listElem (',' listElem)* ','?)? ]`.
func (p *parser) parseListLit() (ast.Handle, *ParseError) {
	lbracket := p.advance() // '['
	var elems []ast.ListElem
	if !p.check(TRBracket) {
		for {
			elem, perr := p.parseListElem()
			if perr != nil {
				return 0, perr
			}
			elems = append(elems, elem)
			if _, ok := p.accept(TComma); !ok {
				break
			}
			if p.check(TRBracket) {
				break
			}
		}
	}
	if _, perr := p.expect(TRBracket, ErrUnclosedBracket); perr != nil {
		return 0, perr
	}
	return p.arena.Add(ast.Node{Kind: ast.KindListLit, Pos: lbracket.Start, ListElems: elems}), nil
}

func (p *parser) parseListElem() (ast.ListElem, *ParseError) {
	if _, ok := p.accept(TStar); ok {
		value, perr := p.parseOpExpr(precedencePipe)
		if perr != nil {
			return ast.ListElem{}, perr
		}
		return ast.ListElem{Kind: ast.ListElemSpread, Value: value}, nil
	}
	value, perr := p.parseOpExpr(precedencePipe)
	if perr != nil {
		return ast.ListElem{}, perr
	}
	return ast.ListElem{Kind: ast.ListElemValue, Value: value}, nil
}

func parseNumberLiteral(text string) float64 {
	var n float64
	var i int
	for i = 0; i < len(text) && text[i] != '.'; i++ {
		n = n*10 + float64(text[i]-'0')
	}
	if i < len(text) && text[i] == '.' {
		i++
		frac := 0.0
		scale := 1.0
		for ; i < len(text); i++ {
			frac = frac*10 + float64(text[i]-'0')
			scale *= 10
		}
		n += frac / scale
	}
	return n
}
