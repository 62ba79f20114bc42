// Package eval implements the tree-walking evaluator: it walks an
// internal/ast.Arena against a current Val and a variable environment,
// dispatching operators by node Kind and built-ins by name.
package eval

import (
	"fmt"
	"log/slog"

	"github.com/aledsdavies/kjq/internal/ast"
	"github.com/aledsdavies/kjq/internal/errs"
	"github.com/aledsdavies/kjq/internal/val"
)

// Vars is the variable environment threaded through evaluation. Only
// KindLet extends it, and a pipe passes its left side's Vars into its
// right side and returns whatever the right side returns; every other
// node returns the same Vars it was given.
type Vars map[string]*val.Val

func (v Vars) extend(name string, value *val.Val) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[name] = value
	return out
}

// Evaluator holds the logger used to trace built-in calls. Built-ins
// reach files, stdin and subprocesses directly through the os and
// os/exec packages.
type Evaluator struct {
	log *slog.Logger
}

// New returns an Evaluator. A nil logger disables debug tracing.
func New(log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	return &Evaluator{log: log}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Eval walks the node at h against (current, vars) and returns its
// result plus the (possibly extended) variable environment - see Vars.
func (e *Evaluator) Eval(arena *ast.Arena, h ast.Handle, current *val.Val, vars Vars) (*val.Val, Vars) {
	n := arena.Get(h)
	switch n.Kind {
	case ast.KindDot:
		return current, vars

	case ast.KindFieldAccess:
		return e.evalFieldAccess(arena, n, current, vars), vars

	case ast.KindIndexAccess:
		return e.evalIndexAccess(arena, n, current, vars), vars

	case ast.KindSliceAccess:
		return e.evalSliceAccess(arena, n, current, vars), vars

	case ast.KindReverseIdx:
		// Only ever reached as a bracket endpoint, handled directly by
		// evalIndexAccess/evalSliceAccess/resolveEndpoint; a bare reverse
		// index outside a bracket is a parser-level impossibility.
		return e.Eval(arena, n.Index, current, vars)

	case ast.KindLet:
		value := e.evalExpr(arena, n.LetValue, current, vars)
		return current, vars.extend(n.LetName, value)

	case ast.KindBinary:
		return e.evalBinary(arena, n, current, vars)

	case ast.KindNot:
		operand := e.evalExpr(arena, n.Base, current, vars)
		if operand.IsErr() {
			return operand, vars
		}
		if !operand.IsBool() {
			return val.NewErrf("not: operand must be a bool, got %s", operand.TypeName()), vars
		}
		return val.NewBool(!operand.Bool()), vars

	case ast.KindNeg:
		operand := e.evalExpr(arena, n.Base, current, vars)
		if operand.IsErr() {
			return operand, vars
		}
		if !operand.IsNumber() {
			return val.NewErrf("negation requires a number, got %s", operand.TypeName()), vars
		}
		return val.NewNumber(-operand.Num()), vars

	case ast.KindNull:
		return val.Null, vars
	case ast.KindTrue:
		return val.True, vars
	case ast.KindFalse:
		return val.False, vars
	case ast.KindNumber:
		return val.NewNumber(n.Number), vars

	case ast.KindFormatString:
		return e.evalFormatString(arena, n, current, vars), vars

	case ast.KindIdent:
		v, ok := vars[n.Ident]
		if !ok {
			return val.NewErr(errs.UndefinedVariable(n.Ident).Message), vars
		}
		return v, vars

	case ast.KindCall:
		return e.evalCall(arena, n, current, vars), vars

	case ast.KindMapLit:
		return e.evalMapLit(arena, n, current, vars), vars

	case ast.KindListLit:
		return e.evalListLit(arena, n, current, vars), vars

	default:
		return val.NewErrf("internal error: unhandled node kind %d", n.Kind), vars
	}
}

// evalExpr evaluates h for its value alone, discarding any variable
// extension - the correct helper for anything that is not itself one
// side of a pipe (argument expressions, operands, literal elements).
func (e *Evaluator) evalExpr(arena *ast.Arena, h ast.Handle, current *val.Val, vars Vars) *val.Val {
	v, _ := e.Eval(arena, h, current, vars)
	return v
}

func (e *Evaluator) evalFieldAccess(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	base := e.evalExpr(arena, n.Base, current, vars)
	if base.IsErr() {
		return base
	}
	switch {
	case base.IsNull():
		return val.Null
	case base.IsMap():
		v, ok := base.Map().Get(val.NewString(n.Name))
		if !ok {
			return val.Null
		}
		return v
	case base.IsList():
		return val.NewErrf("cannot access field %q on a list; use bracket indexing", n.Name)
	default:
		return val.NewErrf("cannot access field %q on %s", n.Name, base.TypeName())
	}
}

// resolveEndpoint evaluates a slice/index endpoint handle, which may be
// wrapped in a KindReverseIdx marker. It returns the raw (non-negated)
// integer together with whether it was marked reverse.
func (e *Evaluator) resolveEndpoint(arena *ast.Arena, h ast.Handle, current *val.Val, vars Vars) (int, bool, *val.Val) {
	node := arena.Get(h)
	reverse := false
	exprHandle := h
	if node.Kind == ast.KindReverseIdx {
		reverse = true
		exprHandle = node.Index
	}
	v := e.evalExpr(arena, exprHandle, current, vars)
	if v.IsErr() {
		return 0, reverse, v
	}
	if !v.IsNumber() || !v.IsInt() || v.Num() < 0 {
		return 0, reverse, val.NewErr("can only access a list with a non-negative integer")
	}
	return int(v.Num()), reverse, nil
}

func (e *Evaluator) evalIndexAccess(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	base := e.evalExpr(arena, n.Base, current, vars)
	if base.IsErr() {
		return base
	}
	if base.IsNull() {
		return val.Null
	}
	switch {
	case base.IsMap():
		if arena.Get(n.Index).Kind == ast.KindReverseIdx {
			return val.NewErr("maps cannot be accessed with a reverse index")
		}
		key := e.evalExpr(arena, n.Index, current, vars)
		if key.IsErr() {
			return key
		}
		v, ok := base.Map().Get(key)
		if !ok {
			return val.Null
		}
		return v
	case base.IsList():
		items := base.List()
		idx, reverse, errv := e.resolveEndpoint(arena, n.Index, current, vars)
		if errv != nil {
			return errv
		}
		if reverse {
			idx = len(items) - idx - 1
		}
		if idx < 0 || idx >= len(items) {
			return val.NewErr(errs.OutOfBounds(idx, len(items)).Message)
		}
		return items[idx]
	default:
		return val.NewErrf("cannot index into %s", base.TypeName())
	}
}

func (e *Evaluator) evalSliceAccess(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	base := e.evalExpr(arena, n.Base, current, vars)
	if base.IsErr() {
		return base
	}
	if base.IsNull() {
		return val.Null
	}
	if !base.IsList() {
		return val.NewErrf("cannot slice %s", base.TypeName())
	}
	items := base.List()
	length := len(items)

	start := 0
	if n.Start != ast.NoHandle {
		idx, reverse, errv := e.resolveEndpoint(arena, n.Start, current, vars)
		if errv != nil {
			return errv
		}
		if reverse {
			idx = length - idx
		}
		start = idx
	}
	end := length
	if n.End != ast.NoHandle {
		idx, reverse, errv := e.resolveEndpoint(arena, n.End, current, vars)
		if errv != nil {
			return errv
		}
		if reverse {
			idx = length - idx
		}
		end = idx
	}

	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	if end < 0 {
		end = 0
	}
	if end > length {
		end = length
	}
	if end < start {
		end = start
	}
	out := make([]*val.Val, end-start)
	copy(out, items[start:end])
	return val.NewList(out)
}

func (e *Evaluator) evalBinary(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) (*val.Val, Vars) {
	switch n.Op {
	case ast.OpPipe:
		// An Err on the left flows through as the right side's current
		// value rather than short-circuiting - this is what lets
		// `1/0 | catch(0)` observe and replace the error.
		left, vars1 := e.Eval(arena, n.Left, current, vars)
		return e.Eval(arena, n.Right, left, vars1)

	case ast.OpCoalesce:
		left := e.evalExpr(arena, n.Left, current, vars)
		if left.IsErr() {
			return left, vars
		}
		if left.IsNull() {
			return e.evalExpr(arena, n.Right, current, vars), vars
		}
		return left, vars

	case ast.OpOr:
		left := e.evalExpr(arena, n.Left, current, vars)
		right := e.evalExpr(arena, n.Right, current, vars)
		if left.IsErr() {
			return left, vars
		}
		if right.IsErr() {
			return right, vars
		}
		if !left.IsBool() || !right.IsBool() {
			return val.NewErrf("or requires booleans, got %s and %s", left.TypeName(), right.TypeName()), vars
		}
		return val.NewBool(left.Bool() || right.Bool()), vars

	case ast.OpAnd:
		left := e.evalExpr(arena, n.Left, current, vars)
		right := e.evalExpr(arena, n.Right, current, vars)
		if left.IsErr() {
			return left, vars
		}
		if right.IsErr() {
			return right, vars
		}
		if !left.IsBool() || !right.IsBool() {
			return val.NewErrf("and requires booleans, got %s and %s", left.TypeName(), right.TypeName()), vars
		}
		return val.NewBool(left.Bool() && right.Bool()), vars

	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		// Comparison operates on the raw operand values, Err included
		// (Err ranks lowest in the total order); only arithmetic rejects
		// non-Number operands.
		left := e.evalExpr(arena, n.Left, current, vars)
		right := e.evalExpr(arena, n.Right, current, vars)
		return e.compareOp(n.Op, left, right), vars

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		left := e.evalExpr(arena, n.Left, current, vars)
		if left.IsErr() {
			return left, vars
		}
		right := e.evalExpr(arena, n.Right, current, vars)
		if right.IsErr() {
			return right, vars
		}
		if !left.IsNumber() || !right.IsNumber() {
			got := fmt.Sprintf("%s and %s", left.TypeName(), right.TypeName())
			return val.NewErr(errs.TypeMismatch("arithmetic", "numbers", got).Message), vars
		}
		return e.arith(n.Op, left.Num(), right.Num()), vars

	default:
		return val.NewErrf("internal error: unhandled binary operator %d", n.Op), vars
	}
}

func (e *Evaluator) compareOp(op ast.BinOp, left, right *val.Val) *val.Val {
	switch op {
	case ast.OpEq:
		return val.NewBool(left.Equal(right))
	case ast.OpNe:
		return val.NewBool(!left.Equal(right))
	case ast.OpLt:
		return val.NewBool(left.Compare(right) < 0)
	case ast.OpLe:
		return val.NewBool(left.Compare(right) <= 0)
	case ast.OpGt:
		return val.NewBool(left.Compare(right) > 0)
	case ast.OpGe:
		return val.NewBool(left.Compare(right) >= 0)
	}
	return val.NewErrf("internal error: unhandled comparison operator %d", op)
}

func (e *Evaluator) arith(op ast.BinOp, a, b float64) *val.Val {
	switch op {
	case ast.OpAdd:
		return val.NewNumber(a + b)
	case ast.OpSub:
		return val.NewNumber(a - b)
	case ast.OpMul:
		return val.NewNumber(a * b)
	case ast.OpDiv:
		if b == 0 {
			return val.NewErr(errs.DivideByZero().Message)
		}
		return val.NewNumber(a / b)
	}
	return val.NewErrf("internal error: unhandled arithmetic operator %d", op)
}

func (e *Evaluator) evalFormatString(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	var out []byte
	for _, part := range n.Parts {
		switch part.Kind {
		case ast.FormatPartText:
			out = append(out, part.Text...)
		case ast.FormatPartExpr:
			// Non-string results, Err included, render as minified JSON.
			v := e.evalExpr(arena, part.Expr, current, vars)
			if v.IsString() {
				out = append(out, v.Str()...)
			} else {
				out = append(out, val.WriteJSON(v, false)...)
			}
		}
	}
	return val.NewString(string(out))
}

func (e *Evaluator) evalMapLit(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	m := val.NewOrderedMap()
	for _, elem := range n.MapElems {
		switch elem.Kind {
		case ast.MapElemKV:
			// Err keys and values are inserted as data, not propagated.
			var key *val.Val
			if elem.KeyHandle == ast.NoHandle {
				key = val.NewString(elem.KeyIdent)
			} else {
				key = e.evalExpr(arena, elem.KeyHandle, current, vars)
			}
			value := e.evalExpr(arena, elem.Value, current, vars)
			m.Insert(key, value)
		case ast.MapElemSpread:
			src := e.evalExpr(arena, elem.Value, current, vars)
			if src.IsErr() {
				return src
			}
			if !src.IsMap() {
				return val.NewErrf("spread in map literal requires a map, got %s", src.TypeName())
			}
			for _, kv := range src.Map().Items() {
				m.Insert(kv[0], kv[1])
			}
		case ast.MapElemDelete:
			key := e.evalExpr(arena, elem.Value, current, vars)
			if key.IsErr() {
				return key
			}
			m.Delete(key)
		}
	}
	return val.NewMap(m)
}

func (e *Evaluator) evalListLit(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	var out []*val.Val
	for _, elem := range n.ListElems {
		switch elem.Kind {
		case ast.ListElemValue:
			// Err elements are stored in the list, not propagated - that
			// is what lets a later map(catch(...)) recover per element.
			out = append(out, e.evalExpr(arena, elem.Value, current, vars))
		case ast.ListElemSpread:
			src := e.evalExpr(arena, elem.Value, current, vars)
			if src.IsErr() {
				return src
			}
			if !src.IsList() {
				return val.NewErrf("spread in list literal requires a list, got %s", src.TypeName())
			}
			out = append(out, src.List()...)
		}
	}
	return val.NewList(out)
}
