package eval

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/kjq/internal/ast"
	"github.com/aledsdavies/kjq/internal/errs"
	"github.com/aledsdavies/kjq/internal/val"
)

// from_json/to_json are hand-rolled against Val directly (val.ParseJSON /
// val.WriteJSON) rather than routed through encoding/json - see
// DESIGN.md for why this is the one domain component that deliberately
// stays stdlib-only.

func biFromJSON(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("from_json: receiver must be a string, got %s", current.TypeName())
	}
	v, err := val.ParseJSON(current.Str())
	if err != nil {
		return val.NewErr(errs.Wrap(errs.ErrEncoding, err, "from_json: %v", err).Message)
	}
	return v
}

func biToJSON(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	return val.NewString(string(val.WriteJSON(current, false)))
}

func biFromYAML(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("from_yaml: receiver must be a string, got %s", current.TypeName())
	}
	var out any
	if err := yaml.Unmarshal([]byte(current.Str()), &out); err != nil {
		return val.NewErr(errs.Wrap(errs.ErrEncoding, err, "from_yaml: %v", err).Message)
	}
	return val.FromAny(normalizeYAML(out))
}

// normalizeYAML deep-copies yaml.v3's decoded tree, keeping each map's
// type as decoded: map[string]any for string-keyed maps and map[any]any
// for maps with other keys, both of which val.FromAny accepts.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, vv := range t {
			out[k] = normalizeYAML(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeYAML(vv)
		}
		return out
	default:
		return v
	}
}

func biToYAML(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	a, err := val.ToAny(current)
	if err != nil {
		return val.NewErrf("to_yaml: %v", err)
	}
	out, err := yaml.Marshal(a)
	if err != nil {
		return val.NewErr(errs.Wrap(errs.ErrEncoding, err, "to_yaml: %v", err).Message)
	}
	return val.NewString(string(out))
}

func biToTOML(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsMap() {
		return val.NewErrf("to_toml: receiver must be a map, got %s", current.TypeName())
	}
	a, err := val.ToAny(current)
	if err != nil {
		return val.NewErrf("to_toml: %v", err)
	}
	out, err := toml.Marshal(a)
	if err != nil {
		return val.NewErr(errs.Wrap(errs.ErrEncoding, err, "to_toml: %v", err).Message)
	}
	return val.NewString(string(out))
}

// biFromTextTable parses a whitespace-aligned table: a header line naming
// columns, then one row per remaining line, splitting on runs of
// whitespace except the last column, which captures the remaining fields
// of the line rejoined with single spaces (so a trailing free-text column
// keeps its words; runs of whitespace inside it become one space).
func biFromTextTable(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("from_text_table: receiver must be a string, got %s", current.TypeName())
	}
	lines := strings.Split(current.Str(), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return val.NewList(nil)
	}
	headers := strings.Fields(lines[0])
	var out []*val.Val
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		m := val.NewOrderedMap()
		for i, h := range headers {
			if i >= len(fields) {
				m.Insert(val.NewString(h), val.Null)
				continue
			}
			if i == len(headers)-1 {
				rest := strings.Join(fields[i:], " ")
				m.Insert(val.NewString(h), val.NewString(rest))
				break
			}
			m.Insert(val.NewString(h), val.NewString(fields[i]))
		}
		out = append(out, val.NewMap(m))
	}
	return val.NewList(out)
}

// biCombinations computes the cartesian product of a list of lists.
// combinations([]) == [[]], the empty product's single empty tuple.
func biCombinations(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("combinations: receiver must be a list, got %s", current.TypeName())
	}
	lists := current.List()
	for _, l := range lists {
		if !l.IsList() {
			return val.NewErrf("combinations: all elements must be lists, got %s", l.TypeName())
		}
	}
	result := [][]*val.Val{{}}
	for _, l := range lists {
		var next [][]*val.Val
		for _, prefix := range result {
			for _, item := range l.List() {
				tuple := make([]*val.Val, len(prefix)+1)
				copy(tuple, prefix)
				tuple[len(prefix)] = item
				next = append(next, tuple)
			}
		}
		result = next
	}
	out := make([]*val.Val, len(result))
	for i, tuple := range result {
		out[i] = val.NewList(tuple)
	}
	return val.NewList(out)
}

// biRecursiveMap walks a tree via a children-expr (arg 0), then applies a
// mapper (arg 1) that sees {node, vals} - vals being the already-mapped
// children - bottom-up, post-order.
func biRecursiveMap(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	childrenH, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("recursive_map", "2", countPositional(args)).Message)
	}
	mapperH, ok := positionalArg(args, 1)
	if !ok {
		return val.NewErr(errs.WrongArity("recursive_map", "2", countPositional(args)).Message)
	}
	var walk func(node *val.Val) *val.Val
	walk = func(node *val.Val) *val.Val {
		children := e.evalExpr(arena, childrenH, node, vars)
		if children.IsErr() {
			return children
		}
		if !children.IsList() {
			return val.NewErrf("recursive_map: children-expr must return a list, got %s", children.TypeName())
		}
		mappedChildren := make([]*val.Val, len(children.List()))
		for i, child := range children.List() {
			mappedChildren[i] = walk(child)
			if mappedChildren[i].IsErr() {
				return mappedChildren[i]
			}
		}
		m := val.NewOrderedMap()
		m.Insert(val.NewString("node"), node)
		m.Insert(val.NewString("vals"), val.NewList(mappedChildren))
		return e.evalExpr(arena, mapperH, val.NewMap(m), vars)
	}
	return walk(current)
}

// biRecursiveFlatten preorder-flattens a tree via a children-expr into a
// single list containing every visited node.
func biRecursiveFlatten(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	childrenH, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("recursive_flatten", "1", countPositional(args)).Message)
	}
	var out []*val.Val
	var errOut *val.Val
	var walk func(node *val.Val)
	walk = func(node *val.Val) {
		if errOut != nil {
			return
		}
		out = append(out, node)
		children := e.evalExpr(arena, childrenH, node, vars)
		if children.IsErr() {
			errOut = children
			return
		}
		if !children.IsList() {
			errOut = val.NewErrf("recursive_flatten: children-expr must return a list, got %s", children.TypeName())
			return
		}
		for _, child := range children.List() {
			walk(child)
		}
	}
	walk(current)
	if errOut != nil {
		return errOut
	}
	return val.NewList(out)
}
