package eval

import (
	"sort"

	"github.com/aledsdavies/kjq/internal/ast"
	"github.com/aledsdavies/kjq/internal/errs"
	"github.com/aledsdavies/kjq/internal/val"
)

// builtinFn is one entry in the built-in table. Receiving the raw AST
// arguments (rather than pre-evaluated Vals) is what lets map/filter/sort
// and friends re-evaluate a lambda expression once per element instead of
// once up front.
type builtinFn func(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val

var builtinTable map[string]builtinFn

func init() {
	builtinTable = map[string]builtinFn{
		"len":               biLen,
		"map":               biMap,
		"filter":            biFilter,
		"group":             biGroup,
		"unique":            biUnique,
		"sort":              biSort,
		"reverse":           biReverse,
		"sum":               biSum,
		"min":               biMin,
		"max":               biMax,
		"any":               biAny,
		"all":               biAll,
		"flatten":           biFlatten,
		"zip":               biZip,
		"repeat":            biRepeat,
		"range":             biRange,
		"keys":              biKeys,
		"values":            biValues,
		"items":             biItems,
		"from_items":        biFromItems,
		"has":               biHas,
		"map_keys":          biMapKeys,
		"map_values":        biMapValues,
		"lines":             biLines,
		"joinlines":         biJoinlines,
		"split":             biSplit,
		"join":              biJoin,
		"starts_with":       biStartsWith,
		"ends_with":         biEndsWith,
		"lower":             biLower,
		"upper":             biUpper,
		"trim":              biTrim,
		"from_num":          biFromNum,
		"from_json":         biFromJSON,
		"to_json":           biToJSON,
		"from_yaml":         biFromYAML,
		"to_yaml":           biToYAML,
		"to_toml":           biToTOML,
		"from_text_table":   biFromTextTable,
		"combinations":      biCombinations,
		"recursive_map":     biRecursiveMap,
		"recursive_flatten": biRecursiveFlatten,
		"str":               biStr,
		"bytes":             biBytes,
		"read":              biRead,
		"in":                biIn,
		"call":              biCall,
		"env":               biEnv,
		"catch":             biCatch,
		"if":                biIf,
		"is_err":            isPred(func(v *val.Val) bool { return v.IsErr() }),
		"iserr":             isPred(func(v *val.Val) bool { return v.IsErr() }),
		"is_number":         isPred(func(v *val.Val) bool { return v.IsNumber() }),
		"is_bool":           isPred(func(v *val.Val) bool { return v.IsBool() }),
		"is_string":         isPred(func(v *val.Val) bool { return v.IsString() }),
		"is_list":           isPred(func(v *val.Val) bool { return v.IsList() }),
		"is_map":            isPred(func(v *val.Val) bool { return v.IsMap() }),
		"is_bytes":          isPred(func(v *val.Val) bool { return v.IsBytes() }),
		"typeof":            biTypeof,
	}
}

func (e *Evaluator) evalCall(arena *ast.Arena, n *ast.Node, current *val.Val, vars Vars) *val.Val {
	fn, ok := builtinTable[n.Ident]
	if !ok {
		return val.NewErr(errs.UnknownFunction(n.Ident).Message)
	}
	e.log.Debug("builtin call", "name", n.Ident, "receiver", current.TypeName(), "args", len(n.Args))
	return fn(e, arena, current, vars, n.Args)
}

// positionalArg returns the i'th positional (unnamed) argument's handle.
func positionalArg(args []ast.Arg, i int) (ast.Handle, bool) {
	count := 0
	for _, a := range args {
		if a.Name != "" {
			continue
		}
		if count == i {
			return a.Value, true
		}
		count++
	}
	return ast.NoHandle, false
}

func keywordArg(args []ast.Arg, name string) (ast.Handle, bool) {
	for _, a := range args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return ast.NoHandle, false
}

func countPositional(args []ast.Arg) int {
	n := 0
	for _, a := range args {
		if a.Name == "" {
			n++
		}
	}
	return n
}

func isPred(pred func(*val.Val) bool) builtinFn {
	return func(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
		return val.NewBool(pred(current))
	}
}

func biTypeof(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	return val.NewString(current.TypeName())
}

func biLen(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	switch {
	case current.IsList():
		return val.NewNumber(float64(len(current.List())))
	case current.IsMap():
		return val.NewNumber(float64(current.Map().Len()))
	case current.IsString():
		return val.NewNumber(float64(len(current.Str())))
	case current.IsBytes():
		return val.NewNumber(float64(len(current.Bytes())))
	default:
		return val.NewErrf("len: unsupported receiver %s", current.TypeName())
	}
}

func biMap(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("map: receiver must be a list, got %s", current.TypeName())
	}
	fn, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("map", "1", countPositional(args)).Message)
	}
	items := current.List()
	out := make([]*val.Val, len(items))
	for i, item := range items {
		// Per-element Err results land in the output list as data.
		out[i] = e.evalExpr(arena, fn, item, vars)
	}
	return val.NewList(out)
}

func biFilter(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("filter: receiver must be a list, got %s", current.TypeName())
	}
	fn, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("filter", "1", countPositional(args)).Message)
	}
	var out []*val.Val
	for _, item := range current.List() {
		// Anything but a true predicate result (non-bools and Errs
		// included) drops the element.
		keep := e.evalExpr(arena, fn, item, vars)
		if keep.IsBool() && keep.Bool() {
			out = append(out, item)
		}
	}
	return val.NewList(out)
}

func biGroup(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("group: receiver must be a list, got %s", current.TypeName())
	}
	fn, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("group", "1", countPositional(args)).Message)
	}
	type bucket struct {
		key   *val.Val
		items []*val.Val
	}
	var order []*bucket
	byHash := map[uint64][]*bucket{}
	for _, item := range current.List() {
		key := e.evalExpr(arena, fn, item, vars)
		h := key.Hash()
		var b *bucket
		for _, cand := range byHash[h] {
			if cand.key.Equal(key) {
				b = cand
				break
			}
		}
		if b == nil {
			b = &bucket{key: key}
			byHash[h] = append(byHash[h], b)
			order = append(order, b)
		}
		b.items = append(b.items, item)
	}
	out := make([]*val.Val, len(order))
	for i, b := range order {
		m := val.NewOrderedMap()
		m.Insert(val.NewString("key"), b.key)
		m.Insert(val.NewString("vals"), val.NewList(b.items))
		out[i] = val.NewMap(m)
	}
	return val.NewList(out)
}

func biUnique(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("unique: receiver must be a list, got %s", current.TypeName())
	}
	var out []*val.Val
	seen := map[uint64][]*val.Val{}
	for _, item := range current.List() {
		h := item.Hash()
		dup := false
		for _, s := range seen[h] {
			if s.Equal(item) {
				dup = true
				break
			}
		}
		if !dup {
			seen[h] = append(seen[h], item)
			out = append(out, item)
		}
	}
	return val.NewList(out)
}

func biSort(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("sort: receiver must be a list, got %s", current.TypeName())
	}
	items := current.List()
	fn, hasKey := positionalArg(args, 0)

	type pair struct {
		item, key *val.Val
	}
	pairs := make([]pair, len(items))
	for i, item := range items {
		key := item
		if hasKey {
			// Err keys sort first (Err ranks lowest in the total order).
			key = e.evalExpr(arena, fn, item, vars)
		}
		pairs[i] = pair{item: item, key: key}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].key.Compare(pairs[j].key) < 0
	})
	out := make([]*val.Val, len(pairs))
	for i, p := range pairs {
		out[i] = p.item
	}
	return val.NewList(out)
}

func biReverse(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("reverse: receiver must be a list, got %s", current.TypeName())
	}
	items := current.List()
	out := make([]*val.Val, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return val.NewList(out)
}

func biSum(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("sum: receiver must be a list, got %s", current.TypeName())
	}
	total := 0.0
	for _, item := range current.List() {
		if !item.IsNumber() {
			return val.NewErrf("sum: all elements must be numbers, got %s", item.TypeName())
		}
		total += item.Num()
	}
	return val.NewNumber(total)
}

func biMin(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	return minMax(current, false)
}

func biMax(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	return minMax(current, true)
}

func minMax(current *val.Val, wantMax bool) *val.Val {
	if !current.IsList() {
		return val.NewErrf("min/max: receiver must be a list, got %s", current.TypeName())
	}
	items := current.List()
	if len(items) == 0 {
		return val.Null
	}
	var best *val.Val
	for _, item := range items {
		if item.IsErr() {
			return item
		}
		if !item.IsNumber() {
			return val.NewErrf("min/max: all elements must be numbers, got %s", item.TypeName())
		}
		if best == nil {
			best = item
			continue
		}
		cmp := item.Compare(best)
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			best = item
		}
	}
	return best
}

func biAny(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	return foldBool(e, arena, current, vars, args, false)
}

func biAll(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	return foldBool(e, arena, current, vars, args, true)
}

func foldBool(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg, all bool) *val.Val {
	if !current.IsList() {
		return val.NewErrf("any/all: receiver must be a list, got %s", current.TypeName())
	}
	fn, hasPred := positionalArg(args, 0)
	items := current.List()
	if len(items) == 0 {
		return val.NewBool(all)
	}
	for _, item := range items {
		var b *val.Val
		if hasPred {
			b = e.evalExpr(arena, fn, item, vars)
		} else {
			b = item
		}
		if b.IsErr() {
			return b
		}
		if !b.IsBool() {
			return val.NewErrf("any/all: predicate must return a bool, got %s", b.TypeName())
		}
		if all && !b.Bool() {
			return val.False
		}
		if !all && b.Bool() {
			return val.True
		}
	}
	return val.NewBool(all)
}

func biFlatten(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("flatten: receiver must be a list, got %s", current.TypeName())
	}
	var out []*val.Val
	for _, item := range current.List() {
		if !item.IsList() {
			return val.NewErrf("flatten: all elements must be lists, got %s", item.TypeName())
		}
		out = append(out, item.List()...)
	}
	return val.NewList(out)
}

// biZip zips lists element-wise, truncating to the shortest. With
// positional arguments, those are the lists; with none, the receiver
// must itself be a list of the lists to zip ([[..],[..]] | zip()).
func biZip(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	lists := [][]*val.Val{}
	if countPositional(args) == 0 {
		if !current.IsList() {
			return val.NewErrf("zip: receiver must be a list of lists, got %s", current.TypeName())
		}
		for _, v := range current.List() {
			if !v.IsList() {
				return val.NewErrf("zip: all elements must be lists, got %s", v.TypeName())
			}
			lists = append(lists, v.List())
		}
	} else {
		for i := 0; ; i++ {
			h, ok := positionalArg(args, i)
			if !ok {
				break
			}
			v := e.evalExpr(arena, h, current, vars)
			if v.IsErr() {
				return v
			}
			if !v.IsList() {
				return val.NewErrf("zip: all arguments must be lists, got %s", v.TypeName())
			}
			lists = append(lists, v.List())
		}
	}
	if len(lists) == 0 {
		return val.NewList(nil)
	}
	minLen := len(lists[0])
	for _, l := range lists[1:] {
		if len(l) < minLen {
			minLen = len(l)
		}
	}
	out := make([]*val.Val, minLen)
	for i := 0; i < minLen; i++ {
		tuple := make([]*val.Val, len(lists))
		for j, l := range lists {
			tuple[j] = l[i]
		}
		out[i] = val.NewList(tuple)
	}
	return val.NewList(out)
}

func biRepeat(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	h, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("repeat", "1", countPositional(args)).Message)
	}
	n := e.evalExpr(arena, h, current, vars)
	if n.IsErr() {
		return n
	}
	if !n.IsNumber() || !n.IsInt() || n.Num() < 0 {
		return val.NewErrf("repeat: argument must be a non-negative integer, got %s", val.WriteJSON(n, false))
	}
	count := int(n.Num())
	out := make([]*val.Val, count)
	for i := range out {
		out[i] = current
	}
	return val.NewList(out)
}

func biRange(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	a0, ok0 := positionalArg(args, 0)
	if !ok0 {
		return val.NewErr(errs.WrongArity("range", "1 or 2", countPositional(args)).Message)
	}
	first := e.evalExpr(arena, a0, current, vars)
	if first.IsErr() {
		return first
	}
	if !first.IsNumber() {
		return val.NewErrf("range: arguments must be numbers, got %s", first.TypeName())
	}

	var start, end float64
	a1, ok1 := positionalArg(args, 1)
	if ok1 {
		second := e.evalExpr(arena, a1, current, vars)
		if second.IsErr() {
			return second
		}
		if !second.IsNumber() {
			return val.NewErrf("range: arguments must be numbers, got %s", second.TypeName())
		}
		start, end = first.Num(), second.Num()
	} else {
		start, end = 0, first.Num()
	}

	step := 1.0
	if stepH, ok := keywordArg(args, "step"); ok {
		s := e.evalExpr(arena, stepH, current, vars)
		if s.IsErr() {
			return s
		}
		if !s.IsNumber() || s.Num() == 0 {
			return val.NewErrf("range: step must be a non-zero number")
		}
		step = s.Num()
	} else if end < start {
		step = -1
	}

	// A step sign contradicting the start->end direction yields an empty
	// list rather than an error.
	if (step > 0 && start > end) || (step < 0 && start < end) {
		return val.NewList(nil)
	}

	var out []*val.Val
	if step > 0 {
		for x := start; x < end; x += step {
			out = append(out, val.NewNumber(x))
		}
	} else {
		for x := start; x > end; x += step {
			out = append(out, val.NewNumber(x))
		}
	}
	return val.NewList(out)
}

func biKeys(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsMap() {
		return val.NewErrf("keys: receiver must be a map, got %s", current.TypeName())
	}
	return val.NewList(current.Map().Keys())
}

func biValues(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsMap() {
		return val.NewErrf("values: receiver must be a map, got %s", current.TypeName())
	}
	return val.NewList(current.Map().Values())
}

func biItems(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsMap() {
		return val.NewErrf("items: receiver must be a map, got %s", current.TypeName())
	}
	items := current.Map().Items()
	out := make([]*val.Val, len(items))
	for i, kv := range items {
		m := val.NewOrderedMap()
		m.Insert(val.NewString("key"), kv[0])
		m.Insert(val.NewString("val"), kv[1])
		out[i] = val.NewMap(m)
	}
	return val.NewList(out)
}

func biFromItems(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("from_items: receiver must be a list, got %s", current.TypeName())
	}
	m := val.NewOrderedMap()
	for _, item := range current.List() {
		switch {
		case item.IsMap():
			key, ok := item.Map().Get(val.NewString("key"))
			if !ok {
				key = val.Null
			}
			v, ok := item.Map().Get(val.NewString("val"))
			if !ok {
				v = val.Null
			}
			m.Insert(key, v)
		case item.IsList() && len(item.List()) == 2:
			m.Insert(item.List()[0], item.List()[1])
		default:
			return val.NewErrf("from_items: elements must be {key,val} maps or [key, val] pairs, got %s", item.TypeName())
		}
	}
	return val.NewMap(m)
}

func biHas(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	h, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("has", "1", countPositional(args)).Message)
	}
	needle := e.evalExpr(arena, h, current, vars)
	if needle.IsErr() {
		return needle
	}
	switch {
	case current.IsMap():
		_, ok := current.Map().Get(needle)
		return val.NewBool(ok)
	case current.IsList():
		for _, item := range current.List() {
			if item.Equal(needle) {
				return val.True
			}
		}
		return val.False
	default:
		return val.NewErrf("has: receiver must be a map or list, got %s", current.TypeName())
	}
}

func biMapKeys(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsMap() {
		return val.NewErrf("map_keys: receiver must be a map, got %s", current.TypeName())
	}
	fn, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("map_keys", "1", countPositional(args)).Message)
	}
	out := val.NewOrderedMap()
	for _, kv := range current.Map().Items() {
		newKey := e.evalExpr(arena, fn, kv[0], vars)
		if newKey.IsErr() {
			return newKey
		}
		out.Insert(newKey, kv[1])
	}
	return val.NewMap(out)
}

func biMapValues(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsMap() {
		return val.NewErrf("map_values: receiver must be a map, got %s", current.TypeName())
	}
	fn, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("map_values", "1", countPositional(args)).Message)
	}
	out := val.NewOrderedMap()
	for _, kv := range current.Map().Items() {
		newVal := e.evalExpr(arena, fn, kv[1], vars)
		if newVal.IsErr() {
			return newVal
		}
		out.Insert(kv[0], newVal)
	}
	return val.NewMap(out)
}

func biCatch(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsErr() {
		return current
	}
	h, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("catch", "1", countPositional(args)).Message)
	}
	return e.evalExpr(arena, h, current, vars)
}

func biIf(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	condH, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("if", "3", countPositional(args)).Message)
	}
	thenH, ok := positionalArg(args, 1)
	if !ok {
		return val.NewErr(errs.WrongArity("if", "3", countPositional(args)).Message)
	}
	elseH, ok := positionalArg(args, 2)
	if !ok {
		return val.NewErr(errs.WrongArity("if", "3", countPositional(args)).Message)
	}
	cond := e.evalExpr(arena, condH, current, vars)
	if cond.IsErr() {
		return cond
	}
	if !cond.IsBool() {
		return val.NewErrf("if: condition must be a bool, got %s", cond.TypeName())
	}
	if cond.Bool() {
		return e.evalExpr(arena, thenH, current, vars)
	}
	return e.evalExpr(arena, elseH, current, vars)
}
