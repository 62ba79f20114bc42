package eval

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aledsdavies/kjq/internal/ast"
	"github.com/aledsdavies/kjq/internal/errs"
	"github.com/aledsdavies/kjq/internal/val"
)

func receiverBytes(current *val.Val, who string) ([]byte, *val.Val) {
	switch {
	case current.IsString():
		return []byte(current.Str()), nil
	case current.IsBytes():
		return current.Bytes(), nil
	default:
		return nil, val.NewErrf("%s: receiver must be a string or bytes, got %s", who, current.TypeName())
	}
}

func biLines(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	b, errv := receiverBytes(current, "lines")
	if errv != nil {
		return errv
	}
	s := string(b)
	parts := strings.Split(s, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	out := make([]*val.Val, len(parts))
	for i, p := range parts {
		out[i] = val.NewString(p)
	}
	return val.NewList(out)
}

func biJoinlines(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("joinlines: receiver must be a list, got %s", current.TypeName())
	}
	var b strings.Builder
	for _, item := range current.List() {
		if !item.IsString() {
			return val.NewErrf("joinlines: elements must be strings, got %s", item.TypeName())
		}
		b.WriteString(item.Str())
		b.WriteByte('\n')
	}
	return val.NewString(b.String())
}

func biSplit(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	b, errv := receiverBytes(current, "split")
	if errv != nil {
		return errv
	}
	s := string(b)
	h, ok := positionalArg(args, 0)
	var parts []string
	if !ok {
		parts = strings.Fields(s)
	} else {
		sepV := e.evalExpr(arena, h, current, vars)
		if sepV.IsErr() {
			return sepV
		}
		if !sepV.IsString() {
			return val.NewErrf("split: separator must be a string, got %s", sepV.TypeName())
		}
		parts = strings.Split(s, sepV.Str())
	}
	out := make([]*val.Val, len(parts))
	for i, p := range parts {
		out[i] = val.NewString(p)
	}
	return val.NewList(out)
}

func biJoin(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsList() {
		return val.NewErrf("join: receiver must be a list, got %s", current.TypeName())
	}
	h, ok := positionalArg(args, 0)
	if !ok {
		return val.NewErr(errs.WrongArity("join", "1", countPositional(args)).Message)
	}
	sepV := e.evalExpr(arena, h, current, vars)
	if sepV.IsErr() {
		return sepV
	}
	if !sepV.IsString() {
		return val.NewErrf("join: separator must be a string, got %s", sepV.TypeName())
	}
	parts := make([]string, len(current.List()))
	for i, item := range current.List() {
		// Non-string elements join as their minified JSON rendering, the
		// same convention format-string interpolation uses.
		if item.IsString() {
			parts[i] = item.Str()
		} else {
			parts[i] = string(val.WriteJSON(item, false))
		}
	}
	return val.NewString(strings.Join(parts, sepV.Str()))
}

func stringArg(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg, who string) (string, *val.Val) {
	h, ok := positionalArg(args, 0)
	if !ok {
		return "", val.NewErr(errs.WrongArity(who, "1", countPositional(args)).Message)
	}
	v := e.evalExpr(arena, h, current, vars)
	if v.IsErr() {
		return "", v
	}
	if !v.IsString() {
		return "", val.NewErrf("%s: argument must be a string, got %s", who, v.TypeName())
	}
	return v.Str(), nil
}

func biStartsWith(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("starts_with: receiver must be a string, got %s", current.TypeName())
	}
	prefix, errv := stringArg(e, arena, current, vars, args, "starts_with")
	if errv != nil {
		return errv
	}
	return val.NewBool(strings.HasPrefix(current.Str(), prefix))
}

func biEndsWith(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("ends_with: receiver must be a string, got %s", current.TypeName())
	}
	suffix, errv := stringArg(e, arena, current, vars, args, "ends_with")
	if errv != nil {
		return errv
	}
	return val.NewBool(strings.HasSuffix(current.Str(), suffix))
}

// lower/upper/trim are Unicode-oblivious: they only touch ASCII letters and
// ASCII whitespace, leaving multi-byte UTF-8 sequences untouched (no
// unicode-table lookups, unlike strings.ToLower/ToUpper/TrimSpace).

func biLower(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("lower: receiver must be a string, got %s", current.TypeName())
	}
	return val.NewString(asciiLower(current.Str()))
}

func biUpper(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("upper: receiver must be a string, got %s", current.TypeName())
	}
	return val.NewString(asciiUpper(current.Str()))
}

func biTrim(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("trim: receiver must be a string, got %s", current.TypeName())
	}
	return val.NewString(asciiTrim(current.Str()))
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func isASCIISpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func asciiTrim(s string) string {
	start := 0
	for start < len(s) && isASCIISpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isASCIISpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func biFromNum(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("from_num: receiver must be a string, got %s", current.TypeName())
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(current.Str()), 64)
	if err != nil {
		return val.NewErrf("from_num: cannot parse %q as a number", current.Str())
	}
	return val.NewNumber(n)
}

func biStr(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsBytes() {
		return val.NewErrf("str: receiver must be bytes, got %s", current.TypeName())
	}
	b := current.Bytes()
	if !isValidUTF8(b) {
		return val.NewErr("str: invalid UTF-8")
	}
	return val.NewString(string(b))
}

func biBytes(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("bytes: receiver must be a string, got %s", current.TypeName())
	}
	return val.NewBytes([]byte(current.Str()))
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}
