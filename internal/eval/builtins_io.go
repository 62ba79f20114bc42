package eval

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/aledsdavies/kjq/internal/ast"
	"github.com/aledsdavies/kjq/internal/errs"
	"github.com/aledsdavies/kjq/internal/val"
)

// biRead reads a file named by the receiver string - a plain os.ReadFile
// call, no third-party wrapper warranted for a one-shot whole-file slurp
// (see DESIGN.md).
func biRead(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	if !current.IsString() {
		return val.NewErrf("read: receiver must be a string path, got %s", current.TypeName())
	}
	data, err := os.ReadFile(current.Str())
	if err != nil {
		return val.NewErr(errs.Wrap(errs.ErrIO, err, "read: %v", err).Message)
	}
	return val.NewBytes(data)
}

// biIn reads all of stdin as Bytes.
func biIn(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return val.NewErr(errs.Wrap(errs.ErrIO, err, "in: %v", err).Message)
	}
	return val.NewBytes(data)
}

// biEnv returns the process environment as a Map, one entry per
// NAME=value pair from os.Environ().
func biEnv(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	m := val.NewOrderedMap()
	for _, kv := range os.Environ() {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		m.Insert(val.NewString(name), val.NewString(value))
	}
	return val.NewMap(m)
}

// biCall spawns a subprocess, piping the receiver's bytes to its stdin
// and capturing stdout as the result - a single-shot ExecContext{Stdin,
// Stdout, Stderr} pattern, without session pooling or remote transport
// (see DESIGN.md).
func biCall(e *Evaluator, arena *ast.Arena, current *val.Val, vars Vars, args []ast.Arg) *val.Val {
	var stdin []byte
	switch {
	case current.IsBytes():
		stdin = current.Bytes()
	case current.IsString():
		stdin = []byte(current.Str())
	case current.IsNull():
		stdin = nil
	default:
		stdin = val.WriteJSON(current, false)
	}

	var argv []string
	for i := 0; ; i++ {
		h, ok := positionalArg(args, i)
		if !ok {
			break
		}
		v := e.evalExpr(arena, h, current, vars)
		if v.IsErr() {
			return v
		}
		if !v.IsString() {
			return val.NewErrf("call: arguments must be strings, got %s", v.TypeName())
		}
		argv = append(argv, v.Str())
	}
	if len(argv) == 0 {
		return val.NewErr(errs.WrongArity("call", "1+", 0).Message)
	}

	cmd := exec.CommandContext(context.Background(), argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if cwdH, ok := keywordArg(args, "cwd"); ok {
		cwd := e.evalExpr(arena, cwdH, current, vars)
		if cwd.IsErr() {
			return cwd
		}
		if !cwd.IsString() {
			return val.NewErrf("call: :cwd must be a string, got %s", cwd.TypeName())
		}
		cmd.Dir = cwd.Str()
	}

	if err := cmd.Run(); err != nil {
		return val.NewErr(errs.Wrap(errs.ErrSubprocess, err, "call: %s: %v: %s", argv[0], err, stderr.String()).Message)
	}
	return val.NewBytes(stdout.Bytes())
}
