// Package invariant provides contract assertions for the query engine
// core. Violations are programmer errors, not user errors: user-facing
// failures flow through the evaluator as Err values, while these panic,
// because continuing past a broken internal contract (a mis-kinded Val
// accessor, a dangling arena handle) would corrupt results silently.
package invariant

import (
	"fmt"
	"reflect"
)

// Precondition panics when an argument/receiver contract is violated at
// a function boundary, e.g. calling Num() on a non-number Val.
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Invariant panics when an internal consistency condition fails mid-
// operation, e.g. an ordered map whose bucket count disagrees with its
// entry count.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics when value is nil, including a typed-nil pointer, map,
// or slice hiding inside a non-nil interface.
func NotNil(value any, name string) {
	if isNil(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// InRange panics when value lies outside [minVal, maxVal], e.g. an AST
// handle outside its arena.
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in [%d, %d], got %d", name, minVal, maxVal, value)
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func fail(kind, format string, args ...any) {
	panic(fmt.Sprintf("%s VIOLATION: %s", kind, fmt.Sprintf(format, args...)))
}
