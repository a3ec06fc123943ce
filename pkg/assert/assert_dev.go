//go:build !release

// Package assert guards simulation invariants. Violations are programming errors, so they panic
// in development builds and compile away with the release build tag.
package assert

import "fmt"

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// NotNil panics when v is a nil pointer or nil interface.
func NotNil[T any](v *T, name string) {
	if v == nil {
		panic(name + " must not be nil")
	}
}
