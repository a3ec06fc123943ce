//go:build release

package assert

func That(bool, string, ...any) {}

func NotNil[T any](*T, string) {}
