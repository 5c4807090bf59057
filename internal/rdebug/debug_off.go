//go:build !resp3debug

// Package rdebug provides debug-build-only assertions, compiled out of
// production builds.
package rdebug

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func AssertFunc(_ func() bool, _ ...any) {}
func AssertNoErr(_ error)                {}
func Assertf(_ bool, _ string, _ ...any) {}
