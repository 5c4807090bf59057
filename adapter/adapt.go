package adapter

import "github.com/ais-wire/resp3/resp3parse"

// Adapt selects the adapter variant appropriate for T, the "type trait"
// spec §4.F's connection.adapt(T) names. Generics make a reflect-driven
// dispatch unnecessary: the compiler already knows T at the call site, so
// selection is a plain type switch on the zero value.
//
// Supported instantiations mirror the built-in constructors in adapter.go
// (string, []byte, int64, float64, bool); anything else falls back to
// Ignore, matching SPEC_FULL.md's "ignore applied by default" rule.
func Adapt[T any]() resp3parse.Sink {
	var zero T
	switch any(zero).(type) {
	case string:
		return StringScalar()
	case []byte:
		return NewScalar(ParseBytes)
	case int64:
		return IntScalar()
	case float64:
		return FloatScalar()
	case bool:
		return BoolScalar()
	default:
		return Ignore{}
	}
}

// AdaptScalar is the typed counterpart of Adapt for callers who need the
// parsed value back rather than just shape validation. It covers the
// four built-in scalar kinds; for anything else it returns nil (use
// NewScalar directly with a custom parse function).
func AdaptScalar[T any]() *Scalar[T] {
	var zero T
	switch any(zero).(type) {
	case string:
		return any(StringScalar()).(*Scalar[T])
	case int64:
		return any(IntScalar()).(*Scalar[T])
	case float64:
		return any(FloatScalar()).(*Scalar[T])
	case bool:
		return any(BoolScalar()).(*Scalar[T])
	default:
		return nil
	}
}
