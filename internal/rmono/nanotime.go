//go:build !resp3mono

// Package rmono provides NanoTime for health-probe latency measurement:
// runtime.nanotime (monotonic) under -tags resp3mono, and otherwise this
// wall-clock time.Now().UnixNano() fallback, which is not monotonic.
package rmono

import "time"

func NanoTime() int64 { return time.Now().UnixNano() }
