//go:build resp3mono

package rmono

import (
	_ "unsafe" // for go:linkname
)

//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
