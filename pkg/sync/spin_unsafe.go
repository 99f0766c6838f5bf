// Copyright 2024 The ordsync Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21 && !go1.27

// Check go:linkname function signatures when updating Go version.

package sync

import (
	_ "unsafe" // for go:linkname
)

// Note that go:linkname silently doesn't work if the local name is exported,
// necessitating an indirection for exported functions.

// CanSpin reports whether spinning at the given iteration count is sensible:
// it is bounded, multiple CPUs are available, and the scheduler has runnable
// goroutines to fall back to otherwise.
//
//go:nosplit
func CanSpin(i int) bool {
	return canSpin(i)
}

// DoSpin executes a fixed number of PAUSE-class instructions without
// yielding the processor.
//
//go:nosplit
func DoSpin() {
	doSpin()
}

// Goyield yields the processor to other runnable goroutines on the same P,
// without parking the current one. It is cheaper than Gosched when the wait
// is expected to be short.
//
//go:nosplit
func Goyield() {
	goyield()
}

//go:linkname canSpin sync.runtime_canSpin
func canSpin(i int) bool

//go:linkname doSpin sync.runtime_doSpin
func doSpin()

//go:linkname goyield runtime.goyield
func goyield()
