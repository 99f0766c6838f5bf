// Copyright 2024 The ordsync Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package atomicflag provides a single-bit atomic flag with explicit memory
// ordering annotations.
//
// Every operation on a Flag compiles to a single hardware atomic instruction
// through sync/atomic; the flag is lock-free unconditionally, on every
// platform. Ordering annotations state the minimum ordering each call site
// requires (see package memorder); an invalid annotation for the operation
// class panics.
package atomicflag

import (
	"ordsync.dev/ordsync/pkg/atomicword"
	"ordsync.dev/ordsync/pkg/memorder"
)

// Flag is a single-bit atomic flag.
//
// The zero value is a cleared flag. A Flag has exactly one identity and must
// not be copied after first use.
type Flag struct {
	// word holds 0 for cleared and 1 for set. It is a named field rather
	// than an embedded one so that the word's arithmetic method set does not
	// leak into the flag's.
	word atomicword.Uint32
}

// New returns a new Flag initialized to the given state.
func New(set bool) *Flag {
	f := &Flag{}
	if set {
		f.word.RacyStore(1)
	}
	return f
}

// FromBool returns a Flag initialized to the given state, as a value.
//
//go:nosplit
func FromBool(set bool) Flag {
	var u uint32
	if set {
		u = 1
	}
	return Flag{word: atomicword.FromUint32(u)}
}

// TestAndSet atomically sets the flag and returns whether it was set before
// the call. It is a read-modify-write operation and accepts every ordering.
//
// TestAndSet is indivisible with respect to all concurrent flag operations:
// of any number of concurrent TestAndSet calls finding the flag cleared,
// exactly one observes false.
//
//go:nosplit
func (f *Flag) TestAndSet(order memorder.Order) bool {
	memorder.Check(memorder.OpRMW, order)
	return f.word.Swap(1) != 0
}

// TestAndClear atomically clears the flag and returns whether it was set
// before the call. It is a read-modify-write operation and accepts every
// ordering.
//
//go:nosplit
func (f *Flag) TestAndClear(order memorder.Order) bool {
	memorder.Check(memorder.OpRMW, order)
	return f.word.Swap(0) != 0
}

// Clear atomically clears the flag. It is a store-class operation: Relaxed,
// Release and SeqCst are valid, Acquire and AcqRel panic.
//
//go:nosplit
func (f *Flag) Clear(order memorder.Order) {
	memorder.Check(memorder.OpStore, order)
	f.word.Store(0)
}

// Test atomically reads the flag. It is a load-class operation: Relaxed,
// Acquire and SeqCst are valid, Release and AcqRel panic.
//
//go:nosplit
func (f *Flag) Test(order memorder.Order) bool {
	memorder.Check(memorder.OpLoad, order)
	return f.word.Load() != 0
}
