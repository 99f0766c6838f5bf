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

// Package atomiccell provides atomic-by-value containers for plain-old-data
// types, with explicit memory ordering annotations.
//
// A Cell[T] holds a value of a word-representable type T and supports atomic
// load, store, swap and strong compare-exchange; every operation is a single
// hardware atomic on the packed word, so a Cell never exposes a torn value
// under any ordering. Types wider than the machine word are rejected at
// construction; the documented fallback for wide plain-old-data is SeqCell,
// which trades writer lock-freedom for unlimited width.
package atomiccell

import (
	"fmt"
	"reflect"
	"unsafe"

	"ordsync.dev/ordsync/pkg/atomicword"
	"ordsync.dev/ordsync/pkg/memorder"
)

// wordBytes is the width of the backing word of a Cell.
const wordBytes = 8

// Cell is an atomic container for a value of a word-representable type T.
//
// A Cell must be obtained from New, which enforces that T is plain old data,
// 1 to 8 bytes wide, without padding. It must not be copied after first use.
type Cell[T any] struct {
	word atomicword.Uint64
}

// New returns a Cell holding initial. It panics if T is not
// word-representable; rejection is the loud alternative to silently storing
// a value the cell cannot compare or the collector cannot see.
func New[T any](initial T) *Cell[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := wordRepresentable(t); err != nil {
		panic(fmt.Sprintf("atomiccell: %v is not word-representable: %v", t, err))
	}
	c := &Cell[T]{}
	c.word.RacyStore(pack(initial))
	return c
}

// pack encodes v into a word. The size guard folds to a constant per
// instantiation; it keeps a Cell constructed around the admissibility check
// (via the zero value) from reading or writing out of bounds.
//
//go:nosplit
func pack[T any](v T) uint64 {
	if unsafe.Sizeof(v) > wordBytes {
		panic("atomiccell: value wider than the backing word")
	}
	var w uint64
	*(*T)(unsafe.Pointer(&w)) = v
	return w
}

// unpack decodes a word produced by pack.
//
//go:nosplit
func unpack[T any](w uint64) (v T) {
	if unsafe.Sizeof(v) > wordBytes {
		panic("atomiccell: value wider than the backing word")
	}
	v = *(*T)(unsafe.Pointer(&w))
	return
}

// Load atomically reads the stored value. Load class: Relaxed, Acquire and
// SeqCst are valid orderings.
//
//go:nosplit
func (c *Cell[T]) Load(order memorder.Order) T {
	memorder.Check(memorder.OpLoad, order)
	return unpack[T](c.word.Load())
}

// Store atomically replaces the stored value. Store class: Relaxed, Release
// and SeqCst are valid orderings.
//
//go:nosplit
func (c *Cell[T]) Store(v T, order memorder.Order) {
	memorder.Check(memorder.OpStore, order)
	c.word.Store(pack(v))
}

// Swap atomically replaces the stored value and returns the previous one.
// Read-modify-write class: every ordering is valid.
//
//go:nosplit
func (c *Cell[T]) Swap(v T, order memorder.Order) T {
	memorder.Check(memorder.OpRMW, order)
	return unpack[T](c.word.Swap(pack(v)))
}

// CompareExchange atomically replaces the stored value with desired if it
// equals expected. It returns (true, expected) if the exchange happened and
// (false, observed) with the value actually found otherwise.
//
// This is the strong form: if the stored value equals expected, the exchange
// happens; there are no spurious failures. Equality is whole-word equality,
// which New's admissibility rules make identical to value equality.
//
// The success ordering is read-modify-write class. The failure ordering
// applies to the read performed when the comparison fails; it must be load
// class and must not be stronger than the success ordering.
//
//go:nosplit
func (c *Cell[T]) CompareExchange(expected, desired T, success, failure memorder.Order) (bool, T) {
	memorder.CheckFailure(success, failure)
	want := pack(expected)
	prev := c.word.CompareAndSwapPrev(want, pack(desired))
	if prev == want {
		return true, expected
	}
	return false, unpack[T](prev)
}

// RacyLoad is analogous to reading the stored value without using
// synchronization.
//
// It may be helpful to document why a racy operation is permitted.
//
//go:nosplit
func (c *Cell[T]) RacyLoad() T {
	return unpack[T](c.word.RacyLoad())
}

// RacyStore is analogous to setting the stored value without using
// synchronization.
//
// It may be helpful to document why a racy operation is permitted.
//
//go:nosplit
func (c *Cell[T]) RacyStore(v T) {
	c.word.RacyStore(pack(v))
}
