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

package atomiccell

import (
	"fmt"
	"reflect"
	"unsafe"

	"ordsync.dev/ordsync/pkg/gohacks"
	"ordsync.dev/ordsync/pkg/spinlock"
	"ordsync.dev/ordsync/pkg/sync"
)

// SeqCell is an atomic-by-value container for plain-old-data types of any
// width, backed by a sequence counter instead of a single machine word.
//
// Readers take optimistic copies and retry around concurrent writes; they
// never block and never observe a torn value. Writers serialize on an
// internal spin lock and are NOT lock-free; a SeqCell is the documented
// fallback for types too wide for Cell, not a drop-in replacement. All
// operations are sequentially consistent; the seqlock protocol fixes the
// fencing, so there are no ordering parameters.
//
// A SeqCell must be obtained from NewSeq. It must not be copied after first
// use.
type SeqCell[T any] struct {
	// mu serializes writers. Readers never take it.
	mu spinlock.SpinLock

	// seq covers val. Writer critical sections are bracketed by
	// BeginWrite/EndWrite under mu.
	seq sync.SeqCount

	val T
}

// NewSeq returns a SeqCell holding initial. It panics if T is not plain old
// data: the reader path copies raw bytes outside the race detector's and the
// collector's view, which is only sound for types the collector does not
// track.
func NewSeq[T any](initial T) *SeqCell[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if err := podKind(t); err != nil {
		panic(fmt.Sprintf("atomiccell: %v is not plain old data: %v", t, err))
	}
	if t.Size() == 0 {
		panic(fmt.Sprintf("atomiccell: zero-size %v carries no value", t))
	}
	return &SeqCell[T]{val: initial}
}

// Load returns a copy of the stored value, retrying until the copy does not
// race with a writer.
//
//go:nosplit
func (s *SeqCell[T]) Load() T {
	for {
		if val, ok := s.TryLoad(s.seq.BeginRead()); ok {
			return val
		}
	}
}

// TryLoad returns a copy of the stored value while in a reader critical
// section initiated by a call to BeginRead on the cell's sequence counter
// that returned epoch. If the read raced with a writer critical section,
// TryLoad returns (unspecified, false).
//
//go:nosplit
func (s *SeqCell[T]) TryLoad(epoch sync.SeqCountEpoch) (val T, ok bool) {
	if sync.RaceEnabled {
		// runtime.RaceDisable() doesn't actually stop the race detector, so it
		// can't help us here. Instead, call runtime.memmove directly, which is
		// not instrumented by the race detector.
		gohacks.Memmove(unsafe.Pointer(&val), unsafe.Pointer(&s.val), unsafe.Sizeof(val))
	} else {
		// This is ~40% faster for short reads than going through memmove.
		val = s.val
	}
	ok = s.seq.ReadOk(epoch)
	return
}

// BeginRead starts a reader critical section on the cell's sequence counter,
// for callers that batch several TryLoads per epoch.
//
//go:nosplit
func (s *SeqCell[T]) BeginRead() sync.SeqCountEpoch {
	return s.seq.BeginRead()
}

// Store sets the stored value to a copy of val, forcing any racing readers
// to retry. Writers serialize on the cell's internal lock.
func (s *SeqCell[T]) Store(val T) {
	s.mu.Lock()
	s.seq.BeginWrite()
	if sync.RaceEnabled {
		gohacks.Memmove(unsafe.Pointer(&s.val), unsafe.Pointer(&val), unsafe.Sizeof(val))
	} else {
		s.val = val
	}
	s.seq.EndWrite()
	s.mu.Unlock()
}
