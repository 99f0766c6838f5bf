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

// Package spinlock provides a busy-waiting mutual exclusion lock built from a
// single atomic flag.
//
// A SpinLock never parks its caller: waiters burn CPU in a
// test-and-test-and-set loop, with bounded PAUSE-style spinning and
// same-thread yields between attempts. That makes it appropriate only for
// critical sections that are short with high confidence; anything that can
// block, allocate, or run long belongs under a sync.Mutex instead.
//
// Lock acquisition is an acquiring test-and-set and release is a releasing
// clear, so everything written before Unlock is visible after the next Lock.
// A lock constructed with NewSeqCst uses sequentially consistent ordering for
// both ends instead; that is the strictly stronger policy, with no semantic
// difference for code that only relies on the mutual exclusion.
package spinlock

import (
	"ordsync.dev/ordsync/pkg/atomicflag"
	"ordsync.dev/ordsync/pkg/memorder"
	"ordsync.dev/ordsync/pkg/sync"
)

// SpinLock is a busy-waiting mutual exclusion lock. The zero value is an
// unlocked lock with the acquire/release ordering policy.
//
// A SpinLock must not be copied after first use. Only the holder may call
// Unlock; the lock does not track holder identity, so that discipline is the
// caller's.
//
// SpinLock implements sync.Locker.
type SpinLock struct {
	// held is the entire lock state: set means locked.
	held atomicflag.Flag

	// seqCst selects the sequentially consistent ordering policy. It is
	// written only at construction.
	seqCst bool
}

var _ sync.Locker = (*SpinLock)(nil)

// NewSeqCst returns an unlocked SpinLock that uses sequentially consistent
// ordering for acquisition and release.
func NewSeqCst() *SpinLock {
	return &SpinLock{seqCst: true}
}

//go:nosplit
func (l *SpinLock) acquireOrder() memorder.Order {
	if l.seqCst {
		return memorder.SeqCst
	}
	return memorder.Acquire
}

//go:nosplit
func (l *SpinLock) releaseOrder() memorder.Order {
	if l.seqCst {
		return memorder.SeqCst
	}
	return memorder.Release
}

// Lock acquires l, busy-waiting until it is available.
func (l *SpinLock) Lock() {
	if !l.held.TestAndSet(l.acquireOrder()) {
		return
	}
	l.lockSlow()
}

func (l *SpinLock) lockSlow() {
	acq := l.acquireOrder()
	i := 0
	for {
		// Test-and-test-and-set: wait on the read-only test until the flag
		// looks clear, so contending waiters do not hammer the cache line
		// with failed read-modify-writes.
		for l.held.Test(memorder.Relaxed) {
			if sync.CanSpin(i) {
				i++
				sync.DoSpin()
			} else {
				sync.Goyield()
			}
		}
		if !l.held.TestAndSet(acq) {
			return
		}
	}
}

// TryLock attempts to acquire l without waiting. It returns true if the lock
// was acquired.
//
//go:nosplit
func (l *SpinLock) TryLock() bool {
	return !l.held.TestAndSet(l.acquireOrder())
}

// Unlock releases l. It panics if l is not locked: an unlock of an unlocked
// lock is always a caller bug, and continuing would corrupt the mutual
// exclusion for every other user.
//
//go:nosplit
func (l *SpinLock) Unlock() {
	if !l.held.TestAndClear(l.releaseOrder()) {
		panic("spinlock: Unlock of unlocked SpinLock")
	}
}

// IsLocked returns whether l is currently held. The answer is immediately
// stale and useful only for assertions and tests.
//
//go:nosplit
func (l *SpinLock) IsLocked() bool {
	return l.held.Test(memorder.Relaxed)
}
