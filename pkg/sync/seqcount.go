// Copyright 2024 The ordsync Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sync

import (
	"sync/atomic"
)

// SeqCount is a synchronization primitive for optimistic reader/writer
// synchronization in cases where readers can work with stale data and
// therefore do not need to block writers.
//
// Compared to sync/atomic, SeqCount:
//
//   - Supports arbitrary-sized reads and writes, not just machine words.
//
//   - Does not require that readers allocate, at the cost of requiring that
//     they retry reads that race with writers.
//
// In most cases, SeqCount should be used through a higher-level wrapper that
// encapsulates the read retry loop; see atomiccell.SeqCell.
type SeqCount struct {
	// epoch is incremented by BeginWrite and EndWrite, such that epoch is odd
	// if a writer critical section is active, and a read from data protected
	// by this SeqCount is atomic iff epoch is the same even value before and
	// after the read.
	epoch atomic.Uint32
}

// SeqCountEpoch tracks writer critical sections in a SeqCount.
type SeqCountEpoch uint32

// BeginRead indicates the beginning of a reader critical section. Reader
// critical sections DO NOT BLOCK writer critical sections, so operations in a
// reader critical section may race with writer critical sections. Races are
// detected by ReadOk at the end of the reader critical section. Thus, the
// low-level structure of readers is generally:
//
//	for {
//	    epoch := seq.BeginRead()
//	    // do something idempotent with seq-protected data
//	    if seq.ReadOk(epoch) {
//	        break
//	    }
//	}
//
// However, since reader critical sections may race with writer critical
// sections, the Go race detector will flag data races in readers using this
// pattern. Most users of SeqCount will need to use a wrapper such as
// atomiccell.SeqCell, whose Load and TryLoad automatically handle
// reader-writer races.
func (s *SeqCount) BeginRead() SeqCountEpoch {
	if epoch := s.epoch.Load(); epoch&1 == 0 {
		return SeqCountEpoch(epoch)
	}
	return s.beginReadSlow()
}

func (s *SeqCount) beginReadSlow() SeqCountEpoch {
	i := 0
	for {
		if canSpin(i) {
			i++
			doSpin()
		} else {
			goyield()
		}
		if epoch := s.epoch.Load(); epoch&1 == 0 {
			return SeqCountEpoch(epoch)
		}
	}
}

// ReadOk returns true if the reader critical section initiated by a previous
// call to BeginRead() that returned epoch did not race with any writer
// critical sections.
//
// ReadOk may be called any number of times during a reader critical section.
// Reader critical sections do not need to be explicitly terminated; the last
// call to ReadOk is implicitly the end of the reader critical section.
func (s *SeqCount) ReadOk(epoch SeqCountEpoch) bool {
	return s.epoch.Load() == uint32(epoch)
}

// BeginWrite indicates the beginning of a writer critical section.
//
// SeqCount does not support concurrent writer critical sections; clients with
// concurrent writers must synchronize them using e.g. sync.Mutex.
func (s *SeqCount) BeginWrite() {
	if epoch := s.epoch.Add(1); epoch&1 == 0 {
		panic("SeqCount.BeginWrite during writer critical section")
	}
}

// EndWrite ends the effect of a preceding BeginWrite.
func (s *SeqCount) EndWrite() {
	if epoch := s.epoch.Add(1); epoch&1 != 0 {
		panic("SeqCount.EndWrite outside writer critical section")
	}
}
