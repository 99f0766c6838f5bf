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

// Package memorder defines memory ordering annotations for atomic operations.
//
// An Order states the minimum ordering an operation requires from the memory
// system. Go's sync/atomic executes every atomic operation with sequentially
// consistent semantics, so operations annotated with a weaker Order still run
// at least as strong as requested; an annotation is a documented contract and
// a validity constraint, never a downgrade. Annotating an operation with an
// Order that its operation class cannot satisfy (for example a Release load)
// is a bug in the caller, and the Check functions turn it into a panic rather
// than silently substituting a different ordering.
//
// The zero value of Order is SeqCst, so an unannotated operation is always
// the strongest one.
package memorder

import (
	"fmt"
)

// Order is a memory ordering annotation.
type Order uint8

const (
	// SeqCst requires sequential consistency, and is the zero value of
	// Order. A single total order exists over all SeqCst operations.
	SeqCst Order = iota

	// AcqRel requires acquire semantics on the read half and release
	// semantics on the write half of a read-modify-write operation. It is
	// not valid for plain loads or stores.
	AcqRel

	// Acquire requires that no reads or writes after the operation in
	// program order are reordered before it. Valid for operations that
	// read.
	Acquire

	// Release requires that no reads or writes before the operation in
	// program order are reordered after it. Valid for operations that
	// write.
	Release

	// Relaxed requires atomicity only, with no ordering constraint.
	Relaxed

	numOrders
)

// Op is a class of atomic operation, used to decide which orderings are
// admissible.
type Op uint8

const (
	// OpLoad is a plain atomic read.
	OpLoad Op = iota

	// OpStore is a plain atomic write.
	OpStore

	// OpRMW is an atomic read-modify-write: test-and-set, swap, add, or a
	// successful compare-and-exchange.
	OpRMW

	// OpCmpxchgFailure is the read performed by a compare-and-exchange
	// that finds an unexpected value and does not write.
	OpCmpxchgFailure

	numOps
)

// valid is the admissibility table: valid[op][order] reports whether order
// may annotate an operation of class op.
var valid = [numOps][numOrders]bool{
	OpLoad:           {SeqCst: true, Acquire: true, Relaxed: true},
	OpStore:          {SeqCst: true, Release: true, Relaxed: true},
	OpRMW:            {SeqCst: true, AcqRel: true, Acquire: true, Release: true, Relaxed: true},
	OpCmpxchgFailure: {SeqCst: true, Acquire: true, Relaxed: true},
}

// rank orders Order values by strength. Acquire and Release are unordered
// relative to each other and share a rank.
var rank = [numOrders]uint8{
	Relaxed: 0,
	Acquire: 1,
	Release: 1,
	AcqRel:  2,
	SeqCst:  3,
}

// String implements fmt.Stringer.String.
func (o Order) String() string {
	switch o {
	case SeqCst:
		return "SeqCst"
	case AcqRel:
		return "AcqRel"
	case Acquire:
		return "Acquire"
	case Release:
		return "Release"
	case Relaxed:
		return "Relaxed"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// String implements fmt.Stringer.String.
func (op Op) String() string {
	switch op {
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpRMW:
		return "read-modify-write"
	case OpCmpxchgFailure:
		return "compare-exchange failure"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// ValidFor reports whether o may annotate an operation of class op. Both
// out-of-range orders and out-of-range ops are invalid.
func (o Order) ValidFor(op Op) bool {
	if o >= numOrders || op >= numOps {
		return false
	}
	return valid[op][o]
}

// StrongerThan reports whether o is strictly stronger than other. Acquire and
// Release are incomparable; neither is stronger than the other.
func (o Order) StrongerThan(other Order) bool {
	if o >= numOrders || other >= numOrders {
		return false
	}
	return rank[o] > rank[other]
}

// Check panics if order may not annotate an operation of class op. It is
// intended to be called at the top of order-annotated operations, so that a
// caller passing a senseless ordering fails loudly instead of running with a
// silently substituted one.
func Check(op Op, order Order) {
	if !order.ValidFor(op) {
		panic(fmt.Sprintf("memorder: %s does not permit %s", op, order))
	}
}

// CheckFailure panics if failure may not annotate the failed read of a
// compare-and-exchange whose success ordering is success. The failure
// ordering must be a valid load ordering and must not be stronger than the
// success ordering.
func CheckFailure(success, failure Order) {
	Check(OpRMW, success)
	Check(OpCmpxchgFailure, failure)
	if failure.StrongerThan(success) {
		panic(fmt.Sprintf("memorder: compare-exchange failure ordering %s is stronger than success ordering %s", failure, success))
	}
}
