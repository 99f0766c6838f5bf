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

// Package orders exercises the checkorder diagnostics.
package orders

import (
	"memorder"
)

type flag struct{}

func (flag) Test(memorder.Order) bool          { return false }
func (flag) TestAndSet(memorder.Order) bool    { return false }
func (flag) TestAndClear(memorder.Order) bool  { return false }
func (flag) Clear(memorder.Order)              {}

type cell struct{}

func (cell) Load(memorder.Order) int      { return 0 }
func (cell) Store(int, memorder.Order)    {}
func (cell) Swap(int, memorder.Order) int { return 0 }
func (cell) CompareExchange(int, int, memorder.Order, memorder.Order) (bool, int) {
	return false, 0
}

func rejected() {
	var f flag
	var c cell

	f.Test(memorder.Release)  // want `memorder.Release is not a valid load ordering`
	f.Test(memorder.AcqRel)   // want `memorder.AcqRel is not a valid load ordering`
	f.Clear(memorder.Acquire) // want `memorder.Acquire is not a valid store ordering`
	f.Clear(memorder.AcqRel)  // want `memorder.AcqRel is not a valid store ordering`

	c.Load(memorder.Release)     // want `memorder.Release is not a valid load ordering`
	c.Store(1, memorder.Acquire) // want `memorder.Acquire is not a valid store ordering`

	c.CompareExchange(0, 1, memorder.SeqCst, memorder.Release) // want `memorder.Release is not a valid compare-exchange failure ordering`
	c.CompareExchange(0, 1, memorder.SeqCst, memorder.AcqRel)  // want `memorder.AcqRel is not a valid compare-exchange failure ordering`
	c.CompareExchange(0, 1, memorder.Relaxed, memorder.Acquire) // want `compare-exchange failure ordering memorder.Acquire is stronger than success ordering memorder.Relaxed`
}

func admitted() {
	var f flag
	var c cell

	f.Test(memorder.Acquire)
	f.Test(memorder.Relaxed)
	f.TestAndSet(memorder.AcqRel)
	f.TestAndSet(memorder.Release)
	f.TestAndClear(memorder.Acquire)
	f.Clear(memorder.Release)
	f.Clear(memorder.SeqCst)

	c.Load(memorder.SeqCst)
	c.Store(1, memorder.Relaxed)
	c.Swap(2, memorder.Release)
	c.CompareExchange(0, 1, memorder.AcqRel, memorder.Relaxed)
	c.CompareExchange(0, 1, memorder.SeqCst, memorder.SeqCst)
}

// Orderings that only flow through a variable are a runtime matter.
func dynamic(o memorder.Order) {
	var f flag
	f.Clear(o)
}

type unrelated struct{}

func (unrelated) Load(int) int { return 0 }

// Load on an unrelated type takes no ordering and must not be reported.
func collision() {
	var u unrelated
	u.Load(3)
}
