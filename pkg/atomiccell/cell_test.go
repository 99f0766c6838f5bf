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
	"testing"

	"ordsync.dev/ordsync/pkg/atomicword"
	"ordsync.dev/ordsync/pkg/memorder"
	"ordsync.dev/ordsync/pkg/sync"
)

var (
	loadOrders  = []memorder.Order{memorder.SeqCst, memorder.Acquire, memorder.Relaxed}
	storeOrders = []memorder.Order{memorder.SeqCst, memorder.Release, memorder.Relaxed}
)

func wantPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("%s: did not panic", name)
		}
	}()
	f()
}

func TestNewAdmitsWordRepresentable(t *testing.T) {
	// Each of these must construct without panicking.
	New[bool](true)
	New[int8](-1)
	New[uint16](0xffff)
	New[int32](-1 << 30)
	New[uint64](1 << 63)
	New[int](42)
	New[uintptr](0xdead)
	New[float32](3.5)
	New[float64](-2.25)
	New[complex64](complex(1, 2))
	New[[8]byte]([8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	New[[2]uint32]([2]uint32{1, 2})
	type pair struct {
		A, B uint16
	}
	New[pair](pair{1, 2})
	type nested struct {
		A [2]byte
		B uint16
		C uint32
	}
	New[nested](nested{})
}

func TestNewRejectsNonWordRepresentable(t *testing.T) {
	wantPanic(t, "string", func() { New[string]("") })
	wantPanic(t, "pointer", func() { New[*int](nil) })
	wantPanic(t, "slice", func() { New[[]byte](nil) })
	wantPanic(t, "map", func() { New[map[int]int](nil) })
	wantPanic(t, "chan", func() { New[chan int](nil) })
	wantPanic(t, "func", func() { New[func()](nil) })
	wantPanic(t, "interface", func() { New[any](uint32(1)) })
	wantPanic(t, "struct with pointer", func() {
		type bad struct{ P *int }
		New[bad](bad{})
	})
	wantPanic(t, "too wide", func() { New[[3]uint32]([3]uint32{}) })
	wantPanic(t, "complex128", func() { New[complex128](0) })
	wantPanic(t, "zero size", func() { New[struct{}](struct{}{}) })
	wantPanic(t, "zero-length array", func() { New[[0]uint32]([0]uint32{}) })
	wantPanic(t, "interior padding", func() {
		type padded struct {
			A uint8
			B uint32
		}
		New[padded](padded{})
	})
	wantPanic(t, "tail padding", func() {
		type padded struct {
			A uint32
			B uint8
		}
		New[padded](padded{})
	})
}

func TestOversizeGuardOnZeroValueCell(t *testing.T) {
	// A Cell must come from New, but even one that didn't can never read or
	// write out of bounds.
	var c Cell[[9]byte]
	wantPanic(t, "Load", func() { c.Load(memorder.SeqCst) })
	wantPanic(t, "Store", func() { c.Store([9]byte{}, memorder.SeqCst) })
}

func TestRoundTripAllValidOrderPairs(t *testing.T) {
	for _, so := range storeOrders {
		for _, lo := range loadOrders {
			t.Run(fmt.Sprintf("store%s/load%s", so, lo), func(t *testing.T) {
				c := New[uint32](0)
				c.Store(0xdeadbeef, so)
				if got := c.Load(lo); got != 0xdeadbeef {
					t.Errorf("Load: got %#x, wanted 0xdeadbeef", got)
				}
			})
		}
	}
}

func TestRoundTripNarrowTypes(t *testing.T) {
	cb := New[bool](false)
	cb.Store(true, memorder.SeqCst)
	if !cb.Load(memorder.SeqCst) {
		t.Errorf("bool Load: got false, wanted true")
	}

	ci := New[int8](0)
	ci.Store(-5, memorder.SeqCst)
	if got := ci.Load(memorder.SeqCst); got != -5 {
		t.Errorf("int8 Load: got %d, wanted -5", got)
	}

	cf := New[float64](0)
	cf.Store(-2.25, memorder.SeqCst)
	if got := cf.Load(memorder.SeqCst); got != -2.25 {
		t.Errorf("float64 Load: got %v, wanted -2.25", got)
	}

	type pair struct {
		A, B uint16
	}
	cp := New[pair](pair{})
	cp.Store(pair{7, 9}, memorder.SeqCst)
	if got := cp.Load(memorder.SeqCst); got != (pair{7, 9}) {
		t.Errorf("pair Load: got %+v, wanted {7 9}", got)
	}
}

func TestInvalidOrdersPanic(t *testing.T) {
	c := New[uint32](0)
	wantPanic(t, "Load(Release)", func() { c.Load(memorder.Release) })
	wantPanic(t, "Load(AcqRel)", func() { c.Load(memorder.AcqRel) })
	wantPanic(t, "Store(Acquire)", func() { c.Store(1, memorder.Acquire) })
	wantPanic(t, "Store(AcqRel)", func() { c.Store(1, memorder.AcqRel) })
	wantPanic(t, "Swap(Order(99))", func() { c.Swap(1, memorder.Order(99)) })
	wantPanic(t, "CompareExchange failure Release", func() {
		c.CompareExchange(0, 1, memorder.SeqCst, memorder.Release)
	})
	wantPanic(t, "CompareExchange failure stronger than success", func() {
		c.CompareExchange(0, 1, memorder.Relaxed, memorder.Acquire)
	})
}

func TestSwapReturnsPrior(t *testing.T) {
	c := New[uint32](1)
	if got := c.Swap(2, memorder.SeqCst); got != 1 {
		t.Errorf("Swap: got %d, wanted 1", got)
	}
	if got := c.Swap(3, memorder.AcqRel); got != 2 {
		t.Errorf("Swap: got %d, wanted 2", got)
	}
	if got := c.Load(memorder.SeqCst); got != 3 {
		t.Errorf("Load: got %d, wanted 3", got)
	}
}

func TestCompareExchangeBasic(t *testing.T) {
	c := New[uint32](5)

	ok, got := c.CompareExchange(5, 6, memorder.SeqCst, memorder.SeqCst)
	if !ok || got != 5 {
		t.Errorf("CompareExchange(5, 6): got (%t, %d), wanted (true, 5)", ok, got)
	}

	ok, got = c.CompareExchange(5, 7, memorder.SeqCst, memorder.SeqCst)
	if ok || got != 6 {
		t.Errorf("CompareExchange(5, 7): got (%t, %d), wanted (false, 6)", ok, got)
	}

	if got := c.Load(memorder.SeqCst); got != 6 {
		t.Errorf("Load: got %d, wanted 6", got)
	}
}

func TestCompareExchangeNeverFailsSpuriously(t *testing.T) {
	// The strong form must succeed whenever the stored value equals expected,
	// on every attempt, with no concurrency to hide behind.
	c := New[uint64](0)
	for i := uint64(0); i < 10000; i++ {
		ok, got := c.CompareExchange(i, i+1, memorder.SeqCst, memorder.SeqCst)
		if !ok {
			t.Fatalf("iteration %d: CompareExchange failed spuriously, observed %d", i, got)
		}
	}
	if got := c.Load(memorder.SeqCst); got != 10000 {
		t.Errorf("Load: got %d, wanted 10000", got)
	}
}

func TestCompareExchangeSingleWinner(t *testing.T) {
	// Of W contenders racing the same transition, exactly one must win.
	const (
		contenders = 8
		rounds     = 1000
	)
	for r := 0; r < rounds; r++ {
		c := New[uint32](0)
		var winners atomicword.Int32
		var wg sync.WaitGroup
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(id uint32) {
				defer wg.Done()
				if ok, _ := c.CompareExchange(0, id, memorder.AcqRel, memorder.Acquire); ok {
					winners.Add(1)
				}
			}(uint32(i + 1))
		}
		wg.Wait()
		if got := winners.Load(); got != 1 {
			t.Fatalf("round %d: %d winners, wanted 1", r, got)
		}
		if got := c.Load(memorder.SeqCst); got == 0 || got > contenders {
			t.Fatalf("round %d: final value %d, wanted a contender id", r, got)
		}
	}
}

func TestCompareExchangeLostUpdateFreedom(t *testing.T) {
	// Every increment retried through CompareExchange must land: the final
	// count is exact, which fails if an exchange ever succeeds without
	// actually being applied or applies without reporting success.
	const (
		gr    = 8
		iters = 10000
	)
	c := New[uint64](0)
	var wg sync.WaitGroup
	for i := 0; i < gr; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				cur := c.Load(memorder.Relaxed)
				for {
					ok, observed := c.CompareExchange(cur, cur+1, memorder.AcqRel, memorder.Relaxed)
					if ok {
						break
					}
					cur = observed
				}
			}
		}()
	}
	wg.Wait()
	if got := c.Load(memorder.SeqCst); got != gr*iters {
		t.Fatalf("final count: got %d, wanted %d", got, gr*iters)
	}
}

func TestSwapLinearizes(t *testing.T) {
	// Each goroutine swaps in a unique value once. Every value (including
	// the initial one) must then be observed exactly once, either as some
	// swap's return or as the final contents.
	const gr = 64
	c := New[uint32](0)
	returned := make([]uint32, gr)
	var wg sync.WaitGroup
	for i := 0; i < gr; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			returned[i] = c.Swap(uint32(i+1), memorder.AcqRel)
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]int, gr+1)
	for _, v := range returned {
		seen[v]++
	}
	seen[c.Load(memorder.SeqCst)]++
	for v := uint32(0); v <= gr; v++ {
		if seen[v] != 1 {
			t.Fatalf("value %d observed %d times, wanted exactly once", v, seen[v])
		}
	}
}

func TestRacyAccessorsUncontended(t *testing.T) {
	c := New[uint64](3)
	c.RacyStore(8)
	if got := c.RacyLoad(); got != 8 {
		t.Errorf("RacyLoad: got %d, wanted 8", got)
	}
	if got := c.Load(memorder.SeqCst); got != 8 {
		t.Errorf("Load after RacyStore: got %d, wanted 8", got)
	}
}

func BenchmarkLoad(b *testing.B) {
	c := New[uint64](1)
	for i := 0; i < b.N; i++ {
		c.Load(memorder.Acquire)
	}
}

func BenchmarkStore(b *testing.B) {
	c := New[uint64](0)
	for i := 0; i < b.N; i++ {
		c.Store(uint64(i), memorder.Release)
	}
}

func BenchmarkCompareExchange(b *testing.B) {
	c := New[uint64](0)
	for i := 0; i < b.N; i++ {
		c.CompareExchange(uint64(i), uint64(i)+1, memorder.AcqRel, memorder.Relaxed)
	}
}
