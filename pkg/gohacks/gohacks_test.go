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

package gohacks

import (
	"testing"
	"unsafe"
)

func TestMemmove(t *testing.T) {
	src := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	var dst [8]byte
	Memmove(unsafe.Pointer(&dst), unsafe.Pointer(&src), unsafe.Sizeof(src))
	if dst != src {
		t.Errorf("Memmove: got %v, wanted %v", dst, src)
	}
}

func TestMemmovePartial(t *testing.T) {
	src := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	dst := [8]byte{9, 9, 9, 9, 9, 9, 9, 9}
	Memmove(unsafe.Pointer(&dst), unsafe.Pointer(&src), 4)
	want := [8]byte{1, 2, 3, 4, 9, 9, 9, 9}
	if dst != want {
		t.Errorf("Memmove: got %v, wanted %v", dst, want)
	}
}

func TestNanotimeIsForwardsProgressing(t *testing.T) {
	t1 := Nanotime()
	t2 := Nanotime()
	if t2 < t1 {
		t.Errorf("Nanotime went backwards: %d then %d", t1, t2)
	}
}
