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

package atomicword

// And atomically applies bitwise and operation to the stored value with val.
func (u *Uint32) And(val uint32) {
	for {
		o := u.Load()
		n := o & val
		if u.CompareAndSwap(o, n) {
			break
		}
	}
}

// Or atomically applies bitwise or operation to the stored value with val.
func (u *Uint32) Or(val uint32) {
	for {
		o := u.Load()
		n := o | val
		if u.CompareAndSwap(o, n) {
			break
		}
	}
}

// Xor atomically applies bitwise xor operation to the stored value with val.
func (u *Uint32) Xor(val uint32) {
	for {
		o := u.Load()
		n := o ^ val
		if u.CompareAndSwap(o, n) {
			break
		}
	}
}

// CompareAndSwapPrev is like CompareAndSwap, but returns the value previously
// stored, whether or not the swap happened.
func (u *Uint32) CompareAndSwapPrev(oldVal, newVal uint32) (prev uint32) {
	for {
		prev = u.Load()
		if prev != oldVal {
			return
		}
		if u.CompareAndSwap(oldVal, newVal) {
			return
		}
	}
}

// And atomically applies bitwise and operation to the stored value with val.
func (u *Uint64) And(val uint64) {
	for {
		o := u.Load()
		n := o & val
		if u.CompareAndSwap(o, n) {
			break
		}
	}
}

// Or atomically applies bitwise or operation to the stored value with val.
func (u *Uint64) Or(val uint64) {
	for {
		o := u.Load()
		n := o | val
		if u.CompareAndSwap(o, n) {
			break
		}
	}
}

// Xor atomically applies bitwise xor operation to the stored value with val.
func (u *Uint64) Xor(val uint64) {
	for {
		o := u.Load()
		n := o ^ val
		if u.CompareAndSwap(o, n) {
			break
		}
	}
}

// CompareAndSwapPrev is like CompareAndSwap, but returns the value previously
// stored, whether or not the swap happened.
func (u *Uint64) CompareAndSwapPrev(oldVal, newVal uint64) (prev uint64) {
	for {
		prev = u.Load()
		if prev != oldVal {
			return
		}
		if u.CompareAndSwap(oldVal, newVal) {
			return
		}
	}
}
