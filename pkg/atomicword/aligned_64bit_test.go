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

//go:build !arm && !mips && !mipsle && !386

package atomicword

import (
	"testing"
)

func TestFromInt64(t *testing.T) {
	i := FromInt64(-1 << 40)
	if got := i.Load(); got != -1<<40 {
		t.Errorf("Load: got %d, wanted %d", got, int64(-1)<<40)
	}
}

func TestFromUint64(t *testing.T) {
	u := FromUint64(1<<63 | 5)
	if got := u.Load(); got != 1<<63|5 {
		t.Errorf("Load: got %d, wanted %d", got, uint64(1)<<63|5)
	}
}
