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

// Package memorder stands in for the real ordering package; the analyzer
// resolves orderings by constant name only.
package memorder

// Order is a memory ordering annotation.
type Order uint8

// Ordering constants, mirroring the real package.
const (
	SeqCst Order = iota
	AcqRel
	Acquire
	Release
	Relaxed
)
