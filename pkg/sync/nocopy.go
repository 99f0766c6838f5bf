// Copyright 2024 The ordsync Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sync provides synchronization primitives.
package sync

// NoCopy may be embedded into structs which must not be copied after the
// first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
type NoCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*NoCopy) Lock() {}

// Unlock is a no-op used by -copylocks checker from `go vet`.
func (*NoCopy) Unlock() {}
