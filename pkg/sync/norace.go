// Copyright 2024 The ordsync Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !race

package sync

// RaceEnabled is true if the Go data race detector is enabled.
const RaceEnabled = false
