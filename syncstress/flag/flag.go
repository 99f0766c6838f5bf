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

// Package flag wraps flag functionality.
package flag

import (
	"flag"
	"time"
)

// FlagSet is an alias for flag.FlagSet.
type FlagSet = flag.FlagSet

// Flag is an alias for flag.Flag.
type Flag = flag.Flag

// Value is an alias for flag.Value.
type Value = flag.Value

// ErrorHandling is an alias for flag.ErrorHandling.
type ErrorHandling = flag.ErrorHandling

// ContinueOnError is an alias for flag.ContinueOnError.
const ContinueOnError = flag.ContinueOnError

// NewFlagSet is an alias for flag.NewFlagSet.
func NewFlagSet(name string, errorHandling ErrorHandling) *FlagSet {
	return flag.NewFlagSet(name, errorHandling)
}

// CommandLine is an alias for flag.CommandLine.
var CommandLine = flag.CommandLine

// Bool is an alias for flag.Bool.
func Bool(name string, value bool, usage string) *bool {
	return flag.Bool(name, value, usage)
}

// Int is an alias for flag.Int.
func Int(name string, value int, usage string) *int {
	return flag.Int(name, value, usage)
}

// String is an alias for flag.String.
func String(name string, value string, usage string) *string {
	return flag.String(name, value, usage)
}

// Duration is an alias for flag.Duration.
func Duration(name string, value time.Duration, usage string) *time.Duration {
	return flag.Duration(name, value, usage)
}

// Parse is an alias for flag.Parse.
func Parse() {
	flag.Parse()
}

// Lookup is an alias for flag.Lookup.
func Lookup(name string) *Flag {
	return flag.Lookup(name)
}

// Get returns the flag's underlying object.
func Get(v Value) any {
	return v.(flag.Getter).Get()
}
