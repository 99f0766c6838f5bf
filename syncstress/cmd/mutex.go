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

package cmd

import (
	"context"

	"github.com/google/subcommands"
	"ordsync.dev/ordsync/syncstress/cmd/util"
	"ordsync.dev/ordsync/syncstress/config"
	"ordsync.dev/ordsync/syncstress/flag"
	"ordsync.dev/ordsync/syncstress/stress"
)

// Mutex implements subcommands.Command for the "mutex" command.
type Mutex struct {
	trylock bool
}

// Name implements subcommands.Command.Name.
func (*Mutex) Name() string {
	return "mutex"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Mutex) Synopsis() string {
	return "run the spinlock mutual exclusion workload"
}

// Usage implements subcommands.Command.Usage.
func (*Mutex) Usage() string {
	return `mutex - every worker enters the same spinlock-guarded critical section --iterations times.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Mutex) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.trylock, "trylock", false, "attempt TryLock before each blocking acquisition")
}

// Execute implements subcommands.Command.Execute.
func (m *Mutex) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)
	runner := stress.Mutex
	if m.trylock {
		runner = stress.MutexTry
	}
	r, err := runner(ctx, conf)
	if err != nil {
		return util.Errorf("mutex workload failed: %v", err)
	}
	if err := stress.WriteResult(conf, "mutex", r); err != nil {
		return util.Errorf("writing result: %v", err)
	}
	util.Writef("%s: %d ops in %v", r.Workload, r.Ops, r.Elapsed)
	return subcommands.ExitSuccess
}
