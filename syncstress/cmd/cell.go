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

// Cell implements subcommands.Command for the "cell" command.
type Cell struct {
	wide bool
}

// Name implements subcommands.Command.Name.
func (*Cell) Name() string {
	return "cell"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Cell) Synopsis() string {
	return "run the atomic cell contention workload"
}

// Usage implements subcommands.Command.Usage.
func (*Cell) Usage() string {
	return `cell [-wide] - every worker applies --iterations compare-exchange increments to a shared cell.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Cell) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.wide, "wide", false, "stress a multi-word cell guarded by a sequence lock instead of a single word")
}

// Execute implements subcommands.Command.Execute.
func (c *Cell) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)
	runner := stress.Cell
	if c.wide {
		runner = stress.WideCell
	}
	r, err := runner(ctx, conf)
	if err != nil {
		return util.Errorf("cell workload failed: %v", err)
	}
	if err := stress.WriteResult(conf, "cell", r); err != nil {
		return util.Errorf("writing result: %v", err)
	}
	util.Writef("%s: %d ops in %v", r.Workload, r.Ops, r.Elapsed)
	return subcommands.ExitSuccess
}
