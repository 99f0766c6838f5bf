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

// Handoff implements subcommands.Command for the "handoff" command.
type Handoff struct{}

// Name implements subcommands.Command.Name.
func (*Handoff) Name() string {
	return "handoff"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Handoff) Synopsis() string {
	return "run the release/acquire payload handoff workload"
}

// Usage implements subcommands.Command.Usage.
func (*Handoff) Usage() string {
	return `handoff - producer/consumer pairs pass a payload through an atomic flag --iterations times.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Handoff) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Handoff) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)
	r, err := stress.Handoff(ctx, conf)
	if err != nil {
		return util.Errorf("handoff workload failed: %v", err)
	}
	if err := stress.WriteResult(conf, "handoff", r); err != nil {
		return util.Errorf("writing result: %v", err)
	}
	util.Writef("%s: %d ops in %v", r.Workload, r.Ops, r.Elapsed)
	return subcommands.ExitSuccess
}
