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

// Suite implements subcommands.Command for the "suite" command.
type Suite struct{}

// Name implements subcommands.Command.Name.
func (*Suite) Name() string {
	return "suite"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Suite) Synopsis() string {
	return "run every case in a YAML-defined suite"
}

// Usage implements subcommands.Command.Usage.
func (*Suite) Usage() string {
	return `suite <suite file> - run every case in a YAML-defined suite.

Each case names a workload and may override a restricted set of flags, e.g.:

  cases:
    - name: contended
      workload: mutex
      overrides:
        workers: "64"

Overrides outside the safe allowlist require --allow-flag-override.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Suite) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Suite) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)
	s, err := stress.LoadSuite(f.Arg(0))
	if err != nil {
		return util.Errorf("%v", err)
	}

	// Run returns the results of the cases that completed even when a later
	// case fails, so record them before reporting the failure.
	results, runErr := s.Run(ctx, conf)
	if len(results) > 0 {
		if err := stress.WriteResults(conf, "suite", results); err != nil {
			return util.Errorf("writing results: %v", err)
		}
	}
	for _, r := range results {
		util.Writef("%s (%s): %d ops in %v", r.Case, r.Workload, r.Ops, r.Elapsed)
	}
	if runErr != nil {
		return util.Errorf("%v", runErr)
	}
	return subcommands.ExitSuccess
}
