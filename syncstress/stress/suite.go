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

package stress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
	"ordsync.dev/ordsync/pkg/log"
	"ordsync.dev/ordsync/syncstress/config"
	"ordsync.dev/ordsync/syncstress/flag"
)

// Suite is a named collection of workload cases loaded from a YAML file.
type Suite struct {
	// Name identifies the suite in logs and results. Defaults to the
	// suite file name.
	Name string `yaml:"name"`

	// Cases are run in order.
	Cases []Case `yaml:"cases"`
}

// Case is a single workload run with optional flag overrides.
type Case struct {
	// Name identifies the case.
	Name string `yaml:"name"`

	// Workload is one of "mutex", "mutex-try", "handoff", "cell" or
	// "widecell".
	Workload string `yaml:"workload"`

	// Overrides change configuration flags for this case only. They are
	// subject to the same allowlist as all other configuration overrides
	// unless --allow-flag-override is set.
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// workloads maps case workload names to runners.
var workloads = map[string]func(context.Context, *config.Config) (*Result, error){
	"mutex":     Mutex,
	"mutex-try": MutexTry,
	"handoff":   Handoff,
	"cell":      Cell,
	"widecell":  WideCell,
}

// LoadSuite reads and validates a suite file.
func LoadSuite(path string) (*Suite, error) {
	in, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading suite file: %v", err)
	}
	var s Suite
	if err := yaml.UnmarshalStrict(in, &s); err != nil {
		return nil, fmt.Errorf("error parsing suite file %q: %v", path, err)
	}
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("suite %q has no cases", s.Name)
	}
	for i, c := range s.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("suite %q: case %d has no name", s.Name, i)
		}
		if _, ok := workloads[c.Workload]; !ok {
			return nil, fmt.Errorf("suite %q: case %q names unknown workload %q", s.Name, c.Name, c.Workload)
		}
	}
	return &s, nil
}

// Run executes every case in order. Each case runs on a copy of conf with
// its overrides applied; the first failing case stops the suite. The
// results of all completed cases are returned, also on error.
func (s *Suite) Run(ctx context.Context, conf *config.Config) ([]*Result, error) {
	var results []*Result
	for _, c := range s.Cases {
		caseConf, err := caseConfig(conf, c)
		if err != nil {
			return results, fmt.Errorf("suite %q: case %q: %v", s.Name, c.Name, err)
		}
		log.Infof("suite %s: running case %q (%s), %d workers x %d iterations",
			s.Name, c.Name, c.Workload, caseConf.Workers, caseConf.Iterations)
		r, err := workloads[c.Workload](ctx, caseConf)
		if err != nil {
			return results, fmt.Errorf("suite %q: case %q: %v", s.Name, c.Name, err)
		}
		r.Case = c.Name
		results = append(results, r)
	}
	return results, nil
}

// caseConfig builds the per-case configuration: the base configuration is
// propagated through its flags onto a fresh flag set, so that one case's
// overrides cannot leak into the next.
func caseConfig(conf *config.Config, c Case) (*config.Config, error) {
	caseFlags := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	config.RegisterFlags(caseFlags)
	if err := caseFlags.Parse(conf.ToFlags()); err != nil {
		return nil, fmt.Errorf("error propagating configuration: %v", err)
	}
	caseConf, err := config.NewFromFlags(caseFlags)
	if err != nil {
		return nil, err
	}
	for name, value := range c.Overrides {
		if err := caseConf.Override(caseFlags, name, value, false); err != nil {
			return nil, err
		}
	}
	return caseConf, nil
}

// WriteResults records every result, either to the configured results file
// or to the log. The file form is a single YAML list so that the whole suite
// run parses as one document.
func WriteResults(conf *config.Config, command string, results []*Result) error {
	f, err := log.OpenFile(conf.ResultsFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, config.FilePatternOpts{Command: command, RootDir: conf.RootDir})
	if err != nil {
		return fmt.Errorf("error opening results file %q: %v", conf.ResultsFile, err)
	}
	if f == nil {
		for _, r := range results {
			log.Infof("%s (%s): %d ops in %v (max op %v, user %v, system %v, max rss %d KiB)",
				r.Case, r.Workload, r.Ops, r.Elapsed, time.Duration(r.MaxOpNanos), r.UserTime, r.SystemTime, r.MaxRSSKiB)
		}
		return nil
	}
	defer f.Close()
	b, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("error marshaling results: %v", err)
	}
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("error writing results file %q: %v", conf.ResultsFile, err)
	}
	return nil
}
