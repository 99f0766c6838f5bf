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

// Package config provides basic infrastructure to set configuration settings
// for syncstress. The configuration is set by flags to the command line. They
// can also propagate to a different process using the same flags.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"ordsync.dev/ordsync/pkg/log"
)

// maxWorkers caps the worker count that any configuration surface may
// request. Suite files are allowed to raise workers without the override
// flag, so the cap keeps a stray file from wedging the host.
const maxWorkers = 8192

// Config holds configuration that is not part of the workload definition
// and is not visible to the stress cases themselves.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a default value in RegisterFlags().
//  3. Add a flag tag to the field with the flag name.
type Config struct {
	// RootDir is the directory that anchors relative result and debug log
	// paths.
	RootDir string `flag:"root"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log file format.
	LogFormat string `flag:"log-format"`

	// DebugLog is the path to log debug information to, if not empty.
	// If it ends with '/', log files are created inside the directory
	// with default names. %TIMESTAMP% and %COMMAND% are substituted.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug.
	DebugLogFormat string `flag:"debug-log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// AlsoLogToStderr allows to dup logs to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// Workers is the number of goroutines contending in each workload.
	Workers int `flag:"workers"`

	// Iterations is the number of operations each worker performs.
	Iterations int `flag:"iterations"`

	// LockPolicy selects the ordering policy for spinlock workloads.
	LockPolicy LockPolicyType `flag:"lock-policy"`

	// ProgressEvery bounds how often workloads report progress. Zero
	// disables progress reporting.
	ProgressEvery time.Duration `flag:"progress-every"`

	// ResultsFile is the file results are written to, if not empty.
	// %TIMESTAMP% and %COMMAND% are substituted.
	ResultsFile string `flag:"results"`

	// AllowFlagOverride allows suite files to override any flag, not just
	// the ones in the override allowlist.
	AllowFlagOverride bool `flag:"allow-flag-override"`
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}
	if c.Workers > maxWorkers {
		return fmt.Errorf("workers must be <= %d, got %d", maxWorkers, c.Workers)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be > 0, got %d", c.Iterations)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress-every must be >= 0, got %v", c.ProgressEvery)
	}
	if err := checkLogFormat(c.LogFormat); err != nil {
		return err
	}
	return checkLogFormat(c.DebugLogFormat)
}

func checkLogFormat(format string) error {
	switch format {
	case "text", "json", "json-k8s":
		return nil
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", format)
	}
}

// Log logs important aspects of the configuration to the given log target.
func (c *Config) Log() {
	if !log.IsLogging(log.Debug) {
		// Debug logging is not enabled.
		return
	}
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if name, ok := f.Tag.Lookup("flag"); ok {
			log.Debugf("Config.%s (--%s): %v", f.Name, name, obj.Field(i).Interface())
		} else {
			log.Debugf("Config.%s: %v", f.Name, obj.Field(i).Interface())
		}
	}
}

// FilePatternOpts builds log and result file paths from patterns that may
// contain variables:
//   - %TIMESTAMP%: is replaced with a timestamp using the following format:
//     <yyyymmdd-hhmmss.uuuuuu>
//   - %COMMAND%: is replaced with the subcommand being run
//
// Relative patterns are anchored at RootDir, when set.
type FilePatternOpts struct {
	// Command is the subcommand being run.
	Command string

	// RootDir anchors relative patterns.
	RootDir string
}

// Build implements log.FileOpts.Build.
func (o FilePatternOpts) Build(pattern string) string {
	if o.RootDir != "" && !filepath.IsAbs(pattern) {
		// Plain concatenation, filepath.Join would eat a trailing '/'.
		pattern = o.RootDir + "/" + pattern
	}
	if strings.HasSuffix(pattern, "/") {
		// Default format: <dir>/syncstress.log.<yyyymmdd-hhmmss.uuuuuu>.<command>.txt
		pattern += "syncstress.log.%TIMESTAMP%.%COMMAND%.txt"
	}
	pattern = strings.Replace(pattern, "%TIMESTAMP%", time.Now().Format("20060102-150405.000000"), -1)
	return strings.Replace(pattern, "%COMMAND%", o.Command, -1)
}

// LockPolicyType is the ordering policy a spinlock workload runs under.
type LockPolicyType int

const (
	// PolicyAcqRel pairs an acquire on lock with a release on unlock.
	PolicyAcqRel LockPolicyType = iota

	// PolicySeqCst strengthens both sides of the lock to sequential
	// consistency.
	PolicySeqCst
)

func lockPolicyTypePtr(v LockPolicyType) *LockPolicyType {
	return &v
}

// Set implements flag.Value.
func (l *LockPolicyType) Set(v string) error {
	switch v {
	case "acqrel":
		*l = PolicyAcqRel
	case "seqcst":
		*l = PolicySeqCst
	default:
		return fmt.Errorf("invalid lock policy %q", v)
	}
	return nil
}

// Get implements flag.Getter.
func (l *LockPolicyType) Get() any {
	return *l
}

// String implements flag.Value.
func (l LockPolicyType) String() string {
	switch l {
	case PolicyAcqRel:
		return "acqrel"
	case PolicySeqCst:
		return "seqcst"
	}
	panic(fmt.Sprintf("invalid lock policy %d", l))
}
