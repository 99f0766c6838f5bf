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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v2"
	"ordsync.dev/ordsync/pkg/log"
	"ordsync.dev/ordsync/pkg/test/testutil"
)

const smokeSuite = `name: smoke
cases:
  - name: tiny-mutex
    workload: mutex
    overrides:
      workers: "2"
      iterations: "100"
  - name: tiny-handoff
    workload: handoff
    overrides:
      iterations: "100"
`

func mustWriteSuite(t *testing.T, text string) string {
	t.Helper()
	path, cleanup, err := testutil.WriteTmpFile("suite-*.yaml", text)
	if err != nil {
		t.Fatalf("error writing suite file: %v", err)
	}
	t.Cleanup(cleanup)
	return path
}

func TestLoadSuite(t *testing.T) {
	path := mustWriteSuite(t, smokeSuite)
	got, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite() failed: %v", err)
	}
	want := &Suite{
		Name: "smoke",
		Cases: []Case{
			{
				Name:     "tiny-mutex",
				Workload: "mutex",
				Overrides: map[string]string{
					"workers":    "2",
					"iterations": "100",
				},
			},
			{
				Name:     "tiny-handoff",
				Workload: "handoff",
				Overrides: map[string]string{
					"iterations": "100",
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadSuite() diff (-want +got):\n%s", diff)
	}
}

func TestLoadSuiteDefaultName(t *testing.T) {
	path := mustWriteSuite(t, "cases:\n  - name: only\n    workload: cell\n")
	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite() failed: %v", err)
	}
	base := filepath.Base(path)
	if want := strings.TrimSuffix(base, filepath.Ext(base)); s.Name != want {
		t.Errorf("got suite name %q, want %q", s.Name, want)
	}
}

func TestLoadSuiteErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		text  string
		error string
	}{
		{
			name:  "no cases",
			text:  "name: empty\n",
			error: "has no cases",
		},
		{
			name:  "unknown workload",
			text:  "cases:\n  - name: x\n    workload: nope\n",
			error: `unknown workload "nope"`,
		},
		{
			name:  "unnamed case",
			text:  "cases:\n  - workload: mutex\n",
			error: "has no name",
		},
		{
			name:  "unknown key",
			text:  "cases:\n  - name: x\n    workload: mutex\n    wrkers: \"2\"\n",
			error: "error parsing suite file",
		},
		{
			name:  "not yaml",
			text:  "{{{{",
			error: "error parsing suite file",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := mustWriteSuite(t, tc.text)
			if _, err := LoadSuite(path); err == nil || !strings.Contains(err.Error(), tc.error) {
				t.Errorf("LoadSuite() wrong error reported: %v", err)
			}
		})
	}
}

func TestLoadSuiteMissingFile(t *testing.T) {
	if _, err := LoadSuite(filepath.Join(testutil.TmpDir(), testutil.RandomID("no-such-suite"))); err == nil || !strings.Contains(err.Error(), "error reading suite file") {
		t.Errorf("LoadSuite() wrong error reported: %v", err)
	}
}

func TestSuiteRun(t *testing.T) {
	conf := testutil.TestConfig(t)
	path := mustWriteSuite(t, smokeSuite)
	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite() failed: %v", err)
	}

	results, err := s.Run(context.Background(), conf)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Case != "tiny-mutex" || results[0].Workers != 2 || results[0].Ops != 200 {
		t.Errorf("mutex case result is wrong: %+v", results[0])
	}
	// The handoff case inherits the base worker count, so it runs
	// Workers/2 pairs through 100 rounds each.
	if want := int64(conf.Workers/2) * 100; results[1].Case != "tiny-handoff" || results[1].Ops != want {
		t.Errorf("handoff case result is wrong: %+v", results[1])
	}

	// Case overrides must not leak into the base configuration.
	if conf.Workers != 4 || conf.Iterations != 2000 {
		t.Errorf("base configuration was modified: %+v", conf)
	}
}

func TestSuiteRunOverrideDenied(t *testing.T) {
	conf := testutil.TestConfig(t)
	path := mustWriteSuite(t, "cases:\n  - name: sneaky\n    workload: mutex\n    overrides:\n      results: /tmp/x\n")
	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite() failed: %v", err)
	}
	if _, err := s.Run(context.Background(), conf); err == nil || !strings.Contains(err.Error(), "flag override disabled") {
		t.Errorf("Run() wrong error reported: %v", err)
	}
}

func TestSuiteRunLogsCases(t *testing.T) {
	conf := testutil.TestConfig(t)
	conf.Workers = 2
	conf.Iterations = 100
	path := mustWriteSuite(t, "cases:\n  - name: logged\n    workload: cell\n")
	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite() failed: %v", err)
	}

	pr, pw := io.Pipe()
	old := log.Log()
	log.SetTarget(log.GoogleEmitter{Writer: &log.Writer{Next: pw}})
	defer log.SetTarget(old.Emitter)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), conf)
		done <- err
	}()

	if err := testutil.WaitUntilRead(pr, "running case", 30*time.Second); err != nil {
		t.Fatalf("did not observe case log line: %v", err)
	}
	// Drain whatever the workload logs afterwards so it cannot block on
	// the pipe.
	go io.Copy(io.Discard, pr)
	if err := <-done; err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
}

func TestWriteResults(t *testing.T) {
	conf := testutil.TestConfig(t)
	dir := t.TempDir()
	conf.ResultsFile = filepath.Join(dir, "results-%COMMAND%.yaml")

	want := []*Result{
		{Case: "a", Workload: "mutex", Workers: 2, Iterations: 100, Ops: 200, Elapsed: time.Millisecond},
		{Case: "b", Workload: "cell", Workers: 4, Iterations: 100, Ops: 400, Elapsed: 2 * time.Millisecond},
	}
	if err := WriteResults(conf, "suite", want); err != nil {
		t.Fatalf("WriteResults() failed: %v", err)
	}

	in, err := os.ReadFile(filepath.Join(dir, "results-suite.yaml"))
	if err != nil {
		t.Fatalf("error reading results file: %v", err)
	}
	var got []*Result
	if err := yaml.Unmarshal(in, &got); err != nil {
		t.Fatalf("error parsing results file: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results diff (-want +got):\n%s", diff)
	}
}
