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

package log

import (
	"fmt"
	"regexp"
	"testing"
	"time"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	// Both failed writes count as dropped: the first lost its payload, the
	// second never got past the recovery marker.
	expected := []string{
		"line 1\n",
		"\n*** Dropped 2 log messages ***\n",
		"line 2\n",
	}
	if len(tw.lines) != len(expected) {
		t.Fatalf("Writer should have logged %d lines, got: %v, expected: %v", len(expected), tw.lines, expected)
	}
	for i, l := range tw.lines {
		if l != expected[i] {
			t.Fatalf("line %d doesn't match, got: %v, expected: %v", i, l, expected[i])
		}
	}
}

type capturingEmitter struct {
	levels []Level
}

func (c *capturingEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	c.levels = append(c.levels, level)
}

func TestLevelGating(t *testing.T) {
	for _, tc := range []struct {
		level Level
		want  []Level
	}{
		{Warning, []Level{Warning}},
		{Info, []Level{Info, Warning}},
		{Debug, []Level{Debug, Info, Warning}},
	} {
		ce := &capturingEmitter{}
		l := &BasicLogger{Level: tc.level, Emitter: ce}
		l.Debugf("d")
		l.Infof("i")
		l.Warningf("w")
		if len(ce.levels) != len(tc.want) {
			t.Errorf("level %v: emitted %v, want %v", tc.level, ce.levels, tc.want)
			continue
		}
		for i, lv := range ce.levels {
			if lv != tc.want[i] {
				t.Errorf("level %v: emitted %v, want %v", tc.level, ce.levels, tc.want)
				break
			}
		}
	}
}

func TestGoogleFormat(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{&Writer{Next: tw}}
	ts := time.Date(2024, 5, 14, 3, 7, 9, 123456000, time.UTC)
	e.Emit(0, Info, ts, "test: %d", 123)

	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(tw.lines))
	}
	// Lmmdd hh:mm:ss.uuuuuu threadid file:line] msg
	re := regexp.MustCompile(`^I0514 03:07:09\.123456 +\d+ [^ :]+:\d+\] test: 123\n$`)
	if !re.MatchString(tw.lines[0]) {
		t.Errorf("got line %q, want match of %q", tw.lines[0], re)
	}
}

func TestStringLevel(t *testing.T) {
	for _, tc := range []struct {
		level Level
		want  string
	}{
		{Warning, "Warning"},
		{Info, "Info"},
		{Debug, "Debug"},
		{Level(3), "Invalid level: 3"},
	} {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}
