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

// Package stress drives contended workloads against the ordsync primitives
// and checks their invariants while they run. A workload that returns a nil
// error completed all its operations without observing a violation.
package stress

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v2"
	"ordsync.dev/ordsync/pkg/atomiccell"
	"ordsync.dev/ordsync/pkg/atomicflag"
	"ordsync.dev/ordsync/pkg/atomicword"
	"ordsync.dev/ordsync/pkg/gohacks"
	"ordsync.dev/ordsync/pkg/log"
	"ordsync.dev/ordsync/pkg/memorder"
	"ordsync.dev/ordsync/pkg/spinlock"
	"ordsync.dev/ordsync/pkg/sync"
	"ordsync.dev/ordsync/syncstress/config"
)

// Result summarizes a completed workload.
type Result struct {
	// Case is the suite case that produced the result, if any.
	Case string `yaml:"case,omitempty"`

	// Workload names the workload that ran.
	Workload string `yaml:"workload"`

	// Workers is the number of goroutines that contended.
	Workers int `yaml:"workers"`

	// Iterations is the number of operations per worker.
	Iterations int `yaml:"iterations"`

	// Ops is the total number of completed operations.
	Ops int64 `yaml:"ops"`

	// Elapsed is the wall time the workload ran for.
	Elapsed time.Duration `yaml:"elapsed"`

	// MaxOpNanos is the largest single-operation latency observed.
	MaxOpNanos int64 `yaml:"max_op_nanos"`

	// UserTime and SystemTime are process CPU accounting deltas over the
	// workload.
	UserTime   time.Duration `yaml:"user_time"`
	SystemTime time.Duration `yaml:"system_time"`

	// MaxRSSKiB is the process maximum resident set size after the
	// workload, as reported by getrusage(2).
	MaxRSSKiB int64 `yaml:"max_rss_kib"`
}

// run wraps a workload body with timing and rusage accounting.
func run(workload string, conf *config.Config, body func() error) (*Result, error) {
	var before unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &before); err != nil {
		return nil, fmt.Errorf("getrusage: %v", err)
	}
	start := time.Now()

	if err := body(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	var after unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &after); err != nil {
		return nil, fmt.Errorf("getrusage: %v", err)
	}
	return &Result{
		Workload:   workload,
		Workers:    conf.Workers,
		Iterations: conf.Iterations,
		Ops:        int64(conf.Workers) * int64(conf.Iterations),
		Elapsed:    elapsed,
		UserTime:   timevalDuration(after.Utime) - timevalDuration(before.Utime),
		SystemTime: timevalDuration(after.Stime) - timevalDuration(before.Stime),
		MaxRSSKiB:  int64(after.Maxrss),
	}, nil
}

func timevalDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// lockFor returns a spinlock honoring the configured ordering policy.
func lockFor(conf *config.Config) *spinlock.SpinLock {
	if conf.LockPolicy == config.PolicySeqCst {
		return spinlock.NewSeqCst()
	}
	return new(spinlock.SpinLock)
}

// observeMax raises m to v if v is larger. A lost race leaves a slightly
// smaller observed maximum, which is fine for reporting.
func observeMax(m *atomicword.Int64, v int64) {
	for {
		cur := m.Load()
		if v <= cur || m.CompareAndSwap(cur, v) {
			return
		}
	}
}

// discardLogger drops everything. It stands in for the rate limited
// progress logger when progress reporting is disabled.
type discardLogger struct{}

// Debugf implements log.Logger.Debugf.
func (discardLogger) Debugf(format string, v ...any) {}

// Infof implements log.Logger.Infof.
func (discardLogger) Infof(format string, v ...any) {}

// Warningf implements log.Logger.Warningf.
func (discardLogger) Warningf(format string, v ...any) {}

// IsLogging implements log.Logger.IsLogging.
func (discardLogger) IsLogging(level log.Level) bool { return false }

func progressLogger(conf *config.Config) log.Logger {
	if conf.ProgressEvery <= 0 {
		return discardLogger{}
	}
	return log.BasicRateLimitedLogger(conf.ProgressEvery)
}

// Mutex runs conf.Workers goroutines that each enter conf.Iterations
// critical sections guarded by a single spinlock, checking mutual exclusion
// on every entry.
func Mutex(ctx context.Context, conf *config.Config) (*Result, error) {
	l := lockFor(conf)
	progress := progressLogger(conf)
	var (
		inside atomicword.Int32
		maxOp  atomicword.Int64
	)
	// total is guarded by l.
	var total int64

	r, err := run("mutex", conf, func() error {
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < conf.Workers; w++ {
			g.Go(func() error {
				for i := 0; i < conf.Iterations; i++ {
					if i%1024 == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
						progress.Infof("mutex: worker at %d/%d iterations", i, conf.Iterations)
					}
					t0 := gohacks.Nanotime()
					l.Lock()
					if got := inside.Add(1); got != 1 {
						inside.Add(-1)
						l.Unlock()
						return fmt.Errorf("%d goroutines inside the critical section", got)
					}
					total++
					inside.Add(-1)
					l.Unlock()
					observeMax(&maxOp, gohacks.Nanotime()-t0)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if want := int64(conf.Workers) * int64(conf.Iterations); total != want {
			return fmt.Errorf("critical section entries were lost: got %d, want %d", total, want)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.MaxOpNanos = maxOp.Load()
	return r, nil
}

// MutexTry is the mutex workload with opportunistic acquisition: each entry
// attempts TryLock first and falls back to the blocking Lock when the lock
// is held, checking mutual exclusion either way.
func MutexTry(ctx context.Context, conf *config.Config) (*Result, error) {
	l := lockFor(conf)
	progress := progressLogger(conf)
	var (
		inside atomicword.Int32
		maxOp  atomicword.Int64
		fast   atomicword.Int64
	)
	// total is guarded by l.
	var total int64

	r, err := run("mutex-try", conf, func() error {
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < conf.Workers; w++ {
			g.Go(func() error {
				var acquired int64
				for i := 0; i < conf.Iterations; i++ {
					if i%1024 == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
						progress.Infof("mutex-try: worker at %d/%d iterations", i, conf.Iterations)
					}
					t0 := gohacks.Nanotime()
					if l.TryLock() {
						acquired++
					} else {
						l.Lock()
					}
					if got := inside.Add(1); got != 1 {
						inside.Add(-1)
						l.Unlock()
						return fmt.Errorf("%d goroutines inside the critical section", got)
					}
					total++
					inside.Add(-1)
					l.Unlock()
					observeMax(&maxOp, gohacks.Nanotime()-t0)
				}
				fast.Add(acquired)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if want := int64(conf.Workers) * int64(conf.Iterations); total != want {
			return fmt.Errorf("critical section entries were lost: got %d, want %d", total, want)
		}
		log.Debugf("mutex-try: %d of %d acquisitions took the TryLock fast path", fast.Load(), total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.MaxOpNanos = maxOp.Load()
	return r, nil
}

// Handoff runs producer/consumer pairs that pass a payload through an
// atomic flag, release on the storing side and acquire on the loading side,
// checking that every published payload is observed intact.
func Handoff(ctx context.Context, conf *config.Config) (*Result, error) {
	pairs := conf.Workers / 2
	if pairs == 0 {
		pairs = 1
	}
	progress := progressLogger(conf)
	var maxOp atomicword.Int64

	r, err := run("handoff", conf, func() error {
		g, ctx := errgroup.WithContext(ctx)
		for p := 0; p < pairs; p++ {
			var (
				ready   atomicflag.Flag
				payload atomicword.Int32
			)
			g.Go(func() error {
				for i := 0; i < conf.Iterations; i++ {
					// Wait for the consumer to drain the
					// previous round.
					if err := spinUntil(ctx, func() bool {
						return !ready.Test(memorder.Acquire)
					}); err != nil {
						return err
					}
					t0 := gohacks.Nanotime()
					payload.RacyStore(int32(i))
					if ready.TestAndSet(memorder.Release) {
						return fmt.Errorf("producer found its flag already set at round %d", i)
					}
					observeMax(&maxOp, gohacks.Nanotime()-t0)
				}
				return nil
			})
			g.Go(func() error {
				for i := 0; i < conf.Iterations; i++ {
					if err := spinUntil(ctx, func() bool {
						return ready.Test(memorder.Acquire)
					}); err != nil {
						return err
					}
					if got := payload.RacyLoad(); got != int32(i) {
						return fmt.Errorf("consumer read %d at round %d", got, i)
					}
					ready.Clear(memorder.Release)
					if i%1024 == 0 {
						progress.Infof("handoff: pair at %d/%d rounds", i, conf.Iterations)
					}
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	r.Ops = int64(pairs) * int64(conf.Iterations)
	r.MaxOpNanos = maxOp.Load()
	return r, nil
}

// spinUntil busy-waits for cond, yielding periodically and honoring ctx.
func spinUntil(ctx context.Context, cond func() bool) error {
	for i := 0; !cond(); i++ {
		if i%64 == 63 {
			sync.Goyield()
		}
		if i%4096 == 4095 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cell runs conf.Workers goroutines that each apply conf.Iterations
// compare-exchange increments to a single cell, checking that no update is
// lost and that no intermediate value escapes the word.
func Cell(ctx context.Context, conf *config.Config) (*Result, error) {
	c := atomiccell.New[uint64](0)
	progress := progressLogger(conf)
	var maxOp atomicword.Int64

	r, err := run("cell", conf, func() error {
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < conf.Workers; w++ {
			g.Go(func() error {
				for i := 0; i < conf.Iterations; i++ {
					if i%1024 == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
						progress.Infof("cell: worker at %d/%d iterations", i, conf.Iterations)
					}
					t0 := gohacks.Nanotime()
					for {
						old := c.Load(memorder.Relaxed)
						ok, _ := c.CompareExchange(old, old+1, memorder.AcqRel, memorder.Relaxed)
						if ok {
							break
						}
					}
					observeMax(&maxOp, gohacks.Nanotime()-t0)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if got, want := c.Load(memorder.SeqCst), uint64(conf.Workers)*uint64(conf.Iterations); got != want {
			return fmt.Errorf("increments were lost: got %d, want %d", got, want)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.MaxOpNanos = maxOp.Load()
	return r, nil
}

// widePayload is deliberately wider than a machine word so that loads can
// only be consistent if the sequence-counted path works.
type widePayload struct {
	a, b, c uint64
}

// WideCell splits conf.Workers between writers and readers of a multi-word
// cell. Writers publish related values, readers check the relation and
// report any torn read.
func WideCell(ctx context.Context, conf *config.Config) (*Result, error) {
	cell := atomiccell.NewSeq(widePayload{})
	writers := conf.Workers / 4
	if writers == 0 {
		writers = 1
	}
	readers := conf.Workers - writers
	if readers == 0 {
		readers = 1
	}
	progress := progressLogger(conf)
	var maxOp atomicword.Int64

	r, err := run("widecell", conf, func() error {
		g, ctx := errgroup.WithContext(ctx)
		for w := 0; w < writers; w++ {
			g.Go(func() error {
				for i := 0; i < conf.Iterations; i++ {
					if i%1024 == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
					}
					v := uint64(i)
					t0 := gohacks.Nanotime()
					cell.Store(widePayload{a: v, b: v * 2, c: ^v})
					observeMax(&maxOp, gohacks.Nanotime()-t0)
				}
				return nil
			})
		}
		for w := 0; w < readers; w++ {
			g.Go(func() error {
				for i := 0; i < conf.Iterations; i++ {
					if i%1024 == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
						progress.Infof("widecell: reader at %d/%d iterations", i, conf.Iterations)
					}
					got := cell.Load()
					if got.b != got.a*2 || got.c != ^got.a {
						return fmt.Errorf("torn read: %+v", got)
					}
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	r.Ops = int64(writers+readers) * int64(conf.Iterations)
	r.MaxOpNanos = maxOp.Load()
	return r, nil
}

// WriteResult records r in the results file, or in the log when no results
// file is configured.
func WriteResult(conf *config.Config, command string, r *Result) error {
	f, err := log.OpenFile(conf.ResultsFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, config.FilePatternOpts{Command: command, RootDir: conf.RootDir})
	if err != nil {
		return fmt.Errorf("error opening results file %q: %v", conf.ResultsFile, err)
	}
	if f == nil {
		log.Infof("%s: %d ops in %v (max op %v, user %v, system %v, max rss %d KiB)",
			r.Workload, r.Ops, r.Elapsed, time.Duration(r.MaxOpNanos), r.UserTime, r.SystemTime, r.MaxRSSKiB)
		return nil
	}
	defer f.Close()
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("error marshaling result: %v", err)
	}
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("error writing results file %q: %v", conf.ResultsFile, err)
	}
	return nil
}
