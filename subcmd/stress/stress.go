// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stress provides the stress subcommand, which boots several
// independent kernels concurrently and runs a small donation scenario
// in each, to exercise the scheduler under concurrent simulated boots
// rather than a single one.
package stress

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"go.pintos.dev/kernel/o11y/kerntrace"
	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/sync/lock"
)

// Cmd returns the Command for the `stress` subcommand.
func Cmd() *Command { return &Command{} }

// Command boots n independent kernels concurrently, each running a
// two-thread donation scenario, and reports how many completed
// without error. Each kernel is an independent simulated boot; nothing
// is shared across them except the host goroutine scheduler and, if
// tracing is enabled, the recorder their switches and donations are
// reported against.
type Command struct {
	n     int
	trace bool
}

func (*Command) Name() string     { return "stress" }
func (*Command) Synopsis() string { return "boots several independent kernels concurrently" }
func (*Command) Usage() string {
	return "stress: run -n independent kernel boots concurrently, each donating priority once.\n"
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 8, "number of independent kernels to boot concurrently")
	f.BoolVar(&c.trace, "trace", true, "record context switches and donations with an OpenTelemetry recorder and print a summary")
}

func (c *Command) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.n <= 0 {
		fmt.Println("-n must be positive")
		return subcommands.ExitUsageError
	}

	var rec *kerntrace.Recorder
	if c.trace {
		r, err := kerntrace.NewRecorder()
		if err != nil {
			fmt.Printf("trace setup failed: %v\n", err)
			return subcommands.ExitFailure
		}
		rec = r
		fmt.Printf("tracing run %s\n", rec.RunID())
	}

	eg, ectx := errgroup.WithContext(ctx)
	for i := range c.n {
		i := i
		eg.Go(func() error {
			return runOne(ectx, i, rec)
		})
	}
	if err := eg.Wait(); err != nil {
		fmt.Printf("stress run failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%d kernels completed their donation scenario without error\n", c.n)

	if rec != nil {
		rm, err := rec.Collect(ctx)
		if err != nil {
			fmt.Printf("trace collect failed: %v\n", err)
			return subcommands.ExitFailure
		}
		printMetrics(rm)
	}
	return subcommands.ExitSuccess
}

func runOne(ctx context.Context, i int, rec *kerntrace.Recorder) error {
	k, _ := sched.Boot(ctx, fmt.Sprintf("main-%d", i), sched.WithRecorder(rec))
	k.SetPriority(ctx, 10)
	l := lock.New(k)
	l.Acquire(ctx)

	done := make(chan struct{})
	if _, err := k.Create(ctx, "donor", 50, func(ctx context.Context) {
		l.Acquire(ctx)
		l.Release(ctx)
		close(done)
	}); err != nil {
		return fmt.Errorf("kernel %d: create donor: %w", i, err)
	}
	if got, want := k.GetPriority(ctx), 50; got != want {
		l.Release(ctx)
		<-done
		return fmt.Errorf("kernel %d: effective priority = %d, want %d", i, got, want)
	}
	l.Release(ctx)
	<-done
	return nil
}

// printMetrics summarizes the counters and histograms a Recorder
// collected: total for each counter, count/sum for each histogram.
func printMetrics(rm metricdata.ResourceMetrics) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fmt.Printf("  %s: %d\n", m.Name, total)
			case metricdata.Histogram[int64]:
				var count uint64
				var sum int64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				fmt.Printf("  %s: count=%d sum=%d\n", m.Name, count, sum)
			}
		}
	}
}
