// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package donate provides the donate subcommand, a runnable
// demonstration of nested priority donation.
package donate

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/sync/lock"
	"go.pintos.dev/kernel/thread"
	"go.pintos.dev/kernel/ui"
)

// Cmd returns the Command for the `donate` subcommand.
func Cmd() *Command { return &Command{} }

// Command runs the nested-donation scenario: a low-priority thread
// holds lockB, a medium-priority thread holds lockA and wants lockB,
// and a high-priority thread wants lockA — donation must chain
// through both locks.
type Command struct {
	lowPriority, midPriority, highPriority int
	watch                                  bool
}

func (*Command) Name() string     { return "donate" }
func (*Command) Synopsis() string { return "runs the nested priority-donation scenario" }
func (*Command) Usage() string {
	return "donate: chain two locks across three threads and watch priority donate through both.\n"
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.lowPriority, "low", 10, "base priority of the lock-holding thread")
	f.IntVar(&c.midPriority, "mid", 20, "priority of the middle thread")
	f.IntVar(&c.highPriority, "high", 50, "priority of the blocking thread")
	f.BoolVar(&c.watch, "ui", true, "render a live thread-status table as the scenario runs")
}

func (c *Command) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	k, _ := sched.Boot(ctx, "main")
	k.SetPriority(ctx, c.lowPriority)
	lockA := lock.New(k)
	lockB := lock.New(k)

	var tui *ui.TermUI
	if c.watch {
		tui = ui.New()
	}
	render := func() {
		if tui == nil {
			return
		}
		var lines []ui.ThreadLine
		k.ForeachThread(ctx, func(t *thread.Thread) {
			lines = append(lines, ui.ThreadLine{
				Name:     t.Name(),
				Status:   t.Status.String(),
				Priority: t.EffectivePriority(),
			})
		})
		tui.Render(lines)
	}

	// Drives Tick the way a real timer interrupt would: asynchronously,
	// never blocking, leaving CheckPreempt to honor it at a safe point.
	tickerDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				k.Tick(ctx)
			case <-tickerDone:
				return
			}
		}
	}()
	defer close(tickerDone)

	lockB.Acquire(ctx)
	render()
	fmt.Printf("main (priority %d) acquired lockB\n", c.lowPriority)

	midDone := make(chan struct{})
	if _, err := k.Create(ctx, "mid", c.midPriority, func(ctx context.Context) {
		lockA.Acquire(ctx)
		fmt.Printf("mid (priority %d) acquired lockA, now wants lockB\n", c.midPriority)
		lockB.Acquire(ctx)
		fmt.Printf("mid (priority %d) acquired lockB\n", c.midPriority)
		lockB.Release(ctx)
		lockA.Release(ctx)
		close(midDone)
	}); err != nil {
		fmt.Printf("create mid: %v\n", err)
		return subcommands.ExitFailure
	}
	render()
	fmt.Printf("main's effective priority after mid's donation: %d\n", k.GetPriority(ctx))

	highDone := make(chan struct{})
	if _, err := k.Create(ctx, "high", c.highPriority, func(ctx context.Context) {
		fmt.Printf("high (priority %d) wants lockA\n", c.highPriority)
		lockA.Acquire(ctx)
		fmt.Printf("high (priority %d) acquired lockA\n", c.highPriority)
		lockA.Release(ctx)
		close(highDone)
	}); err != nil {
		fmt.Printf("create high: %v\n", err)
		return subcommands.ExitFailure
	}
	render()
	fmt.Printf("main's effective priority after high's nested donation: %d\n", k.GetPriority(ctx))

	lockB.Release(ctx)
	<-midDone
	<-highDone
	k.CheckPreempt(ctx)
	render()
	fmt.Printf("main's effective priority after both locks drained: %d\n", k.GetPriority(ctx))
	return subcommands.ExitSuccess
}
