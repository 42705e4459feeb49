// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cond provides the cond subcommand, a runnable demonstration
// of priority-ordered condition-variable wakeup.
package cond

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/sync/cond"
	"go.pintos.dev/kernel/sync/lock"
)

// Cmd returns the Command for the `cond` subcommand.
func Cmd() *Command { return &Command{} }

// Command runs several threads waiting on a condition variable and
// broadcasts, showing that waiters resume in descending effective
// priority once each reacquires the associated lock.
type Command struct{}

func (*Command) Name() string     { return "cond" }
func (*Command) Synopsis() string { return "runs the priority-ordered condition-variable wakeup scenario" }
func (*Command) Usage() string {
	return "cond: block several threads in Wait and Broadcast them, in priority order.\n"
}

func (*Command) SetFlags(*flag.FlagSet) {}

func (c *Command) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	k, _ := sched.Boot(ctx, "main")
	k.SetPriority(ctx, 0)
	l := lock.New(k)
	cv := cond.New(k)

	done := make(chan int, 3)
	for _, p := range []int{10, 30, 20} {
		p := p
		if _, err := k.Create(ctx, "waiter", p, func(ctx context.Context) {
			l.Acquire(ctx)
			fmt.Printf("waiter (priority %d) waiting on the condition\n", p)
			cv.Wait(ctx, l)
			fmt.Printf("waiter (priority %d) woke and reacquired the lock\n", p)
			l.Release(ctx)
			done <- p
		}); err != nil {
			fmt.Printf("create waiter(%d): %v\n", p, err)
			return subcommands.ExitFailure
		}
	}

	l.Acquire(ctx)
	cv.Broadcast(ctx, l)
	l.Release(ctx)

	for range 3 {
		fmt.Printf("waiter priority %d finished\n", <-done)
	}
	return subcommands.ExitSuccess
}
