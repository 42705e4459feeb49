// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sema provides the sema subcommand, a runnable demonstration
// of priority-ordered semaphore wakeup.
package sema

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/sync/semaphore"
)

// Cmd returns the Command for the `sema` subcommand.
func Cmd() *Command { return &Command{} }

// Command runs several threads of differing priority blocked on a
// single empty semaphore and releases them one at a time, showing
// that Up always wakes the highest-priority waiter rather than the
// one that called Down first.
type Command struct {
	priorities string
}

func (*Command) Name() string     { return "sema" }
func (*Command) Synopsis() string { return "runs the priority-ordered semaphore wakeup scenario" }
func (*Command) Usage() string {
	return "sema: block several threads on a semaphore and release them in priority order.\n"
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.priorities, "priorities", "10,30,20", "comma-separated waiter priorities, in creation order")
}

func (c *Command) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	priorities, err := parsePriorities(c.priorities)
	if err != nil {
		fmt.Printf("invalid -priorities: %v\n", err)
		return subcommands.ExitUsageError
	}

	k, _ := sched.Boot(ctx, "main")
	k.SetPriority(ctx, 0)
	sem := semaphore.New(k, 0)

	done := make(chan int, len(priorities))
	for _, p := range priorities {
		p := p
		if _, err := k.Create(ctx, "waiter", p, func(ctx context.Context) {
			fmt.Printf("waiter (priority %d) blocking on Down\n", p)
			sem.Down(ctx)
			done <- p
		}); err != nil {
			fmt.Printf("create waiter(%d): %v\n", p, err)
			return subcommands.ExitFailure
		}
	}

	for range priorities {
		sem.Up(ctx)
		p := <-done
		fmt.Printf("Up() woke priority %d\n", p)
	}
	return subcommands.ExitSuccess
}

func parsePriorities(s string) ([]int, error) {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			var v int
			if _, err := fmt.Sscanf(s[start:i], "%d", &v); err != nil {
				return nil, fmt.Errorf("parse %q: %w", s[start:i], err)
			}
			out = append(out, v)
			start = i + 1
		}
	}
	return out, nil
}
