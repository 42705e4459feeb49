// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sched

import (
	"context"
	"testing"
	"time"

	"go.pintos.dev/kernel/kconfig"
	"go.pintos.dev/kernel/thread"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestYield_NoopWhenCallerRemainsHighestPriority(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")

	ran := make(chan struct{})
	if _, err := k.Create(ctx, "low", 0, func(context.Context) { close(ran) }); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	k.Yield(ctx)
	select {
	case <-ran:
		t.Fatal("lower-priority thread ran after Yield from a higher-priority caller")
	default:
	}
}

func TestCreate_AutoYieldsToHigherPriorityThread(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")
	k.SetPriority(ctx, 0)

	ran := make(chan struct{})
	if _, err := k.Create(ctx, "high", 50, func(context.Context) { close(ran) }); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("higher-priority thread did not run after Create")
	}
}

func TestBlockUnblock(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")
	k.SetPriority(ctx, 0)

	selfCh := make(chan *thread.Thread, 1)
	done := make(chan struct{})
	if _, err := k.Create(ctx, "worker", 50, func(ctx context.Context) {
		selfCh <- k.Current(ctx)
		old := k.Disable()
		k.Block(ctx)
		k.SetLevel(old)
		close(done)
	}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Create's auto-yield already ran the worker up to its Block call
	// and back to main by the time Create returns, since main outranks
	// nothing else once the worker parks itself.
	worker := <-selfCh
	k.Unblock(ctx, worker)
	k.Yield(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never resumed after Unblock")
	}
}

func TestTick_SetsYieldPendingAfterFullTimeSlice(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")

	for range kconfig.TimeSlice - 1 {
		if k.CheckPreempt(ctx) {
			t.Fatal("CheckPreempt() true before a full time slice elapsed")
		}
		k.Tick(ctx)
	}
	k.Tick(ctx)
	if !k.CheckPreempt(ctx) {
		t.Error("CheckPreempt() false after a full time slice elapsed")
	}
	if k.CheckPreempt(ctx) {
		t.Error("CheckPreempt() true twice in a row; yieldPending should be consumed")
	}
}

func TestForeachThread_ReflectsExit(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")
	k.SetPriority(ctx, 0)

	done := make(chan struct{})
	if _, err := k.Create(ctx, "worker", 50, func(context.Context) { close(done) }); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	<-done

	waitUntil(t, func() bool { return k.ThreadCount(ctx) == 2 })
}
