// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package semaphore_test

import (
	"context"
	"testing"
	"time"

	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/sync/semaphore"
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

// TestSemaphore_NonBlockingDownUp exercises the uncontended path: Down on a
// positive value must not block the calling thread.
func TestSemaphore_NonBlockingDownUp(t *testing.T) {
	ctx := t.Context()
	k, _ := sched.Boot(ctx, "main")
	sema := semaphore.New(k, 1)

	sema.Down(ctx)
	if got := sema.Value(ctx); got != 0 {
		t.Fatalf("Value() after Down = %d; want 0", got)
	}
	sema.Up(ctx)
	if got := sema.Value(ctx); got != 1 {
		t.Fatalf("Value() after Up = %d; want 1", got)
	}
}

// TestSemaphore_TryDown verifies the non-blocking form reports failure
// without suspending the caller.
func TestSemaphore_TryDown(t *testing.T) {
	ctx := t.Context()
	k, _ := sched.Boot(ctx, "main")
	sema := semaphore.New(k, 0)

	if sema.TryDown(ctx) {
		t.Fatal("TryDown on a zero-valued semaphore returned true")
	}
	sema.Up(ctx)
	if !sema.TryDown(ctx) {
		t.Fatal("TryDown after Up returned false")
	}
}

// TestSemaphore_BlocksAndWakes verifies that a thread blocked in Down is
// woken by Up, a higher-priority worker preempting the caller of Create.
func TestSemaphore_BlocksAndWakes(t *testing.T) {
	ctx := t.Context()
	k, _ := sched.Boot(ctx, "main")
	sema := semaphore.New(k, 0)
	order := make(chan int, 1)

	if _, err := k.Create(ctx, "worker", 40, func(ctx context.Context) {
		sema.Down(ctx)
		order <- 1
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// worker outranks main (priority 40 > 31) so Create already ran it
	// up to its block inside Down; nothing has been sent to order yet.
	select {
	case <-order:
		t.Fatal("worker ran past Down before Up was called")
	default:
	}
	waitUntil(t, func() bool { return sema.NumWaiters(ctx) == 1 })

	sema.Up(ctx)

	select {
	case got := <-order:
		if got != 1 {
			t.Fatalf("worker sent %d; want 1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not wake after Up")
	}
}

// TestSemaphore_WakesHighestPriorityFirst verifies that when several
// threads are blocked in Down, Up wakes them in descending effective
// priority rather than arrival order.
func TestSemaphore_WakesHighestPriorityFirst(t *testing.T) {
	ctx := t.Context()
	k, _ := sched.Boot(ctx, "main")
	k.SetPriority(ctx, 0)
	sema := semaphore.New(k, 0)
	order := make(chan int, 3)

	// Each worker outranks main (priority 0), so Create runs it
	// immediately up to its block inside Down before returning.
	for _, p := range []int{10, 20, 30} {
		p := p
		if _, err := k.Create(ctx, "worker", p, func(ctx context.Context) {
			sema.Down(ctx)
			order <- p
		}); err != nil {
			t.Fatalf("Create(priority=%d): %v", p, err)
		}
	}
	waitUntil(t, func() bool { return sema.NumWaiters(ctx) == 3 })

	want := []int{30, 20, 10}
	for i, w := range want {
		sema.Up(ctx)
		select {
		case got := <-order:
			if got != w {
				t.Fatalf("wake %d: got priority %d; want %d", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("wake %d: timed out waiting for a worker", i)
		}
	}
}

// TestSemaphore_NumWaiters verifies the waiter-count accessor tracks
// Down/Up without ever going negative.
func TestSemaphore_NumWaiters(t *testing.T) {
	ctx := t.Context()
	k, _ := sched.Boot(ctx, "main")
	k.SetPriority(ctx, 0)
	sema := semaphore.New(k, 0)

	if got := sema.NumWaiters(ctx); got != 0 {
		t.Fatalf("NumWaiters() on a fresh semaphore = %d; want 0", got)
	}

	done := make(chan struct{})
	if _, err := k.Create(ctx, "waiter", 10, func(ctx context.Context) {
		sema.Down(ctx)
		close(done)
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	waitUntil(t, func() bool { return sema.NumWaiters(ctx) == 1 })

	sema.Up(ctx)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not complete after Up")
	}
	waitUntil(t, func() bool { return sema.NumWaiters(ctx) == 0 })
}
