// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore implements a counting semaphore: a non-negative
// counter plus a waiter list that wakes the highest-effective-priority
// waiter first. It is adapted from a container/heap-ordered priority
// semaphore keyed by a caller-supplied static weight, but that
// structure does not fit here: under nested priority donation a
// waiter's effective priority can rise while it sleeps, so a heap
// built at insertion time would need re-sorting on every donation.
// Down appends to the waiter list in arrival order and Up scans the
// (typically short) list directly, the same tradeoff sched.Kernel's
// pickNext makes for the ready list.
package semaphore

import (
	"context"

	"go.pintos.dev/kernel/kassert"
	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/thread"
)

// Semaphore is a counting semaphore whose waiters wake in order of
// effective priority, not arrival order.
type Semaphore struct {
	k       *sched.Kernel
	value   int
	waiters []*thread.Thread
}

// New returns a semaphore initialized to value.
func New(k *sched.Kernel, value int) *Semaphore {
	kassert.That(context.Background(), value >= 0, "semaphore: negative initial value %d", value)
	return &Semaphore{k: k, value: value}
}

// Down blocks until the counter is positive, then decrements it. Must
// not be called from interrupt context.
func (s *Semaphore) Down(ctx context.Context) {
	kassert.That(ctx, !s.k.InIntrContext(), "sema_down: called from interrupt context")
	old := s.k.Disable()
	defer s.k.SetLevel(old)
	for s.value == 0 {
		self := s.k.CurrentLocked()
		s.waiters = append(s.waiters, self)
		s.k.Block(ctx)
		// A spurious wake (or a race against a concurrent Up) leaves
		// the loop re-check value; Up always removes the woken waiter
		// from s.waiters before unblocking it, so re-entering here
		// never re-enlists an already-listed waiter.
	}
	s.value--
}

// TryDown is the non-blocking form: it decrements and returns true iff
// value was positive. Safe from interrupt context.
func (s *Semaphore) TryDown(ctx context.Context) bool {
	old := s.k.Disable()
	defer s.k.SetLevel(old)
	if s.value > 0 {
		s.value--
		return true
	}
	return false
}

// Up wakes the highest-effective-priority waiter, if any, and
// increments the counter. Outside interrupt context it yields on
// return so a newly runnable higher-priority thread can preempt
// immediately; inside interrupt context it skips the yield, since
// yielding there is forbidden.
func (s *Semaphore) Up(ctx context.Context) {
	old := s.k.Disable()
	var woke *thread.Thread
	if len(s.waiters) > 0 {
		idx := highestPriorityIndex(s.waiters)
		woke = s.waiters[idx]
		s.waiters = append(s.waiters[:idx], s.waiters[idx+1:]...)
	}
	s.value++
	if woke != nil {
		s.k.UnblockLocked(ctx, woke)
	}
	inIntr := s.k.InIntrContext()
	s.k.SetLevel(old)
	if !inIntr {
		s.k.Yield(ctx)
	}
}

// Value returns the current counter value.
func (s *Semaphore) Value(ctx context.Context) int {
	old := s.k.Disable()
	defer s.k.SetLevel(old)
	return s.value
}

// NumWaiters returns the number of threads currently blocked in Down.
func (s *Semaphore) NumWaiters(ctx context.Context) int {
	old := s.k.Disable()
	defer s.k.SetLevel(old)
	return len(s.waiters)
}

// highestPriorityIndex returns the index of the waiter with the
// greatest effective priority, breaking ties toward the
// earliest-enqueued waiter (stable scan, first max wins).
func highestPriorityIndex(waiters []*thread.Thread) int {
	best := 0
	for i := 1; i < len(waiters); i++ {
		if waiters[i].EffectivePriority() > waiters[best].EffectivePriority() {
			best = i
		}
	}
	return best
}
