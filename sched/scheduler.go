// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sched

import (
	"context"

	"go.pintos.dev/kernel/kassert"
	"go.pintos.dev/kernel/kconfig"
	"go.pintos.dev/kernel/klog"
	"go.pintos.dev/kernel/platform"
	"go.pintos.dev/kernel/thread"
)

// Create allocates a thread record, makes it Ready, and yields if the
// new thread's effective priority exceeds the caller's. It returns
// thread.InvalidID only when the simulated platform is out of stack
// pages; this is never a panic.
func (k *Kernel) Create(ctx context.Context, name string, priority int, fn func(context.Context)) (thread.ID, error) {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)

	if _, err := k.plat.AllocStackPage(); err != nil {
		klog.Warningf(ctx, "create %q: %v", name, err)
		return thread.InvalidID, err
	}

	t := thread.New(thread.NextID(), name, priority, fn)
	k.registry.Add(t)
	k.ready = append(k.ready, t)
	go k.trampoline(t)

	if t.EffectivePriority() > k.current.EffectivePriority() {
		k.yieldLocked(ctx)
	}
	return t.ID(), nil
}

// Block suspends the calling thread. Precondition: interrupts already
// disabled (the caller holds the critical section, typically via
// sync/semaphore's Down) and the caller is not running as part of an
// interrupt handler. Returns once some other thread calls Unblock on
// this thread and the scheduler resumes it.
func (k *Kernel) Block(ctx context.Context) {
	kassert.That(ctx, k.plat.IntrGetLevel() == platform.IntrOff, "block: called with interrupts enabled")
	kassert.That(ctx, !k.plat.InIntrContext(), "block: called from interrupt context")
	self := k.current
	self.Status = thread.Blocked
	k.scheduleLocked(ctx, self)
}

// Unblock moves t from Blocked to Ready and appends it to the ready
// list. It does not reschedule; the caller decides whether to yield.
// Precondition: t.Status == Blocked.
func (k *Kernel) Unblock(ctx context.Context, t *thread.Thread) {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	k.unblockLocked(ctx, t)
}

// UnblockLocked is Unblock for callers that already hold the critical
// section (sync/semaphore's Up, under its own Disable/SetLevel pair).
func (k *Kernel) UnblockLocked(ctx context.Context, t *thread.Thread) {
	k.unblockLocked(ctx, t)
}

func (k *Kernel) unblockLocked(ctx context.Context, t *thread.Thread) {
	kassert.That(ctx, t.Status == thread.Blocked, "unblock: thread %s is %s, not blocked", t.Name(), t.Status)
	t.Status = thread.Ready
	k.ready = append(k.ready, t)
}

// Yield places the calling thread at the tail of the ready list and
// reschedules.
func (k *Kernel) Yield(ctx context.Context) {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	k.yieldLocked(ctx)
}

func (k *Kernel) yieldLocked(ctx context.Context) {
	self := k.current
	self.Status = thread.Ready
	k.ready = append(k.ready, self)
	k.scheduleLocked(ctx, self)
}

// Exit marks the calling thread Dying and reschedules. It never
// returns: the thread that called Exit is reaped by whichever thread
// the scheduler runs next, and this goroutine parks forever rather
// than resuming (see DESIGN.md for why a Go goroutine cannot truly
// "not return" any other way).
func (k *Kernel) Exit(ctx context.Context) {
	k.plat.IntrDisable()
	self := k.current
	self.Status = thread.Dying
	k.scheduleLocked(ctx, self)
	kassert.Unreachable(ctx, "scheduleLocked returned for a Dying thread")
}

// Tick increments the tick counter. If a full time slice has elapsed
// it sets a deferred-yield flag rather than yielding directly, since
// yield is forbidden in interrupt context; CheckPreempt is the call
// that honors the flag at the next safe point, standing in for
// "interrupt return" (there is no such hook in a hosted Go process;
// see DESIGN.md). Tick runs its body inside EnterInterruptContext so
// InIntrContext-gated callers (sync/semaphore's Up) observe it the
// same way they would a real timer interrupt.
func (k *Kernel) Tick(ctx context.Context) {
	k.plat.EnterInterruptContext(func() {
		old := k.plat.IntrDisable()
		defer k.plat.IntrSetLevel(old)
		k.ticks++
		if k.ticks%kconfig.TimeSlice == 0 {
			k.yieldPending = true
		}
	})
}

// CheckPreempt yields if Tick has requested it since the last call,
// and reports whether it did.
func (k *Kernel) CheckPreempt(ctx context.Context) bool {
	old := k.plat.IntrDisable()
	pending := k.yieldPending
	k.yieldPending = false
	k.plat.IntrSetLevel(old)
	if pending {
		k.Yield(ctx)
	}
	return pending
}

// SetPriority updates the calling thread's base priority and yields
// immediately, so a lowered priority takes effect before the caller's
// next statement runs.
func (k *Kernel) SetPriority(ctx context.Context, priority int) {
	kassert.That(ctx, kconfig.ValidPriority(priority), "set_priority: %d out of range", priority)
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	k.current.BasePriority = priority
	k.yieldLocked(ctx)
}

// InIntrContext reports whether the caller is executing as part of an
// interrupt handler. sync/semaphore's Up uses this to decide whether
// it is safe to yield after waking a waiter.
func (k *Kernel) InIntrContext() bool {
	return k.plat.InIntrContext()
}

// GetPriority returns the calling thread's effective priority.
func (k *Kernel) GetPriority(ctx context.Context) int {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	return k.current.EffectivePriority()
}

// pickNext implements an unsorted-bag policy: a linear scan removing
// the ready entry with the highest effective priority, ties broken
// toward the most recently appended candidate.
// Priorities mutate under donation while threads sit on the list, so
// a sorted structure would need re-sorting on every donation; the
// O(n_ready) scan is simpler and correct by construction.
func (k *Kernel) pickNext() *thread.Thread {
	if len(k.ready) == 0 {
		return k.idle
	}
	bestIdx := 0
	bestPriority := k.ready[0].EffectivePriority()
	for i := 1; i < len(k.ready); i++ {
		if p := k.ready[i].EffectivePriority(); p >= bestPriority {
			bestPriority = p
			bestIdx = i
		}
	}
	next := k.ready[bestIdx]
	k.ready = append(k.ready[:bestIdx], k.ready[bestIdx+1:]...)
	return next
}

// scheduleLocked must be called with the critical section held and
// self.Status already set to its post-transition value (Blocked,
// Ready, or Dying). It picks the next thread to run and, if that
// differs from self, performs the switch: release the section, hand
// off the CPU, and (unless self is Dying) park until self is resumed,
// reacquiring the section before returning.
func (k *Kernel) scheduleLocked(ctx context.Context, self *thread.Thread) {
	dying := self.Status == thread.Dying
	prev := k.current
	next := k.pickNext()
	next.Status = thread.Running
	k.current = next

	if dying {
		k.registry.Remove(prev)
	}

	if next == self {
		return
	}

	if k.trace != nil {
		k.trace.OnSwitch(ctx, prev.Name(), next.Name(), len(k.ready))
	}

	if dying {
		k.plat.IntrSetLevel(platform.IntrOn)
		k.plat.Retire(next)
		select {} // this thread is Dying and must never resume
	}

	k.plat.IntrSetLevel(platform.IntrOn)
	k.plat.Switch(self, next)
	k.plat.IntrDisable()
}

func (k *Kernel) idleLoop(ctx context.Context) {
	for {
		k.plat.HaltUntilInterrupt()
		k.Yield(ctx)
	}
}
