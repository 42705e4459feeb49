// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package lock implements a non-recursive mutex with nested priority
// donation (component C5): acquiring a held lock donates the caller's
// effective priority to the holder, and transitively to whatever the
// holder is itself blocked on, so a low-priority holder is never left
// scheduled behind a medium-priority thread while a high-priority
// thread waits on it. The donation walk is grounded on
// donate_priority_recursively in
// original_source/src/threads/synch.c, reworked from unbounded
// recursion over a raw struct lock * into an iterative walk over the
// thread.Waitable interface, bounded by kconfig.MaxDonationDepth so a
// pathological lock-wait cycle cannot spin the walk forever.
package lock

import (
	"context"

	"go.pintos.dev/kernel/kassert"
	"go.pintos.dev/kernel/kconfig"
	"go.pintos.dev/kernel/sched"
	"go.pintos.dev/kernel/sync/semaphore"
	"go.pintos.dev/kernel/thread"
)

// Lock is a binary semaphore paired with a holder pointer and a
// priority ceiling, mirroring struct lock's priority field in
// original_source/src/threads/synch.h. It implements thread.Waitable
// so the donation walk can chase through a chain of locks via
// Thread.WaitingOn while thread need not import sync/lock.
type Lock struct {
	k       *sched.Kernel
	sema    *semaphore.Semaphore
	holder  *thread.Thread
	ceiling int
}

// New returns an unheld lock.
func New(k *sched.Kernel) *Lock {
	return &Lock{k: k, sema: semaphore.New(k, 1), ceiling: kconfig.PriMin}
}

// Ceiling returns the highest effective priority donated to this lock
// by a thread currently waiting to acquire it, or PriMin if none is.
func (l *Lock) Ceiling() int { return l.ceiling }

// RaiseCeiling raises the lock's ceiling to priority if that is higher
// than the current ceiling, and reports whether it did. The donation
// walk uses the return value to stop early: once a ceiling along the
// chain is already at least as high as the donated priority, every
// lock beyond it is too, by induction.
func (l *Lock) RaiseCeiling(priority int) bool {
	if priority <= l.ceiling {
		return false
	}
	l.ceiling = priority
	if l.holder != nil {
		l.holder.RecomputeDonation()
	}
	return true
}

// Holder returns the thread currently holding the lock, or nil.
func (l *Lock) Holder() *thread.Thread { return l.holder }

// HeldByCurrent reports whether the calling thread holds the lock.
func (l *Lock) HeldByCurrent(ctx context.Context) bool {
	old := l.k.Disable()
	defer l.k.SetLevel(old)
	return l.holder == l.k.CurrentLocked()
}

// Acquire blocks until the lock is free, then takes it. If the lock is
// already held, Acquire donates the caller's effective priority to the
// holder (and transitively along whatever the holder is itself waiting
// on) before blocking, so the holder runs at no less than the
// caller's priority for as long as the caller waits.
func (l *Lock) Acquire(ctx context.Context) {
	kassert.That(ctx, !l.k.InIntrContext(), "lock_acquire: called from interrupt context")
	kassert.That(ctx, !l.HeldByCurrent(ctx), "lock_acquire: already held by calling thread")

	old := l.k.Disable()
	self := l.k.CurrentLocked()
	if l.holder != nil {
		self.WaitingOn = l
		donate(ctx, l.k, l, self.EffectivePriority())
	}
	l.k.SetLevel(old)

	l.sema.Down(ctx)

	old = l.k.Disable()
	self.WaitingOn = nil
	l.holder = self
	self.AddHeldLock(l)
	l.k.SetLevel(old)
}

// TryAcquire takes the lock without blocking, reporting whether it
// succeeded. It never donates, since a caller that would have to wait
// instead gets false back immediately.
func (l *Lock) TryAcquire(ctx context.Context) bool {
	kassert.That(ctx, !l.HeldByCurrent(ctx), "lock_try_acquire: already held by calling thread")
	if !l.sema.TryDown(ctx) {
		return false
	}
	old := l.k.Disable()
	self := l.k.CurrentLocked()
	l.holder = self
	self.AddHeldLock(l)
	l.k.SetLevel(old)
	return true
}

// Release gives up the lock, which must be held by the calling thread.
// It drops any donation that was flowing to the caller solely through
// this lock and wakes the highest-priority waiter, if any.
func (l *Lock) Release(ctx context.Context) {
	kassert.That(ctx, l.HeldByCurrent(ctx), "lock_release: not held by calling thread")

	old := l.k.Disable()
	self := l.holder
	l.holder = nil
	l.ceiling = kconfig.PriMin
	self.RemoveHeldLock(l)
	self.RecomputeDonation()
	l.k.SetLevel(old)

	l.sema.Up(ctx)
}

// donate raises w's ceiling to priority and, as long as each raise
// actually changes something, follows the lock's holder to whatever
// that holder is itself blocked acquiring, propagating the same
// priority value — matching donate_priority_recursively's single
// donated priority threaded through every link of the chain. The walk
// stops after kconfig.MaxDonationDepth links even if the chain
// continues, trading completeness in pathological cases for a hard
// bound on how long a single Acquire call can run.
func donate(ctx context.Context, k *sched.Kernel, w thread.Waitable, priority int) {
	depth := 0
	for w != nil && depth < kconfig.MaxDonationDepth {
		depth++
		if !w.RaiseCeiling(priority) {
			break
		}
		holder := w.Holder()
		if holder == nil {
			break
		}
		w = holder.WaitingOn
	}
	k.RecordDonation(ctx, depth)
}
