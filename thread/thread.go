// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package thread defines the per-thread state block and the
// all-threads registry (component C2 of the scheduling core): the
// record a scheduler multiplexes, and the bookkeeping fields the
// nested priority-donation protocol (C5) reads and mutates. It does
// not itself implement scheduling or locking — see sched and
// sync/lock — so that those packages can depend on thread without
// thread depending back on them.
package thread

import (
	"context"
	"sync/atomic"

	"go.pintos.dev/kernel/kconfig"
)

// ID uniquely identifies a thread for its lifetime. IDs are allocated
// monotonically and never reused.
type ID int64

// InvalidID is returned by Create when thread creation fails from
// resource exhaustion, never a panic: callers decide how to react.
const InvalidID ID = -1

// Status is the closed set of states a thread may occupy. Modeling it
// as a distinct type rather than a
// bare int lets callers switch over it exhaustively.
type Status int

const (
	// Ready means the thread sits on the scheduler's ready list,
	// eligible to be picked by next_thread_to_run.
	Ready Status = iota
	// Running means the thread currently owns the simulated CPU.
	// Exactly one thread is Running at any quiescent moment.
	Running
	// Blocked means the thread is suspended until some other thread
	// unblocks it, normally from a semaphore's waiter list. The idle
	// thread is not Blocked while it halts; it halts as Running.
	Blocked
	// Dying means the thread has called Exit; it removes itself from
	// the registry as it hands off the CPU and never runs again.
	Dying
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Dying:
		return "dying"
	default:
		return "unknown"
	}
}

const magic = 0xcd6abf4b

// Waitable is implemented by the lock a thread may be suspended
// acquiring. It gives the nested-donation walk (sync/lock) and the
// scheduler enough of a view into a lock to propagate priority without
// the thread package importing sync/lock — thread is a leaf package.
type Waitable interface {
	// Ceiling returns the lock's current priority ceiling.
	Ceiling() int
	// RaiseCeiling raises the ceiling to at least priority. It reports
	// whether the ceiling actually rose; the donation walk
	// short-circuits when it did not.
	RaiseCeiling(priority int) bool
	// Holder returns the thread currently holding the lock, or nil if
	// it is free.
	Holder() *Thread
}

// Thread is the per-thread state block. Every field is guarded by the
// owning *sched.Kernel's global critical section; the scheduler is the
// only code that should mutate Status, and only a thread's current
// holder/owner mutates the donation fields, always under that same
// critical section. Thread itself holds no lock of its own — the
// single mutex lives in the scheduler, not scattered per-record.
type Thread struct {
	id   ID
	name string

	Status Status

	BasePriority    int
	DonatedPriority int

	// HeldLocks is the ordered sequence of locks this thread currently
	// holds, most-recently-acquired last.
	HeldLocks []Waitable
	// WaitingOn is the lock this thread is blocked trying to acquire,
	// or nil. Non-nil iff the thread is suspended inside lock_acquire
	// having already failed try_acquire.
	WaitingOn Waitable

	// WakeUpTime is opaque to this core; an external sleeper subsystem
	// (out of scope here) may stash a deadline here and pair it with
	// Block/Unblock.
	WakeUpTime int64

	magic uint32

	// resume is the baton-passing channel the simulated platform
	// (platform.Simulated) uses to hand the CPU to this thread. It is
	// owned by the scheduler, never touched by sync/lock, sync/cond,
	// or sync/semaphore directly.
	resume chan struct{}
	fn     func(ctx context.Context)
}

// New allocates a thread record. The scheduler is responsible for
// placing it on the ready list and starting its goroutine; New itself
// has no side effects beyond initializing fields, so that sched can
// hold its critical section across registry insertion and this call.
func New(id ID, name string, priority int, fn func(ctx context.Context)) *Thread {
	if !kconfig.ValidPriority(priority) {
		priority = kconfig.PriDefault
	}
	return &Thread{
		id:           id,
		name:         truncateName(name),
		Status:       Ready,
		BasePriority: priority,
		magic:        magic,
		resume:       make(chan struct{}),
		fn:           fn,
	}
}

func truncateName(name string) string {
	const maxLen = 15
	if len(name) > maxLen {
		return name[:maxLen]
	}
	return name
}

// ID returns the thread's unique identifier.
func (t *Thread) ID() ID { return t.id }

// Name returns the thread's (possibly truncated) human-readable name.
func (t *Thread) Name() string { return t.name }

// Fn returns the trampoline body the scheduler should invoke the first
// time this thread is resumed.
func (t *Thread) Fn() func(ctx context.Context) { return t.fn }

// Resume returns the channel the simulated platform uses to hand this
// thread the CPU.
func (t *Thread) Resume() chan struct{} { return t.resume }

// CheckMagic reports whether the stack-overflow sentinel is intact.
// On real Pintos this detects stack overflow corrupting the adjacent
// thread struct; on a goroutine-backed stack that corruption cannot
// happen, so this is a structural assertion only (see DESIGN.md) kept
// faithful to original_source/src/threads/thread.h.
func (t *Thread) CheckMagic() bool { return t.magic == magic }

// EffectivePriority is max(base_priority, donated_priority): the value
// used for scheduling and further donation (the scheduling glossary).
func (t *Thread) EffectivePriority() int {
	if t.DonatedPriority > t.BasePriority {
		return t.DonatedPriority
	}
	return t.BasePriority
}

// RecomputeDonation sets DonatedPriority to the maximum Ceiling over
// the locks t currently holds, 0 if it holds none. lock_release calls
// this after removing the released lock from HeldLocks, which
// automatically drops any donation that was flowing only through that
// lock.
func (t *Thread) RecomputeDonation() {
	max := 0
	for _, l := range t.HeldLocks {
		if c := l.Ceiling(); c > max {
			max = c
		}
	}
	t.DonatedPriority = max
}

// AddHeldLock appends l to the thread's held-lock sequence.
func (t *Thread) AddHeldLock(l Waitable) {
	t.HeldLocks = append(t.HeldLocks, l)
}

// RemoveHeldLock removes l from the thread's held-lock sequence. It is
// a no-op if l is not held, which should never happen given the
// non-recursive, held-by-caller preconditions lock_release enforces.
func (t *Thread) RemoveHeldLock(l Waitable) {
	for i, held := range t.HeldLocks {
		if held == l {
			t.HeldLocks = append(t.HeldLocks[:i], t.HeldLocks[i+1:]...)
			return
		}
	}
}

// tidCounter allocates monotonically increasing IDs. The original
// source serializes allocation under a dedicated tid_lock initialized
// before the allocator's first use, to break a bootstrap circularity
// (the lock subsystem itself needs a thread to exist). An atomic
// counter sidesteps that circularity entirely rather than reproducing
// it, while keeping IDs unique, positive, and allocated monotonically.
var tidCounter atomic.Int64

// NextID allocates the next thread ID.
func NextID() ID {
	return ID(tidCounter.Add(1))
}
