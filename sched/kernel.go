// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sched implements the scheduling core: the ready queue, the
// block/unblock/yield/exit/tick primitives, the pick-next policy, and
// preemption bookkeeping. It is the only package that may mutate a
// thread's Status or membership in the ready list; sync/semaphore,
// sync/lock, and sync/cond call back into it to block and unblock
// threads rather than touching those fields directly.
package sched

import (
	"context"
	"fmt"

	"go.pintos.dev/kernel/kassert"
	"go.pintos.dev/kernel/kconfig"
	"go.pintos.dev/kernel/klog"
	"go.pintos.dev/kernel/o11y/kerntrace"
	"go.pintos.dev/kernel/platform"
	"go.pintos.dev/kernel/thread"
)

// Kernel is the single scheduler instance for one simulated boot. The
// ready list, all-threads registry, idle/initial thread pointers, and
// tick counter belong to one object passed by reference rather than
// scattered module-scope globals.
type Kernel struct {
	plat     platform.Platform
	registry *thread.Registry
	trace    *kerntrace.Recorder

	ready   []*thread.Thread
	current *thread.Thread
	idle    *thread.Thread

	ticks        uint64
	yieldPending bool
}

// Option configures a Kernel at Boot time.
type Option func(*Kernel)

// WithRecorder attaches an o11y/kerntrace.Recorder so scheduling
// events are exported as OpenTelemetry metrics.
func WithRecorder(r *kerntrace.Recorder) Option {
	return func(k *Kernel) { k.trace = r }
}

// WithPlatform overrides the default platform.NewSimulated(), chiefly
// so tests can exercise stack-exhaustion path via
// platform.NewSimulatedWithCapacity.
func WithPlatform(p platform.Platform) Option {
	return func(k *Kernel) { k.plat = p }
}

// Boot creates a Kernel and registers the calling goroutine itself as
// the initial thread — the thread that was "already running" before
// any scheduling existed, exactly as thread_init registers the
// bootstrap stack in original_source/src/threads/thread.c. It also
// creates the idle thread. Boot returns the Kernel and the initial
// thread's ID; the caller's own goroutine IS that thread and does not
// need to call anything further to "start" it.
func Boot(ctx context.Context, name string, opts ...Option) (*Kernel, thread.ID) {
	k := &Kernel{
		registry: thread.NewRegistry(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.plat == nil {
		k.plat = platform.NewSimulated()
	}

	initial := thread.New(thread.NextID(), name, kconfig.PriDefault, nil)
	initial.Status = thread.Running
	k.registry.Add(initial)
	k.current = initial

	idle := thread.New(thread.NextID(), "idle", kconfig.PriMin, k.idleLoop)
	idle.Status = thread.Ready
	k.registry.Add(idle)
	k.idle = idle
	go k.trampoline(idle)

	klog.Infof(ctx, "kernel boot: initial=%s idle=%s", initial.Name(), idle.Name())
	return k, initial.ID()
}

// Current returns the thread the scheduler currently considers
// Running. Safe to call from outside any of the kernel's own critical
// sections (it brackets its own).
func (k *Kernel) Current(ctx context.Context) *thread.Thread {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	return k.current
}

// CurrentLocked returns the running thread without acquiring the
// critical section. Callers in sync/semaphore, sync/lock, and
// sync/cond use this while they already hold it via Disable.
func (k *Kernel) CurrentLocked() *thread.Thread {
	return k.current
}

// Disable enters the kernel's single critical section and returns the
// previous level so the caller can restore it with SetLevel.
func (k *Kernel) Disable() platform.Level {
	return k.plat.IntrDisable()
}

// SetLevel restores the critical section to level.
func (k *Kernel) SetLevel(level platform.Level) platform.Level {
	return k.plat.IntrSetLevel(level)
}

// RecordDonation forwards a donation-walk observation to the attached
// recorder, if any. sync/lock calls this at the end of its donation
// walk; Kernel is the only thing holding a *kerntrace.Recorder; so it
// is the seam sync/lock uses rather than taking its own reference.
func (k *Kernel) RecordDonation(ctx context.Context, depth int) {
	if k.trace != nil {
		k.trace.OnDonation(ctx, depth)
	}
}

// ForeachThread calls fn for every live thread, mirroring
// thread_foreach from original_source/src/threads/thread.c.
func (k *Kernel) ForeachThread(ctx context.Context, fn func(*thread.Thread)) {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	k.registry.ForEach(fn)
}

// ThreadCount returns the number of live threads.
func (k *Kernel) ThreadCount(ctx context.Context) int {
	old := k.plat.IntrDisable()
	defer k.plat.IntrSetLevel(old)
	return k.registry.Len()
}

func (k *Kernel) trampoline(t *thread.Thread) {
	<-t.Resume()
	ctx := context.Background()
	kassert.That(ctx, t.CheckMagic(), "thread %s: stack-overflow sentinel corrupted", t.Name())
	if fn := t.Fn(); fn != nil {
		fn(ctx)
	}
	k.Exit(ctx)
}

func (k *Kernel) String() string {
	return fmt.Sprintf("kernel{threads=%d ticks=%d}", k.registry.Len(), k.ticks)
}
