// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sched

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.pintos.dev/kernel/platform"
	"go.pintos.dev/kernel/thread"
)

func TestBoot_RegistersInitialAndIdle(t *testing.T) {
	ctx := t.Context()
	k, id := Boot(ctx, "main")

	if id == thread.InvalidID {
		t.Fatal("Boot() returned InvalidID for the initial thread")
	}
	if got := k.Current(ctx).Name(); got != "main" {
		t.Errorf("Current().Name() = %q, want %q", got, "main")
	}
	// initial + idle.
	if got := k.ThreadCount(ctx); got != 2 {
		t.Errorf("ThreadCount() = %d, want 2", got)
	}
}

func TestForeachThread_VisitsEveryLiveThread(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")
	k.SetPriority(ctx, 0)

	done := make(chan struct{})
	if _, err := k.Create(ctx, "worker", 20, func(ctx context.Context) {
		close(done)
	}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	<-done

	var names []string
	k.ForeachThread(ctx, func(th *thread.Thread) { names = append(names, th.Name()) })
	sort.Strings(names)

	want := []string{"idle", "main", "worker"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("ForeachThread names mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPriority_UpdatesEffectivePriority(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main")
	k.SetPriority(ctx, 15)
	if got := k.GetPriority(ctx); got != 15 {
		t.Errorf("GetPriority() = %d, want 15", got)
	}
}

func TestCreate_ResourceExhaustionReturnsInvalidID(t *testing.T) {
	ctx := t.Context()
	k, _ := Boot(ctx, "main", WithPlatform(platform.NewSimulatedWithCapacity(0)))

	id, err := k.Create(ctx, "worker", 10, func(context.Context) {})
	if err == nil {
		t.Fatal("Create() with exhausted stack pages returned nil error")
	}
	if id != thread.InvalidID {
		t.Errorf("Create() id = %v, want InvalidID", id)
	}
}
