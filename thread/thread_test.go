// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package thread

import "testing"

func TestNew_InvalidPriorityFallsBackToDefault(t *testing.T) {
	th := New(NextID(), "x", -5, nil)
	if th.BasePriority != 31 {
		t.Errorf("BasePriority = %d, want PriDefault (31)", th.BasePriority)
	}
}

func TestNew_TruncatesLongNames(t *testing.T) {
	th := New(NextID(), "a-name-that-is-much-longer-than-fifteen-chars", 10, nil)
	if got, want := len(th.Name()), 15; got != want {
		t.Errorf("len(Name()) = %d, want %d (name=%q)", got, want, th.Name())
	}
}

func TestThread_CheckMagic(t *testing.T) {
	th := New(NextID(), "x", 10, nil)
	if !th.CheckMagic() {
		t.Error("CheckMagic() = false for a freshly created thread")
	}
}

func TestThread_EffectivePriority(t *testing.T) {
	th := New(NextID(), "x", 10, nil)
	if got := th.EffectivePriority(); got != 10 {
		t.Errorf("EffectivePriority() = %d, want 10 (no donation)", got)
	}
	th.DonatedPriority = 5
	if got := th.EffectivePriority(); got != 10 {
		t.Errorf("EffectivePriority() = %d, want 10 (donation below base)", got)
	}
	th.DonatedPriority = 40
	if got := th.EffectivePriority(); got != 40 {
		t.Errorf("EffectivePriority() = %d, want 40 (donation above base)", got)
	}
}

type fakeLock struct {
	ceiling int
}

func (f *fakeLock) Ceiling() int                { return f.ceiling }
func (f *fakeLock) RaiseCeiling(priority int) bool {
	if priority <= f.ceiling {
		return false
	}
	f.ceiling = priority
	return true
}
func (f *fakeLock) Holder() *Thread { return nil }

func TestThread_RecomputeDonation(t *testing.T) {
	th := New(NextID(), "x", 10, nil)
	lockA := &fakeLock{ceiling: 20}
	lockB := &fakeLock{ceiling: 35}
	th.AddHeldLock(lockA)
	th.AddHeldLock(lockB)

	th.RecomputeDonation()
	if got, want := th.DonatedPriority, 35; got != want {
		t.Fatalf("DonatedPriority = %d, want %d", got, want)
	}

	th.RemoveHeldLock(lockB)
	th.RecomputeDonation()
	if got, want := th.DonatedPriority, 20; got != want {
		t.Fatalf("DonatedPriority after removing higher-ceiling lock = %d, want %d", got, want)
	}

	th.RemoveHeldLock(lockA)
	th.RecomputeDonation()
	if got, want := th.DonatedPriority, 0; got != want {
		t.Fatalf("DonatedPriority holding no locks = %d, want %d", got, want)
	}
}

func TestNextID_MonotonicAndUnique(t *testing.T) {
	a := NextID()
	b := NextID()
	if b <= a {
		t.Errorf("NextID() not monotonic: a=%d b=%d", a, b)
	}
}
