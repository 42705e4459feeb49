// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package kconfig holds the tunable constants of the scheduling and
// synchronization core: priority range, default priority, preemption
// time slice, and the nested-donation walk depth cap.
package kconfig

const (
	// PriMin is the lowest priority a thread may hold.
	PriMin = 0
	// PriDefault is the priority assigned to a thread at creation time
	// unless the caller requests otherwise.
	PriDefault = 31
	// PriMax is the highest priority a thread may hold.
	PriMax = 63

	// TimeSlice is the number of ticks a Running thread may hold the
	// CPU before the scheduler forces a yield.
	TimeSlice = 4

	// MaxDonationDepth bounds the nested-donation walk so that a
	// programming bug that creates a lock-wait cycle cannot hang the
	// kernel.
	MaxDonationDepth = 8
)

// ValidPriority reports whether p is within [PriMin, PriMax].
func ValidPriority(p int) bool {
	return p >= PriMin && p <= PriMax
}
