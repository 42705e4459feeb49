// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package kassert reports precondition violations as a kernel panic
// that halts the process and is never
// recovered. These guard programmer bugs (calling a blocking primitive
// from interrupt context, releasing a lock the caller does not hold,
// recursive lock acquisition, and similar), never expected runtime
// conditions.
package kassert

import (
	"context"
	"fmt"

	"go.pintos.dev/kernel/klog"
)

// That halts the kernel if cond is false.
func That(ctx context.Context, cond bool, format string, args ...any) {
	if cond {
		return
	}
	klog.Exitf(ctx, "kernel panic: "+format, args...)
}

// Unreachable halts the kernel unconditionally; use at code paths the
// thread state machine proves can never be reached.
func Unreachable(ctx context.Context, format string, args ...any) {
	klog.Exitf(ctx, "kernel panic: unreachable: "+format, args...)
}

// Errorf builds an error for resource-exhaustion paths, which are NOT
// precondition violations and must not halt the kernel.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
