// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package klog provides context-carrying kernel log helpers over glog,
// in the style of the build system's clog package: call sites pass the
// ambient context so log lines can later be correlated with a trace
// span without changing every call site's signature.
package klog

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
)

type runIDKey struct{}

// WithRunID attaches a simulation run identifier to ctx so subsequent
// klog calls prefix their output with it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func prefix(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey{}).(string); ok && runID != "" {
		return "[" + runID + "] "
	}
	return ""
}

// Infof logs an informational kernel event.
func Infof(ctx context.Context, format string, args ...any) {
	log.InfoDepth(1, prefix(ctx)+fmt.Sprintf(format, args...))
}

// Warningf logs a recoverable but noteworthy kernel event.
func Warningf(ctx context.Context, format string, args ...any) {
	log.WarningDepth(1, prefix(ctx)+fmt.Sprintf(format, args...))
}

// Errorf logs a kernel error that does not itself halt the kernel.
func Errorf(ctx context.Context, format string, args ...any) {
	log.ErrorDepth(1, prefix(ctx)+fmt.Sprintf(format, args...))
}

// Exitf logs a fatal kernel condition and terminates the process. It is
// used by kassert for precondition violations: these are programmer
// bugs that halt the kernel and are never recovered.
func Exitf(ctx context.Context, format string, args ...any) {
	log.ExitDepth(1, prefix(ctx)+fmt.Sprintf(format, args...))
}
