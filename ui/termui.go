// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ui renders a live, redrawing terminal display of scheduler
// state while a demo scenario runs: one line per thread, clearing and
// rewriting the previous frame in place using the same line-clearing
// escape sequences and width-aware polling of the terminal size as a
// typical build-progress terminal UI. The spinner and multi-target
// logging sink that pattern usually carries are dropped here — a
// scheduler demo has one thing worth animating, the thread table, not
// a build-step spinner (see DESIGN.md).
package ui

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// ThreadLine is one row of the status display.
type ThreadLine struct {
	Name     string
	Status   string
	Priority int
}

// TermUI is a terminal-based live status display.
type TermUI struct {
	mu    sync.Mutex
	timer time.Time
	width int

	lastLines int // rows drawn by the previous Render, for clearing
}

// New returns a TermUI bound to the process's stdout.
func New() *TermUI {
	return &TermUI{}
}

func (t *TermUI) updateWidth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if time.Since(t.timer) > 200*time.Millisecond {
		t.timer = time.Now()
		t.width, _, _ = term.GetSize(int(os.Stdout.Fd()))
	}
	return t.width
}

// Width returns the terminal's current column count, polled at most
// every 200ms since querying it is a syscall.
func (t *TermUI) Width() int {
	return t.updateWidth()
}

// Render clears the block of lines drawn by the previous call (if any)
// and redraws one line per entry in lines, truncated to the terminal
// width so long thread names cannot wrap and corrupt the display.
func (t *TermUI) Render(lines []ThreadLine) {
	var buf bytes.Buffer
	for i := 0; i < t.lastLines; i++ {
		fmt.Fprintf(&buf, "\r\033[K\033[A")
	}
	fmt.Fprintf(&buf, "\r\033[K")

	width := t.Width()
	for _, l := range lines {
		s := fmt.Sprintf("%-15s %-8s priority=%d", l.Name, l.Status, l.Priority)
		if width > 0 && len(s) > width {
			s = s[:width]
		}
		fmt.Fprintf(&buf, "%s\n", s)
	}
	os.Stdout.Write(buf.Bytes())
	t.lastLines = len(lines)
}

// Infof reports to stdout.
func (t *TermUI) Infof(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s", fmt.Sprintf(format, args...))
}

// Warningf reports to stderr.
func (t *TermUI) Warningf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s", fmt.Sprintf(format, args...))
}

// Errorf reports to stderr.
func (t *TermUI) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s", fmt.Sprintf(format, args...))
}
