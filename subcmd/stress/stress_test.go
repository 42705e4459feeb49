// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package stress

import (
	"flag"
	"testing"

	"github.com/google/subcommands"
)

func TestCommand_Execute(t *testing.T) {
	c := &Command{n: 4}
	if got := c.Execute(t.Context(), flag.NewFlagSet("stress", flag.ContinueOnError)); got != subcommands.ExitSuccess {
		t.Fatalf("Execute() = %v, want ExitSuccess", got)
	}
}

func TestCommand_Execute_RejectsNonPositiveN(t *testing.T) {
	c := &Command{n: 0}
	if got := c.Execute(t.Context(), flag.NewFlagSet("stress", flag.ContinueOnError)); got != subcommands.ExitUsageError {
		t.Fatalf("Execute() = %v, want ExitUsageError", got)
	}
}
