// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package version provides the version subcommand.
package version

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/google/subcommands"

	"go.pintos.dev/kernel/version"
)

// Cmd returns the Command for the `version` subcommand.
func Cmd(ver string) *Command {
	return &Command{version: ver}
}

// Command implements the version subcommand.
type Command struct {
	version string
}

func (*Command) Name() string     { return "version" }
func (*Command) Synopsis() string { return "prints the executable version" }
func (*Command) Usage() string {
	return "Prints the executable version and the Go module build stamp it was built from.\n"
}

func (*Command) SetFlags(*flag.FlagSet) {}

func (c *Command) Execute(ctx context.Context, flagSet *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if flagSet.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "position arguments not expected\n")
		return subcommands.ExitUsageError
	}
	fmt.Println(c.version)

	ver, err := version.Current()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return subcommands.ExitFailure
	}
	if ver.Build == nil {
		return subcommands.ExitSuccess
	}
	fmt.Printf("go\t%s\n", ver.Build.GoVersion)
	fmt.Printf("mod\t%s\t%s\t%s\n", ver.Build.Main.Path, ver.Build.Main.Version, ver.Build.Main.Sum)
	bs := ver.BuildSettings()
	for _, k := range slices.Sorted(maps.Keys(bs)) {
		fmt.Printf("build\t%s=%s\n", k, bs[k])
	}
	return subcommands.ExitSuccess
}
