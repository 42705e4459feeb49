// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// schedsim runs small, self-contained demonstrations of a preemptive
// kernel's thread scheduler and its priority-donation synchronization
// primitives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	log "github.com/golang/glog"
	"github.com/google/subcommands"

	"go.pintos.dev/kernel/runtimex"
	"go.pintos.dev/kernel/signals"
	"go.pintos.dev/kernel/subcmd/cond"
	"go.pintos.dev/kernel/subcmd/donate"
	"go.pintos.dev/kernel/subcmd/sema"
	"go.pintos.dev/kernel/subcmd/stress"
	"go.pintos.dev/kernel/subcmd/version"
)

const versionID = "v0.1.0"

var versionStr = "schedsim " + versionID

func main() {
	os.Exit(schedsimMain())
}

func schedsimMain() int {
	flag.CommandLine.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprint(w, versionStr)
		fmt.Fprint(w, `

Usage: schedsim [flags] [command] [arguments]

e.g.
 $ schedsim donate
 $ schedsim sema -priorities=10,30,20
 $ schedsim cond
 $ schedsim stress -n=16

Use "schedsim help" to display commands.
Use "schedsim help [command]" for more information about a command.
`)
	}

	var printVersion bool
	flag.BoolVar(&printVersion, "version", false, "print version")
	flag.Parse()

	ctx := context.Background()
	defer log.Flush()

	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	if printVersion {
		return int(version.Cmd(versionStr).Execute(ctx, flag.CommandLine))
	}

	log.Infof("host reports %d CPUs; the simulated kernel always runs on one", runtimex.NumCPU())

	stop := signals.HandleInterrupt(ctx, func() {
		log.Exitf("interrupted")
	})
	defer stop()

	subcommands.Register(donate.Cmd(), "")
	subcommands.Register(sema.Cmd(), "")
	subcommands.Register(cond.Cmd(), "")
	subcommands.Register(stress.Cmd(), "")

	subcommands.Register(subcommands.FlagsCommand(), "command-help")
	subcommands.Register(subcommands.HelpCommand(), "command-help")
	subcommands.Register(version.Cmd(versionStr), "command-help")

	return int(subcommands.Execute(ctx))
}
