// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package version reports the build's own identity: module path,
// version, and VCS stamp, read from the Go binary's embedded build
// info. A CIPD package lookup is sometimes paired with this, but that
// only makes sense for a binary distributed through an infra fetch
// system; this kernel simulation has no such distribution channel, so
// that half is dropped (see DESIGN.md).
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// Version contains version info.
type Version struct {
	Build *debug.BuildInfo
}

var (
	once       sync.Once
	currentVer Version
	currentErr error
)

// Current returns current version info.
func Current() (Version, error) {
	once.Do(func() {
		buildInfo, ok := debug.ReadBuildInfo()
		if !ok {
			currentErr = fmt.Errorf("cannot read go build info")
			return
		}
		currentVer.Build = buildInfo
	})
	return currentVer, currentErr
}

// ToolName returns the tool's name.
func (v Version) ToolName() string {
	if v.Build != nil {
		return "pintoskernel " + v.Build.Main.Path
	}
	return "pintoskernel"
}

// ToolVersion returns the tool's version.
func (v Version) ToolVersion() string {
	if v.Build != nil {
		return v.Build.Main.Version
	}
	return "unknown"
}

// BuildSettings returns the VCS and compiler flags embedded in the
// binary, keyed by the debug.BuildSetting name.
func (v Version) BuildSettings() map[string]string {
	bs := make(map[string]string)
	if v.Build == nil {
		return bs
	}
	for _, s := range v.Build.Settings {
		if strings.HasPrefix(s.Key, "vcs.") || strings.HasPrefix(s.Key, "-") {
			bs[s.Key] = s.Value
		}
	}
	return bs
}
