// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package kconfig

import "testing"

func TestValidPriority(t *testing.T) {
	cases := []struct {
		p    int
		want bool
	}{
		{PriMin - 1, false},
		{PriMin, true},
		{PriDefault, true},
		{PriMax, true},
		{PriMax + 1, false},
	}
	for _, c := range cases {
		if got := ValidPriority(c.p); got != c.want {
			t.Errorf("ValidPriority(%d) = %v, want %v", c.p, got, c.want)
		}
	}
}
