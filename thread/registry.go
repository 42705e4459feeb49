// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package thread

// Registry is the global list of every live thread. Its caller —
// sched.Kernel — is responsible for serializing access to it the same
// way it serializes the ready list, by holding the kernel's single
// critical section across every call.
type Registry struct {
	all []*Thread
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers t as live.
func (r *Registry) Add(t *Thread) {
	r.all = append(r.all, t)
}

// Remove unregisters t, typically once it has been reaped after Dying.
func (r *Registry) Remove(t *Thread) {
	for i, c := range r.all {
		if c == t {
			r.all = append(r.all[:i], r.all[i+1:]...)
			return
		}
	}
}

// ForEach calls fn for every live thread, in registration order. fn
// must not mutate the registry; callers that need to modify thread
// state mid-walk should collect a slice first.
func (r *Registry) ForEach(fn func(*Thread)) {
	for _, t := range r.all {
		fn(t)
	}
}

// Len returns the number of live threads.
func (r *Registry) Len() int { return len(r.all) }
