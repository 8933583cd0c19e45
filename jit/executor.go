// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

// Executor is the host-owned handle a compiled trace is attached to.
// The backend reads ExitCount and writes the three JIT fields; its
// lifetime, reference counting and serialization are the host
// runtime's business.
type Executor struct {
	// ExitCount is the number of side-exit slots the owning runtime
	// allocated for this trace. Exit indices are checked against it.
	ExitCount uint32

	code      uintptr
	sideEntry uintptr
	size      int
	region    memory
}

// Code returns the entry point of the compiled region, or 0 when
// nothing is attached.
func (e *Executor) Code() uintptr { return e.code }

// SideEntry returns the entry point past the trampoline, for callers
// already running under the JIT calling convention. It is always
// Code() plus the trampoline's code size.
func (e *Executor) SideEntry() uintptr { return e.sideEntry }

// Size returns the compiled region's total size in bytes.
func (e *Executor) Size() int { return e.size }

// Free detaches and releases the compiled region. The handle's fields
// are cleared before the pages go back to the OS, so a release failure
// leaves the executor consistent; the failure itself is only logged.
// Calling Free on an empty executor is a no-op.
func (e *Executor) Free() {
	if e.code == 0 {
		return
	}
	region := e.region
	e.code, e.sideEntry, e.size, e.region = 0, 0, 0, nil
	if err := region.Free(); err != nil {
		logger.Print(err)
	}
}
