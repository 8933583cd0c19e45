// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package alloc

import "golang.org/x/sys/unix"

// MarkExecutable transitions the region from read-write to
// read-execute and invalidates the instruction cache over it. After a
// successful return no thread can observe the region as writable, and
// any core may fetch from it.
func (r *Region) MarkExecutable() error {
	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return osError("unable to protect executable memory", err)
	}
	// Mandatory on weakly-ordered machines; a no-op elsewhere. The
	// abstraction is always invoked so the ordering contract does not
	// depend on the host.
	invalidateICache(r.mem)
	return nil
}
