// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package alloc

import "golang.org/x/sys/windows"

// MarkExecutable transitions the region from read-write to
// read-execute and flushes the instruction cache over it.
func (r *Region) MarkExecutable() error {
	var old uint32
	if err := windows.VirtualProtect(r.Base(), uintptr(len(r.mem)), windows.PAGE_EXECUTE_READ, &old); err != nil {
		return osError("unable to protect executable memory", err)
	}
	if err := windows.FlushInstructionCache(windows.CurrentProcess(), r.Base(), uintptr(len(r.mem))); err != nil {
		return osError("unable to flush instruction cache", err)
	}
	return nil
}
