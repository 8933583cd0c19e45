// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build arm64 && !windows

package alloc

import "unsafe"

// cacheFlush cleans the data cache and invalidates the instruction
// cache over [addr, addr+n). Implemented in icache_arm64.s.
//
//go:noescape
func cacheFlush(addr unsafe.Pointer, n uintptr)

// invalidateICache makes freshly written instructions visible to every
// core before the first fetch. Without it a remote core may execute
// stale cache lines.
func invalidateICache(b []byte) {
	if len(b) == 0 {
		return
	}
	cacheFlush(unsafe.Pointer(&b[0]), uintptr(len(b)))
}
