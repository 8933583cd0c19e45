// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alloc provides the executable-capable page allocations the
// JIT emits into: anonymous read-write mappings that are flipped to
// read-execute (never writable again, never writable and executable at
// once) before any control transfer into them.
//
// OS refusals are reported as ordinary errors tagged with the errno and
// never abort the process; only a size that breaks Allocate's
// precondition panics.
package alloc

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
)

// Region is one page-aligned anonymous mapping.
type Region struct {
	mem mmap.MMap
}

// PageSize returns the host page size.
func PageSize() int {
	return os.Getpagesize()
}

// Allocate reserves and commits size bytes of readable-writable
// anonymous memory. size must be a positive multiple of the page size;
// a violation is a programming error.
func Allocate(size int) (*Region, error) {
	if size <= 0 || size%PageSize() != 0 {
		panic(fmt.Sprintf("alloc: size %d is not a positive page multiple", size))
	}
	mem, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, osError("unable to allocate memory", err)
	}
	return &Region{mem: mem}, nil
}

// Bytes returns the mapping for writing. Only valid before
// MarkExecutable.
func (r *Region) Bytes() []byte {
	return r.mem
}

// Base returns the mapping's page-aligned base address.
func (r *Region) Base() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// Size returns the mapping's length in bytes.
func (r *Region) Size() int {
	return len(r.mem)
}

// Free releases the mapping.
func (r *Region) Free() error {
	if err := r.mem.Unmap(); err != nil {
		return osError("unable to free memory", err)
	}
	return nil
}

// osError tags an OS refusal with the operation and, when available,
// the raw error code.
func osError(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return fmt.Errorf("JIT %s (%d)", op, int(errno))
	}
	return fmt.Errorf("JIT %s (%v)", op, err)
}
