// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"encoding/binary"
	"errors"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-interpreter/splice/stencil"
	"github.com/go-interpreter/splice/trace"
)

// fakeMemory stands in for an mmap'd region so the compiler can be
// driven without OS pages.
type fakeMemory struct {
	buf      []byte
	exec     bool
	freed    int
	failExec bool
}

func (m *fakeMemory) Bytes() []byte { return m.buf }
func (m *fakeMemory) Base() uintptr { return uintptr(unsafe.Pointer(&m.buf[0])) }
func (m *fakeMemory) Free() error   { m.freed++; return nil }

func (m *fakeMemory) MarkExecutable() error {
	if m.failExec {
		return errors.New("JIT unable to protect executable memory (13)")
	}
	m.exec = true
	return nil
}

type fakeAllocator struct {
	failAlloc bool
	failExec  bool
	last      *fakeMemory
	sizes     []int
}

func (a *fakeAllocator) Allocate(size int) (memory, error) {
	a.sizes = append(a.sizes, size)
	if a.failAlloc {
		return nil, errors.New("JIT unable to allocate memory (12)")
	}
	a.last = &fakeMemory{buf: make([]byte, size), failExec: a.failExec}
	return a.last, nil
}

func testCompiler(tables *stencil.Tables, alloc *fakeAllocator) *Compiler {
	return &Compiler{tables: tables, alloc: alloc}
}

// retTables is the smallest usable table: a one-byte RET for the trace
// head and a two-byte trap for the tail guard.
func retTables() *stencil.Tables {
	t := &stencil.Tables{}
	t.Groups[trace.OpStartExecutor] = stencil.Group{
		Code: stencil.Stencil{Body: []byte{0xC3}},
	}
	t.Groups[trace.OpFatalError] = stencil.Group{
		Code: stencil.Stencil{Body: []byte{0x0F, 0x0B}},
	}
	return t
}

func TestCompileSingleUop(t *testing.T) {
	fa := &fakeAllocator{}
	c := testCompiler(retTables(), fa)
	var exec Executor

	err := c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpStartExecutor}})
	require.NoError(t, err)

	assert.Equal(t, os.Getpagesize(), exec.Size())
	assert.Equal(t, exec.Code(), exec.SideEntry(), "empty trampoline keeps both entries equal")
	assert.Equal(t, fa.last.Base(), exec.Code())
	assert.Equal(t, byte(0xC3), fa.last.buf[0])
	assert.True(t, fa.last.exec, "region must be executable after publication")
}

func TestCompileSizesArePageMultiples(t *testing.T) {
	fa := &fakeAllocator{}
	c := testCompiler(retTables(), fa)
	var exec Executor
	require.NoError(t, c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpStartExecutor}}))

	page := os.Getpagesize()
	for _, size := range fa.sizes {
		assert.Positive(t, size)
		assert.Zero(t, size%page, "allocation of %d bytes is not page-rounded", size)
	}
}

func TestCompileNonemptyTrampoline(t *testing.T) {
	tables := retTables()
	tables.Trampoline = stencil.Group{
		Code: stencil.Stencil{Body: []byte{0x90, 0x90, 0x90, 0x90}},
	}
	fa := &fakeAllocator{}
	c := testCompiler(tables, fa)
	var exec Executor
	require.NoError(t, c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpStartExecutor}}))

	assert.Equal(t, exec.Code()+4, exec.SideEntry())
	assert.Equal(t, byte(0xC3), fa.last.buf[4], "first uop must follow the trampoline")
}

// jumpTables carries a backward branch and a TOP reference so target
// resolution is observable in the emitted bytes.
func jumpTables() *stencil.Tables {
	t := &stencil.Tables{}
	t.Groups[trace.OpStartExecutor] = stencil.Group{
		Code: stencil.Stencil{Body: []byte{1, 2, 3, 4}},
	}
	t.Groups[trace.OpJump] = stencil.Group{
		Code: stencil.Stencil{
			Body: []byte{0x00, 0x00, 0x00, 0x14}, // b JUMP_TARGET
			Holes: []stencil.Hole{
				{Offset: 0, Kind: stencil.R_AARCH64_JUMP26, Value: stencil.JumpTarget},
			},
		},
	}
	t.Groups[trace.OpExitTrace] = stencil.Group{
		Code: stencil.Stencil{
			Body: make([]byte, 8),
			Holes: []stencil.Hole{
				{Offset: 0, Kind: stencil.R_X86_64_64, Value: stencil.Top},
			},
		},
	}
	t.Groups[trace.OpFatalError] = stencil.Group{
		Code: stencil.Stencil{Body: []byte{0, 0, 0x20, 0xD4}},
	}
	return t
}

func TestCompileResolvesJumpTargets(t *testing.T) {
	fa := &fakeAllocator{}
	c := testCompiler(jumpTables(), fa)
	var exec Executor

	tr := []trace.Instruction{
		{Opcode: trace.OpStartExecutor},
		{Opcode: trace.OpJump, Format: trace.FormatJump, JumpTarget: 0, ErrorTarget: 99},
		{Opcode: trace.OpExitTrace},
	}
	require.NoError(t, c.Compile(&exec, tr))

	// uop 0 at offset 0, the branch at offset 4: a -4 byte hop.
	word := binary.LittleEndian.Uint32(fa.last.buf[4:])
	assert.Equal(t, uint32(0x14000000), word&0xFC000000)
	disp4 := int32(-4)
	assert.Equal(t, uint32(disp4>>2)&0x03FFFFFF, word&0x03FFFFFF)

	// TOP always names the second uop's start (the branch, here).
	top := binary.LittleEndian.Uint64(fa.last.buf[8:])
	assert.Equal(t, uint64(fa.last.Base())+4, top)
}

func TestCompileJumpTargetOutOfRangePanics(t *testing.T) {
	c := testCompiler(jumpTables(), &fakeAllocator{})
	var exec Executor
	tr := []trace.Instruction{
		{Opcode: trace.OpStartExecutor},
		{Opcode: trace.OpJump, Format: trace.FormatJump, JumpTarget: 9},
	}
	require.Panics(t, func() { c.Compile(&exec, tr) })
}

func exitTables() *stencil.Tables {
	t := retTables()
	t.Groups[trace.OpSideExit] = stencil.Group{
		Code: stencil.Stencil{
			Body: make([]byte, 8),
			Holes: []stencil.Hole{
				{Offset: 0, Kind: stencil.R_X86_64_64, Value: stencil.ExitIndex},
			},
		},
	}
	return t
}

func TestCompileExitFormat(t *testing.T) {
	fa := &fakeAllocator{}
	c := testCompiler(exitTables(), fa)
	exec := Executor{ExitCount: 2}

	tr := []trace.Instruction{
		{Opcode: trace.OpStartExecutor},
		{Opcode: trace.OpSideExit, Format: trace.FormatExit, ExitIndex: 1, ErrorTarget: 0},
	}
	require.NoError(t, c.Compile(&exec, tr))
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(fa.last.buf[1:]))
}

func TestCompileExitIndexOutOfRangePanics(t *testing.T) {
	c := testCompiler(exitTables(), &fakeAllocator{})
	exec := Executor{ExitCount: 2}
	tr := []trace.Instruction{
		{Opcode: trace.OpStartExecutor},
		{Opcode: trace.OpSideExit, Format: trace.FormatExit, ExitIndex: 5},
	}
	require.Panics(t, func() { c.Compile(&exec, tr) })
}

func TestCompileBadTraceHeadPanics(t *testing.T) {
	c := testCompiler(retTables(), &fakeAllocator{})
	var exec Executor
	require.Panics(t, func() { c.Compile(&exec, nil) })
	require.Panics(t, func() {
		c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpNop}})
	})
}

// TestCompileHoleClosure checks that emission only rewrites bytes a
// hole covers: everything else must match the template byte-for-byte.
func TestCompileHoleClosure(t *testing.T) {
	tables := &stencil.Tables{}
	tables.Groups[trace.OpStartExecutor] = stencil.Group{
		Code: stencil.Stencil{
			// movabs rcx, EXECUTOR
			Body: []byte{0x48, 0xB9, 0, 0, 0, 0, 0, 0, 0, 0},
			Holes: []stencil.Hole{
				{Offset: 2, Kind: stencil.R_X86_64_64, Value: stencil.Executor},
			},
		},
		Data: stencil.Stencil{
			Body: []byte{0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11},
			Holes: []stencil.Hole{
				{Offset: 0, Kind: stencil.R_X86_64_64, Value: stencil.Oparg},
			},
		},
	}
	tables.Groups[trace.OpFatalError] = stencil.Group{
		Code: stencil.Stencil{Body: []byte{0x0F, 0x0B}},
	}

	fa := &fakeAllocator{}
	c := testCompiler(tables, fa)
	exec := Executor{}
	require.NoError(t, c.Compile(&exec, []trace.Instruction{
		{Opcode: trace.OpStartExecutor, Oparg: 0x42},
	}))

	buf := fa.last.buf
	// Code half: template prefix, patched imm64, then the tail guard.
	assert.Equal(t, []byte{0x48, 0xB9}, buf[0:2])
	assert.Equal(t, executorAddr(&exec), binary.LittleEndian.Uint64(buf[2:]))
	assert.Equal(t, []byte{0x0F, 0x0B}, buf[10:12])
	// Data half starts 8-aligned after the 12 code bytes.
	assert.Equal(t, uint64(0x42), binary.LittleEndian.Uint64(buf[16:]))
}

func TestCompileAllocationFailure(t *testing.T) {
	fa := &fakeAllocator{failAlloc: true}
	c := testCompiler(retTables(), fa)
	var exec Executor

	err := c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpStartExecutor}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JIT unable to allocate memory")
	assert.Zero(t, exec.Code())
	assert.Zero(t, exec.SideEntry())
	assert.Zero(t, exec.Size())
}

func TestCompileProtectFailureFreesRegion(t *testing.T) {
	fa := &fakeAllocator{failExec: true}
	c := testCompiler(retTables(), fa)
	var exec Executor

	err := c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpStartExecutor}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to protect executable memory")
	assert.Equal(t, 1, fa.last.freed, "failed compile must release its pages")
	assert.Zero(t, exec.Code())
}

func TestFreeClearsStateAndIsIdempotent(t *testing.T) {
	fa := &fakeAllocator{}
	c := testCompiler(retTables(), fa)
	var exec Executor
	require.NoError(t, c.Compile(&exec, []trace.Instruction{{Opcode: trace.OpStartExecutor}}))

	exec.Free()
	assert.Zero(t, exec.Code())
	assert.Zero(t, exec.SideEntry())
	assert.Zero(t, exec.Size())
	assert.Equal(t, 1, fa.last.freed)

	exec.Free()
	assert.Equal(t, 1, fa.last.freed, "second Free must not release pages again")
}

// TestCompileNativeTables drives the real allocator and the committed
// tables end to end on hosts that have them.
func TestCompileNativeTables(t *testing.T) {
	c, err := NewCompiler()
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	exec := Executor{ExitCount: 4}
	tr := []trace.Instruction{
		{Opcode: trace.OpStartExecutor},
		{Opcode: trace.OpLoadOparg, Oparg: 7},
		{Opcode: trace.OpLoadOperand, Operand: 0x1122334455667788},
		{Opcode: trace.OpLoadExecutor},
		{Opcode: trace.OpJump, Format: trace.FormatJump, JumpTarget: 1, ErrorTarget: 5},
		{Opcode: trace.OpSideExit, Format: trace.FormatExit, ExitIndex: 0, ErrorTarget: 5},
	}
	require.NoError(t, c.Compile(&exec, tr))
	assert.NotZero(t, exec.Code())
	assert.Equal(t, exec.Code()+uintptr(len(c.tables.Trampoline.Code.Body)), exec.SideEntry())
	assert.Zero(t, exec.Size()%os.Getpagesize())

	exec.Free()
	assert.Zero(t, exec.Code())
}
