// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jit materializes uop traces as native code by splicing
// precompiled stencils into one contiguous region, patching their holes
// with runtime addresses, and flipping the region executable.
//
// Compilation is synchronous and takes no locks: the stencil tables are
// immutable, the region belongs to exactly one executor, and the host
// runtime serializes access to each executor handle. Transient OS
// refusals come back as errors (the caller keeps interpreting);
// mismatches between the trace and the tables are programming errors
// and panic.
package jit

import (
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"unsafe"

	"github.com/xyproto/env/v2"

	"github.com/go-interpreter/splice/jit/internal/alloc"
	"github.com/go-interpreter/splice/jit/internal/patch"
	"github.com/go-interpreter/splice/stencil"
	"github.com/go-interpreter/splice/trace"
)

// memory is one compiled region's mapping.
type memory interface {
	Bytes() []byte
	Base() uintptr
	MarkExecutable() error
	Free() error
}

// allocator hands out page-aligned, executable-capable mappings. It is
// an interface so tests can inject failures without touching the OS.
type allocator interface {
	Allocate(size int) (memory, error)
}

type mmapAllocator struct{}

func (mmapAllocator) Allocate(size int) (memory, error) {
	r, err := alloc.Allocate(size)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Config carries the debugging switches.
type Config struct {
	// DisableRelax turns off the GOT-load peepholes so every
	// indirection stays exactly as the stencil builder emitted it.
	DisableRelax bool
}

// ConfigFromEnv reads the switches from the environment:
// SPLICE_JIT_NO_RELAX disables the relaxation peepholes.
func ConfigFromEnv() Config {
	return Config{DisableRelax: env.Bool("SPLICE_JIT_NO_RELAX")}
}

// Compiler turns traces into compiled regions using one immutable
// template set. Independent executors may be compiled concurrently
// from separate goroutines; the compiler itself holds no mutable
// state.
type Compiler struct {
	tables *stencil.Tables
	alloc  allocator
	cfg    Config
}

// NewCompiler returns a compiler over the baked stencil tables for the
// host architecture, or an error when the host has none.
func NewCompiler() (*Compiler, error) {
	tables, ok := stencil.Native()
	if !ok {
		return nil, errors.New("jit: no stencil tables for " + runtime.GOARCH)
	}
	return &Compiler{tables: tables, alloc: mmapAllocator{}, cfg: ConfigFromEnv()}, nil
}

// Compile materializes tr as native code and publishes the entry
// points on executor. On error the executor is unchanged; the caller
// is expected to fall back to interpreting.
func (c *Compiler) Compile(executor *Executor, tr []trace.Instruction) error {
	if len(tr) == 0 {
		panic("jit: empty trace")
	}
	if op := tr[0].Opcode; op != trace.OpStartExecutor && op != trace.OpColdExit {
		panic(fmt.Sprintf("jit: trace starts with %v", op))
	}

	tramp := &c.tables.Trampoline
	fatal := c.group(trace.OpFatalError)

	// Size pass. starts records each uop's code offset; one extra slot
	// holds the tail guard's offset so starts[1] is defined even for a
	// one-instruction trace.
	starts := make([]uint64, len(tr)+1)
	codeSize := uint64(len(tramp.Code.Body))
	dataSize := uint64(len(tramp.Data.Body))
	for i := range tr {
		g := c.group(tr[i].Opcode)
		starts[i] = codeSize
		codeSize += uint64(len(g.Code.Body))
		dataSize += uint64(len(g.Data.Body))
	}
	starts[len(tr)] = codeSize
	codeSize += uint64(len(fatal.Code.Body))
	dataSize += uint64(len(fatal.Data.Body))

	// One allocation, split into a code half and a data half, padded
	// out to whole pages. The data half starts 8-aligned so the wide
	// slots stencils keep there are naturally aligned.
	alignedCode := (codeSize + 7) &^ 7
	page := uint64(alloc.PageSize())
	total := alignedCode + dataSize
	total += (page - total%page) % page

	mem, err := c.alloc.Allocate(int(total))
	if err != nil {
		logger.Print(err)
		return err
	}
	base := uint64(mem.Base())
	buf := mem.Bytes()
	code := base
	data := base + alignedCode

	patches := stencil.NewPatches()
	patches[stencil.Code] = code
	patches[stencil.Data] = data
	patches[stencil.Continue] = base + uint64(len(tramp.Code.Body))
	patches[stencil.Top] = base + uint64(len(tramp.Code.Body))
	patches[stencil.Executor] = executorAddr(executor)
	c.emitGroup(buf, base, tramp, &patches)
	code += uint64(len(tramp.Code.Body))
	data += uint64(len(tramp.Data.Body))

	for i := range tr {
		inst := &tr[i]
		g := c.group(inst.Opcode)
		patches = stencil.NewPatches()
		patches[stencil.Code] = code
		patches[stencil.Data] = data
		patches[stencil.Continue] = code + uint64(len(g.Code.Body))
		patches[stencil.Executor] = executorAddr(executor)
		patches[stencil.Oparg] = uint64(inst.Oparg)
		setOperand(&patches, inst.Operand)
		patches[stencil.Top] = base + starts[1]
		switch inst.Format {
		case trace.FormatTarget:
			patches[stencil.Target] = uint64(inst.Target)
		case trace.FormatExit:
			if inst.ExitIndex >= executor.ExitCount {
				panic(fmt.Sprintf("jit: exit index %d out of range (%d exits)",
					inst.ExitIndex, executor.ExitCount))
			}
			patches[stencil.ExitIndex] = uint64(inst.ExitIndex)
			if int(inst.ErrorTarget) < len(tr) {
				patches[stencil.ErrorTarget] = base + starts[inst.ErrorTarget]
			}
		case trace.FormatJump:
			if int(inst.JumpTarget) >= len(tr) {
				panic(fmt.Sprintf("jit: jump target %d out of range (%d uops)",
					inst.JumpTarget, len(tr)))
			}
			patches[stencil.JumpTarget] = base + starts[inst.JumpTarget]
			if int(inst.ErrorTarget) < len(tr) {
				patches[stencil.ErrorTarget] = base + starts[inst.ErrorTarget]
			}
		default:
			panic(fmt.Sprintf("jit: unknown instruction format %v", inst.Format))
		}
		c.emitGroup(buf, base, g, &patches)
		code += uint64(len(g.Code.Body))
		data += uint64(len(g.Data.Body))
	}

	// Tail guard: anything falling through the last uop traps here
	// instead of running off into the data half.
	patches = stencil.NewPatches()
	patches[stencil.Code] = code
	patches[stencil.Continue] = code
	patches[stencil.Top] = code
	patches[stencil.Data] = data
	c.emitGroup(buf, base, fatal, &patches)
	code += uint64(len(fatal.Code.Body))
	data += uint64(len(fatal.Data.Body))

	if code != base+codeSize || data != base+alignedCode+dataSize {
		panic("jit: emission cursors out of step with the size pass")
	}

	// Everything is written; flip the region executable. The i-cache
	// flush inside MarkExecutable orders the writes before any fetch.
	if err := mem.MarkExecutable(); err != nil {
		logger.Print(err)
		if ferr := mem.Free(); ferr != nil {
			logger.Print(ferr)
		}
		return err
	}

	executor.code = uintptr(base)
	executor.sideEntry = uintptr(base) + uintptr(len(tramp.Code.Body))
	executor.size = int(total)
	executor.region = mem
	return nil
}

// emitGroup copies the group's bodies to the addresses named by the
// patch vector and applies their holes. Data goes first: code holes
// may point into the data body.
func (c *Compiler) emitGroup(buf []byte, base uint64, g *stencil.Group, patches *stencil.Patches) {
	relax := !c.cfg.DisableRelax
	db := buf[patches[stencil.Data]-base:][:len(g.Data.Body)]
	copy(db, g.Data.Body)
	patch.Apply(db, patches[stencil.Data], &g.Data, patches, relax)
	cb := buf[patches[stencil.Code]-base:][:len(g.Code.Body)]
	copy(cb, g.Code.Body)
	patch.Apply(cb, patches[stencil.Code], &g.Code, patches, relax)
}

func (c *Compiler) group(op trace.Opcode) *stencil.Group {
	if op >= trace.NumOpcodes {
		panic(fmt.Sprintf("jit: no stencil group for %v", op))
	}
	return &c.tables.Groups[op]
}

// setOperand stores the wide operand, split across two entries on
// 32-bit hosts.
func setOperand(p *stencil.Patches, operand uint64) {
	if bits.UintSize == 64 {
		p[stencil.Operand] = operand
	} else {
		p[stencil.OperandHi] = operand >> 32
		p[stencil.OperandLo] = operand & 0xFFFFFFFF
	}
}

func executorAddr(e *Executor) uint64 {
	return uint64(uintptr(unsafe.Pointer(e)))
}
