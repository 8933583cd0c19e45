// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stencil holds the precompiled machine-code templates the JIT
// backend splices together, and the hole model used to patch them.
//
// A stencil is a position-independent byte body plus the list of its
// unresolved references ("holes"). The per-architecture tables in this
// package are produced offline by cmd/stencilgen and committed; nothing
// builds them at runtime.
package stencil

import (
	"fmt"

	"github.com/go-interpreter/splice/trace"
)

// HoleValue indexes the per-emit patch vector. The set is closed: a
// stencil's holes only ever reference entries its emitter populates.
type HoleValue uint8

const (
	// Code is the base address the stencil's code body is placed at.
	Code HoleValue = iota
	// Continue is the address immediately after the code body.
	Continue
	// Data is the base address the stencil's data body is placed at.
	Data
	// Executor is the opaque executor handle pointer.
	Executor
	// Oparg is the uop's immediate argument.
	Oparg
	// Operand is the uop's wide operand on 64-bit hosts. 32-bit hosts
	// receive it split across OperandHi and OperandLo instead.
	Operand
	OperandHi
	OperandLo
	// Target, ExitIndex, ErrorTarget and JumpTarget carry the
	// format-dependent branch and exit metadata.
	Target
	ExitIndex
	ErrorTarget
	JumpTarget
	// Top is the trace's loop head as the compiler fills it in: the
	// first uop's code for the trampoline, the second uop's code (the
	// tail guard's, in a one-uop trace) for every uop, and the tail
	// guard's own address for the tail guard.
	Top
	// Zero is always zero.
	Zero

	// NumValues sizes the patch vector.
	NumValues
)

var holeValueNames = [NumValues]string{
	Code:        "CODE",
	Continue:    "CONTINUE",
	Data:        "DATA",
	Executor:    "EXECUTOR",
	Oparg:       "OPARG",
	Operand:     "OPERAND",
	OperandHi:   "OPERAND_HI",
	OperandLo:   "OPERAND_LO",
	Target:      "TARGET",
	ExitIndex:   "EXIT_INDEX",
	ErrorTarget: "ERROR_TARGET",
	JumpTarget:  "JUMP_TARGET",
	Top:         "TOP",
	Zero:        "ZERO",
}

func (v HoleValue) String() string {
	if v < NumValues {
		return holeValueNames[v]
	}
	return fmt.Sprintf("HoleValue(%d)", uint8(v))
}

// Patches is the fixed-size patch vector an emission fills in before
// applying a stencil's holes. Entries a stencil does not reference are
// left zero and never read.
type Patches [NumValues]uint64

// NewPatches returns a pre-zeroed patch vector.
func NewPatches() Patches {
	return Patches{}
}

// Hole is an unresolved reference inside a stencil body.
//
// For every hole, patches[Value] + Symbol + Addend is the logical target
// address or immediate the hole refers to; splitting the fixed portion
// across Symbol and Addend is a packing convenience of the offline
// builder.
type Hole struct {
	// Offset is the byte offset within the body where the fix-up lands.
	Offset uint64
	// Kind selects the encoding and arithmetic policy.
	Kind Kind
	// Value indexes the runtime patch vector.
	Value HoleValue
	// Symbol is a constant pointer resolved at build time.
	Symbol uint64
	// Addend is a signed constant contribution.
	Addend int64
}

// Stencil is an immutable position-independent template.
type Stencil struct {
	Body  []byte
	Holes []Hole
}

// Group pairs the code and data stencils of one uop opcode.
type Group struct {
	Code Stencil
	Data Stencil
}

// Tables is a complete per-architecture template set: one group per
// opcode (the tail guard is the trace.OpFatalError group), plus the
// trampoline, which is not tied to an opcode.
type Tables struct {
	// Groups is indexed by trace.Opcode.
	Groups [trace.NumOpcodes]Group
	// Trampoline adapts the host calling convention to the JIT one. Its
	// body may be empty where the two conventions coincide.
	Trampoline Group
}

var native *Tables

// Native returns the baked tables for the host architecture, if any.
func Native() (*Tables, bool) {
	return native, native != nil
}
