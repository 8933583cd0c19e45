// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace defines the micro-operation sequences handed to the JIT
// backend by the tracing tier. A trace is a linear []Instruction; the
// tracing tier that produces it and the interpreter loop that re-enters
// it are external to this module.
package trace

import "fmt"

// Opcode identifies a micro-operation. Every opcode maps to exactly one
// stencil group in the backend's template tables.
type Opcode uint16

const (
	OpNop Opcode = iota

	// OpStartExecutor and OpColdExit are the only opcodes allowed to
	// begin a trace. OpFatalError is never written by the tracing tier;
	// the backend appends its group as a tail guard.
	OpStartExecutor
	OpColdExit
	OpFatalError

	OpLoadOparg
	OpLoadOperand
	OpLoadExecutor
	OpDeoptCheck
	OpSideExit
	OpJump
	OpExitTrace

	// NumOpcodes bounds the stencil tables.
	NumOpcodes
)

var opcodeNames = [...]string{
	OpNop:           "NOP",
	OpStartExecutor: "START_EXECUTOR",
	OpColdExit:      "COLD_EXIT",
	OpFatalError:    "FATAL_ERROR",
	OpLoadOparg:     "LOAD_OPARG",
	OpLoadOperand:   "LOAD_OPERAND",
	OpLoadExecutor:  "LOAD_EXECUTOR",
	OpDeoptCheck:    "DEOPT_CHECK",
	OpSideExit:      "SIDE_EXIT",
	OpJump:          "JUMP",
	OpExitTrace:     "EXIT_TRACE",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint16(op))
}

// Format selects which of an instruction's branch-related fields are
// populated. The three formats are mutually exclusive.
type Format uint8

const (
	// FormatTarget instructions carry an opaque Target immediate.
	FormatTarget Format = iota
	// FormatExit instructions carry an ExitIndex and an ErrorTarget.
	FormatExit
	// FormatJump instructions carry a JumpTarget and an ErrorTarget.
	FormatJump
)

func (f Format) String() string {
	switch f {
	case FormatTarget:
		return "FORMAT_TARGET"
	case FormatExit:
		return "FORMAT_EXIT"
	case FormatJump:
		return "FORMAT_JUMP"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Instruction is one micro-operation of a trace.
//
// Target, ExitIndex, ErrorTarget and JumpTarget overlay each other in the
// upstream representation; which of them carry meaning here is selected
// by Format (see the Format constants). JumpTarget and ErrorTarget are
// indices into the trace itself, not addresses.
type Instruction struct {
	Opcode  Opcode
	Oparg   uint32
	Operand uint64
	Format  Format

	Target      uint32
	ExitIndex   uint32
	ErrorTarget uint32
	JumpTarget  uint32
}
