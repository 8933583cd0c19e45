// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patch

import (
	"encoding/binary"

	"github.com/go-interpreter/splice/stencil"
)

const (
	aarch64NOP = 0xD503201F
	// Wide-immediate bases, destination register in bits [0..5] and
	// imm16 at bit 5.
	aarch64MOVZ      = 0xD2800000
	aarch64MOVKLSL16 = 0xF2A00000
	// Literal-pool load, 19-bit word offset at bit 5.
	aarch64LDRLit = 0x58000000
)

// pairsWithGOTPage reports whether next is the low-12 half of the same
// GOT access as the page hole h: the following instruction word, the
// same patch value and the same build-time contributions.
func pairsWithGOTPage(h, next *stencil.Hole) bool {
	switch next.Kind {
	case stencil.ARM64_RELOC_GOT_LOAD_PAGEOFF12, stencil.R_AARCH64_LD64_GOT_LO12_NC:
	default:
		return false
	}
	return next.Offset == h.Offset+4 &&
		next.Value == h.Value &&
		next.Symbol == h.Symbol &&
		next.Addend == h.Addend
}

// relaxADRPLoad collapses an ADRP+LDR pair that loads a GOT slot into a
// shorter sequence when the slot's contents allow it:
//
//	adrp reg, page; ldr reg, [reg, #off]
//
// becomes MOVZ reg, #target (plus a MOVK for 32-bit targets), or a
// literal-pool load of the slot itself when the slot is within reach of
// an LDR (literal). Reports whether the rewrite happened; on false the
// caller encodes both holes the ordinary way.
func relaxADRPLoad(buf []byte, offset, loc, value uint64) bool {
	adrp := binary.LittleEndian.Uint32(buf[offset:])
	reg := adrp & 0x1F
	next := binary.LittleEndian.Uint32(buf[offset+4:])
	// The second instruction must be a load/store (register, unsigned
	// immediate class) whose transfer and base registers both match the
	// ADRP destination.
	if next&0x3B000000 != 0x39000000 || next&0x1F != reg || next>>5&0x1F != reg {
		return false
	}

	relaxed := load64(value)
	switch {
	case relaxed < 1<<16:
		// movz reg, #target; nop
		binary.LittleEndian.PutUint32(buf[offset:], aarch64MOVZ|uint32(relaxed)<<5|reg)
		binary.LittleEndian.PutUint32(buf[offset+4:], aarch64NOP)
	case relaxed < 1<<32:
		// movz reg, #lo16; movk reg, #hi16, lsl #16
		binary.LittleEndian.PutUint32(buf[offset:], aarch64MOVZ|uint32(relaxed&0xFFFF)<<5|reg)
		binary.LittleEndian.PutUint32(buf[offset+4:], aarch64MOVKLSL16|uint32(relaxed>>16&0xFFFF)<<5|reg)
	default:
		// ldr reg, <slot> — read the GOT slot through a literal-pool
		// load if it is close enough, dropping the ADRP.
		d := int64(value - loc)
		if d&3 != 0 || d < -1<<19 || d >= 1<<19 {
			return false
		}
		binary.LittleEndian.PutUint32(buf[offset:], aarch64LDRLit|GetBits(uint64(d), 2, 19)<<5|reg)
		binary.LittleEndian.PutUint32(buf[offset+4:], aarch64NOP)
	}
	return true
}
