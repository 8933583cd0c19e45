// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch computes and writes relocations into freshly copied
// stencil bodies. It is pure byte and bit arithmetic: every kind of the
// closed relocation set is handled here regardless of the host
// architecture, which keeps the whole engine testable on any machine.
package patch

// GetBits extracts width consecutive bits of value starting at bit
// start, with bit 0 the least significant. width must be at most 32.
func GetBits(value uint64, start, width uint) uint32 {
	if width > 32 {
		panic("patch: bitfield wider than 32 bits")
	}
	return uint32(value >> start & (1<<width - 1))
}

// SetBits overwrites the width-bit field at wordStart in *word with bits
// [valueStart, valueStart+width) of value, leaving every other bit of
// *word intact. wordStart+width must be at most 32.
//
// GetBits and SetBits are the only two primitives that touch
// instruction-encoded bitfields.
func SetBits(word *uint32, wordStart uint, value uint64, valueStart, width uint) {
	if wordStart+width > 32 {
		panic("patch: bitfield overflows instruction word")
	}
	mask := uint32(uint64(1)<<width-1) << wordStart
	*word = *word&^mask | GetBits(value, valueStart, width)<<wordStart&mask
}
