// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patch

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-interpreter/splice/stencil"
)

// Apply fills every hole of s into buf, which must hold a copy of
// s.Body placed at address base. Each hole's final value is
// patches[hole.Value] + hole.Symbol + hole.Addend; the kind selects the
// arithmetic and the bitfield layout it is written with.
//
// relax enables the two opportunistic peepholes (x86-64 GOT-load and
// AArch64 ADRP+LDR). Turning it off keeps every indirection exactly as
// the stencil builder emitted it, which is the first thing to try when
// chasing a miscompile.
func Apply(buf []byte, base uint64, s *stencil.Stencil, patches *stencil.Patches, relax bool) {
	for i := 0; i < len(s.Holes); i++ {
		h := &s.Holes[i]
		value := patches[h.Value] + h.Symbol + uint64(h.Addend)
		loc := base + h.Offset
		field := buf[h.Offset:]

		switch h.Kind {
		case stencil.IMAGE_REL_I386_DIR32:
			patch32(field, value)

		case stencil.ARM64_RELOC_UNSIGNED,
			stencil.R_AARCH64_ABS64,
			stencil.R_X86_64_64,
			stencil.X86_64_RELOC_UNSIGNED:
			patch64(field, value)

		case stencil.IMAGE_REL_AMD64_REL32,
			stencil.IMAGE_REL_I386_REL32,
			stencil.R_X86_64_PC32,
			stencil.X86_64_RELOC_BRANCH,
			stencil.X86_64_RELOC_SIGNED:
			patch32r(field, loc, value)

		case stencil.R_X86_64_GOTPCREL,
			stencil.R_X86_64_GOTPCRELX,
			stencil.R_X86_64_REX_GOTPCRELX,
			stencil.X86_64_RELOC_GOT,
			stencil.X86_64_RELOC_GOT_LOAD:
			patch32rx(buf, h.Offset, loc, value, relax)

		case stencil.ARM64_RELOC_BRANCH26,
			stencil.IMAGE_REL_ARM64_BRANCH26,
			stencil.R_AARCH64_CALL26,
			stencil.R_AARCH64_JUMP26:
			patchAArch64_26r(field, loc, value)

		case stencil.R_AARCH64_MOVW_UABS_G0_NC:
			patchAArch64_16(field, value, 0)
		case stencil.R_AARCH64_MOVW_UABS_G1_NC:
			patchAArch64_16(field, value, 1)
		case stencil.R_AARCH64_MOVW_UABS_G2_NC:
			patchAArch64_16(field, value, 2)
		case stencil.R_AARCH64_MOVW_UABS_G3:
			patchAArch64_16(field, value, 3)

		case stencil.ARM64_RELOC_PAGE21,
			stencil.IMAGE_REL_ARM64_PAGEBASE_REL21,
			stencil.R_AARCH64_ADR_PREL_PG_HI21:
			patchAArch64_21r(field, loc, value)

		case stencil.ARM64_RELOC_GOT_LOAD_PAGE21,
			stencil.R_AARCH64_ADR_GOT_PAGE:
			if relax && i+1 < len(s.Holes) && pairsWithGOTPage(h, &s.Holes[i+1]) &&
				relaxADRPLoad(buf, h.Offset, loc, value) {
				// The pair collapsed; the low-12 hole is spent.
				i++
				continue
			}
			patchAArch64_21r(field, loc, value)

		case stencil.ARM64_RELOC_PAGEOFF12,
			stencil.IMAGE_REL_ARM64_PAGEOFFSET_12A,
			stencil.IMAGE_REL_ARM64_PAGEOFFSET_12L,
			stencil.R_AARCH64_ADD_ABS_LO12_NC,
			stencil.ARM64_RELOC_GOT_LOAD_PAGEOFF12,
			stencil.R_AARCH64_LD64_GOT_LO12_NC:
			patchAArch64_12(field, value)

		default:
			panic(fmt.Sprintf("patch: unknown relocation kind %v", h.Kind))
		}
	}
}

// load64 reads the 8 bytes at an absolute address. The relaxations use
// it to inspect GOT slots, which at this point have already been
// written into the (still writable) data half.
func load64(addr uint64) uint64 {
	return *(*uint64)(unsafe.Pointer(uintptr(addr)))
}

// patch32 writes a 32-bit absolute value.
func patch32(field []byte, value uint64) {
	if value >= 1<<32 {
		panic(fmt.Sprintf("patch: absolute value %#x exceeds 32 bits", value))
	}
	binary.LittleEndian.PutUint32(field, uint32(value))
}

// patch64 writes a 64-bit absolute value.
func patch64(field []byte, value uint64) {
	binary.LittleEndian.PutUint64(field, value)
}

// patch32r writes a 32-bit displacement relative to loc.
func patch32r(field []byte, loc, value uint64) {
	d := int64(value - loc)
	if d < -1<<31 || d >= 1<<31 {
		panic(fmt.Sprintf("patch: PC-relative displacement %#x out of range", d))
	}
	binary.LittleEndian.PutUint32(field, uint32(d))
}

// patch32rx writes a 32-bit displacement to a GOT slot, first trying to
// relax the indirection away when the slot's target is close enough.
//
// The hole convention places the 4-byte displacement two bytes after
// the opcode byte being inspected, and folds a -4 addend into value, so
// value+4 is the GOT slot itself and the slot's contents minus 4 is the
// equivalent direct value.
func patch32rx(buf []byte, offset, loc, value uint64, relax bool) {
	if relax && offset >= 2 {
		relaxed := load64(value+4) - 4
		if d := int64(relaxed - loc); -1<<31 <= d && d < 1<<31 {
			switch {
			case buf[offset-2] == 0x8B:
				// mov reg, qword ptr [rip+N] -> lea reg, [rip+N']
				buf[offset-2] = 0x8D
				value = relaxed
			case buf[offset-2] == 0xFF && buf[offset-1] == 0x15:
				// call qword ptr [rip+N] -> nop; call N'
				buf[offset-2] = 0x90
				buf[offset-1] = 0xE8
				value = relaxed
			case buf[offset-2] == 0xFF && buf[offset-1] == 0x25:
				// jmp qword ptr [rip+N] -> nop; jmp N'
				buf[offset-2] = 0x90
				buf[offset-1] = 0xE9
				value = relaxed
			}
		}
	}
	patch32r(buf[offset:], loc, value)
}

// patchAArch64_26r splices a 28-bit branch displacement into a B or BL.
func patchAArch64_26r(field []byte, loc, value uint64) {
	word := binary.LittleEndian.Uint32(field)
	d := int64(value - loc)
	if d&3 != 0 {
		panic(fmt.Sprintf("patch: branch displacement %#x not a multiple of 4", d))
	}
	if d < -1<<27 || d >= 1<<27 {
		panic(fmt.Sprintf("patch: branch displacement %#x out of range", d))
	}
	SetBits(&word, 0, uint64(d), 2, 26)
	binary.LittleEndian.PutUint32(field, word)
}

// patchAArch64_16 splices one 16-bit group of an absolute value into a
// MOVZ/MOVK chain member. group is the chain position; the
// instruction's hw field must already agree with it.
func patchAArch64_16(field []byte, value uint64, group uint) {
	word := binary.LittleEndian.Uint32(field)
	if GetBits(uint64(word), 21, 2) != uint32(group) {
		panic(fmt.Sprintf("patch: MOVW hw field %d does not match group %d",
			GetBits(uint64(word), 21, 2), group))
	}
	SetBits(&word, 5, value, 16*group, 16)
	binary.LittleEndian.PutUint32(field, word)
}

// patchAArch64_21r splices the page delta between value and loc into an
// ADRP's split immlo/immhi immediate.
func patchAArch64_21r(field []byte, loc, value uint64) {
	word := binary.LittleEndian.Uint32(field)
	d := int64(value>>12) - int64(loc>>12)
	if d < -1<<20 || d >= 1<<20 {
		panic(fmt.Sprintf("patch: page delta %#x out of range", d))
	}
	SetBits(&word, 29, uint64(d), 0, 2)
	SetBits(&word, 5, uint64(d), 2, 19)
	binary.LittleEndian.PutUint32(field, word)
}

// patchAArch64_12 splices the low 12 bits of value into an ADD or
// LDR/STR immediate, honoring the access size implicitly encoded in
// loads and stores.
func patchAArch64_12(field []byte, value uint64) {
	word := binary.LittleEndian.Uint32(field)
	shift := uint(0)
	if word&0x3B000000 == 0x39000000 {
		// Loads and stores scale their 12-bit immediate by the access
		// size; ADD does not.
		shift = uint(GetBits(uint64(word), 30, 2))
	}
	value &= 0xFFF
	if value&(1<<shift-1) != 0 {
		panic(fmt.Sprintf("patch: page offset %#x misaligned for shift %d", value, shift))
	}
	SetBits(&word, 10, value, shift, 12)
	binary.LittleEndian.PutUint32(field, word)
}
