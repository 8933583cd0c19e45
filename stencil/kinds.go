// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import "fmt"

// Kind tags a hole with its relocation convention. The set is closed;
// the patch engine traps on anything else. Names follow the conventions
// of the object formats the offline builder consumes: Mach-O
// (ARM64_RELOC_*, X86_64_RELOC_*), COFF (IMAGE_REL_*) and ELF
// (R_AARCH64_*, R_X86_64_*).
type Kind uint8

const (
	KindInvalid Kind = iota

	// 32-bit absolute.
	IMAGE_REL_I386_DIR32

	// 64-bit absolute.
	ARM64_RELOC_UNSIGNED
	R_AARCH64_ABS64
	R_X86_64_64
	X86_64_RELOC_UNSIGNED

	// 32-bit PC-relative.
	IMAGE_REL_AMD64_REL32
	IMAGE_REL_I386_REL32
	R_X86_64_PC32
	X86_64_RELOC_BRANCH
	X86_64_RELOC_SIGNED

	// 32-bit PC-relative through a GOT slot; candidates for the
	// load-relaxation peephole.
	R_X86_64_GOTPCREL
	R_X86_64_GOTPCRELX
	R_X86_64_REX_GOTPCRELX
	X86_64_RELOC_GOT
	X86_64_RELOC_GOT_LOAD

	// AArch64 26-bit branch (B/BL).
	ARM64_RELOC_BRANCH26
	IMAGE_REL_ARM64_BRANCH26
	R_AARCH64_CALL26
	R_AARCH64_JUMP26

	// AArch64 MOVZ/MOVK absolute chain, one kind per 16-bit group.
	R_AARCH64_MOVW_UABS_G0_NC
	R_AARCH64_MOVW_UABS_G1_NC
	R_AARCH64_MOVW_UABS_G2_NC
	R_AARCH64_MOVW_UABS_G3

	// AArch64 ADRP page-of.
	ARM64_RELOC_PAGE21
	IMAGE_REL_ARM64_PAGEBASE_REL21
	R_AARCH64_ADR_PREL_PG_HI21

	// AArch64 ADRP page-of through a GOT slot; candidates for the
	// ADRP+LDR relaxation together with the matching low-12 kinds.
	ARM64_RELOC_GOT_LOAD_PAGE21
	R_AARCH64_ADR_GOT_PAGE

	// AArch64 low 12 bits of a page offset.
	ARM64_RELOC_PAGEOFF12
	IMAGE_REL_ARM64_PAGEOFFSET_12A
	IMAGE_REL_ARM64_PAGEOFFSET_12L
	R_AARCH64_ADD_ABS_LO12_NC

	// AArch64 low 12 bits of a GOT slot's page offset.
	ARM64_RELOC_GOT_LOAD_PAGEOFF12
	R_AARCH64_LD64_GOT_LO12_NC

	NumKinds
)

var kindNames = [NumKinds]string{
	KindInvalid:                    "INVALID",
	IMAGE_REL_I386_DIR32:           "IMAGE_REL_I386_DIR32",
	ARM64_RELOC_UNSIGNED:           "ARM64_RELOC_UNSIGNED",
	R_AARCH64_ABS64:                "R_AARCH64_ABS64",
	R_X86_64_64:                    "R_X86_64_64",
	X86_64_RELOC_UNSIGNED:          "X86_64_RELOC_UNSIGNED",
	IMAGE_REL_AMD64_REL32:          "IMAGE_REL_AMD64_REL32",
	IMAGE_REL_I386_REL32:           "IMAGE_REL_I386_REL32",
	R_X86_64_PC32:                  "R_X86_64_PC32",
	X86_64_RELOC_BRANCH:            "X86_64_RELOC_BRANCH",
	X86_64_RELOC_SIGNED:            "X86_64_RELOC_SIGNED",
	R_X86_64_GOTPCREL:              "R_X86_64_GOTPCREL",
	R_X86_64_GOTPCRELX:             "R_X86_64_GOTPCRELX",
	R_X86_64_REX_GOTPCRELX:         "R_X86_64_REX_GOTPCRELX",
	X86_64_RELOC_GOT:               "X86_64_RELOC_GOT",
	X86_64_RELOC_GOT_LOAD:          "X86_64_RELOC_GOT_LOAD",
	ARM64_RELOC_BRANCH26:           "ARM64_RELOC_BRANCH26",
	IMAGE_REL_ARM64_BRANCH26:       "IMAGE_REL_ARM64_BRANCH26",
	R_AARCH64_CALL26:               "R_AARCH64_CALL26",
	R_AARCH64_JUMP26:               "R_AARCH64_JUMP26",
	R_AARCH64_MOVW_UABS_G0_NC:      "R_AARCH64_MOVW_UABS_G0_NC",
	R_AARCH64_MOVW_UABS_G1_NC:      "R_AARCH64_MOVW_UABS_G1_NC",
	R_AARCH64_MOVW_UABS_G2_NC:      "R_AARCH64_MOVW_UABS_G2_NC",
	R_AARCH64_MOVW_UABS_G3:         "R_AARCH64_MOVW_UABS_G3",
	ARM64_RELOC_PAGE21:             "ARM64_RELOC_PAGE21",
	IMAGE_REL_ARM64_PAGEBASE_REL21: "IMAGE_REL_ARM64_PAGEBASE_REL21",
	R_AARCH64_ADR_PREL_PG_HI21:     "R_AARCH64_ADR_PREL_PG_HI21",
	ARM64_RELOC_GOT_LOAD_PAGE21:    "ARM64_RELOC_GOT_LOAD_PAGE21",
	R_AARCH64_ADR_GOT_PAGE:         "R_AARCH64_ADR_GOT_PAGE",
	ARM64_RELOC_PAGEOFF12:          "ARM64_RELOC_PAGEOFF12",
	IMAGE_REL_ARM64_PAGEOFFSET_12A: "IMAGE_REL_ARM64_PAGEOFFSET_12A",
	IMAGE_REL_ARM64_PAGEOFFSET_12L: "IMAGE_REL_ARM64_PAGEOFFSET_12L",
	R_AARCH64_ADD_ABS_LO12_NC:      "R_AARCH64_ADD_ABS_LO12_NC",
	ARM64_RELOC_GOT_LOAD_PAGEOFF12: "ARM64_RELOC_GOT_LOAD_PAGEOFF12",
	R_AARCH64_LD64_GOT_LO12_NC:     "R_AARCH64_LD64_GOT_LO12_NC",
}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Width reports how many bytes of the body the hole's write covers.
func (k Kind) Width() int {
	switch k {
	case ARM64_RELOC_UNSIGNED, R_AARCH64_ABS64, R_X86_64_64, X86_64_RELOC_UNSIGNED:
		return 8
	default:
		return 4
	}
}
