// Copyright 2024 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command stencilgen rebuilds the baked stencil tables under stencil/.
// The table definitions live here; the committed tables_GOARCH.go files
// are this tool's output and are never edited by hand.
//
// Usage:
//
//	stencilgen -arch amd64 -o tables_amd64.go
//	stencilgen -arch arm64 -o tables_arm64.go
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// hole is one unresolved reference of a part, offset-relative to the
// part's first byte.
type hole struct {
	offset int
	kind   string
	value  string
	addend int64
}

// part is one instruction (or data slot) of a stencil body.
type part struct {
	bytes   []byte
	comment string
	holes   []hole
}

type stencilDef struct {
	parts []part
}

type groupDef struct {
	opcode string // trace.Op… constant, or "" for the trampoline
	code   stencilDef
	data   stencilDef
}

func main() {
	arch := flag.String("arch", "", "target architecture (amd64 or arm64)")
	out := flag.String("o", "", "output file (defaults to stdout)")
	flag.Parse()

	var (
		groups  []groupDef
		varName string
		doc     string
	)
	switch *arch {
	case "amd64":
		groups, varName, doc = amd64Table()
	case "arm64":
		groups, varName, doc = arm64Table()
	default:
		log.Fatalf("stencilgen: unsupported architecture %q", *arch)
	}

	src := render(*arch, varName, doc, groups)
	if *out == "" {
		os.Stdout.Write(src)
		return
	}
	if err := os.WriteFile(*out, src, 0644); err != nil {
		log.Fatal(err)
	}
}

// build runs a golang-asm builder over emit and returns the encoding.
func build(arch string, emit func(*asm.Builder)) []byte {
	b, err := asm.NewBuilder(arch, 16)
	if err != nil {
		log.Fatal(err)
	}
	emit(b)
	return b.Assemble()
}

var placeholder = []byte{1, 1, 1, 1, 1, 1, 1, 1}

// movImm64 assembles a movabs of a placeholder into reg and returns
// the encoding with the 8 immediate bytes zeroed, plus their offset.
// The placeholder forces the assembler to pick the imm64 form.
func movImm64(reg int16) ([]byte, int) {
	out := build("amd64", func(b *asm.Builder) {
		p := b.NewProg()
		p.As = x86.AMOVQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = 0x0101010101010101
		p.To.Type = obj.TYPE_REG
		p.To.Reg = reg
		b.AddInstruction(p)
	})
	off := bytes.Index(out, placeholder)
	if off < 0 {
		log.Fatal("stencilgen: imm64 placeholder not found")
	}
	copy(out[off:], make([]byte, 8))
	return out, off
}

func amd64Ret() []byte {
	return build("amd64", func(b *asm.Builder) {
		p := b.NewProg()
		p.As = obj.ARET
		b.AddInstruction(p)
	})
}

func movRegImm64(reg int16, regName, value string) part {
	body, off := movImm64(reg)
	return part{
		bytes:   body,
		comment: fmt.Sprintf("movabs %s, %s", regName, value),
		holes:   []hole{{offset: off, kind: "R_X86_64_64", value: value}},
	}
}

func amd64Table() ([]groupDef, string, string) {
	slot := part{
		bytes:   make([]byte, 8),
		comment: "8-byte slot: &EXECUTOR",
		holes:   []hole{{kind: "R_X86_64_64", value: "Executor"}},
	}
	groups := []groupDef{
		// Native and JIT conventions coincide on x86-64: empty
		// trampoline.
		{opcode: ""},
		{opcode: "OpNop", code: stencilDef{parts: []part{
			{bytes: []byte{0x90}, comment: "nop"},
		}}},
		{opcode: "OpStartExecutor", code: stencilDef{parts: []part{
			movRegImm64(x86.REG_CX, "rcx", "Executor"),
		}}},
		{opcode: "OpColdExit", code: stencilDef{parts: []part{
			movRegImm64(x86.REG_AX, "rax", "Oparg"),
			{bytes: amd64Ret(), comment: "ret"},
		}}},
		{opcode: "OpFatalError", code: stencilDef{parts: []part{
			{bytes: []byte{0x0F, 0x0B}, comment: "ud2"},
		}}},
		{opcode: "OpLoadOparg", code: stencilDef{parts: []part{
			movRegImm64(x86.REG_SI, "rsi", "Oparg"),
		}}},
		{opcode: "OpLoadOperand", code: stencilDef{parts: []part{
			movRegImm64(x86.REG_DX, "rdx", "Operand"),
		}}},
		{
			opcode: "OpLoadExecutor",
			code: stencilDef{parts: []part{{
				bytes:   []byte{0x48, 0x8B, 0x05, 0, 0, 0, 0},
				comment: "mov rax, qword ptr [rip+DATA]",
				holes:   []hole{{offset: 3, kind: "R_X86_64_GOTPCRELX", value: "Data", addend: -4}},
			}}},
			data: stencilDef{parts: []part{slot}},
		},
		{opcode: "OpDeoptCheck", code: stencilDef{parts: []part{
			movRegImm64(x86.REG_CX, "rcx", "Target"),
		}}},
		{opcode: "OpSideExit", code: stencilDef{parts: []part{
			movRegImm64(x86.REG_AX, "rax", "ExitIndex"),
			{bytes: amd64Ret(), comment: "ret"},
		}}},
		{opcode: "OpJump", code: stencilDef{parts: []part{{
			bytes:   []byte{0xE9, 0, 0, 0, 0},
			comment: "jmp JUMP_TARGET",
			holes:   []hole{{offset: 1, kind: "R_X86_64_PC32", value: "JumpTarget", addend: -4}},
		}}}},
		{opcode: "OpExitTrace", code: stencilDef{parts: []part{
			{bytes: amd64Ret(), comment: "ret"},
		}}},
	}
	doc := "JIT calling convention on x86-64: RCX holds the executor, RSI the\n" +
		"current oparg, RDX the current operand; RAX carries exit status back\n" +
		"to the interpreter. Native and JIT conventions coincide, so the\n" +
		"trampoline is empty."
	return groups, "tablesAMD64", doc
}

// word renders one AArch64 instruction.
func word(w uint32, comment string, holes ...hole) part {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], w)
	return part{bytes: b[:], comment: comment, holes: holes}
}

// movChain renders a patchable MOVZ/MOVK chain loading value into reg.
func movChain(reg uint32, regName, value string) []part {
	return []part{
		word(0xD2800000|reg, fmt.Sprintf("movz %s, #%s[0:16]", regName, value),
			hole{kind: "R_AARCH64_MOVW_UABS_G0_NC", value: value}),
		word(0xF2A00000|reg, fmt.Sprintf("movk %s, #%s[16:32], lsl #16", regName, value),
			hole{kind: "R_AARCH64_MOVW_UABS_G1_NC", value: value}),
		word(0xF2C00000|reg, fmt.Sprintf("movk %s, #%s[32:48], lsl #32", regName, value),
			hole{kind: "R_AARCH64_MOVW_UABS_G2_NC", value: value}),
		word(0xF2E00000|reg, fmt.Sprintf("movk %s, #%s[48:64], lsl #48", regName, value),
			hole{kind: "R_AARCH64_MOVW_UABS_G3", value: value}),
	}
}

// gotLoad renders an ADRP+LDR pair reading the 8-byte slot the group
// keeps in its data body.
func gotLoad(reg uint32, regName string) stencilDef {
	return stencilDef{parts: []part{
		word(0x90000000|reg, fmt.Sprintf("adrp %s, DATA@page", regName),
			hole{kind: "R_AARCH64_ADR_GOT_PAGE", value: "Data"}),
		word(0xF9400000|reg<<5|reg, fmt.Sprintf("ldr %s, [%s, DATA@pageoff]", regName, regName),
			hole{kind: "R_AARCH64_LD64_GOT_LO12_NC", value: "Data"}),
	}}
}

func arm64Table() ([]groupDef, string, string) {
	const (
		nop = 0xD503201F
		ret = 0xD65F03C0
		brk = 0xD4200000
	)
	slot := stencilDef{parts: []part{{
		bytes:   make([]byte, 8),
		comment: "8-byte slot: &EXECUTOR",
		holes:   []hole{{kind: "R_AARCH64_ABS64", value: "Executor"}},
	}}}
	groups := []groupDef{
		{opcode: "", code: stencilDef{parts: append(
			movChain(16, "x16", "Top"),
			word(0xD61F0200, "br x16"),
		)}},
		{opcode: "OpNop", code: stencilDef{parts: []part{word(nop, "nop")}}},
		{opcode: "OpStartExecutor", code: gotLoad(0, "x0"), data: slot},
		{opcode: "OpColdExit", code: stencilDef{parts: append(
			movChain(0, "x0", "Oparg"),
			word(ret, "ret"),
		)}},
		{opcode: "OpFatalError", code: stencilDef{parts: []part{word(brk, "brk #0")}}},
		{opcode: "OpLoadOparg", code: stencilDef{parts: movChain(1, "x1", "Oparg")}},
		{opcode: "OpLoadOperand", code: stencilDef{parts: movChain(2, "x2", "Operand")}},
		{opcode: "OpLoadExecutor", code: gotLoad(3, "x3"), data: slot},
		{opcode: "OpDeoptCheck", code: stencilDef{parts: movChain(4, "x4", "Target")}},
		{opcode: "OpSideExit", code: stencilDef{parts: append(
			movChain(0, "x0", "ExitIndex"),
			word(ret, "ret"),
		)}},
		{opcode: "OpJump", code: stencilDef{parts: []part{
			word(0x14000000, "b JUMP_TARGET", hole{kind: "R_AARCH64_JUMP26", value: "JumpTarget"}),
		}}},
		{opcode: "OpExitTrace", code: stencilDef{parts: []part{word(ret, "ret")}}},
	}
	doc := "JIT calling convention on AArch64: x0 holds the executor on entry and\n" +
		"the exit status on return, x1 the current oparg, x2 the current\n" +
		"operand. The trampoline materializes the trace entry through a full\n" +
		"MOVZ/MOVK chain and branches to it."
	return groups, "tablesARM64", doc
}

func render(arch, varName, doc string, groups []groupDef) []byte {
	var b bytes.Buffer
	b.WriteString("// Code generated by stencilgen. DO NOT EDIT.\n\n")
	b.WriteString("// Copyright 2024 The go-interpreter Authors.  All rights reserved.\n")
	b.WriteString("// Use of this source code is governed by a BSD-style\n")
	b.WriteString("// license that can be found in the LICENSE file.\n\n")
	b.WriteString("package stencil\n\n")
	b.WriteString("import \"github.com/go-interpreter/splice/trace\"\n\n")
	fmt.Fprintf(&b, "//go:generate go run ../cmd/stencilgen -arch %s -o tables_%s.go\n\n", arch, arch)
	for _, line := range splitLines(doc) {
		fmt.Fprintf(&b, "// %s\n", line)
	}
	fmt.Fprintf(&b, "var %s = Tables{\n", varName)

	var tramp groupDef
	for _, g := range groups {
		if g.opcode == "" {
			tramp = g
		}
	}
	b.WriteString("\tTrampoline: ")
	renderGroup(&b, tramp, 1)
	b.WriteString(",\n")
	fmt.Fprintf(&b, "\tGroups: [trace.NumOpcodes]Group{\n")
	for _, g := range groups {
		if g.opcode == "" {
			continue
		}
		fmt.Fprintf(&b, "\t\ttrace.%s: ", g.opcode)
		renderGroup(&b, g, 2)
		b.WriteString(",\n")
	}
	b.WriteString("\t},\n}\n\nfunc init() {\n\tnative = &" + varName + "\n}\n")
	return b.Bytes()
}

func renderGroup(b *bytes.Buffer, g groupDef, depth int) {
	ind := indent(depth)
	if len(g.code.parts) == 0 && len(g.data.parts) == 0 {
		b.WriteString("Group{}")
		return
	}
	b.WriteString("Group{\n")
	if len(g.code.parts) > 0 {
		fmt.Fprintf(b, "%s\tCode: ", ind)
		renderStencil(b, g.code, depth+1)
		b.WriteString(",\n")
	}
	if len(g.data.parts) > 0 {
		fmt.Fprintf(b, "%s\tData: ", ind)
		renderStencil(b, g.data, depth+1)
		b.WriteString(",\n")
	}
	fmt.Fprintf(b, "%s}", ind)
}

func renderStencil(b *bytes.Buffer, s stencilDef, depth int) {
	ind := indent(depth)
	b.WriteString("Stencil{\n")
	fmt.Fprintf(b, "%s\tBody: []byte{\n", ind)
	for _, p := range s.parts {
		fmt.Fprintf(b, "%s\t\t%s // %s\n", ind, byteList(p.bytes), p.comment)
	}
	fmt.Fprintf(b, "%s\t},\n", ind)

	offset := 0
	var holes []string
	for _, p := range s.parts {
		for _, h := range p.holes {
			entry := fmt.Sprintf("{Offset: %d, Kind: %s, Value: %s", offset+h.offset, h.kind, h.value)
			if h.addend != 0 {
				entry += fmt.Sprintf(", Addend: %d", h.addend)
			}
			holes = append(holes, entry+"}")
		}
		offset += len(p.bytes)
	}
	if len(holes) > 0 {
		fmt.Fprintf(b, "%s\tHoles: []Hole{\n", ind)
		for _, h := range holes {
			fmt.Fprintf(b, "%s\t\t%s,\n", ind, h)
		}
		fmt.Fprintf(b, "%s\t},\n", ind)
	}
	fmt.Fprintf(b, "%s}", ind)
}

func byteList(bs []byte) string {
	var b bytes.Buffer
	for _, c := range bs {
		if c == 0 {
			b.WriteString("0, ")
			continue
		}
		fmt.Fprintf(&b, "0x%02X, ", c)
	}
	return b.String()
}

func indent(depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += "\t"
	}
	return s
}

func splitLines(s string) []string {
	var lines []string
	for len(s) > 0 {
		i := bytes.IndexByte([]byte(s), '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i])
		s = s[i+1:]
	}
	return lines
}
