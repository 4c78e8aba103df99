package x64

import (
	. "github.com/wdamron/x64jit/feats"
	. "github.com/wdamron/x64jit/flags"
)

// Opcode records for a core of general-purpose, string, SSE, AVX and XOP instructions.
// Other encodings can be described with Opcode values directly.
//
// Records suffixed _MR take the destination in Mod-R/M r/m and the source in reg; records
// suffixed _RM take the destination in reg. _MI and _RI records take an immediate. Records
// suffixed 8 take byte operands.
var (
	NOP  = Opcode{Name: "NOP", Code: [4]byte{0x90}, Len: 1}
	RET  = Opcode{Name: "RET", Code: [4]byte{0xc3}, Len: 1}
	INT3 = Opcode{Name: "INT3", Code: [4]byte{0xcc}, Len: 1}

	PUSH   = Opcode{Name: "PUSH", Code: [4]byte{0x50}, Len: 1, Flags: SHORT_ARG | AUTO_NO32}
	POP    = Opcode{Name: "POP", Code: [4]byte{0x58}, Len: 1, Flags: SHORT_ARG | AUTO_NO32}
	PUSH_I = Opcode{Name: "PUSH", Code: [4]byte{0x68}, Len: 1, Imm: Imm32}
	PUSHAD = Opcode{Name: "PUSHAD", Code: [4]byte{0x60}, Len: 1, Flags: X86_ONLY}
	INC_R  = Opcode{Name: "INC", Code: [4]byte{0x40}, Len: 1, Flags: SHORT_ARG | AUTO_SIZE | X86_ONLY}

	MOV_MR  = Opcode{Name: "MOV", Code: [4]byte{0x89}, Len: 1, Flags: AUTO_SIZE | ENC_MR}
	MOV_RM  = Opcode{Name: "MOV", Code: [4]byte{0x8b}, Len: 1, Flags: AUTO_SIZE}
	MOV_MR8 = Opcode{Name: "MOV", Code: [4]byte{0x88}, Len: 1, Flags: ENC_MR, Size: 1}
	MOV_RM8 = Opcode{Name: "MOV", Code: [4]byte{0x8a}, Len: 1, Size: 1}
	MOV_RI  = Opcode{Name: "MOV", Code: [4]byte{0xb8}, Len: 1, Flags: SHORT_ARG | AUTO_SIZE, Imm: ImmV}
	MOV_RI8 = Opcode{Name: "MOV", Code: [4]byte{0xb0}, Len: 1, Flags: SHORT_ARG, Imm: Imm8, Size: 1}
	MOV_MI  = Opcode{Name: "MOV", Code: [4]byte{0xc7}, Len: 1, Ext: 0, Flags: AUTO_SIZE, Imm: ImmZ}
	LEA     = Opcode{Name: "LEA", Code: [4]byte{0x8d}, Len: 1, Flags: AUTO_SIZE}

	ADD_MR  = Opcode{Name: "ADD", Code: [4]byte{0x01}, Len: 1, Flags: AUTO_SIZE | ENC_MR | LOCK}
	ADD_RM  = Opcode{Name: "ADD", Code: [4]byte{0x03}, Len: 1, Flags: AUTO_SIZE}
	ADD_MI8 = Opcode{Name: "ADD", Code: [4]byte{0x83}, Len: 1, Ext: 0, Flags: AUTO_SIZE | LOCK, Imm: Imm8}
	ADD_MI  = Opcode{Name: "ADD", Code: [4]byte{0x81}, Len: 1, Ext: 0, Flags: AUTO_SIZE | LOCK, Imm: ImmZ}
	SUB_MR  = Opcode{Name: "SUB", Code: [4]byte{0x29}, Len: 1, Flags: AUTO_SIZE | ENC_MR | LOCK}
	SUB_RM  = Opcode{Name: "SUB", Code: [4]byte{0x2b}, Len: 1, Flags: AUTO_SIZE}
	SUB_MI8 = Opcode{Name: "SUB", Code: [4]byte{0x83}, Len: 1, Ext: 5, Flags: AUTO_SIZE | LOCK, Imm: Imm8}
	SUB_MI  = Opcode{Name: "SUB", Code: [4]byte{0x81}, Len: 1, Ext: 5, Flags: AUTO_SIZE | LOCK, Imm: ImmZ}
	XOR_MR  = Opcode{Name: "XOR", Code: [4]byte{0x31}, Len: 1, Flags: AUTO_SIZE | ENC_MR | LOCK}
	XOR_RM  = Opcode{Name: "XOR", Code: [4]byte{0x33}, Len: 1, Flags: AUTO_SIZE}
	XOR_MI8 = Opcode{Name: "XOR", Code: [4]byte{0x83}, Len: 1, Ext: 6, Flags: AUTO_SIZE | LOCK, Imm: Imm8}
	CMP_MR  = Opcode{Name: "CMP", Code: [4]byte{0x39}, Len: 1, Flags: AUTO_SIZE | ENC_MR}
	CMP_RM  = Opcode{Name: "CMP", Code: [4]byte{0x3b}, Len: 1, Flags: AUTO_SIZE}
	CMP_MI8 = Opcode{Name: "CMP", Code: [4]byte{0x83}, Len: 1, Ext: 7, Flags: AUTO_SIZE, Imm: Imm8}
	CMP_MI  = Opcode{Name: "CMP", Code: [4]byte{0x81}, Len: 1, Ext: 7, Flags: AUTO_SIZE, Imm: ImmZ}
	TEST_MR = Opcode{Name: "TEST", Code: [4]byte{0x85}, Len: 1, Flags: AUTO_SIZE | ENC_MR}
	INC     = Opcode{Name: "INC", Code: [4]byte{0xff}, Len: 1, Ext: 0, Flags: AUTO_SIZE | LOCK}
	DEC     = Opcode{Name: "DEC", Code: [4]byte{0xff}, Len: 1, Ext: 1, Flags: AUTO_SIZE | LOCK}
	IMUL_RM = Opcode{Name: "IMUL", Code: [4]byte{0x0f, 0xaf}, Len: 2, Flags: AUTO_SIZE}

	JMP_REL8   = Opcode{Name: "JMP", Code: [4]byte{0xeb}, Len: 1, Rel: 1}
	JMP_REL32  = Opcode{Name: "JMP", Code: [4]byte{0xe9}, Len: 1, Rel: 4}
	CALL_REL32 = Opcode{Name: "CALL", Code: [4]byte{0xe8}, Len: 1, Rel: 4}
	JMP_M      = Opcode{Name: "JMP", Code: [4]byte{0xff}, Len: 1, Ext: 4, Flags: AUTO_NO32}
	CALL_M     = Opcode{Name: "CALL", Code: [4]byte{0xff}, Len: 1, Ext: 2, Flags: AUTO_NO32}
	SYSCALL    = Opcode{Name: "SYSCALL", Code: [4]byte{0x0f, 0x05}, Len: 2, Flags: X64_ONLY}

	MOVSB = Opcode{Name: "MOVSB", Code: [4]byte{0xa4}, Len: 1, Flags: REP}
	STOSB = Opcode{Name: "STOSB", Code: [4]byte{0xaa}, Len: 1, Flags: REP}
	CMPSB = Opcode{Name: "CMPSB", Code: [4]byte{0xa6}, Len: 1, Flags: REPE}

	MOVAPS = Opcode{Name: "MOVAPS", Code: [4]byte{0x0f, 0x28}, Len: 2, Feature: SSE}
	PXOR   = Opcode{Name: "PXOR", Code: [4]byte{0x0f, 0xef}, Len: 2, Flags: PREF_66, Feature: SSE2}

	VADDPS     = Opcode{Name: "VADDPS", Code: [4]byte{0x01, 0x58}, Len: 2, Flags: VEX_OP | AUTO_VEXL, Feature: AVX}
	VPXOR      = Opcode{Name: "VPXOR", Code: [4]byte{0x01, 0xef}, Len: 2, Flags: VEX_OP | AUTO_VEXL | PREF_66, Feature: AVX}
	VMOVDQU    = Opcode{Name: "VMOVDQU", Code: [4]byte{0x01, 0x6f}, Len: 2, Flags: VEX_OP | AUTO_VEXL | PREF_F3, Feature: AVX}
	VSHUFPD    = Opcode{Name: "VSHUFPD", Code: [4]byte{0x01, 0xc6}, Len: 2, Flags: VEX_OP | AUTO_VEXL | PREF_66, Feature: AVX, Imm: Imm8}
	VGATHERDPS = Opcode{Name: "VGATHERDPS", Code: [4]byte{0x02, 0x92}, Len: 2, Flags: VEX_OP | AUTO_VEXL | PREF_66, Feature: AVX2}
	VBLENDVPS  = Opcode{Name: "VBLENDVPS", Code: [4]byte{0x03, 0x4a}, Len: 2, Flags: VEX_OP | AUTO_VEXL | PREF_66, Feature: AVX}
	ANDN       = Opcode{Name: "ANDN", Code: [4]byte{0x02, 0xf2}, Len: 2, Flags: VEX_OP | AUTO_REXW, Feature: BMI1}
	VPHADDBD   = Opcode{Name: "VPHADDBD", Code: [4]byte{0x09, 0xc2}, Len: 2, Flags: XOP_OP, Feature: AMD}
)

// Opcodes lists the predefined records, for lookup by mnemonic.
var Opcodes = [...]*Opcode{
	&NOP, &RET, &INT3, &PUSH, &POP, &PUSH_I, &PUSHAD, &INC_R,
	&MOV_MR, &MOV_RM, &MOV_MR8, &MOV_RM8, &MOV_RI, &MOV_RI8, &MOV_MI, &LEA,
	&ADD_MR, &ADD_RM, &ADD_MI8, &ADD_MI, &SUB_MR, &SUB_RM, &SUB_MI8, &SUB_MI,
	&XOR_MR, &XOR_RM, &XOR_MI8, &CMP_MR, &CMP_RM, &CMP_MI8, &CMP_MI, &TEST_MR,
	&INC, &DEC, &IMUL_RM,
	&JMP_REL8, &JMP_REL32, &CALL_REL32, &JMP_M, &CALL_M, &SYSCALL,
	&MOVSB, &STOSB, &CMPSB,
	&MOVAPS, &PXOR,
	&VADDPS, &VPXOR, &VMOVDQU, &VSHUFPD, &VGATHERDPS, &VBLENDVPS, &ANDN, &VPHADDBD,
}
