package x64

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/arch/x86/x86asm"

	"github.com/wdamron/x64jit/feats"
)

// Hard-coded instruction sequences are manually verified through the following tools:
//   * ODA: https://onlinedisassembler.com/odaweb/
//   * Shell-Storm: http://shell-storm.org/online/Online-Assembler-and-Disassembler/

func TestEncode(t *testing.T) {
	asm := openTest(t)
	asm.Bookmark()
	_expect := func(s string) {
		decoded, err := x86asm.Decode(asm.Code(), 64)
		if err != nil {
			t.Fatal(err)
		}
		intel := x86asm.IntelSyntax(decoded, 0, nil)
		if intel != s {
			t.Logf("encoded inst = %#x\n", asm.Code())
			t.Fatalf("decoded inst = %s != %s", intel, s)
		}
		if decoded.Len != len(asm.Code()) {
			t.Fatalf("decoded %d of %d bytes: %#x", decoded.Len, len(asm.Code()), asm.Code())
		}
		if err := asm.Rewind(); err != nil {
			t.Fatal(err)
		}
		asm.Bookmark()
	}
	check := func(expect string, err error) {
		if err != nil {
			t.Fatalf("%s: %v", expect, err)
		}
		_expect(expect)
	}

	check("mov al, 0x1", asm.RI(MOV_RI8, AL, 1))
	check("mov ah, 0x1", asm.RI(MOV_RI8, AH, 1))
	check("mov ax, 0x1", asm.RI(MOV_RI, AX, 1))
	check("mov eax, 0x1", asm.RI(MOV_RI, EAX, 1))
	check("mov rax, 0x7fffffffffffffff", asm.RI(MOV_RI, RAX, 0x7fffffffffffffff))
	check("mov r9, 0x1", asm.RI(MOV_RI, R9, 1))
	check("mov rax, r13", asm.RR(MOV_RM, RAX, R13))
	check("mov rax, rbx", asm.RR(MOV_MR, RAX, RBX))
	check("add rax, rbx", asm.RR(ADD_MR, RAX, RBX))
	check("add rax, 0x1", asm.RI(ADD_MI8, RAX, 1))
	check("add qword ptr [rax], 0x1", asm.MI(ADD_MI8, Mem{Base: RAX, Width: 8}, 1))
	check("sub ecx, 0x1000", asm.RI(SUB_MI, ECX, 0x1000))
	check("xor rax, rbx", asm.RR(XOR_MR, RAX, RBX))
	check("cmp rdi, rsi", asm.RR(CMP_MR, RDI, RSI))
	check("imul rax, rcx", asm.RR(IMUL_RM, RAX, RCX))
	check("dec ecx", asm.R(DEC, ECX))
	check("push rbp", asm.R(PUSH, RBP))
	check("push r12", asm.R(PUSH, R12))
	check("pop rbp", asm.R(POP, RBP))
	check("pxor xmm1, xmm2", asm.RR(PXOR, X1, X2))
	check("movaps xmm9, xmm2", asm.RR(MOVAPS, X9, X2))
	check("mov rax, qword ptr [rbx]", asm.RM(MOV_RM, RAX, Mem{Base: RBX}))
	check("mov qword ptr [rax], rbx", asm.MR(MOV_MR, Mem{Base: RAX}, RBX))
	check("mov qword ptr [r13], rbx", asm.MR(MOV_MR, Mem{Base: R13}, RBX))
	check("mov rax, qword ptr [rbx+r15*1]", asm.RM(MOV_RM, RAX, Mem{Base: RBX, Index: R15}))
	check("mov rax, qword ptr [rbx+r15*2]", asm.RM(MOV_RM, RAX, Mem{Base: RBX, Index: R15, Scale: 2}))
	check("mov rax, qword ptr [rbx+r15*2+0x8]", asm.RM(MOV_RM, RAX, Mem{Base: RBX, Index: R15, Scale: 2, Disp: 8}))
	check("lea rax, ptr [rbx+r15*2+0x8]", asm.RM(LEA, RAX, Mem{Base: RBX, Index: R15, Scale: 2, Disp: 8}))
	check("mov dword ptr [rax], 0x2a", asm.MI(MOV_MI, Mem{Base: RAX, Width: 4}, 42))
	check("jmp qword ptr [rax]", asm.M(JMP_M, Mem{Base: RAX}))
	check("call qword ptr [rax]", asm.M(CALL_M, Mem{Base: RAX}))
	check("lea rax, ptr [rip+0x10]", asm.RM(LEA, RAX, Mem{Base: RIP, Disp: 16}))
	check("mov rax, qword ptr fs:[rax]", asm.RM(MOV_RM, RAX, Mem{Base: RAX, Seg: FS}))
	check("cmovl rax, rbx", asm.RR(Cmovcc(CCSignedLT), RAX, RBX))
	check("setz al", asm.R(Setcc(CCEq), AL))
	check("syscall", asm.Op(SYSCALL))
	check("ret", asm.Op(RET))
}

func TestEncodeBytes(t *testing.T) {
	asm := openTest(t)
	asm.Bookmark()
	check := func(expect string, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", expect, err)
		}
		if fmt.Sprintf("%#x", asm.Code()) != expect {
			t.Fatalf("encoded = %#x != %s", asm.Code(), expect)
		}
		if err := asm.Rewind(); err != nil {
			t.Fatal(err)
		}
		asm.Bookmark()
	}

	// displacement sizes
	check("0x48894500", asm.MR(MOV_MR, Mem{Base: RBP}, RAX))
	check("0x49894500", asm.MR(MOV_MR, Mem{Base: R13}, RAX))
	check("0x4889407f", asm.MR(MOV_MR, Mem{Base: RAX, Disp: 0x7f}, RAX))
	check("0x48894080", asm.MR(MOV_MR, Mem{Base: RAX, Disp: -128}, RAX))
	check("0x48898080000000", asm.MR(MOV_MR, Mem{Base: RAX, Disp: 0x80}, RAX))
	check("0x48890424", asm.MR(MOV_MR, Mem{Base: RSP}, RAX))
	check("0x49890424", asm.MR(MOV_MR, Mem{Base: R12}, RAX))
	check("0x498b442408", asm.RM(MOV_RM, RAX, Mem{Base: R12, Disp: 8}))

	// no base: SIB with base 101 and a 4-byte displacement
	check("0x488b042500100000", asm.RM(MOV_RM, RAX, Mem{Disp: 0x1000}))
	check("0x488b04cd08000000", asm.RM(MOV_RM, RAX, Mem{Index: RCX, Scale: 8, Disp: 8}))

	// R12 is a valid index
	check("0x4a8b0420", asm.RM(MOV_RM, RAX, Mem{Base: RAX, Index: R12}))

	// 32-bit addressing in long mode
	check("0x678b4500", asm.RM(MOV_RM, EAX, Mem{Base: EBP}))
	check("0x678b0510000000", asm.RM(MOV_RM, EAX, Mem{Base: EIP, Disp: 16}))

	// REX only when required; SPL, BPL, SIL and DIL force it
	check("0x89d8", asm.RR(MOV_MR, EAX, EBX))
	check("0x88d8", asm.RR(MOV_MR8, AL, BL))
	check("0x4088c4", asm.RR(MOV_MR8, SPL, AL))
	check("0x4088f8", asm.RR(MOV_MR8, AL, DIL))
	check("0x4188c0", asm.RR(MOV_MR8, R8B, AL))
	check("0x88e0", asm.RR(MOV_MR8, AL, AH))
	check("0x6689d8", asm.RR(MOV_MR, AX, BX))

	// immediates
	check("0x4883c0ff", asm.RI(ADD_MI8, RAX, -1))
	check("0xb0ff", asm.RI(MOV_RI8, AL, 0xff))
	check("0xb0ff", asm.RI(MOV_RI8, AL, -1))
	check("0xb8ffffffff", asm.RI(MOV_RI, EAX, 0xffffffff))
	check("0x48c7c0ffffffff", asm.RI(MOV_MI, RAX, -1))
	check("0x6683c001", asm.RI(ADD_MI8, AX, 1))

	// string instructions with repeat prefixes
	check("0xf3a4", asm.Rep(Inst{Op: MOVSB}))
	check("0xf3aa", asm.Rep(Inst{Op: STOSB}))
	check("0xf2a6", asm.Repne(Inst{Op: CMPSB}))
	check("0xf3a6", asm.Rep(Inst{Op: CMPSB}))
	check("0xf0480103", asm.Lock(Inst{Op: ADD_MR, Reg: RAX, RM: Mem{Base: RBX}}))
	check("0xf0ff00", asm.Lock(Inst{Op: INC, RM: Mem{Base: RAX, Width: 4}}))
}

func TestEncodeVex(t *testing.T) {
	asm := openTest(t)
	asm.Bookmark()
	check := func(expect string, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", expect, err)
		}
		if fmt.Sprintf("%#x", asm.Code()) != expect {
			t.Fatalf("encoded = %#x != %s", asm.Code(), expect)
		}
		if err := asm.Rewind(); err != nil {
			t.Fatal(err)
		}
		asm.Bookmark()
	}

	check("0xc5f1c60302", asm.Emit(Inst{Op: VSHUFPD, Reg: X0, V: X1, RM: Mem{Base: RBX, Width: 16}, Imm: 2}))
	check("0xc5f1c6c301", asm.RRRI(VSHUFPD, X0, X1, X3, 1))

	// 2-byte form whenever X, B, W and the map allow it
	check("0xc571efc2", asm.RRR(VPXOR, X8, X1, X2))
	check("0xc4c171efc0", asm.RRR(VPXOR, X0, X1, X8))
	check("0xc4c131efc0", asm.RRR(VPXOR, X0, X9, X8))
	check("0xc5f458c2", asm.RRR(VADDPS, Y0, Y1, Y2))
	check("0xc5f858c2", asm.RRR(VADDPS, X0, X0, X2))
	check("0xc5fe6f03", asm.Emit(Inst{Op: VMOVDQU, Reg: Y0, RM: Mem{Base: RBX, Width: 32}}))
	check("0xc5fe6f03", asm.RM(VMOVDQU, Y0, Mem{Base: RBX}))
	check("0xc5fe6fc1", asm.RR(VMOVDQU, Y0, Y1))
	check("0xc4c13defdc", asm.RRR(VPXOR, Y3, Y8, Y12))

	// VEX.W and maps 0F38 and 0F3A
	check("0xc4e2e0f2c1", asm.RRR(ANDN, RAX, RBX, RCX))
	check("0xc4e260f2c1", asm.RRR(ANDN, EAX, EBX, ECX))
	check("0xc4e3714ac230", asm.Emit(Inst{Op: VBLENDVPS, Reg: X0, V: X1, RM: X2, Is4: X3}))

	// VSIB addressing follows the same displacement rules as other memory operands
	check("0xc4e26992040a", asm.RRM(VGATHERDPS, X0, X2, Mem{Base: RDX, Index: X1}))
	check("0xc4e26992448a40", asm.RRM(VGATHERDPS, X0, X2, Mem{Base: RDX, Index: X1, Scale: 4, Disp: 64}))
	check("0xc4e269920c8d00000000", asm.RRM(VGATHERDPS, X1, X2, Mem{Index: X1, Scale: 4}))
	check("0xc4a26992040a", asm.RRM(VGATHERDPS, X0, X2, Mem{Base: RDX, Index: X9}))
	check("0xc4e26d92040a", asm.RRM(VGATHERDPS, Y0, Y2, Mem{Base: RDX, Index: Y1}))

	// XOP
	check("0x8fe978c2c1", asm.Emit(Inst{Op: VPHADDBD, Reg: X0, RM: X1}))
}

func TestEncodeRejects(t *testing.T) {
	asm := openTest(t)
	asm.Bookmark()
	reject := func(name string, target error, err error) {
		t.Helper()
		if err == nil {
			t.Fatalf("%s: encoded %#x, expected %v", name, asm.Code(), target)
		}
		var ee *EncodeError
		if !errors.As(err, &ee) {
			t.Fatalf("%s: %T is not an *EncodeError", name, err)
		}
		if target != nil && !errors.Is(err, target) {
			t.Fatalf("%s: %v, expected %v", name, err, target)
		}
		if len(asm.Code()) != 0 {
			t.Fatalf("%s: %#x left in the stream", name, asm.Code())
		}
		if asm.Err() != err {
			t.Fatalf("%s: error is not sticky", name)
		}
		if err := asm.Rewind(); err != nil {
			t.Fatal(err)
		}
		asm.Bookmark()
	}

	reject("rsp index", ErrRSPIndex, asm.RM(MOV_RM, RAX, Mem{Base: RAX, Index: RSP}))
	reject("scale 3", ErrScale, asm.RM(MOV_RM, RAX, Mem{Base: RAX, Index: RCX, Scale: 3}))
	reject("scale 16", ErrScale, asm.RM(MOV_RM, RAX, Mem{Base: RAX, Index: RCX, Scale: 16}))
	reject("scale without index", ErrScale, asm.RM(MOV_RM, RAX, Mem{Base: RAX, Scale: 2}))
	reject("mixed widths", ErrAddrWidth, asm.RM(MOV_RM, RAX, Mem{Base: RAX, Index: ECX}))
	reject("16-bit address", ErrAddrSize, asm.RM(MOV_RM, RAX, Mem{Base: BX}))
	reject("rip index", ErrOperand, asm.RM(MOV_RM, RAX, Mem{Base: RIP, Index: RCX}))
	reject("segment base", ErrOperand, asm.RM(MOV_RM, RAX, Mem{Base: ES}))
	reject("bad segment", ErrOperand, asm.RM(MOV_RM, RAX, Mem{Base: RAX, Seg: RCX}))
	reject("high byte and rex", ErrHighByteREX, asm.RR(MOV_MR8, AH, SIL))
	reject("high byte and r8b", ErrHighByteREX, asm.RR(MOV_MR8, R8B, AH))
	reject("operand sizes", ErrOperandSize, asm.RR(MOV_MR, RAX, EBX))
	reject("byte with AUTO_SIZE", ErrOperandSize, asm.RR(MOV_MR, AL, BL))
	reject("no width", ErrOperandSize, asm.MI(ADD_MI8, Mem{Base: RAX}, 1))
	reject("32-bit push", ErrOperandSize, asm.R(PUSH, EAX))
	reject("ymm with a 16-byte operand", ErrOperandSize, asm.RM(VMOVDQU, Y0, Mem{Base: RBX, Width: 16}))
	reject("xmm with ymm", ErrOperandSize, asm.RRR(VADDPS, X0, Y1, Y2))
	reject("byte mov with 64-bit registers", ErrOperandSize, asm.RR(MOV_MR8, RAX, RBX))
	reject("byte mov with a word", ErrOperandSize, asm.RM(MOV_RM8, AL, Mem{Base: RBX, Width: 2}))
	reject("setcc on rax", ErrOperandSize, asm.R(Setcc(CCEq), RAX))
	reject("register on a sizeless record", ErrOperandSize, asm.R(Opcode{Name: "UD2", Code: [4]byte{0x0f, 0x0b}, Len: 2}, RAX))
	reject("imm8 range", ErrImmediate, asm.RI(ADD_MI8, RAX, 0x80))
	reject("imm8 unsigned", ErrImmediate, asm.RI(MOV_RI8, AL, 0x100))
	reject("imm32 sign extended", ErrImmediate, asm.RI(MOV_MI, RAX, 0xffffffff))
	reject("vex register on legacy op", ErrOperand, asm.RRR(MOV_RM, RAX, RBX, RCX))
	reject("ip operand", ErrOperand, asm.RR(MOV_MR, RAX, RIP))
	reject("x86-only", ErrMode, asm.Op(PUSHAD))
	reject("missing target", ErrOperand, asm.Op(JMP_REL32))
	reject("lock without memory", ErrPrefix, asm.Lock(Inst{Op: ADD_MR, Reg: RAX, RM: RBX}))
	reject("lock on mov", ErrPrefix, asm.Lock(Inst{Op: MOV_MR, Reg: RAX, RM: Mem{Base: RBX}}))
	reject("repne on movsb", ErrPrefix, asm.Repne(Inst{Op: MOVSB}))
	reject("rep on add", ErrPrefix, asm.Rep(Inst{Op: ADD_MR, Reg: RAX, RM: RBX}))
	reject("empty record", ErrOperand, asm.Op(Opcode{Name: "EMPTY"}))
	reject("absolute reference", nil, asm.RM(MOV_RM, RAX, Mem{Base: RBX, Ref: Addr(0x1000)}))

	// the prefix of a rejected instruction does not leak into the next one
	if err := asm.Op(NOP); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprintf("%#x", asm.Code()) != "0x90" {
		t.Fatalf("encoded = %#x != 0x90", asm.Code())
	}
}

func TestEncodeProtected(t *testing.T) {
	asm := openTest(t, WithMode(Protected32))
	asm.Bookmark()
	check := func(expect, intel string, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", expect, err)
		}
		if fmt.Sprintf("%#x", asm.Code()) != expect {
			t.Fatalf("encoded = %#x != %s", asm.Code(), expect)
		}
		if intel != "" {
			decoded, err := x86asm.Decode(asm.Code(), 32)
			if err != nil {
				t.Fatal(err)
			}
			if s := x86asm.IntelSyntax(decoded, 0, nil); s != intel {
				t.Fatalf("decoded inst = %s != %s", s, intel)
			}
		}
		if err := asm.Rewind(); err != nil {
			t.Fatal(err)
		}
		asm.Bookmark()
	}

	check("0x89d8", "mov eax, ebx", asm.RR(MOV_MR, EAX, EBX))
	check("0x8b4500", "mov eax, dword ptr [ebp]", asm.RM(MOV_RM, EAX, Mem{Base: EBP}))
	check("0x8b0424", "mov eax, dword ptr [esp]", asm.RM(MOV_RM, EAX, Mem{Base: ESP}))
	check("0x8b0500100000", "", asm.RM(MOV_RM, EAX, Mem{Disp: 0x1000}))
	check("0x55", "push ebp", asm.R(PUSH, EBP))
	check("0x41", "inc ecx", asm.R(INC_R, ECX))
	check("0x60", "", asm.Op(PUSHAD))
	check("0x6834120000", "", asm.Jump(PUSH_I, Addr(0x1234)))
	check("0x8d0500104000", "", asm.RM(LEA, EAX, Mem{Base: EIP, Ref: Addr(0x401000)}))

	// 16-bit addressing
	for _, tc := range []struct {
		m      Mem
		expect string
	}{
		{Mem{Base: BX, Index: SI}, "0x678b00"},
		{Mem{Base: BX, Index: DI}, "0x678b01"},
		{Mem{Base: BP, Index: SI}, "0x678b02"},
		{Mem{Base: BP, Index: DI}, "0x678b03"},
		{Mem{Base: SI}, "0x678b04"},
		{Mem{Base: DI}, "0x678b05"},
		{Mem{Base: BP}, "0x678b4600"},
		{Mem{Base: BX}, "0x678b07"},
		{Mem{Base: SI, Index: BX}, "0x678b00"},
		{Mem{Index: DI}, "0x678b05"},
		{Mem{Base: BX, Index: SI, Disp: 0x10}, "0x678b4010"},
		{Mem{Base: BP, Disp: -2}, "0x678b46fe"},
		{Mem{Base: BX, Disp: 0x1234}, "0x678b873412"},
	} {
		check(tc.expect, "", asm.RM(MOV_RM, EAX, tc.m))
	}

	for _, tc := range []struct {
		name string
		err  error
		emit func() error
	}{
		{"bx+bp", ErrAddr16, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: BX, Index: BP}) }},
		{"si+di", ErrAddr16, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: SI, Index: DI}) }},
		{"ax", ErrAddr16, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: AX}) }},
		{"bx+bx", ErrAddr16, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: BX, Index: BX}) }},
		{"scaled", ErrAddr16, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: BX, Index: SI, Scale: 2}) }},
		{"disp", ErrOperand, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: BX, Disp: 0x10000}) }},
		{"64-bit operand", ErrOperandSize, func() error { return asm.RR(MOV_MR, RAX, RBX) }},
		{"64-bit vex operand", ErrOperandSize, func() error { return asm.RRR(ANDN, RAX, RBX, RCX) }},
		{"64-bit byte-record operand", ErrOperandSize, func() error { return asm.RR(MOV_MR8, RAX, RBX) }},
		{"64-bit address", ErrAddrSize, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: RAX}) }},
		{"rip", ErrAddrSize, func() error { return asm.RM(LEA, EAX, Mem{Base: RIP, Disp: 16}) }},
		{"eip without target", ErrOperand, func() error { return asm.RM(LEA, EAX, Mem{Base: EIP, Disp: 16}) }},
		{"extended register", ErrNeedsREX, func() error { return asm.RR(MOV_MR, R8D, EAX) }},
		{"extended base", ErrNeedsREX, func() error { return asm.RM(MOV_RM, EAX, Mem{Base: R8D}) }},
		{"spl", ErrNeedsREX, func() error { return asm.RR(MOV_MR8, SPL, AL) }},
		{"long-only", ErrMode, func() error { return asm.Op(SYSCALL) }},
	} {
		err := tc.emit()
		if !errors.Is(err, tc.err) {
			t.Fatalf("%s: %v, expected %v", tc.name, err, tc.err)
		}
		if err := asm.Rewind(); err != nil {
			t.Fatal(err)
		}
		asm.Bookmark()
	}
}

func TestEncodeFeatures(t *testing.T) {
	asm := openTest(t, WithFeatures(feats.Baseline))
	if err := asm.RR(PXOR, X0, X1); err != nil {
		t.Fatal(err)
	}
	err := asm.RRRI(VSHUFPD, X0, X1, X3, 1)
	if !errors.Is(err, ErrFeature) {
		t.Fatalf("VSHUFPD without AVX: %v", err)
	}
	if fmt.Sprintf("%#x", asm.Code()) != "0x660fefc1" {
		t.Fatalf("encoded = %#x", asm.Code())
	}

	asm = openTest(t)
	asm.SetFeatures(asm.Features() &^ feats.AVX)
	if err := asm.RRRI(VSHUFPD, X0, X1, X3, 1); !errors.Is(err, ErrFeature) {
		t.Fatalf("VSHUFPD with AVX disabled: %v", err)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	emit := func() string {
		asm := openTest(t)
		top := asm.NewLabel()
		asm.Bind(top)
		asm.RR(MOV_RM, RAX, RDI)
		asm.MI(ADD_MI8, Mem{Base: RSP, Index: RCX, Scale: 8, Disp: -8, Width: 8}, 3)
		asm.RRR(VPXOR, Y3, Y8, Y12)
		asm.Jcc(CCNeq, top.Target())
		asm.Op(RET)
		if _, err := asm.Finish(); err != nil {
			t.Fatal(err)
		}
		return fmt.Sprintf("%#x", asm.Code())
	}
	if a, b := emit(), emit(); a != b {
		t.Fatalf("%s != %s", a, b)
	}
}
