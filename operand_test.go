package x64

import "testing"

func TestOperandString(t *testing.T) {
	l := Label(3)
	for _, tc := range []struct {
		s      string
		expect string
	}{
		{Mem{Base: RAX}.String(), "[rax]"},
		{Mem{Base: RBX, Index: R15, Scale: 2, Disp: 8}.String(), "[rbx+r15*2+0x8]"},
		{Mem{Index: RCX, Scale: 8}.String(), "[rcx*8]"},
		{Mem{Disp: 0x1000}.String(), "[0x1000]"},
		{Mem{Base: RIP, Ref: l.Target()}.String(), "[rip+L3]"},
		{Mem{Base: RAX, Seg: FS}.String(), "fs:[rax]"},
		{l.Target().Plus(4).String(), "L3+4"},
		{l.Target().Plus(-4).From(Label(1)).String(), "L3-4-L1"},
		{Addr(0x401000).String(), "0x401000"},
		{Target{}.String(), "<none>"},
		{X3.String(), "xmm3"},
		{Reg(0).String(), "none"},
	} {
		if tc.s != tc.expect {
			t.Fatalf("String() = %s != %s", tc.s, tc.expect)
		}
	}
}

func TestRegisters(t *testing.T) {
	regs := Registers()
	if len(regs) != len(regNames) {
		t.Fatalf("len(Registers()) = %d", len(regs))
	}
	for _, r := range regs {
		if r.String() == "" {
			t.Fatalf("%v has no name", uint32(r))
		}
	}
	if !R8.IsExtended() || RAX.IsExtended() || R12.Num() != 12 || X9.Width() != 16 {
		t.Fatal("unexpected register fields")
	}
	for _, tc := range []struct {
		r     Reg
		width uint8
	}{
		{AL, 1}, {AH, 1}, {AX, 2}, {EAX, 4}, {RAX, 8}, {X15, 16}, {Y0, 32}, {Y15, 32},
	} {
		if tc.r.Width() != tc.width {
			t.Fatalf("%v.Width() = %d, expected %d", tc.r, tc.r.Width(), tc.width)
		}
	}
}
