package x64

import "fmt"

// RegFamily distinguishes register files which share register numbers.
type RegFamily uint8

// Register families
const (
	RegLegacy   RegFamily = iota
	RegIP                 // IP, EIP, RIP
	RegHighByte           // AH, CH, DH, BH
	RegFP
	RegMMX
	RegXMM
	RegYMM
	RegSegment
	RegControl
	RegDebug
)

// Reg is a register with a specific width and family. All registers have a number
// which distinguishes them within their family, with the exception of the IP/EIP/RIP registers.
//
// The zero Reg means "no register".
type Reg uint32

func (r Reg) isOperand() {}

// Get the family for the register.
func (r Reg) Family() RegFamily { return RegFamily(r >> 8) }

// Get the number which distinguishes the register within its family, as encoded in
// Mod-R/M, SIB, REX and VEX fields. The IP/EIP/RIP registers return 0.
func (r Reg) Num() uint8 { return uint8(r) & 0xf }

// Get the width of the register in bytes.
func (r Reg) Width() uint8 { return uint8(r >> 16) }

// Check if the register is numbered 8 or higher.
func (r Reg) IsExtended() bool { return r.Num() > 7 }

// Check if the register is one of SPL, BPL, SIL or DIL, which are only addressable with a REX prefix.
func (r Reg) needsRex() bool {
	return r.Family() == RegLegacy && r.Width() == 1 && r.Num() >= 4 && r.Num() <= 7
}

func (r Reg) isGeneral() bool {
	f := r.Family()
	return r != 0 && (f == RegLegacy || f == RegHighByte)
}

func (r Reg) isVector() bool {
	f := r.Family()
	return r != 0 && (f == RegXMM || f == RegYMM)
}

func (r Reg) String() string {
	if r == 0 {
		return "none"
	}
	if name, ok := regNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reg(%d:%d:%d)", r.Family(), r.Width(), r.Num())
}

// Registers
const (
	// 8-bit
	AH   Reg = Reg(1<<16 | Reg(RegHighByte)<<8 | 4)
	CH   Reg = Reg(1<<16 | Reg(RegHighByte)<<8 | 5)
	DH   Reg = Reg(1<<16 | Reg(RegHighByte)<<8 | 6)
	BH   Reg = Reg(1<<16 | Reg(RegHighByte)<<8 | 7)
	AL   Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 0)
	CL   Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 1)
	DL   Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 2)
	BL   Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 3)
	SPL  Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 4)
	BPL  Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 5)
	SIL  Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 6)
	DIL  Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 7)
	R8B  Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 8)
	R9B  Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 9)
	R10B Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 10)
	R11B Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 11)
	R12B Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 12)
	R13B Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 13)
	R14B Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 14)
	R15B Reg = Reg(1<<16 | Reg(RegLegacy)<<8 | 15)

	// 16-bit
	AX   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 0)
	CX   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 1)
	DX   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 2)
	BX   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 3)
	SP   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 4)
	BP   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 5)
	SI   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 6)
	DI   Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 7)
	R8W  Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 8)
	R9W  Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 9)
	R10W Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 10)
	R11W Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 11)
	R12W Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 12)
	R13W Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 13)
	R14W Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 14)
	R15W Reg = Reg(2<<16 | Reg(RegLegacy)<<8 | 15)

	// 32-bit
	EAX  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 0)
	ECX  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 1)
	EDX  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 2)
	EBX  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 3)
	ESP  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 4)
	EBP  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 5)
	ESI  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 6)
	EDI  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 7)
	R8D  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 8)
	R9D  Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 9)
	R10D Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 10)
	R11D Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 11)
	R12D Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 12)
	R13D Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 13)
	R14D Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 14)
	R15D Reg = Reg(4<<16 | Reg(RegLegacy)<<8 | 15)

	// 64-bit
	RAX Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 0)
	RCX Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 1)
	RDX Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 2)
	RBX Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 3)
	RSP Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 4)
	RBP Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 5)
	RSI Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 6)
	RDI Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 7)
	R8  Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 8)
	R9  Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 9)
	R10 Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 10)
	R11 Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 11)
	R12 Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 12)
	R13 Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 13)
	R14 Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 14)
	R15 Reg = Reg(8<<16 | Reg(RegLegacy)<<8 | 15)

	// Instruction pointer.
	IP  Reg = Reg(2<<16 | Reg(RegIP)<<8 | 0) // 16-bit
	EIP Reg = Reg(4<<16 | Reg(RegIP)<<8 | 0) // 32-bit
	RIP Reg = Reg(8<<16 | Reg(RegIP)<<8 | 0) // 64-bit

	// 387 floating point registers.
	F0 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 0)
	F1 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 1)
	F2 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 2)
	F3 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 3)
	F4 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 4)
	F5 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 5)
	F6 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 6)
	F7 Reg = Reg(10<<16 | Reg(RegFP)<<8 | 7)

	// MMX registers.
	M0 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 0)
	M1 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 1)
	M2 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 2)
	M3 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 3)
	M4 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 4)
	M5 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 5)
	M6 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 6)
	M7 Reg = Reg(8<<16 | Reg(RegMMX)<<8 | 7)

	// XMM registers.
	X0  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 0)
	X1  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 1)
	X2  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 2)
	X3  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 3)
	X4  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 4)
	X5  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 5)
	X6  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 6)
	X7  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 7)
	X8  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 8)
	X9  Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 9)
	X10 Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 10)
	X11 Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 11)
	X12 Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 12)
	X13 Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 13)
	X14 Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 14)
	X15 Reg = Reg(16<<16 | Reg(RegXMM)<<8 | 15)

	// YMM registers.
	Y0  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 0)
	Y1  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 1)
	Y2  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 2)
	Y3  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 3)
	Y4  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 4)
	Y5  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 5)
	Y6  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 6)
	Y7  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 7)
	Y8  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 8)
	Y9  Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 9)
	Y10 Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 10)
	Y11 Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 11)
	Y12 Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 12)
	Y13 Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 13)
	Y14 Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 14)
	Y15 Reg = Reg(32<<16 | Reg(RegYMM)<<8 | 15)

	// Segment registers.
	ES Reg = Reg(2<<16 | Reg(RegSegment)<<8 | 0)
	CS Reg = Reg(2<<16 | Reg(RegSegment)<<8 | 1)
	SS Reg = Reg(2<<16 | Reg(RegSegment)<<8 | 2)
	DS Reg = Reg(2<<16 | Reg(RegSegment)<<8 | 3)
	FS Reg = Reg(2<<16 | Reg(RegSegment)<<8 | 4)
	GS Reg = Reg(2<<16 | Reg(RegSegment)<<8 | 5)

	// Control registers.
	CR0  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 0)
	CR1  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 1)
	CR2  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 2)
	CR3  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 3)
	CR4  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 4)
	CR5  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 5)
	CR6  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 6)
	CR7  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 7)
	CR8  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 8)
	CR9  Reg = Reg(4<<16 | Reg(RegControl)<<8 | 9)
	CR10 Reg = Reg(4<<16 | Reg(RegControl)<<8 | 10)
	CR11 Reg = Reg(4<<16 | Reg(RegControl)<<8 | 11)
	CR12 Reg = Reg(4<<16 | Reg(RegControl)<<8 | 12)
	CR13 Reg = Reg(4<<16 | Reg(RegControl)<<8 | 13)
	CR14 Reg = Reg(4<<16 | Reg(RegControl)<<8 | 14)
	CR15 Reg = Reg(4<<16 | Reg(RegControl)<<8 | 15)

	// Debug registers.
	DR0  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 0)
	DR1  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 1)
	DR2  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 2)
	DR3  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 3)
	DR4  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 4)
	DR5  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 5)
	DR6  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 6)
	DR7  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 7)
	DR8  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 8)
	DR9  Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 9)
	DR10 Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 10)
	DR11 Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 11)
	DR12 Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 12)
	DR13 Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 13)
	DR14 Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 14)
	DR15 Reg = Reg(4<<16 | Reg(RegDebug)<<8 | 15)
)

var regNames = map[Reg]string{
	AH:   "ah",
	CH:   "ch",
	DH:   "dh",
	BH:   "bh",
	AL:   "al",
	CL:   "cl",
	DL:   "dl",
	BL:   "bl",
	SPL:  "spl",
	BPL:  "bpl",
	SIL:  "sil",
	DIL:  "dil",
	R8B:  "r8b",
	R9B:  "r9b",
	R10B: "r10b",
	R11B: "r11b",
	R12B: "r12b",
	R13B: "r13b",
	R14B: "r14b",
	R15B: "r15b",

	AX:   "ax",
	CX:   "cx",
	DX:   "dx",
	BX:   "bx",
	SP:   "sp",
	BP:   "bp",
	SI:   "si",
	DI:   "di",
	R8W:  "r8w",
	R9W:  "r9w",
	R10W: "r10w",
	R11W: "r11w",
	R12W: "r12w",
	R13W: "r13w",
	R14W: "r14w",
	R15W: "r15w",

	EAX:  "eax",
	ECX:  "ecx",
	EDX:  "edx",
	EBX:  "ebx",
	ESP:  "esp",
	EBP:  "ebp",
	ESI:  "esi",
	EDI:  "edi",
	R8D:  "r8d",
	R9D:  "r9d",
	R10D: "r10d",
	R11D: "r11d",
	R12D: "r12d",
	R13D: "r13d",
	R14D: "r14d",
	R15D: "r15d",

	RAX: "rax",
	RCX: "rcx",
	RDX: "rdx",
	RBX: "rbx",
	RSP: "rsp",
	RBP: "rbp",
	RSI: "rsi",
	RDI: "rdi",
	R8:  "r8",
	R9:  "r9",
	R10: "r10",
	R11: "r11",
	R12: "r12",
	R13: "r13",
	R14: "r14",
	R15: "r15",

	IP:  "ip",
	EIP: "eip",
	RIP: "rip",

	F0: "st0",
	F1: "st1",
	F2: "st2",
	F3: "st3",
	F4: "st4",
	F5: "st5",
	F6: "st6",
	F7: "st7",

	M0: "mm0",
	M1: "mm1",
	M2: "mm2",
	M3: "mm3",
	M4: "mm4",
	M5: "mm5",
	M6: "mm6",
	M7: "mm7",

	X0:  "xmm0",
	X1:  "xmm1",
	X2:  "xmm2",
	X3:  "xmm3",
	X4:  "xmm4",
	X5:  "xmm5",
	X6:  "xmm6",
	X7:  "xmm7",
	X8:  "xmm8",
	X9:  "xmm9",
	X10: "xmm10",
	X11: "xmm11",
	X12: "xmm12",
	X13: "xmm13",
	X14: "xmm14",
	X15: "xmm15",

	Y0:  "ymm0",
	Y1:  "ymm1",
	Y2:  "ymm2",
	Y3:  "ymm3",
	Y4:  "ymm4",
	Y5:  "ymm5",
	Y6:  "ymm6",
	Y7:  "ymm7",
	Y8:  "ymm8",
	Y9:  "ymm9",
	Y10: "ymm10",
	Y11: "ymm11",
	Y12: "ymm12",
	Y13: "ymm13",
	Y14: "ymm14",
	Y15: "ymm15",

	ES: "es",

	CS: "cs",

	SS: "ss",

	DS: "ds",

	FS: "fs",

	GS: "gs",

	CR0:  "cr0",
	CR1:  "cr1",
	CR2:  "cr2",
	CR3:  "cr3",
	CR4:  "cr4",
	CR5:  "cr5",
	CR6:  "cr6",
	CR7:  "cr7",
	CR8:  "cr8",
	CR9:  "cr9",
	CR10: "cr10",
	CR11: "cr11",
	CR12: "cr12",
	CR13: "cr13",
	CR14: "cr14",
	CR15: "cr15",

	DR0:  "dr0",
	DR1:  "dr1",
	DR2:  "dr2",
	DR3:  "dr3",
	DR4:  "dr4",
	DR5:  "dr5",
	DR6:  "dr6",
	DR7:  "dr7",
	DR8:  "dr8",
	DR9:  "dr9",
	DR10: "dr10",
	DR11: "dr11",
	DR12: "dr12",
	DR13: "dr13",
	DR14: "dr14",
	DR15: "dr15",
}

// Get every named register.
func Registers() []Reg {
	regs := make([]Reg, 0, len(regNames))
	for r := range regNames {
		regs = append(regs, r)
	}
	return regs
}
