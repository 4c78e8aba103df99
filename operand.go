package x64

import "fmt"

// Operand is a register (Reg), an indirect memory reference (Mem) or a branch
// target (Target).
type Operand interface {
	isOperand()
}

var (
	_ Operand = Reg(0)
	_ Operand = Mem{}
	_ Operand = Target{}
)

// Mem is a memory-reference operand: [Seg: Base + Index*Scale + Disp].
//
// Base may be RIP (or EIP) for instruction-relative addressing. The address size is taken
// from the width of the base and index registers; an address size other than the mode's
// default is encoded with the 0x67 prefix. An XMM or YMM index selects vector (VSIB)
// addressing.
//
// Ref, when set, is resolved like a branch target and patched into a 4-byte displacement,
// with Disp added to the resolved value.
type Mem struct {
	Base  Reg
	Index Reg
	Scale uint8 // 1, 2, 4 or 8; 0 means 1
	Disp  int32
	Seg   Reg   // optional segment override
	Width uint8 // operand width in bytes, when no register operand implies it
	Ref   Target
}

func (m Mem) isOperand() {}

func (m Mem) String() string {
	s := "["
	if m.Seg != 0 {
		s = m.Seg.String() + ":["
	}
	sep := ""
	if m.Base != 0 {
		s += m.Base.String()
		sep = "+"
	}
	if m.Index != 0 {
		s += fmt.Sprintf("%s%s*%d", sep, m.Index, max(m.Scale, 1))
		sep = "+"
	}
	if m.Ref.IsValid() {
		s += sep + m.Ref.String()
		sep = "+"
	}
	if m.Disp != 0 || sep == "" {
		s += fmt.Sprintf("%s%#x", sep, m.Disp)
	}
	return s + "]"
}

type targetKind uint8

const (
	targetNone targetKind = iota
	targetLabel
	targetAddr
)

// Target is a label or a bare address referenced by a branch, an immediate or a displacement.
// The zero Target is invalid.
type Target struct {
	kind   targetKind
	label  Label
	addr   uintptr
	addend int32

	// relocation kind; zero selects the natural kind for the referencing field
	reloc    RelocKind
	hasReloc bool
	anchor   Label
}

func (t Target) isOperand() {}

// Addr references an absolute address outside the stream.
func Addr(addr uintptr) Target { return Target{kind: targetAddr, addr: addr} }

// IsValid reports whether t refers to a label or address.
func (t Target) IsValid() bool { return t.kind != targetNone }

// Plus offsets the referenced location by d bytes.
func (t Target) Plus(d int32) Target {
	t.addend += d
	return t
}

// Absolute resolves t to its absolute address instead of a relative displacement.
// Absolute references are only available in protected mode.
func (t Target) Absolute() Target {
	t.reloc, t.hasReloc = Absolute, true
	return t
}

// From resolves t relative to the address of anchor (ExternRelative). In protected mode
// this addresses data through a base register loaded with anchor's address.
func (t Target) From(anchor Label) Target {
	t.reloc, t.hasReloc, t.anchor = ExternRelative, true, anchor
	return t
}

func (t Target) String() string {
	var s string
	switch t.kind {
	case targetLabel:
		s = t.label.String()
	case targetAddr:
		s = fmt.Sprintf("%#x", t.addr)
	default:
		return "<none>"
	}
	if t.addend != 0 {
		s += fmt.Sprintf("%+d", t.addend)
	}
	if t.hasReloc && t.reloc == ExternRelative {
		s += "-" + t.anchor.String()
	}
	return s
}

// Inst is a single instruction request.
//
// Reg is the Mod-R/M reg operand; when it is zero the opcode's Ext digit is encoded instead.
// RM is the Mod-R/M r/m operand (a Reg or Mem), the register folded into the opcode byte for
// SHORT_ARG opcodes, or the Target of a branch or address-valued immediate. V is the VEX/XOP
// vvvv operand and Is4 a register encoded in the upper nibble of the immediate byte.
type Inst struct {
	Op  Opcode
	Reg Reg
	RM  Operand
	V   Reg
	Is4 Reg
	Imm int64
}
