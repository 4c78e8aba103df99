package x64

import (
	"github.com/wdamron/x64jit/feats"
	. "github.com/wdamron/x64jit/flags"
)

// ImmSize selects the width of an opcode's immediate field.
type ImmSize uint8

const (
	ImmNone ImmSize = 0
	Imm8    ImmSize = 1
	Imm16   ImmSize = 2
	Imm32   ImmSize = 4
	Imm64   ImmSize = 8
	ImmZ    ImmSize = 0x80 // operand size, at most 4 bytes (sign-extended for 64-bit operands)
	ImmV    ImmSize = 0x81 // operand size
)

// Opcode is an encoding record for one instruction form, as produced by an opcode table.
//
// For VEX and XOP records Code[0] is the opcode map select (1 = 0F, 2 = 0F38, 3 = 0F3A,
// 8..10 = XOP maps) and the remaining bytes are the opcode proper. Mandatory prefixes
// are expressed as PREF_* flags, which become VEX.pp for VEX and XOP records.
type Opcode struct {
	Name    string
	Code    [4]byte
	Len     uint8
	Ext     uint8 // Mod-R/M reg digit (/0../7), used when no register occupies the reg field
	Flags   Flag
	Feature feats.Feature
	Imm     ImmSize
	Rel     uint8 // width of a trailing branch displacement (1, 2 or 4), or 0
	Size    uint8 // general-purpose operand size of a record without an AUTO_* size policy
}

func (op *Opcode) bytes() []byte { return op.Code[:op.Len] }

func (op *Opcode) isVex() bool { return op.Flags.Any(VEX_OP | XOP_OP) }

// immWidth resolves the immediate width for a general-purpose operand size.
func (op *Opcode) immWidth(opSize uint8) (uint8, error) {
	switch op.Imm {
	case ImmNone, Imm8, Imm16, Imm32, Imm64:
		return uint8(op.Imm), nil
	case ImmZ:
		if opSize == 0 {
			return 0, ErrOperandSize
		}
		return min(opSize, 4), nil
	case ImmV:
		if opSize == 0 {
			return 0, ErrOperandSize
		}
		return opSize, nil
	}
	return 0, ErrOperandSize
}
