package x64

import (
	"fmt"

	. "github.com/wdamron/x64jit/flags"
)

// ConditionCode is the 4-bit condition field of Jcc, SETcc and CMOVcc.
type ConditionCode byte

const (
	CCOverflow    ConditionCode = 0x0
	CCNoOverflow  ConditionCode = 0x1
	CCUnsignedLT  ConditionCode = 0x2
	CCUnsignedGTE ConditionCode = 0x3
	CCEq          ConditionCode = 0x4
	CCNeq         ConditionCode = 0x5
	CCUnsignedLTE ConditionCode = 0x6
	CCUnsignedGT  ConditionCode = 0x7
	CCSign        ConditionCode = 0x8
	CCNoSign      ConditionCode = 0x9
	CCParity      ConditionCode = 0xA
	CCNoParity    ConditionCode = 0xB
	CCSignedLT    ConditionCode = 0xC
	CCSignedGTE   ConditionCode = 0xD
	CCSignedLTE   ConditionCode = 0xE
	CCSignedGT    ConditionCode = 0xF
)

var ccSuffixes = [16]string{"O", "NO", "B", "AE", "E", "NE", "BE", "A", "S", "NS", "P", "NP", "L", "GE", "LE", "G"}

func (cc ConditionCode) String() string {
	if cc > 0xF {
		return fmt.Sprintf("cc(%d)", byte(cc))
	}
	return ccSuffixes[cc]
}

// Invert a condition code. Conditions come in pairs which differ in the lowest bit.
func Invcc(cc ConditionCode) ConditionCode { return cc ^ 1 }

// Get the short (rel8) conditional-jump record for a condition code.
func JccShort(cc ConditionCode) Opcode {
	return Opcode{Name: "J" + cc.String(), Code: [4]byte{0x70 | byte(cc&0xf)}, Len: 1, Rel: 1}
}

// Get the near (rel32) conditional-jump record for a condition code.
func JccNear(cc ConditionCode) Opcode {
	return Opcode{Name: "J" + cc.String(), Code: [4]byte{0x0f, 0x80 | byte(cc&0xf)}, Len: 2, Rel: 4}
}

// Get the conditional-set record for a condition code. The operand is an 8-bit register or memory.
func Setcc(cc ConditionCode) Opcode {
	return Opcode{Name: "SET" + cc.String(), Code: [4]byte{0x0f, 0x90 | byte(cc&0xf)}, Len: 2, Size: 1}
}

// Get the conditional-move record for a condition code.
func Cmovcc(cc ConditionCode) Opcode {
	return Opcode{Name: "CMOV" + cc.String(), Code: [4]byte{0x0f, 0x40 | byte(cc&0xf)}, Len: 2, Flags: AUTO_SIZE}
}
