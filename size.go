package x64

import (
	"fmt"

	. "github.com/wdamron/x64jit/flags"
)

// operandSizes infers the general-purpose and vector operand sizes of an instruction from its
// register operands and the width of its memory operand. Operands of the same class must agree.
func operandSizes(in *Inst, rm Reg, mem *Mem) (gp, vec uint8, err error) {
	set := func(dst *uint8, w uint8) error {
		if *dst != 0 && *dst != w {
			return fmt.Errorf("%w: %d-byte and %d-byte operands", ErrOperandSize, *dst, w)
		}
		*dst = w
		return nil
	}
	for _, r := range [...]Reg{in.Reg, rm, in.V, in.Is4} {
		switch {
		case r.isGeneral():
			err = set(&gp, r.Width())
		case r.isVector():
			err = set(&vec, r.Width())
		}
		if err != nil {
			return 0, 0, err
		}
	}
	if mem != nil && mem.Width != 0 {
		if vec != 0 || in.Op.Flags.Has(AUTO_VEXL) {
			err = set(&vec, mem.Width)
		} else {
			err = set(&gp, mem.Width)
		}
	}
	return gp, vec, err
}

// sizePrefix is the set of size-selecting prefix bits an instruction needs.
type sizePrefix struct {
	opsize bool // 0x66
	w      bool // REX.W, VEX.W or XOP.W
	l      bool // VEX.L or XOP.L
}

// sizePrefixes applies the opcode's size policy to the inferred operand sizes.
func sizePrefixes(op *Opcode, gp, vec uint8, mode Mode) (sizePrefix, error) {
	var p sizePrefix
	f := op.Flags
	bad := func(size uint8) error {
		return fmt.Errorf("%w: %d-byte operand for %s in %v mode", ErrOperandSize, size, op.Name, mode)
	}

	if gp == 8 && mode == Protected32 {
		return p, bad(gp)
	}
	if op.Size != 0 && gp != 0 && gp != op.Size {
		return p, bad(gp)
	}

	switch {
	case f.Has(AUTO_SIZE):
		switch gp {
		case 2:
			p.opsize = true
		case 4:
		case 8:
			if mode == Protected32 {
				return p, bad(gp)
			}
			p.w = true
		default:
			return p, bad(gp)
		}
	case f.Has(AUTO_NO32):
		switch {
		case gp == 2:
			p.opsize = true
		case gp == 0, gp == 8 && mode == Long64, gp == 4 && mode == Protected32:
		default:
			return p, bad(gp)
		}
	case f.Has(AUTO_REXW):
		switch gp {
		case 4:
		case 8:
			p.w = true
		default:
			return p, bad(gp)
		}
	case f.Has(AUTO_VEXL):
		switch vec {
		case 16:
		case 32:
			p.l = true
		default:
			return p, bad(vec)
		}
	default:
		if gp != 0 && op.Size == 0 {
			return p, bad(gp)
		}
	}

	if f.Any(WORD_SIZE | PREF_66) {
		p.opsize = true
	}
	if f.Has(WITH_REXW) {
		p.w = true
	}
	if f.Has(WITH_VEXL) {
		p.l = true
	}
	return p, nil
}
