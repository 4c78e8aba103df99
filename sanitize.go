package x64

import (
	"fmt"
	"math/bits"
)

// memAddr is a memory operand which has been checked to be encodable.
type memAddr struct {
	size  uint8 // address size in bytes
	base  Reg
	index Reg
	scale uint8 // SIB scale field (log2 of the scale factor)
	rip   bool
	vsib  bool
	rm16  uint8 // Mod-R/M r/m for 16-bit addressing
}

// 16-bit addressing encodes a fixed set of base/index pairs in Mod-R/M r/m.
// Keys are sets of register numbers: BX = 3, BP = 5, SI = 6, DI = 7.
const (
	set16BX = 1 << 3
	set16BP = 1 << 5
	set16SI = 1 << 6
	set16DI = 1 << 7
)

var rm16Table = map[uint8]uint8{
	set16BX | set16SI: 0, // [BX+SI]
	set16BX | set16DI: 1, // [BX+DI]
	set16BP | set16SI: 2, // [BP+SI]
	set16BP | set16DI: 3, // [BP+DI]
	set16SI:           4, // [SI]
	set16DI:           5, // [DI]
	set16BP:           rm16BP,
	set16BX:           7, // [BX]
}

// [BP] with mod 00 means a disp16 without a base
const rm16BP = 6

// sanitizeMem validates the base/index combination of m for mode and returns its encoding
// parameters. Combinations which cannot be encoded are errors; nothing is rewritten.
func sanitizeMem(m *Mem, mode Mode) (memAddr, error) {
	var a memAddr
	b, i := m.Base, m.Index

	scale := m.Scale
	if scale == 0 {
		scale = 1
	}
	if scale&(scale-1) != 0 || scale > 8 || (i == 0 && scale != 1) {
		return a, fmt.Errorf("%w: scale %d", ErrScale, m.Scale)
	}
	if m.Seg != 0 && m.Seg.Family() != RegSegment {
		return a, fmt.Errorf("%w: %v is not a segment register", ErrOperand, m.Seg)
	}
	if b != 0 && b.Family() != RegLegacy && b.Family() != RegIP {
		return a, fmt.Errorf("%w: %v cannot be a base register", ErrOperand, b)
	}
	if i != 0 {
		switch i.Family() {
		case RegLegacy:
		case RegXMM, RegYMM:
			a.vsib = true
		default:
			return a, fmt.Errorf("%w: %v cannot be an index register", ErrOperand, i)
		}
	}
	if mode == Protected32 && (b.IsExtended() || i.IsExtended()) {
		return a, ErrNeedsREX
	}

	switch {
	case b != 0:
		a.size = b.Width()
	case i != 0 && !a.vsib:
		a.size = i.Width()
	case mode == Protected32:
		a.size = 4
	default:
		a.size = 8
	}
	if b != 0 && i != 0 && !a.vsib && b.Width() != i.Width() {
		return a, fmt.Errorf("%w: %v and %v", ErrAddrWidth, b, i)
	}
	switch {
	case mode == Long64 && a.size != 8 && a.size != 4,
		mode == Protected32 && a.size != 4 && a.size != 2:
		return a, fmt.Errorf("%w: %d-bit addressing in %v mode", ErrAddrSize, a.size*8, mode)
	}

	if b.Family() == RegIP && b != 0 {
		if i != 0 {
			return a, fmt.Errorf("%w: instruction-relative addressing takes no index", ErrOperand)
		}
		if a.size == 2 {
			return a, fmt.Errorf("%w: no 16-bit instruction-relative addressing", ErrAddrSize)
		}
		a.rip = true
		return a, nil
	}

	if a.size == 2 {
		return sanitizeMem16(a, b, i, scale)
	}

	// index 100 means "no index", so RSP/ESP cannot be encoded as one (R12 can, via REX.X)
	if i != 0 && !a.vsib && i.Num() == 4 {
		return a, ErrRSPIndex
	}
	a.base, a.index, a.scale = b, i, uint8(bits.TrailingZeros8(scale))
	return a, nil
}

func sanitizeMem16(a memAddr, b, i Reg, scale uint8) (memAddr, error) {
	if a.vsib || scale != 1 {
		return a, fmt.Errorf("%w: no scaled or vector index", ErrAddr16)
	}
	if b == i {
		return a, fmt.Errorf("%w: [%v+%v]", ErrAddr16, b, i)
	}
	var set uint8
	for _, r := range [...]Reg{b, i} {
		if r != 0 {
			set |= 1 << r.Num()
		}
	}
	rm, ok := rm16Table[set]
	if !ok {
		return a, fmt.Errorf("%w: [%v+%v]", ErrAddr16, b, i)
	}
	a.base, a.rm16 = b, rm
	if b == 0 {
		a.base = i
	}
	return a, nil
}
