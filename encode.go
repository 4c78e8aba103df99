package x64

import (
	"fmt"

	. "github.com/wdamron/x64jit/flags"
)

const (
	modDirect uint8 = 3
	modNoDisp uint8 = 0
	modDisp8  uint8 = 1
	modDisp32 uint8 = 2 // disp16 with 16-bit addressing
)

const (
	lockPrefix  = 0xf0
	repnePrefix = 0xf2
	repPrefix   = 0xf3
)

// segment override prefixes, indexed by segment register number (ES, CS, SS, DS, FS, GS)
var segPrefixes = [...]byte{0x26, 0x2e, 0x36, 0x3e, 0x64, 0x65}

// fieldRef is an address-valued field written as zeros during encoding. It is handed to the
// resolver once the instruction is complete and its end offset is known.
type fieldRef struct {
	site   int
	size   uint8
	kind   RelocKind
	target Target
}

func modrm(mod, reg, rm uint8) byte { return byte(mod<<6 | (reg&7)<<3 | rm&7) }

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// encode writes a single instruction at the cursor. Address-valued fields are appended to a.refs.
func (a *Assembler) encode(in *Inst) error {
	op := &in.Op
	flags := op.Flags
	buf := &a.buf

	if op.Len == 0 || int(op.Len) > len(op.Code) {
		return fmt.Errorf("%w: opcode record %q has no opcode bytes", ErrOperand, op.Name)
	}
	if a.feats&op.Feature != op.Feature {
		return fmt.Errorf("%w: %s requires %v", ErrFeature, op.Name, op.Feature&^a.feats)
	}
	if flags.Has(X86_ONLY) && a.mode != Protected32 || flags.Has(X64_ONLY) && a.mode != Long64 {
		return fmt.Errorf("%w: %s in %v mode", ErrMode, op.Name, a.mode)
	}
	if !op.isVex() && (in.V != 0 || in.Is4 != 0) {
		return fmt.Errorf("%w: %s has no VEX register operands", ErrOperand, op.Name)
	}

	var (
		rm     Reg
		mem    *Mem
		target Target
	)
	switch v := in.RM.(type) {
	case nil:
	case Reg:
		rm = v
	case Mem:
		mem = &v
	case Target:
		target = v
	default:
		return fmt.Errorf("%w: %T", ErrOperand, in.RM)
	}
	for _, r := range [...]Reg{in.Reg, rm, in.V, in.Is4} {
		if r == 0 {
			continue
		}
		if f := r.Family(); f == RegIP || f == RegSegment {
			return fmt.Errorf("%w: %v is not a register operand", ErrOperand, r)
		}
		if a.mode == Protected32 && r.IsExtended() {
			return fmt.Errorf("%w: %v", ErrNeedsREX, r)
		}
	}

	gp, vec, err := operandSizes(in, rm, mem)
	if err != nil {
		return err
	}
	sp, err := sizePrefixes(op, gp, vec, a.mode)
	if err != nil {
		return err
	}

	var ma memAddr
	if mem != nil {
		if ma, err = sanitizeMem(mem, a.mode); err != nil {
			return err
		}
	}
	prefAddr := flags.Has(PREF_67) || mem != nil && ma.size != a.addrSize()

	// REX bits
	regN, indexN, baseN := in.Reg.Num(), uint8(0), rm.Num()
	if mem != nil {
		indexN, baseN = ma.index.Num(), ma.base.Num()
	}
	needRex := sp.w || (regN|indexN|baseN)&8 != 0
	highByte := false
	for _, r := range [...]Reg{in.Reg, rm} {
		switch {
		case r.needsRex():
			needRex = true
		case r != 0 && r.Family() == RegHighByte:
			highByte = true
		}
	}
	if !op.isVex() {
		if needRex && highByte {
			return ErrHighByteREX
		}
		if needRex && a.mode == Protected32 {
			return fmt.Errorf("%w: %s needs a REX prefix", ErrNeedsREX, op.Name)
		}
	}

	switch a.prefix {
	case lockPrefix:
		if !flags.Has(LOCK) || mem == nil {
			return fmt.Errorf("%w: LOCK with %s", ErrPrefix, op.Name)
		}
	case repPrefix:
		if !flags.Any(REP | REPE) {
			return fmt.Errorf("%w: REP with %s", ErrPrefix, op.Name)
		}
	case repnePrefix:
		if !flags.Has(REPE) {
			return fmt.Errorf("%w: REPNE with %s", ErrPrefix, op.Name)
		}
	}

	immW, err := op.immWidth(gp)
	if err != nil {
		return fmt.Errorf("%w: immediate of %s", err, op.Name)
	}
	signedImm := gp > immW

	code := op.bytes()
	var immOp byte
	if flags.Has(IMM_OP) {
		immOp = code[len(code)-1]
		code = code[:len(code)-1]
	}

	// prefixes
	if a.prefix != 0 {
		buf.Byte(a.prefix)
	}
	if mem != nil && mem.Seg != 0 {
		if int(mem.Seg.Num()) >= len(segPrefixes) {
			return fmt.Errorf("%w: %v", ErrOperand, mem.Seg)
		}
		buf.Byte(segPrefixes[mem.Seg.Num()])
	}
	if prefAddr {
		buf.Byte(0x67)
	}
	if op.isVex() {
		if len(code) < 2 {
			return fmt.Errorf("%w: opcode record %q lacks a map select", ErrOperand, op.Name)
		}
		a.emitVexXop(op, regN, indexN, baseN, in.V, sp)
		code = code[1:]
	} else {
		switch {
		case flags.Has(PREF_F0):
			buf.Byte(0xf0)
		case flags.Has(PREF_F2):
			buf.Byte(0xf2)
		case flags.Has(PREF_F3):
			buf.Byte(0xf3)
		}
		if sp.opsize {
			buf.Byte(0x66)
		}
		if needRex {
			buf.Byte(0x40 | b2u(sp.w)<<3 | (regN&8)>>1 | (indexN&8)>>2 | (baseN&8)>>3)
		}
	}

	// opcode, with the register folded into the last byte for SHORT_ARG
	if flags.Has(SHORT_ARG) {
		if rm == 0 {
			return fmt.Errorf("%w: %s needs a register operand", ErrOperand, op.Name)
		}
		last := code[len(code)-1]
		buf.Bytes(code[:len(code)-1])
		buf.Byte(last + rm.Num()&7)
	} else {
		buf.Bytes(code)
	}

	reg := op.Ext
	if in.Reg != 0 {
		reg = regN
	}
	switch {
	case flags.Has(SHORT_ARG):
	case rm != 0:
		buf.Byte(modrm(modDirect, reg, rm.Num()))
	case mem != nil:
		if err := a.emitMem(reg, mem, &ma); err != nil {
			return err
		}
	}

	if flags.Has(IMM_OP) {
		buf.Byte(immOp)
	}

	// a register in the immediate byte is merged with an 8-bit immediate
	if in.Is4 != 0 {
		b := in.Is4.Num() << 4
		if immW == 1 {
			b |= uint8(in.Imm) & 0xf
			immW = 0
		}
		buf.Byte(b)
	}

	switch {
	case target.IsValid() && op.Rel > 0:
		a.addRef(target, op.Rel, Relative)
	case target.IsValid() && immW > 0:
		a.addRef(target, immW, Absolute)
		immW = 0
	case target.IsValid():
		return fmt.Errorf("%w: %s takes no target", ErrOperand, op.Name)
	case op.Rel > 0:
		return fmt.Errorf("%w: %s needs a target", ErrOperand, op.Name)
	}

	if immW > 0 {
		if !fits(in.Imm, immW, true) && (signedImm || !fits(in.Imm, immW, false)) {
			return fmt.Errorf("%w: %d in %d bytes", ErrImmediate, in.Imm, immW)
		}
		buf.Int(in.Imm, immW)
	}
	return nil
}

func (a *Assembler) addrSize() uint8 {
	if a.mode == Protected32 {
		return 4
	}
	return 8
}

// addRef writes a zero field of size bytes for t. The natural kind applies unless t selects one.
func (a *Assembler) addRef(t Target, size uint8, natural RelocKind) {
	kind := natural
	if t.hasReloc {
		kind = t.reloc
	}
	a.refs = append(a.refs, fieldRef{site: a.buf.i, size: size, kind: kind, target: t})
	a.buf.Int(0, size)
}

func (a *Assembler) emitVexXop(op *Opcode, regN, indexN, baseN uint8, v Reg, sp sizePrefix) {
	var pp uint8
	switch {
	case sp.opsize:
		pp = 1
	case op.Flags.Has(PREF_F3):
		pp = 2
	case op.Flags.Has(PREF_F2):
		pp = 3
	}
	// map_sel is stored in the first byte of the opcode
	mapSel := op.Code[0]
	b1 := mapSel&0x1f | (^regN&8)<<4 | (^indexN&8)<<3 | (^baseN&8)<<2
	b2 := pp | b2u(sp.w)<<7 | (^v.Num()&0xf)<<3 | b2u(sp.l)<<2

	if op.Flags.Has(VEX_OP) && b1&0x7f == 0x61 && b2&0x80 == 0 {
		// 2-byte vex
		a.buf.Byte2(0xc5, b1&0x80|b2&0x7f)
		return
	}
	if op.Flags.Has(VEX_OP) {
		a.buf.Byte(0xc4)
	} else {
		a.buf.Byte(0x8f)
	}
	a.buf.Byte2(b1, b2)
}

// emitMem writes Mod-R/M, SIB and displacement for a sanitized memory operand.
func (a *Assembler) emitMem(reg uint8, m *Mem, ma *memAddr) error {
	buf := &a.buf
	hasRef := m.Ref.IsValid()

	switch {
	case ma.size == 2:
		return a.emitMem16(reg, m, ma)

	case ma.rip:
		buf.Byte(modrm(modNoDisp, reg, 5))
		switch {
		case hasRef && a.mode == Long64:
			a.addRef(m.Ref.Plus(m.Disp), 4, Relative)
		case hasRef:
			// no EIP-relative form outside long mode: the field holds the absolute address
			a.addRef(m.Ref.Plus(m.Disp), 4, Absolute)
		case a.mode == Protected32:
			return fmt.Errorf("%w: EIP-relative addressing in protected mode needs a target", ErrOperand)
		default:
			buf.Int32(m.Disp)
		}
		return nil

	case ma.base == 0:
		// no base: a 4-byte displacement is always present
		switch {
		case ma.index != 0:
			buf.Byte2(modrm(modNoDisp, reg, 4), modrm(ma.scale, ma.index.Num(), 5))
		case a.mode == Protected32:
			buf.Byte(modrm(modNoDisp, reg, 5))
		default:
			// mod 00 r/m 101 is RIP-relative in long mode, so escape through SIB
			buf.Byte2(modrm(modNoDisp, reg, 4), modrm(0, 4, 5))
		}
		a.disp32(m)
		return nil
	}

	base := ma.base.Num()
	var mod uint8
	switch {
	case hasRef:
		mod = modDisp32
	case m.Disp == 0 && base&7 != 5:
		mod = modNoDisp
	case m.Disp >= -128 && m.Disp <= 127:
		// RBP and R13 can only be encoded as base with a displacement
		mod = modDisp8
	default:
		mod = modDisp32
	}

	if ma.index != 0 || base&7 == 4 {
		// index 100 is "no index" for RSP/R12 bases
		index := uint8(4)
		if ma.index != 0 {
			index = ma.index.Num()
		}
		buf.Byte2(modrm(mod, reg, 4), modrm(ma.scale, index, base))
	} else {
		buf.Byte(modrm(mod, reg, base))
	}

	switch mod {
	case modDisp8:
		buf.Int8(int8(m.Disp))
	case modDisp32:
		a.disp32(m)
	}
	return nil
}

// disp32 writes a 4-byte displacement, or an absolute field for the memory operand's Ref.
// Long mode has no absolute 4-byte relocations, so there Ref requires RIP-relative addressing.
func (a *Assembler) disp32(m *Mem) {
	if m.Ref.IsValid() {
		a.addRef(m.Ref.Plus(m.Disp), 4, Absolute)
	} else {
		a.buf.Int32(m.Disp)
	}
}

func (a *Assembler) emitMem16(reg uint8, m *Mem, ma *memAddr) error {
	buf := &a.buf
	if m.Disp < -32768 || m.Disp > 65535 {
		return fmt.Errorf("%w: displacement %d exceeds 16 bits", ErrOperand, m.Disp)
	}
	disp16 := func() {
		if m.Ref.IsValid() {
			a.addRef(m.Ref.Plus(m.Disp), 2, Absolute)
		} else {
			buf.Int16(int16(m.Disp))
		}
	}

	var mod uint8
	switch {
	case m.Ref.IsValid():
		mod = modDisp32
	case m.Disp == 0 && ma.rm16 != rm16BP:
		mod = modNoDisp
	case m.Disp >= -128 && m.Disp <= 127:
		// [BP] can only be encoded with a displacement
		mod = modDisp8
	default:
		mod = modDisp32
	}
	buf.Byte(modrm(mod, reg, ma.rm16))
	switch mod {
	case modDisp8:
		buf.Int8(int8(m.Disp))
	case modDisp32:
		disp16()
	}
	return nil
}
