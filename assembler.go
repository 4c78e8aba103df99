package x64

import (
	"errors"
	"fmt"

	. "github.com/wdamron/x64jit/feats"
	. "github.com/wdamron/x64jit/flags"
)

type config struct {
	mode       Mode
	feats      Feature
	start, end int
	bounded    bool
}

// Option configures Open.
type Option func(*config)

// WithMode selects the addressing mode. The default is Long64.
func WithMode(m Mode) Option { return func(c *config) { c.mode = m } }

// WithFeatures restricts the CPU features opcode records may require. The default is AllFeatures.
func WithFeatures(f Feature) Option { return func(c *config) { c.feats = f } }

// WithBounds restricts the stream to the bytes [start, end) of the region.
func WithBounds(start, end int) Option {
	return func(c *config) { c.start, c.end, c.bounded = start, end, true }
}

// An Assembler encodes instructions into a writable Region. Label references to bound labels and
// bare addresses are patched as they are emitted; Finish patches the rest and makes the region
// executable.
//
// The first error is sticky: once an emission fails, every later call returns the same error,
// except for capacity errors which can be recovered from with Grow.
type Assembler struct {
	region *Region
	buf    buffer
	res    resolver
	mode   Mode
	feats  Feature

	prefix byte // prefix for the current instruction (LOCK, REP, etc...)
	err    error
	done   bool

	bookmark resolverMark
	marked   bool

	refs  []fieldRef
	_refs [2]fieldRef
}

// Result summarizes a finished stream.
type Result struct {
	Len   int   // bytes emitted
	Hints Hints // table sizes fitting this stream
}

// Open starts a stream at the beginning of r, making r writable if it is not yet.
// An executable region cannot be reopened.
func Open(r *Region, hints Hints, opts ...Option) (*Assembler, error) {
	cfg := config{mode: Long64, feats: AllFeatures}
	for _, opt := range opts {
		opt(&cfg)
	}
	if r == nil || r.mem == nil {
		return nil, ErrClosed
	}
	if cfg.mode != Long64 && cfg.mode != Protected32 {
		return nil, fmt.Errorf("%w: %v", ErrMode, cfg.mode)
	}
	if !cfg.bounded {
		cfg.start, cfg.end = 0, r.Len()
	}
	if cfg.start < 0 || cfg.start > cfg.end || cfg.end > r.Len() {
		return nil, fmt.Errorf("x64: bounds [%d, %d) outside region of %d bytes", cfg.start, cfg.end, r.Len())
	}
	if err := r.MakeWritable(); err != nil {
		return nil, err
	}

	hints = hints.Normalize()
	a := &Assembler{
		region: r,
		buf:    newBuffer(r, cfg.start, cfg.end),
		res:    newResolver(cfg.mode, hints),
		mode:   cfg.mode,
		feats:  cfg.feats,
	}
	a.refs = a._refs[:0]
	lg().Debug("x64: stream opened", "mode", cfg.mode, "start", cfg.start, "end", cfg.end)
	return a, nil
}

// Get the first error which occured while encoding or finishing the stream.
func (a *Assembler) Err() error { return a.err }

// Get the addressing mode of the stream.
func (a *Assembler) Mode() Mode { return a.mode }

// Get the current, allowable CPU feature-set.
//
// See package x64jit/feats for all available CPU features.
func (a *Assembler) Features() Feature { return a.feats }

// Restrict the allowable CPU feature-set. This will not affect instructions which have already
// been encoded.
func (a *Assembler) SetFeatures(enabledFeatures Feature) { a.feats = enabledFeatures }

// Get the current offset of the stream, relative to the start of the region.
func (a *Assembler) Offset() int { return a.buf.i }

// Get the bytes emitted so far. The slice aliases the region and must not be retained past Finish.
func (a *Assembler) Code() []byte { return a.buf.Get() }

// Get the address of the current offset. Code emitted from here on can be called through this
// address once the stream is finished; calling it earlier is undefined.
func (a *Assembler) Entry() uintptr { return a.region.Base() + uintptr(a.buf.i) }

// Get the number of relocations waiting for a label to be bound.
func (a *Assembler) Pending() int { return a.res.pending() }

func (a *Assembler) usable() error {
	if a.done {
		return ErrFinished
	}
	if a.region.Perm() != PermWrite {
		return ErrNotWritable
	}
	return a.err
}

// fail records err as the sticky error, unless it is a capacity error.
func (a *Assembler) fail(err error) error {
	var ce *CapacityError
	if !errors.As(err, &ce) {
		a.err = err
	}
	return err
}

// raw runs a data write, reporting a capacity error without making it sticky.
func (a *Assembler) raw(write func(b *buffer)) error {
	if err := a.usable(); err != nil {
		return err
	}
	start := a.buf.i
	write(&a.buf)
	if err := a.buf.err; err != nil {
		a.buf.truncate(start)
		return a.fail(err)
	}
	return nil
}

// Emit encodes a single instruction. If encoding fails nothing is written, labels and
// relocations are left as they were, and an *EncodeError is returned.
func (a *Assembler) Emit(in Inst) error {
	if err := a.usable(); err != nil {
		return err
	}
	start, mark := a.buf.i, a.res.mark()
	a.refs = a.refs[:0]

	err := a.encode(&in)
	a.prefix = 0
	if err == nil {
		err = a.buf.err
	}
	if err == nil {
		base := a.region.Base()
		end := a.buf.i
		for _, f := range a.refs {
			rl := reloc{
				Relocation: Relocation{Offset: uint8(end - f.site), Size: f.size, Kind: f.kind, Mode: a.mode},
				site:       f.site,
				target:     f.target,
			}
			if err = a.res.reference(&a.buf, base, rl); err != nil {
				break
			}
		}
	}
	if err != nil {
		a.buf.truncate(start)
		a.res.rewind(mark)
		return a.fail(&EncodeError{Op: in.Op.Name, Offset: start, Err: err})
	}
	return nil
}

// Encode an instruction without operands.
func (a *Assembler) Op(op Opcode) error { return a.Emit(Inst{Op: op}) }

// Encode an instruction with a single register or memory operand (Mod-R/M r/m, or the register
// folded into the opcode for SHORT_ARG records).
func (a *Assembler) R(op Opcode, r Reg) error { return a.Emit(Inst{Op: op, RM: r}) }

// Encode an instruction with a single memory operand.
func (a *Assembler) M(op Opcode, m Mem) error { return a.Emit(Inst{Op: op, RM: m}) }

// Encode an instruction with a register destination and register source. ENC_MR records
// encode dst in Mod-R/M r/m and src in reg; other records encode dst in reg.
func (a *Assembler) RR(op Opcode, dst, src Reg) error {
	if op.Flags.Has(ENC_MR) {
		return a.Emit(Inst{Op: op, Reg: src, RM: dst})
	}
	return a.Emit(Inst{Op: op, Reg: dst, RM: src})
}

// Encode an instruction with a register destination and memory source.
func (a *Assembler) RM(op Opcode, dst Reg, src Mem) error {
	return a.Emit(Inst{Op: op, Reg: dst, RM: src})
}

// Encode an instruction with a memory destination and register source.
func (a *Assembler) MR(op Opcode, dst Mem, src Reg) error {
	return a.Emit(Inst{Op: op, Reg: src, RM: dst})
}

// Encode an instruction with a register destination and an immediate.
func (a *Assembler) RI(op Opcode, dst Reg, imm int64) error {
	return a.Emit(Inst{Op: op, RM: dst, Imm: imm})
}

// Encode an instruction with a memory destination and an immediate.
func (a *Assembler) MI(op Opcode, dst Mem, imm int64) error {
	return a.Emit(Inst{Op: op, RM: dst, Imm: imm})
}

// Encode a VEX/XOP instruction with a destination, a vvvv source and an r/m source.
func (a *Assembler) RRR(op Opcode, dst, v, src Reg) error {
	return a.Emit(Inst{Op: op, Reg: dst, V: v, RM: src})
}

// Encode a VEX/XOP instruction with a destination, a vvvv source and a memory source.
func (a *Assembler) RRM(op Opcode, dst, v Reg, src Mem) error {
	return a.Emit(Inst{Op: op, Reg: dst, V: v, RM: src})
}

// Encode a VEX/XOP instruction with three register operands and an immediate.
func (a *Assembler) RRRI(op Opcode, dst, v, src Reg, imm int64) error {
	return a.Emit(Inst{Op: op, Reg: dst, V: v, RM: src, Imm: imm})
}

// Encode a branch or an address-valued immediate referencing t.
func (a *Assembler) Jump(op Opcode, t Target) error { return a.Emit(Inst{Op: op, RM: t}) }

// Encode a near conditional jump to t.
func (a *Assembler) Jcc(cc ConditionCode, t Target) error { return a.Jump(JccNear(cc), t) }

// JumpAuto encodes the short form of a branch when t is resolvable and in range, and the near
// form otherwise. A short branch to an unbound label is never emitted.
func (a *Assembler) JumpAuto(short, near Opcode, t Target) error {
	if err := a.usable(); err != nil {
		return err
	}
	ok, err := a.res.ready(t)
	if err != nil {
		return a.fail(&EncodeError{Op: short.Name, Offset: a.buf.i, Err: err})
	}
	if ok {
		saved := a.err
		err := a.Emit(Inst{Op: short, RM: t})
		var re *RangeError
		if !errors.As(err, &re) {
			return err
		}
		a.err = saved
	}
	return a.Emit(Inst{Op: near, RM: t})
}

func (a *Assembler) withPrefix(prefix byte, in Inst) error {
	a.prefix = prefix
	err := a.Emit(in)
	a.prefix = 0
	return err
}

// Encode in with a LOCK prefix. The record must allow LOCK and take a memory destination.
func (a *Assembler) Lock(in Inst) error { return a.withPrefix(lockPrefix, in) }

// Encode in with a REP (or REPE) prefix.
func (a *Assembler) Rep(in Inst) error { return a.withPrefix(repPrefix, in) }

// Encode in with a REPNE prefix.
func (a *Assembler) Repne(in Inst) error { return a.withPrefix(repnePrefix, in) }

// Write raw data to the stream.
func (a *Assembler) Raw(data []byte) error { return a.raw(func(b *buffer) { b.Bytes(data) }) }

// Write a raw byte to the stream.
func (a *Assembler) RawByte(v byte) error { return a.raw(func(b *buffer) { b.Byte(v) }) }

// Write a raw 16-bit integer to the stream.
func (a *Assembler) Raw16(v int16) error { return a.raw(func(b *buffer) { b.Int16(v) }) }

// Write a raw 32-bit integer to the stream.
func (a *Assembler) Raw32(v int32) error { return a.raw(func(b *buffer) { b.Int32(v) }) }

// Write a raw 64-bit integer to the stream.
func (a *Assembler) Raw64(v int64) error { return a.raw(func(b *buffer) { b.Int64(v) }) }

// Write a raw 128-bit integer to the stream, low half first.
func (a *Assembler) Raw128(lo, hi uint64) error { return a.raw(func(b *buffer) { b.Int128(lo, hi) }) }

// Advance the stream by n bytes without writing them.
func (a *Assembler) Skip(n int) error {
	if n < 0 {
		return fmt.Errorf("x64: negative skip %d", n)
	}
	return a.raw(func(b *buffer) { b.Skip(n) })
}

// Encode length bytes of NOP instructions.
func (a *Assembler) Nop(length int) error { return a.raw(func(b *buffer) { b.Nop(length) }) }

// Align the offset to a power of 2 no larger than 64, padding with as few NOPs as possible.
func (a *Assembler) AlignTo(n int) error {
	if err := a.usable(); err != nil {
		return err
	}
	if n <= 0 || n > maxAlign || n&(n-1) != 0 {
		return fmt.Errorf("%w: %d", ErrAlign, n)
	}
	return a.raw(func(b *buffer) { b.AlignTo(n) })
}

// Create a new, unbound label.
func (a *Assembler) NewLabel() Label { return a.res.newLabel() }

// Bind the label to the current offset.
func (a *Assembler) Bind(l Label) error { return a.BindAt(l, a.buf.i) }

// Bind the label to an explicit offset within the stream.
func (a *Assembler) BindAt(l Label, off int) error {
	if err := a.usable(); err != nil {
		return err
	}
	if off < a.buf.start || off > a.buf.end {
		return fmt.Errorf("%w: offset %d outside [%d, %d]", ErrOperand, off, a.buf.start, a.buf.end)
	}
	if err := a.res.bind(l, off); err != nil {
		return a.fail(err)
	}
	return nil
}

// Get the offset a label is bound to.
func (a *Assembler) LabelOffset(l Label) (int, bool) { return a.res.offset(l) }

// Bookmark records the current offset, labels and relocations. Rewind returns to it.
func (a *Assembler) Bookmark() {
	a.buf.storeBookmark()
	a.bookmark, a.marked = a.res.mark(), true
}

// Rewind discards everything emitted since the last Bookmark: bytes are zeroed, labels bound
// since are unbound and relocations recorded since are dropped. A sticky error is cleared.
func (a *Assembler) Rewind() error {
	if a.done {
		return ErrFinished
	}
	if a.region.Perm() != PermWrite {
		return ErrNotWritable
	}
	if !a.marked || !a.buf.resetToBookmark() {
		return ErrNoBookmark
	}
	a.res.rewind(a.bookmark)
	a.marked = false
	a.err = nil
	return nil
}

// Grow doubles the region in place. A stream which ended at the region's end is extended
// to its new end.
func (a *Assembler) Grow() error {
	if err := a.usable(); err != nil {
		return err
	}
	if err := a.region.Grow(); err != nil {
		return err
	}
	end := a.buf.end
	if end == len(a.buf.b) {
		end = a.region.Len()
	}
	a.buf.remap(end)
	return nil
}

// Finish patches every pending relocation and makes the region executable. If any label is
// still unbound, or a patched value is out of range, the region stays writable and the joined
// errors are returned.
func (a *Assembler) Finish() (Result, error) {
	if err := a.usable(); err != nil {
		return Result{}, err
	}
	if err := a.res.finish(&a.buf, a.region.Base()); err != nil {
		return Result{}, a.fail(err)
	}
	if err := a.region.MakeExecutable(); err != nil {
		return Result{}, a.fail(err)
	}
	a.done = true

	res := Result{
		Len: a.buf.Len(),
		Hints: Hints{
			ExpectedLabels:     len(a.res.labels),
			ExpectedShortJumps: len(a.res.short),
			ExpectedLongJumps:  len(a.res.long),
		}.Normalize(),
	}
	lg().Debug("x64: stream finished", "len", res.Len, "labels", len(a.res.labels), "pending", a.res.pending())
	return res, nil
}
