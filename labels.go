package x64

import (
	"errors"
	"fmt"
)

// Mode selects the addressing rules used for encoding.
type Mode uint8

const (
	Long64      Mode = iota // 64-bit long mode
	Protected32             // 32-bit protected mode
)

func (m Mode) String() string {
	switch m {
	case Long64:
		return "long64"
	case Protected32:
		return "protected32"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Bits returns the decoder mode for m (64 or 32).
func (m Mode) Bits() int {
	if m == Protected32 {
		return 32
	}
	return 64
}

// RelocKind selects how a referenced address is turned into a field value.
type RelocKind uint8

const (
	Relative       RelocKind = iota // target - end of the referencing instruction
	Absolute                        // target
	ExternRelative                  // target - address of an anchor label
)

func (k RelocKind) String() string {
	switch k {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	case ExternRelative:
		return "extern-relative"
	}
	return fmt.Sprintf("reloc(%d)", uint8(k))
}

// Relocation describes a field to be patched with a resolved address. Offset counts the bytes
// from the start of the field to the end of the referencing instruction.
type Relocation struct {
	Offset uint8
	Size   uint8
	Kind   RelocKind
	Mode   Mode
}

// checkRelocation rejects the kind and width combinations a mode cannot express.
func checkRelocation(kind RelocKind, size uint8, mode Mode) error {
	ok := false
	switch mode {
	case Long64:
		ok = kind == Relative && (size == 1 || size == 2 || size == 4 || size == 8)
	case Protected32:
		ok = kind <= ExternRelative && (size == 1 || size == 2 || size == 4)
	}
	if !ok {
		return &RelocationError{Kind: kind, Size: size, Mode: mode}
	}
	return nil
}

// Label is a handle to a code location which is bound at most once. The zero Label is invalid.
type Label uint32

func (l Label) String() string { return fmt.Sprintf("L%d", uint32(l)) }

// Target references the label's location.
func (l Label) Target() Target { return Target{kind: targetLabel, label: l} }

type labelSlot struct {
	off   int
	bound bool
}

type reloc struct {
	Relocation
	site   int // offset of the field
	target Target
}

func (r *reloc) end() int { return r.site + int(r.Offset) }

// resolver tracks labels and the relocations which still wait for one.
type resolver struct {
	mode   Mode
	labels []labelSlot // labels[l-1]
	binds  []Label     // bind order, for rewinding
	short  []reloc     // pending 1-byte relocations
	long   []reloc     // pending wider relocations
}

func newResolver(mode Mode, h Hints) resolver {
	return resolver{
		mode:   mode,
		labels: make([]labelSlot, 0, h.ExpectedLabels),
		binds:  make([]Label, 0, h.ExpectedLabels),
		short:  make([]reloc, 0, h.ExpectedShortJumps),
		long:   make([]reloc, 0, h.ExpectedLongJumps),
	}
}

func (r *resolver) newLabel() Label {
	r.labels = append(r.labels, labelSlot{})
	return Label(len(r.labels))
}

func (r *resolver) slot(l Label) (*labelSlot, error) {
	if l == 0 || int(l) > len(r.labels) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownLabel, l)
	}
	return &r.labels[l-1], nil
}

func (r *resolver) bind(l Label, off int) error {
	s, err := r.slot(l)
	if err != nil {
		return err
	}
	if s.bound {
		return fmt.Errorf("%w: %v at offset %d", ErrLabelRebound, l, s.off)
	}
	s.off, s.bound = off, true
	r.binds = append(r.binds, l)
	return nil
}

func (r *resolver) offset(l Label) (int, bool) {
	s, err := r.slot(l)
	if err != nil || !s.bound {
		return 0, false
	}
	return s.off, true
}

type resolverMark struct {
	binds, short, long int
}

func (r *resolver) mark() resolverMark {
	return resolverMark{len(r.binds), len(r.short), len(r.long)}
}

// rewind unbinds labels and drops relocations recorded after m.
func (r *resolver) rewind(m resolverMark) {
	for _, l := range r.binds[m.binds:] {
		r.labels[l-1] = labelSlot{}
	}
	r.binds = r.binds[:m.binds]
	r.short = r.short[:m.short]
	r.long = r.long[:m.long]
}

func (r *resolver) pending() int { return len(r.short) + len(r.long) }

// ready reports whether every label t depends on is bound.
func (r *resolver) ready(t Target) (bool, error) {
	if t.kind == targetLabel {
		s, err := r.slot(t.label)
		if err != nil {
			return false, err
		}
		if !s.bound {
			return false, nil
		}
	}
	if t.hasReloc && t.reloc == ExternRelative {
		s, err := r.slot(t.anchor)
		if err != nil {
			return false, err
		}
		return s.bound, nil
	}
	return true, nil
}

// reference patches the field at once when t is resolvable, and records a pending
// relocation otherwise.
func (r *resolver) reference(buf *buffer, base uintptr, rl reloc) error {
	if err := checkRelocation(rl.Kind, rl.Size, rl.Mode); err != nil {
		return err
	}
	if !rl.target.IsValid() {
		return fmt.Errorf("%w: empty target", ErrOperand)
	}
	ok, err := r.ready(rl.target)
	if err != nil {
		return err
	}
	if ok {
		return r.patch(buf, base, &rl)
	}
	if rl.Size == 1 {
		r.short = append(r.short, rl)
	} else {
		r.long = append(r.long, rl)
	}
	return nil
}

// address returns the absolute address of a resolvable target.
func (r *resolver) address(base uintptr, t Target) int64 {
	var a int64
	if t.kind == targetLabel {
		a = int64(base) + int64(r.labels[t.label-1].off)
	} else {
		a = int64(t.addr)
	}
	return a + int64(t.addend)
}

func (r *resolver) patch(buf *buffer, base uintptr, rl *reloc) error {
	target := r.address(base, rl.target)
	var v int64
	switch rl.Kind {
	case Relative:
		v = target - (int64(base) + int64(rl.end()))
	case Absolute:
		v = target
	case ExternRelative:
		v = target - (int64(base) + int64(r.labels[rl.target.anchor-1].off))
	}
	if !fits(v, rl.Size, rl.Kind != Absolute) {
		return &RangeError{Site: rl.site, Size: rl.Size, Kind: rl.Kind, Value: v}
	}
	buf.patch(rl.site, rl.Size, v)
	return nil
}

// finish patches every pending relocation. Undefined labels and out-of-range values are
// all reported, joined into one error.
func (r *resolver) finish(buf *buffer, base uintptr) error {
	var errs []error
	for _, list := range [][]reloc{r.short, r.long} {
		for i := range list {
			rl := &list[i]
			ok, err := r.ready(rl.target)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !ok {
				l := rl.target.anchor
				if rl.target.kind == targetLabel {
					if _, bound := r.offset(rl.target.label); !bound {
						l = rl.target.label
					}
				}
				errs = append(errs, &UndefinedLabelError{Label: l, Site: rl.site})
				continue
			}
			if err := r.patch(buf, base, rl); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// fits reports whether v is representable in size bytes, as a signed value or, for
// absolute values, as an unsigned one.
func fits(v int64, size uint8, signed bool) bool {
	if size >= 8 {
		return true
	}
	bits := uint(size) * 8
	if signed {
		lim := int64(1) << (bits - 1)
		return v >= -lim && v < lim
	}
	return v >= 0 && uint64(v) < uint64(1)<<bits
}
