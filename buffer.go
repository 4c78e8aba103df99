package x64

import (
	"encoding/binary"
)

// buffer is a cursor over a region's writable bytes. Every write is checked against end;
// a write which does not fit writes nothing and sets a sticky *CapacityError.
type buffer struct {
	region *Region
	b      []byte
	i      int // current offset
	start  int
	end    int

	mark   int
	marked bool

	err error
}

func newBuffer(r *Region, start, end int) buffer {
	return buffer{region: r, b: r.Bytes(), i: start, start: start, end: end}
}

func (b *buffer) Len() int    { return b.i - b.start }
func (b *buffer) Get() []byte { return b.b[b.start:b.i] }

// reserve reports whether n more bytes fit, recording a capacity error otherwise.
func (b *buffer) reserve(n int) bool {
	if b.err != nil {
		return false
	}
	if b.region.Perm() != PermWrite {
		b.err = ErrNotWritable
		return false
	}
	if n > b.end-b.i {
		b.err = &CapacityError{Offset: b.i, Need: n, Avail: b.end - b.i}
		return false
	}
	return true
}

// truncate discards everything written after offset and clears a pending capacity error.
func (b *buffer) truncate(offset int) {
	clear(b.b[offset:b.i])
	b.i = offset
	b.err = nil
}

func (b *buffer) storeBookmark() {
	b.mark, b.marked = b.i, true
}

func (b *buffer) resetToBookmark() bool {
	if !b.marked {
		return false
	}
	b.truncate(b.mark)
	b.marked = false
	return true
}

// remap points the cursor at the region's current memory and end, after the region grew in place.
func (b *buffer) remap(end int) {
	b.b = b.region.Bytes()
	b.end = end
}

func (b *buffer) Byte(v byte) {
	if b.reserve(1) {
		b.b[b.i] = v
		b.i++
	}
}

func (b *buffer) Byte2(v1, v2 byte) {
	if b.reserve(2) {
		b.b[b.i], b.b[b.i+1] = v1, v2
		b.i += 2
	}
}

func (b *buffer) Bytes(v []byte) {
	if b.reserve(len(v)) {
		copy(b.b[b.i:], v)
		b.i += len(v)
	}
}

func (b *buffer) Int8(v int8) { b.Byte(byte(v)) }

func (b *buffer) Int16(v int16) {
	if b.reserve(2) {
		binary.LittleEndian.PutUint16(b.b[b.i:], uint16(v))
		b.i += 2
	}
}

func (b *buffer) Int32(v int32) {
	if b.reserve(4) {
		binary.LittleEndian.PutUint32(b.b[b.i:], uint32(v))
		b.i += 4
	}
}

func (b *buffer) Int64(v int64) {
	if b.reserve(8) {
		binary.LittleEndian.PutUint64(b.b[b.i:], uint64(v))
		b.i += 8
	}
}

// Int128 writes lo then hi, which is the little-endian layout of a 128-bit value.
func (b *buffer) Int128(lo, hi uint64) {
	if b.reserve(16) {
		binary.LittleEndian.PutUint64(b.b[b.i:], lo)
		binary.LittleEndian.PutUint64(b.b[b.i+8:], hi)
		b.i += 16
	}
}

// Int writes the low size bytes of v.
func (b *buffer) Int(v int64, size uint8) {
	switch size {
	case 1:
		b.Int8(int8(v))
	case 2:
		b.Int16(int16(v))
	case 4:
		b.Int32(int32(v))
	case 8:
		b.Int64(v)
	}
}

// Skip advances the cursor by n bytes without writing, except in checked builds
// where the gap is filled with single-byte NOPs.
func (b *buffer) Skip(n int) {
	if !b.reserve(n) {
		return
	}
	if checked {
		for j := b.i; j < b.i+n; j++ {
			b.b[j] = 0x90
		}
	}
	b.i += n
}

// Nop writes length bytes of NOP instructions, using as few instructions as possible.
func (b *buffer) Nop(length int) {
	for length > 0 {
		n := min(length, len(nops))
		b.Bytes(nops[n-1])
		length -= n
	}
}

// AlignTo pads the cursor with NOPs to a multiple of n, which must be a power of 2 no larger than 64.
func (b *buffer) AlignTo(n int) bool {
	if n <= 0 || n > maxAlign || n&(n-1) != 0 {
		return false
	}
	gap := -b.i & (n - 1)
	b.Bytes(alignNops[gap])
	return true
}

// patch overwrites the size-byte field at site, which must already have been written.
func (b *buffer) patch(site int, size uint8, v int64) {
	switch size {
	case 1:
		b.b[site] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b.b[site:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b.b[site:], uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b.b[site:], uint64(v))
	}
}
