package x64

import (
	"errors"
	"fmt"
)

var (
	ErrClosed          = errors.New("x64: region is closed")
	ErrPermission      = errors.New("x64: region permissions only advance from none to write to execute")
	ErrNotWritable     = errors.New("x64: region is not writable")
	ErrGrowUnsupported = errors.New("x64: growing a region in place is not supported on this platform")
	ErrGrowRelocate    = errors.New("x64: region cannot grow without moving")
	ErrLowAddress      = errors.New("x64: low-address regions are not supported on this platform")

	ErrFinished     = errors.New("x64: stream is finished")
	ErrNoBookmark   = errors.New("x64: no bookmark is stored")
	ErrLabelRebound = errors.New("x64: label is already bound")
	ErrUnknownLabel = errors.New("x64: unknown label")
	ErrAlign        = errors.New("x64: alignment must be a power of 2 no larger than 64")

	ErrFeature     = errors.New("x64: CPU feature is not enabled")
	ErrMode        = errors.New("x64: instruction is not available in this mode")
	ErrPrefix      = errors.New("x64: prefix is not valid for this instruction")
	ErrOperand     = errors.New("x64: invalid operand")
	ErrOperandSize = errors.New("x64: unsupported operand size")
	ErrImmediate   = errors.New("x64: immediate does not fit its field")
	ErrRSPIndex    = errors.New("x64: RSP cannot be used as index")
	ErrAddrWidth   = errors.New("x64: base and index registers differ in width")
	ErrScale       = errors.New("x64: scale must be 1, 2, 4 or 8 and requires an index")
	ErrAddr16      = errors.New("x64: invalid 16-bit base/index combination")
	ErrAddrSize    = errors.New("x64: address size is not available in this mode")
	ErrNeedsREX    = errors.New("x64: extended registers are only available in long mode")
	ErrHighByteREX = errors.New("x64: high-byte register combined with an operand requiring REX")
)

// RegionError reports a failed platform memory operation.
type RegionError struct {
	Op   string
	Size int
	Err  error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("x64: %s %d bytes: %v", e.Op, e.Size, e.Err)
}

func (e *RegionError) Unwrap() error { return e.Err }

// CapacityError reports a write past the end of the cursor. Nothing is written.
type CapacityError struct {
	Offset int // cursor offset at the failing write
	Need   int
	Avail  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("x64: %d bytes needed at offset %d, %d available", e.Need, e.Offset, e.Avail)
}

// RangeError reports a patched value which does not fit its field.
type RangeError struct {
	Site  int // offset of the field
	Size  uint8
	Kind  RelocKind
	Value int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("x64: %v value %d exceeds range for %d-bit field at offset %d", e.Kind, e.Value, e.Size*8, e.Site)
}

// RelocationError reports a relocation kind and width which the mode cannot express.
type RelocationError struct {
	Kind RelocKind
	Size uint8
	Mode Mode
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("x64: %d-byte %v relocation is not supported in %v mode", e.Size, e.Kind, e.Mode)
}

// UndefinedLabelError reports a label which was referenced but never bound.
type UndefinedLabelError struct {
	Label Label
	Site  int
}

func (e *UndefinedLabelError) Error() string {
	return fmt.Sprintf("x64: undefined label %v referenced at offset %d", e.Label, e.Site)
}

// EncodeError wraps an error raised while encoding a single instruction.
type EncodeError struct {
	Op     string
	Offset int
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("x64: %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
