package x64

import (
	"fmt"
	"math/bits"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Perm is the access permission of a Region. Permissions only advance:
// PermNone, then PermWrite, then PermExec.
type Perm uint8

const (
	PermNone  Perm = iota // reserved, inaccessible
	PermWrite             // readable and writable
	PermExec              // readable and executable
)

func (p Perm) String() string {
	switch p {
	case PermNone:
		return "none"
	case PermWrite:
		return "write"
	case PermExec:
		return "exec"
	}
	return fmt.Sprintf("perm(%d)", uint8(p))
}

func (p Perm) prot() int {
	switch p {
	case PermWrite:
		return unix.PROT_READ | unix.PROT_WRITE
	case PermExec:
		return unix.PROT_READ | unix.PROT_EXEC
	}
	return unix.PROT_NONE
}

const minRegionSize = 4096

type regionConfig struct {
	pinned bool
	low    bool
}

// RegionOption configures NewRegion.
type RegionOption func(*regionConfig)

// WithPinned locks the region's pages in memory.
func WithPinned() RegionOption { return func(c *regionConfig) { c.pinned = true } }

// WithLowAddress places the region within the first 2 GiB of the address space,
// so absolute addresses into it fit a sign-extended 32-bit field. It is only
// available on linux/amd64.
func WithLowAddress() RegionOption { return func(c *regionConfig) { c.low = true } }

// Region is a page-aligned anonymous memory mapping which is never writable and executable
// at the same time. A Region is owned by a single goroutine.
type Region struct {
	mem    []byte
	perm   Perm
	pinned bool
	low    bool
}

// regionSize rounds n up to the next power of two, with a floor of one page (at least 4 KiB).
func regionSize(n int) int {
	floor := max(minRegionSize, os.Getpagesize())
	if n <= floor {
		return floor
	}
	return 1 << bits.Len(uint(n-1))
}

// NewRegion reserves at least length bytes of inaccessible memory. The length is rounded up
// to the next power of two, and never below 4 KiB.
func NewRegion(length int, opts ...RegionOption) (*Region, error) {
	var cfg regionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	size := regionSize(length)

	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	if cfg.low {
		if lowAddressFlag == 0 {
			return nil, &RegionError{Op: "mmap", Size: size, Err: ErrLowAddress}
		}
		flags |= lowAddressFlag
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, flags)
	if err != nil {
		return nil, &RegionError{Op: "mmap", Size: size, Err: err}
	}
	if cfg.pinned {
		if err := unix.Mlock(mem); err != nil {
			_ = unix.Munmap(mem)
			return nil, &RegionError{Op: "mlock", Size: size, Err: err}
		}
	}

	r := &Region{mem: mem, pinned: cfg.pinned, low: cfg.low}
	lg().Debug("x64: region mapped", "size", size, "base", fmt.Sprintf("%#x", r.Base()), "pinned", cfg.pinned, "low", cfg.low)
	return r, nil
}

// Len returns the size of the region in bytes.
func (r *Region) Len() int { return len(r.mem) }

// Perm returns the current permission of the region.
func (r *Region) Perm() Perm { return r.perm }

// Base returns the address of the first byte of the region, or 0 once closed.
func (r *Region) Base() uintptr {
	if len(r.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// Bytes returns the region's memory. Reading it requires PermWrite or PermExec, and
// writing it requires PermWrite.
func (r *Region) Bytes() []byte { return r.mem }

// MakeWritable advances the region to PermWrite.
func (r *Region) MakeWritable() error { return r.advance(PermWrite) }

// MakeExecutable advances the region to PermExec. The region can no longer be written.
func (r *Region) MakeExecutable() error { return r.advance(PermExec) }

func (r *Region) advance(p Perm) error {
	if r.mem == nil {
		return ErrClosed
	}
	switch {
	case p == r.perm:
		return nil
	case p < r.perm:
		return fmt.Errorf("%w: %v to %v", ErrPermission, r.perm, p)
	}
	if err := unix.Mprotect(r.mem, p.prot()); err != nil {
		return &RegionError{Op: "mprotect", Size: len(r.mem), Err: err}
	}
	lg().Debug("x64: region protected", "base", fmt.Sprintf("%#x", r.Base()), "from", r.perm, "to", p)
	r.perm = p
	return nil
}

// Grow doubles the region without moving it. Growth is only legal while the region is
// writable; if the pages following the region are taken, Grow fails and the region
// is left as it was. Newly added pages are pinned if the region is pinned.
func (r *Region) Grow() error {
	if r.mem == nil {
		return ErrClosed
	}
	if r.perm != PermWrite {
		return fmt.Errorf("%w: cannot grow a region in %v state", ErrPermission, r.perm)
	}
	old := len(r.mem)
	size := old * 2
	grown, err := growInPlace(r.mem, size)
	if err != nil {
		return &RegionError{Op: "mremap", Size: size, Err: err}
	}
	r.mem = grown
	if r.pinned {
		if err := unix.Mlock(grown[old:]); err != nil {
			return &RegionError{Op: "mlock", Size: size - old, Err: err}
		}
	}
	lg().Debug("x64: region grown", "base", fmt.Sprintf("%#x", r.Base()), "size", size)
	return nil
}

// Close unmaps the region in any state. Closing a closed region does nothing.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	mem := r.mem
	r.mem = nil
	if err := unix.Munmap(mem); err != nil {
		return &RegionError{Op: "munmap", Size: len(mem), Err: err}
	}
	lg().Debug("x64: region unmapped", "size", len(mem))
	return nil
}
