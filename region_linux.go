//go:build linux

package x64

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// growInPlace extends mem to size bytes. MREMAP_MAYMOVE is never passed, so the
// kernel either extends the mapping at its current address or fails.
func growInPlace(mem []byte, size int) ([]byte, error) {
	grown, err := unix.Mremap(mem, size, 0)
	if err != nil {
		return nil, err
	}
	if unsafe.Pointer(&grown[0]) != unsafe.Pointer(&mem[0]) {
		return nil, ErrGrowRelocate
	}
	return grown, nil
}
