//go:build !linux

package x64

func growInPlace(mem []byte, size int) ([]byte, error) { return nil, ErrGrowUnsupported }
