//go:build !linux || !amd64

package x64

const lowAddressFlag = 0
