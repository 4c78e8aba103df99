//go:build !x64debug

package x64

const checked = false
