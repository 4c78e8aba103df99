//go:build x64debug

package x64

// checked fills skipped bytes with NOPs.
const checked = true
