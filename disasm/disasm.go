package disasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

// x86asm reports a prefix with no instruction after it, or an unknown opcode, as an instruction
// without an Op.
var errInvalid = errors.New("truncated or invalid instruction")

// Line is one decoded instruction of a listing.
type Line struct {
	PC    uint64
	Bytes []byte
	Inst  x86asm.Inst
	Text  string // Intel syntax
}

// Code decodes code as a sequence of instructions for the given decoder mode (16, 32 or 64).
// pc is the address of code[0]; relative branch targets are printed as absolute addresses.
func Code(code []byte, bits int, pc uint64) ([]Line, error) {
	var lines []Line
	for n := 0; n < len(code); {
		inst, err := x86asm.Decode(code[n:], bits)
		if err != nil {
			return lines, fmt.Errorf("disasm: offset %#x: %w", n, err)
		}
		if inst.Op == 0 {
			return lines, fmt.Errorf("disasm: offset %#x: %w", n, errInvalid)
		}
		at := pc + uint64(n)
		lines = append(lines, Line{
			PC:    at,
			Bytes: code[n : n+inst.Len],
			Inst:  inst,
			Text:  x86asm.IntelSyntax(inst, at, nil),
		})
		n += inst.Len
	}
	return lines, nil
}

// Fprint writes a listing of lines to w, one instruction per line.
func Fprint(w io.Writer, lines []Line) error {
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%#08x  %-24x %s\n", l.PC, l.Bytes, l.Text); err != nil {
			return err
		}
	}
	return nil
}

// Disassemble instructions from funcValue until while returns false. A maximum of 4096 bytes
// may be decoded. This function is entirely unsafe.
//
// funcValue must be a non-nil Go function-value.
//
// Some instructions supported by the instruction-encoder in the x64 package are not supported
// by the instruction-decoder in the x86asm package.
func Func(funcValue any, while func(x86asm.Inst) bool) error {
	// See "Go 1.1 Function Calls":
	// https://docs.google.com/document/d/1bMwCey-gmqZVTpRax-ESeVuZGmjwbocYs1iHplK-cjo/pub
	type interfaceHeader struct {
		typ  uintptr
		addr **[]byte
	}
	v := reflect.ValueOf(funcValue)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("disasm: argument for Func must be a non-nil function-value")
	}
	header := *(*interfaceHeader)(unsafe.Pointer(&funcValue))
	code := (*[4096]byte)(unsafe.Pointer(*header.addr))
	n := 0
	for n < 4096 {
		inst, err := x86asm.Decode(code[n:min(n+15, len(code))], 64)
		if err != nil {
			return err
		}
		if !while(inst) {
			return nil
		}
		if code[n] == 0xc3 { // find RET + padding (end of function)
			if n&15 != 0 {
				pad := 16 - (n & 15) // functions are typically aligned to a 16-byte boundary
				tail := code[n+1 : min(n+1+pad, len(code))]
				if bytes.Equal(tail, pad00[:len(tail)]) || bytes.Equal(tail, padcc[:len(tail)]) {
					return nil
				}
			} else {
				return nil
			}
		}
		n += inst.Len
	}
	return nil
}

// Freshly mapped memory is zeroed
var pad00 = [16]byte{}

// The Go compiler pads functions with 0xCC bytes to a 16-byte alignment boundary
var padcc = [16]byte{0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc}
