// package x64 assembles x86 and x86-64 machine code into executable memory at runtime
//
// Code is emitted into a Region, an anonymous memory mapping which is never writable and
// executable at the same time. An Assembler streams encoded instructions into the region,
// tracks labels and the relocations which reference them, and flips the region to
// executable once every reference is patched.
//
// usage example:
//
// 	package example
//
// 	import (
// 		// Importing everything from the package into the current scope
// 		// makes for less noise:
// 		. "github.com/wdamron/x64jit"
// 	)
//
// 	// CompileCountdown returns a function which sums n, n-1, ..., 1.
// 	func CompileCountdown() (func(n int64) int64, *Region, error) {
// 		r, err := NewRegion(4096)
// 		if err != nil {
// 			return nil, nil, err
// 		}
// 		asm, err := Open(r, Hints{})
// 		if err != nil {
// 			r.Close()
// 			return nil, nil, err
// 		}
//
// 		// System V ABI: n arrives in RDI, the result is returned in RAX
// 		var countdown func(n int64) int64
// 		if err := asm.BindFunc(&countdown); err != nil {
// 			r.Close()
// 			return nil, nil, err
// 		}
//
// 		loop, done := asm.NewLabel(), asm.NewLabel()
// 		asm.RR(XOR_MR, EAX, EAX)                           // RAX := 0
// 		asm.RR(TEST_MR, RDI, RDI)                          // if n == 0
// 		asm.Jcc(CCEq, done.Target())                       //   goto done
// 		asm.Bind(loop)                                     // loop:
// 		asm.RR(ADD_MR, RAX, RDI)                           // RAX += n
// 		asm.R(DEC, RDI)                                    // n--
// 		asm.JumpAuto(JccShort(CCNeq), JccNear(CCNeq), loop.Target()) // if n != 0 goto loop
// 		asm.Bind(done)                                     // done:
// 		asm.Op(RET)                                        // return
//
// 		// Patch the forward jump to done and make the region executable:
// 		if _, err := asm.Finish(); err != nil {
// 			r.Close()
// 			return nil, nil, err
// 		}
// 		return countdown, r, nil
// 	}
//
// The first error is sticky: it is returned by every later call and by Finish, so a
// sequence of emissions can be checked once.
//
// SetFunctionCode assigns finished code to a Go function value directly, to be called
// with Go's register ABI instead.
package x64
