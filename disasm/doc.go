// package disasm lists machine code, either from a byte slice or from a live Go function value.
//
// example usage:
//
//	package example
//
//	import (
//		"os"
//
//		// importing everything from the package into the current scope makes for less noise
//		. "github.com/wdamron/x64jit"
//		"github.com/wdamron/x64jit/disasm"
//	)
//
//	func List() error {
//		r, err := NewRegion(4096)
//		if err != nil {
//			return err
//		}
//		defer r.Close()
//
//		asm, err := Open(r, Hints{})
//		if err != nil {
//			return err
//		}
//		asm.R(PUSH, RBP)
//		asm.RR(MOV_RM, RBP, RSP)
//		asm.RR(XOR_MR, EAX, EAX)
//		asm.R(POP, RBP)
//		asm.Op(RET)
//		if _, err := asm.Finish(); err != nil {
//			return err
//		}
//
//		lines, err := disasm.Code(asm.Code(), 64, uint64(r.Base()))
//		if err != nil {
//			return err
//		}
//		return disasm.Fprint(os.Stdout, lines)
//		// Outputs (addresses vary):
//		//
//		//	0x7f...000  55                       push rbp
//		//	0x7f...001  488bec                   mov rbp, rsp
//		//	0x7f...004  31c0                     xor eax, eax
//		//	0x7f...006  5d                       pop rbp
//		//	0x7f...007  c3                       ret
//	}
package disasm
