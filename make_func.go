package x64

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Set the executable code for dstAddr. This function is entirely unsafe.
//
// dstAddr must be a pointer to a function value. The code is called with Go's internal
// register ABI: integer arguments arrive in RAX, RBX, RCX, RDI, RSI, R8, R9, R10, R11 and
// results are returned in the same registers.
//
// executable must be marked executable, e.g. by finishing the stream which produced it.
func SetFunctionCode(dstAddr any, executable []byte) error {
	// See "Go 1.1 Function Calls":
	// https://docs.google.com/document/d/1bMwCey-gmqZVTpRax-ESeVuZGmjwbocYs1iHplK-cjo/pub
	type interfaceHeader struct {
		typ  uintptr
		addr **[]byte
	}
	v := reflect.ValueOf(dstAddr)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || !v.Elem().CanSet() || v.Elem().Kind() != reflect.Func {
		return fmt.Errorf("%w: destination for SetFunctionCode must be a pointer to a function-value", ErrOperand)
	}
	if len(executable) == 0 {
		return fmt.Errorf("%w: no code", ErrOperand)
	}
	header := *(*interfaceHeader)(unsafe.Pointer(&dstAddr))
	*header.addr = &executable
	return nil
}

const maxBindArgs = 6

// BindFunc points the function variable fptr at the current offset, called with the System V
// C ABI: up to 6 integer, pointer or bool arguments in RDI, RSI, RDX, RCX, R8, R9 and at most
// one result in RAX.
//
// Calling the function before Finish returns is undefined.
func (a *Assembler) BindFunc(fptr any) error {
	if a.mode != Long64 {
		return fmt.Errorf("%w: functions can only be bound to long mode code", ErrMode)
	}
	v := reflect.ValueOf(fptr)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Func {
		return fmt.Errorf("%w: BindFunc needs a pointer to a function variable", ErrOperand)
	}
	ft := v.Elem().Type()
	if ft.NumIn() > maxBindArgs || ft.NumOut() > 1 || ft.IsVariadic() {
		return fmt.Errorf("%w: %v has more than %d arguments or 1 result", ErrOperand, ft, maxBindArgs)
	}
	for i := 0; i < ft.NumIn(); i++ {
		if !bindableKind(ft.In(i).Kind()) {
			return fmt.Errorf("%w: argument %d of %v", ErrOperand, i, ft)
		}
	}
	if ft.NumOut() == 1 && !bindableKind(ft.Out(0).Kind()) {
		return fmt.Errorf("%w: result of %v", ErrOperand, ft)
	}
	purego.RegisterFunc(fptr, a.Entry())
	return nil
}

func bindableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.UnsafePointer, reflect.Ptr:
		return true
	}
	return false
}
