// package x64lookup maps mnemonics, register names and condition suffixes to values of the x64 package.
package x64lookup

import (
	"github.com/wdamron/x64jit"
)

const maxMnemonicLength = 16

var ops = func() map[string][]x64.Opcode {
	m := make(map[string][]x64.Opcode, len(x64.Opcodes))
	for _, op := range x64.Opcodes {
		m[op.Name] = append(m[op.Name], *op)
	}
	return m
}()

var regs = func() map[string]x64.Reg {
	m := make(map[string]x64.Reg)
	for _, r := range x64.Registers() {
		m[upperCase(r.String())] = r
	}
	return m
}()

var conds = func() map[string]x64.ConditionCode {
	m := make(map[string]x64.ConditionCode, 16)
	for cc := x64.ConditionCode(0); cc <= 0xf; cc++ {
		m[cc.String()] = cc
	}
	return m
}()

// Lookup the opcode records for a mnemonic. The mnemonic will be converted to uppercase if necessary.
// Conditional forms (JE, SETNE, CMOVL, ...) are built from the condition suffix.
func Op(mnemonic string) ([]x64.Opcode, bool) {
	if len(mnemonic) == 0 || len(mnemonic) >= maxMnemonicLength {
		return nil, false
	}
	name := upperCase(mnemonic)
	if recs, ok := ops[name]; ok {
		return recs, true
	}
	for _, p := range [...]string{"J", "SET", "CMOV"} {
		if len(name) <= len(p) || name[:len(p)] != p {
			continue
		}
		cc, ok := conds[name[len(p):]]
		if !ok {
			continue
		}
		switch p {
		case "J":
			return []x64.Opcode{x64.JccShort(cc), x64.JccNear(cc)}, true
		case "SET":
			return []x64.Opcode{x64.Setcc(cc)}, true
		default:
			return []x64.Opcode{x64.Cmovcc(cc)}, true
		}
	}
	return nil, false
}

// Lookup a register by name, in any case.
func Reg(name string) (x64.Reg, bool) {
	if len(name) == 0 || len(name) >= maxMnemonicLength {
		return 0, false
	}
	r, ok := regs[upperCase(name)]
	return r, ok
}

// Lookup a condition code by its suffix (E, NE, L, GE, ...), in any case.
func Cond(suffix string) (x64.ConditionCode, bool) {
	if len(suffix) == 0 || len(suffix) >= maxMnemonicLength {
		return 0, false
	}
	cc, ok := conds[upperCase(suffix)]
	return cc, ok
}

func upperCase(s string) string {
	var b [maxMnemonicLength]byte
	var ch byte
	_ = b[len(s)] // lift bounds-checks out of the loop below (golang.org/issue/14808)
	i, changed := 0, false
loop: // functions containing for-loops cannot currently be inlined (golang.org/issue/14768)
	ch = s[i]
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
		changed = true
	}
	b[i] = ch
	i++
	if i < len(s) {
		goto loop
	}
	if !changed {
		return s
	}
	return string(b[:len(s)])
}
