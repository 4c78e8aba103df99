package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	x64 "github.com/wdamron/x64jit"
	x64flags "github.com/wdamron/x64jit/flags"
	x64lookup "github.com/wdamron/x64jit/lookup"
)

// program is a YAML listing of instructions in Intel operand order.
//
//	name: count
//	code:
//	  - {op: xor, args: [eax, eax]}
//	  - {label: loop}
//	  - {op: jne, args: ["@loop"]}
type program struct {
	Name string `yaml:"name"`
	Code []step `yaml:"code"`
}

type step struct {
	Label string   `yaml:"label,omitempty"`
	Align int      `yaml:"align,omitempty"`
	Op    string   `yaml:"op,omitempty"`
	Args  []string `yaml:"args,omitempty"`
}

// demoProgram sums 10 down to 1 and returns 55.
var demoProgram = program{
	Name: "sum10",
	Code: []step{
		{Op: "push", Args: []string{"rbp"}},
		{Op: "mov", Args: []string{"rbp", "rsp"}},
		{Op: "xor", Args: []string{"eax", "eax"}},
		{Op: "mov", Args: []string{"ecx", "10"}},
		{Label: "loop"},
		{Op: "add", Args: []string{"eax", "ecx"}},
		{Op: "dec", Args: []string{"ecx"}},
		{Op: "jne", Args: []string{"@loop"}},
		{Op: "pop", Args: []string{"rbp"}},
		{Op: "ret"},
	},
}

func loadProgram(r io.Reader) (program, error) {
	var p program
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decoding program: %w", err)
	}
	if len(p.Code) == 0 {
		return p, errors.New("program has no code")
	}
	return p, nil
}

// operand is a parsed instruction argument: exactly one field is set.
type operand struct {
	reg    x64.Reg
	mem    *x64.Mem
	imm    *int64
	target *x64.Target
}

func (o operand) kind() byte {
	switch {
	case o.reg != 0:
		return 'r'
	case o.mem != nil:
		return 'm'
	case o.imm != nil:
		return 'i'
	}
	return 't'
}

// assembler feeds a program through an x64.Assembler.
type assembler struct {
	asm    *x64.Assembler
	labels map[string]x64.Label
}

func newAssembler(asm *x64.Assembler) *assembler {
	return &assembler{asm: asm, labels: make(map[string]x64.Label)}
}

func (a *assembler) label(name string) x64.Label {
	l, ok := a.labels[name]
	if !ok {
		l = a.asm.NewLabel()
		a.labels[name] = l
	}
	return l
}

func (a *assembler) run(p program) error {
	for i, s := range p.Code {
		if err := a.step(s); err != nil {
			return fmt.Errorf("%s: step %d: %w", p.Name, i, err)
		}
	}
	return nil
}

func (a *assembler) step(s step) error {
	if s.Align != 0 {
		if err := a.asm.AlignTo(s.Align); err != nil {
			return err
		}
	}
	if s.Label != "" {
		if err := a.asm.Bind(a.label(s.Label)); err != nil {
			return err
		}
	}
	if s.Op == "" {
		return nil
	}
	recs, ok := x64lookup.Op(s.Op)
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", s.Op)
	}
	args := make([]operand, len(s.Args))
	shape := make([]byte, len(s.Args))
	for i, arg := range s.Args {
		op, err := a.parseOperand(arg)
		if err != nil {
			return err
		}
		args[i], shape[i] = op, op.kind()
	}
	return a.emit(s.Op, recs, args, string(shape))
}

// emit tries each record of a mnemonic which fits the operand shape, keeping the first one
// which encodes.
func (a *assembler) emit(name string, recs []x64.Opcode, args []operand, shape string) error {
	if shape == "t" {
		var short, near *x64.Opcode
		for i := range recs {
			switch recs[i].Rel {
			case 1:
				short = &recs[i]
			case 4:
				near = &recs[i]
			}
		}
		if short != nil && near != nil {
			return a.asm.JumpAuto(*short, *near, *args[0].target)
		}
	}
	var last error
	for _, op := range recs {
		in, ok := buildInst(op, args, shape)
		if !ok {
			continue
		}
		a.asm.Bookmark()
		err := a.asm.Emit(in)
		if err == nil {
			return nil
		}
		last = err
		if rerr := a.asm.Rewind(); rerr != nil {
			return rerr
		}
	}
	if last == nil {
		last = fmt.Errorf("no form of %s takes operands %q", strings.ToUpper(name), shape)
	}
	return last
}

func buildInst(op x64.Opcode, args []operand, shape string) (x64.Inst, bool) {
	in := x64.Inst{Op: op}
	hasImm := op.Imm != x64.ImmNone
	mr := op.Flags.Has(x64flags.ENC_MR)
	switch shape {
	case "":
		return in, op.Rel == 0 && !hasImm
	case "t":
		in.RM = *args[0].target
		return in, op.Rel > 0 || hasImm
	case "r":
		in.RM = args[0].reg
		return in, op.Rel == 0 && !hasImm
	case "m":
		in.RM = *args[0].mem
		return in, op.Rel == 0 && !hasImm
	case "i":
		in.Imm = *args[0].imm
		return in, hasImm && op.Rel == 0
	case "rr":
		if mr {
			in.RM, in.Reg = args[0].reg, args[1].reg
		} else {
			in.Reg, in.RM = args[0].reg, args[1].reg
		}
		return in, !hasImm
	case "rm":
		in.Reg, in.RM = args[0].reg, *args[1].mem
		return in, !mr && !hasImm
	case "mr":
		in.RM, in.Reg = *args[0].mem, args[1].reg
		return in, mr && !hasImm
	case "ri":
		in.RM, in.Imm = args[0].reg, *args[1].imm
		return in, hasImm
	case "mi":
		in.RM, in.Imm = *args[0].mem, *args[1].imm
		return in, hasImm
	case "rrr":
		in.Reg, in.V, in.RM = args[0].reg, args[1].reg, args[2].reg
		return in, !hasImm
	case "rrm":
		in.Reg, in.V, in.RM = args[0].reg, args[1].reg, *args[2].mem
		return in, !hasImm
	case "rrri":
		in.Reg, in.V, in.RM, in.Imm = args[0].reg, args[1].reg, args[2].reg, *args[3].imm
		return in, hasImm
	case "rrrr":
		in.Reg, in.V, in.RM, in.Is4 = args[0].reg, args[1].reg, args[2].reg, args[3].reg
		return in, true
	}
	return in, false
}

func (a *assembler) parseOperand(s string) (operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return operand{}, errors.New("empty operand")
	}
	if strings.HasPrefix(s, "@") {
		t := a.label(s[1:]).Target()
		return operand{target: &t}, nil
	}
	if r, ok := x64lookup.Reg(s); ok {
		return operand{reg: r}, nil
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return operand{imm: &v}, nil
	}
	if strings.HasSuffix(s, "]") {
		m, err := a.parseMem(s)
		if err != nil {
			return operand{}, err
		}
		return operand{mem: &m}, nil
	}
	return operand{}, fmt.Errorf("cannot parse operand %q", s)
}

var ptrWidths = map[string]uint8{"byte": 1, "word": 2, "dword": 4, "qword": 8, "xmmword": 16, "ymmword": 32}

// parseMem parses "[width] [seg:][base+index*scale+disp]", where disp may be "@label".
func (a *assembler) parseMem(s string) (x64.Mem, error) {
	var m x64.Mem
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return m, fmt.Errorf("cannot parse memory operand %q", s)
	}
	prefix := strings.Fields(strings.TrimSuffix(strings.TrimSpace(s[:open]), ":"))
	for _, p := range prefix {
		if w, ok := ptrWidths[strings.ToLower(p)]; ok {
			m.Width = w
		} else if p != "ptr" {
			seg, ok := x64lookup.Reg(p)
			if !ok {
				return m, fmt.Errorf("unknown prefix %q in %q", p, s)
			}
			m.Seg = seg
		}
	}

	body := strings.ReplaceAll(s[open+1:len(s)-1], " ", "")
	body = strings.ReplaceAll(body, "-", "+-")
	for _, term := range strings.Split(body, "+") {
		if term == "" {
			continue
		}
		switch {
		case strings.HasPrefix(term, "@"):
			m.Ref = a.label(term[1:]).Target()
		case strings.Contains(term, "*"):
			name, scale, _ := strings.Cut(term, "*")
			r, ok := x64lookup.Reg(name)
			n, err := strconv.ParseUint(scale, 0, 8)
			if !ok || err != nil {
				return m, fmt.Errorf("cannot parse index %q", term)
			}
			m.Index, m.Scale = r, uint8(n)
		default:
			if r, ok := x64lookup.Reg(term); ok {
				if m.Base == 0 {
					m.Base = r
				} else {
					m.Index = r
				}
				continue
			}
			d, err := strconv.ParseInt(term, 0, 32)
			if err != nil {
				return m, fmt.Errorf("cannot parse displacement %q", term)
			}
			m.Disp += int32(d)
		}
	}
	return m, nil
}
