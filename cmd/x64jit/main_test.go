package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	x64 "github.com/wdamron/x64jit"
)

func assemble(t *testing.T, p program, opts ...x64.Option) (*x64.Region, []byte) {
	t.Helper()
	r, err := x64.NewRegion(4096)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	asm, err := x64.Open(r, x64.Hints{}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := newAssembler(asm).run(p); err != nil {
		t.Fatal(err)
	}
	if _, err := asm.Finish(); err != nil {
		t.Fatal(err)
	}
	return r, asm.Code()
}

func TestDemoProgram(t *testing.T) {
	_, code := assemble(t, demoProgram)
	expect := "0x554889e531c0b90a00000001c8ffc975fa5dc3"
	if fmt.Sprintf("%#x", code) != expect {
		t.Fatalf("Expected %s, found %#x", expect, code)
	}
}

func TestLoadProgram(t *testing.T) {
	src := `
name: mem
code:
  - {op: mov, args: ["rax", "qword ptr [rsp+8]"]}
  - {op: mov, args: ["dword ptr [rbx+rcx*4-4]", "edx"]}
  - {op: lea, args: ["rax", "[rip+@data]"]}
  - {op: jmp, args: ["@end"]}
  - {label: data, align: 8}
  - {op: nop}
  - {label: end}
  - {op: ret}
`
	p, err := loadProgram(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	_, code := assemble(t, p)
	// mov rax, [rsp+8]; mov [rbx+rcx*4-4], edx; lea rax, [rip+8]; jmp +4 (near, forward);
	// 3 bytes of padding; nop; ret
	expect := "0x488b442408" + "89548bfc" + "488d0508000000" + "e904000000" + "0f1f00" + "90" + "c3"
	if fmt.Sprintf("%#x", code) != expect {
		t.Fatalf("Expected %s, found %#x", expect, code)
	}
}

func TestLoadProgramRejectsUnknownKeys(t *testing.T) {
	if _, err := loadProgram(strings.NewReader("name: x\ncode:\n  - {opcode: nop}\n")); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestUnknownOperands(t *testing.T) {
	r, err := x64.NewRegion(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	asm, err := x64.Open(r, x64.Hints{})
	if err != nil {
		t.Fatal(err)
	}
	a := newAssembler(asm)
	for _, s := range []step{
		{Op: "frob"},
		{Op: "mov", Args: []string{"rax", "banana"}},
		{Op: "push", Args: []string{"[rax"}},
	} {
		if err := a.step(s); err == nil {
			t.Fatalf("expected an error for %+v", s)
		}
	}
}

func TestRun(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("requires amd64")
	}
	hintsOut := filepath.Join(t.TempDir(), "hints.yaml")
	var out bytes.Buffer
	if err := run([]string{"-run", "-hints-out", hintsOut}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "result: 55\n") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "75fa") {
		t.Fatalf("listing lacks the loop branch:\n%s", out.String())
	}

	f, err := os.Open(hintsOut)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	hints, err := x64.LoadHints(f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(x64.Hints{ExpectedLabels: 16, ExpectedShortJumps: 16, ExpectedLongJumps: 16}, hints); diff != "" {
		t.Fatalf("hints mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags(t *testing.T) {
	if _, err := parseFlags([]string{"-mode", "real16"}); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
	o, err := parseFlags([]string{"-mode", "protected32"})
	if err != nil {
		t.Fatal(err)
	}
	if o.mode != x64.Protected32 {
		t.Fatalf("expected protected32, found %v", o.mode)
	}
	if _, err := parseFlags([]string{"-mode", "protected32", "-run"}); err == nil {
		t.Fatal("expected -run to be refused in protected mode")
	}
}
