//go:build x64debug

package x64

import (
	"fmt"
	"testing"
)

func TestSkipFill(t *testing.T) {
	asm := openTest(t)
	asm.Op(RET)
	asm.Bookmark()
	if err := asm.Skip(3); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprintf("%#x", asm.Code()) != "0xc3909090" {
		t.Fatalf("encoded = %#x != 0xc3909090", asm.Code())
	}
	if err := asm.Rewind(); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprintf("%#x", asm.region.Bytes()[:4]) != "0xc3000000" {
		t.Fatalf("rewound bytes = %#x", asm.region.Bytes()[:4])
	}
}
