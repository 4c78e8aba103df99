package feats

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// Feature is a set of CPU features an opcode record may require.
type Feature uint32

// CPU Features
const (
	X64_IMPLICIT Feature = 0
	FPU          Feature = 1 << iota
	MMX
	TDNOW
	SSE
	SSE2
	SSE3
	VMX
	SSSE3
	SSE4A
	SSE41
	SSE42
	SSE5
	AVX
	AVX2
	FMA
	BMI1
	BMI2
	TBM
	RTM
	INVPCID
	MPX
	SHA
	PREFETCHWT1
	// Cyrix instructions are omitted
	CYRIX
	AMD
)

const AllFeatures Feature = 0xffffffff

// Baseline is the feature set every x86-64 processor provides.
const Baseline = FPU | MMX | SSE | SSE2

// Host reports the features of the running processor. On other architectures
// only the x86-64 baseline is reported.
func Host() Feature {
	f := Baseline
	set := func(ok bool, feat Feature) {
		if ok {
			f |= feat
		}
	}
	set(cpu.X86.HasSSE3, SSE3)
	set(cpu.X86.HasSSSE3, SSSE3)
	set(cpu.X86.HasSSE41, SSE41)
	set(cpu.X86.HasSSE42, SSE42)
	set(cpu.X86.HasAVX, AVX)
	set(cpu.X86.HasAVX2, AVX2)
	set(cpu.X86.HasFMA, FMA)
	set(cpu.X86.HasBMI1, BMI1)
	set(cpu.X86.HasBMI2, BMI2)
	return f
}

func FeatName(f Feature) string { return featNames[f] }

func (f Feature) String() string {
	if f == X64_IMPLICIT {
		return featNames[X64_IMPLICIT]
	}
	var names []string
	for bit := FPU; bit != 0 && bit <= AMD; bit <<= 1 {
		if f&bit != 0 {
			names = append(names, featNames[bit])
		}
	}
	return strings.Join(names, "|")
}

var featNames = map[Feature]string{
	X64_IMPLICIT: "X64_IMPLICIT",
	FPU:          "FPU",
	MMX:          "MMX",
	TDNOW:        "TDNOW",
	SSE:          "SSE",
	SSE2:         "SSE2",
	SSE3:         "SSE3",
	VMX:          "VMX",
	SSSE3:        "SSSE3",
	SSE4A:        "SSE4A",
	SSE41:        "SSE41",
	SSE42:        "SSE42",
	SSE5:         "SSE5",
	AVX:          "AVX",
	AVX2:         "AVX2",
	FMA:          "FMA",
	BMI1:         "BMI1",
	BMI2:         "BMI2",
	TBM:          "TBM",
	RTM:          "RTM",
	INVPCID:      "INVPCID",
	MPX:          "MPX",
	SHA:          "SHA",
	PREFETCHWT1:  "PREFETCHWT1",
	CYRIX:        "CYRIX",
	AMD:          "AMD",
}
