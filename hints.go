package x64

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"gopkg.in/yaml.v3"
)

const minHint = 16

// Hints pre-size the label and relocation tables of a stream. Finish reports the values a
// stream of the same shape would need, so they can be persisted and fed back.
type Hints struct {
	ExpectedLabels     int `yaml:"expected_label_count"`
	ExpectedShortJumps int `yaml:"expected_short_jump_count"`
	ExpectedLongJumps  int `yaml:"expected_long_jump_count"`
}

func roundHint(n int) int {
	if n <= minHint {
		return minHint
	}
	return 1 << bits.Len(uint(n-1))
}

// Normalize rounds each count up to a power of 2, no smaller than 16.
func (h Hints) Normalize() Hints {
	return Hints{
		ExpectedLabels:     roundHint(h.ExpectedLabels),
		ExpectedShortJumps: roundHint(h.ExpectedShortJumps),
		ExpectedLongJumps:  roundHint(h.ExpectedLongJumps),
	}
}

// LoadHints decodes hints from YAML. Unknown keys are rejected; an empty document yields the defaults.
func LoadHints(r io.Reader) (Hints, error) {
	var h Hints
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		return Hints{}, fmt.Errorf("x64: decoding hints: %w", err)
	}
	return h.Normalize(), nil
}

// WriteYAML encodes h as YAML.
func (h Hints) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return err
	}
	return enc.Close()
}
