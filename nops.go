package x64

// nops[n-1] is the recommended n-byte NOP. The 10 and 11 byte forms add operand-size
// and CS-override prefixes to the 8-byte form.
var nops = [...][]byte{
	{0x90},
	{0x66, 0x90},
	{0x0f, 0x1f, 0x00},
	{0x0f, 0x1f, 0x40, 0x00},
	{0x0f, 0x1f, 0x44, 0x00, 0x00},
	{0x66, 0x0f, 0x1f, 0x44, 0x00, 0x00},
	{0x0f, 0x1f, 0x80, 0x00, 0x00, 0x00, 0x00},
	{0x0f, 0x1f, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x66, 0x0f, 0x1f, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x66, 0x2e, 0x0f, 0x1f, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x66, 0x66, 0x2e, 0x0f, 0x1f, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
}

const maxAlign = 64

// alignNops[gap] fills a gap of 0 to 63 bytes with the fewest NOP instructions.
// Gaps are split evenly, so a 13-byte gap is a 7-byte and a 6-byte NOP rather than 11 + 2.
var alignNops = func() (t [maxAlign][]byte) {
	for gap := range t {
		count := (gap + len(nops) - 1) / len(nops)
		seq := make([]byte, 0, gap)
		for k := 0; k < count; k++ {
			// distribute the remainder over the leading instructions
			n := gap / count
			if k < gap%count {
				n++
			}
			seq = append(seq, nops[n-1]...)
		}
		t[gap] = seq
	}
	return t
}()
