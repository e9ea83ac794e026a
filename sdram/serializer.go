package sdram

// byteSerializer moves a word over the byte-wide data bus, one byte per
// cycle, lowest byte first.
type byteSerializer struct {
	word   uint32
	cursor int
}

func (s *byteSerializer) load(word uint32) {
	s.word = word
	s.cursor = 0
}

// nextOut returns the byte to drive in this cycle and advances the cursor.
func (s *byteSerializer) nextOut() uint8 {
	b := uint8(s.word >> (8 * s.cursor))
	s.cursor++

	return b
}

// shiftIn takes the byte sampled in this cycle. Each byte enters at the top
// and moves down, so the first byte of a burst ends up in the lowest byte.
func (s *byteSerializer) shiftIn(b uint8) {
	s.word = s.word>>8 | uint32(b)<<24
	s.cursor++
}

func (s *byteSerializer) done() bool {
	return s.cursor >= BurstLength()
}
