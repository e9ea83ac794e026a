package signal

import "fmt"

// ModeRegister is the configuration programmed by LOAD MODE REGISTER.
type ModeRegister struct {
	BurstLength int
	Sequential  bool
	CASLatency  int
}

// DefaultModeRegister is the only mode the controller ever programs.
var DefaultModeRegister = ModeRegister{
	BurstLength: 4,
	Sequential:  true,
	CASLatency:  2,
}

const (
	burstTypeBit    = 1 << 3
	casLatencyShift = 4
	casLatencyMask  = 0x7
	burstLengthMask = 0x7
)

var burstLengthCodes = map[int]uint16{1: 0, 2: 1, 4: 2, 8: 3}

// Encode packs the mode into the A12..A0 address bus payload. It panics if
// the mode cannot be expressed.
func (m ModeRegister) Encode() uint16 {
	bl, ok := burstLengthCodes[m.BurstLength]
	if !ok {
		panic(fmt.Sprintf("unsupported burst length %d", m.BurstLength))
	}

	if m.CASLatency != 2 && m.CASLatency != 3 {
		panic(fmt.Sprintf("unsupported CAS latency %d", m.CASLatency))
	}

	v := bl | uint16(m.CASLatency)<<casLatencyShift
	if !m.Sequential {
		v |= burstTypeBit
	}

	return v
}

// DecodeModeRegister unpacks the address bus payload of a LOAD MODE REGISTER
// command.
func DecodeModeRegister(addr uint16) (ModeRegister, error) {
	m := ModeRegister{
		Sequential: addr&burstTypeBit == 0,
		CASLatency: int(addr >> casLatencyShift & casLatencyMask),
	}

	code := addr & burstLengthMask
	for bl, c := range burstLengthCodes {
		if c == code {
			m.BurstLength = bl
		}
	}

	if m.BurstLength == 0 {
		return m, fmt.Errorf("reserved burst length code %d", code)
	}

	if m.CASLatency != 2 && m.CASLatency != 3 {
		return m, fmt.Errorf("reserved CAS latency %d", m.CASLatency)
	}

	return m, nil
}
