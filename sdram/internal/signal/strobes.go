package signal

// Strobes packs the active-low control pins as {CS#, RAS#, CAS#, WE#}, from
// bit 3 down to bit 0. A set bit means the pin is driven high.
type Strobes uint8

// Pin positions inside Strobes.
const (
	PinWEn Strobes = 1 << iota
	PinCASn
	PinRASn
	PinCSn
)

var strobeTable = [NumCmdKind]Strobes{
	CmdKindNOP:              PinRASn | PinCASn | PinWEn,
	CmdKindActivate:         PinCASn | PinWEn,
	CmdKindRead:             PinRASn | PinWEn,
	CmdKindWrite:            PinRASn,
	CmdKindPrecharge:        PinCASn,
	CmdKindRefresh:          PinWEn,
	CmdKindLoadModeRegister: 0,
}

// Strobes encodes the command kind into pin levels. Unknown kinds deselect
// the device.
func (k CommandKind) Strobes() Strobes {
	if k < 0 || k >= NumCmdKind {
		return PinCSn | PinRASn | PinCASn | PinWEn
	}

	return strobeTable[k]
}

// Selected returns true if chip select is asserted.
func (s Strobes) Selected() bool {
	return s&PinCSn == 0
}

// DecodeStrobes converts pin levels back into a command kind. A deselected
// device sees a NOP. The second return value is false for pin combinations
// that have no CommandKind, such as BURST TERMINATE.
func DecodeStrobes(s Strobes) (CommandKind, bool) {
	s &= PinCSn | PinRASn | PinCASn | PinWEn
	if !s.Selected() {
		return CmdKindNOP, true
	}

	for k, pins := range strobeTable {
		if pins == s {
			return CommandKind(k), true
		}
	}

	return CmdKindNOP, false
}
