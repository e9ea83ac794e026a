package signal

// Pins is the level of every controller output in one cycle, the way the
// device samples them on the clock edge.
type Pins struct {
	Strobes Strobes
	Bank    uint8
	Addr    uint16

	DQ   uint8
	DQOE bool
	DQM  bool
}

// Pins encodes the command onto the device pins. Bank and address are cut
// to the width of their buses.
func (c Command) Pins() Pins {
	return Pins{
		Strobes: c.Kind.Strobes(),
		Bank:    c.Bank & BankMask,
		Addr:    c.Addr & AddrMask,
		DQ:      c.DataOut,
		DQOE:    c.OutputEnable,
		DQM:     c.DataMask,
	}
}

// Decode turns the pin levels back into a command. For strobes that do not
// name a CommandKind it returns false and a NOP that still carries the data
// signals.
func (p Pins) Decode() (Command, bool) {
	kind, ok := DecodeStrobes(p.Strobes)

	return Command{
		Kind:         kind,
		Bank:         p.Bank,
		Addr:         p.Addr,
		DataOut:      p.DQ,
		OutputEnable: p.DQOE,
		DataMask:     p.DQM,
	}, ok
}
