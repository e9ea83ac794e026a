package sdram

import (
	"fmt"

	"github.com/sarchlab/sdramsim/sim"
	"github.com/sarchlab/sdramsim/sdram/internal/signal"
)

// Timing holds the device minimums in the unit the datasheet uses.
type Timing struct {
	// PowerUp is how long the device needs stable power and clock before the
	// first command.
	PowerUp sim.VTimeInSec

	// TRP is the precharge to next command time.
	TRP sim.VTimeInSec

	// TRFC is the refresh to next command time.
	TRFC sim.VTimeInSec

	// TRCD is the activate to read or write time.
	TRCD sim.VTimeInSec

	// TMRDCycles is the mode register set to next command time, which the
	// datasheet gives in cycles.
	TMRDCycles int

	// RefreshInterval is the average time between two refresh commands.
	RefreshInterval sim.VTimeInSec
}

// DefaultTiming returns the timing of the 100 MHz part the controller was
// first built for.
func DefaultTiming() Timing {
	return Timing{
		PowerUp:         100e-6,
		TRP:             15e-9,
		TRFC:            66e-9,
		TRCD:            15e-9,
		TMRDCycles:      2,
		RefreshInterval: 7.5e-6,
	}
}

// CycleTiming is Timing converted to whole cycles of the controller clock.
type CycleTiming struct {
	PowerUp         int
	TRP             int
	TRFC            int
	TRCD            int
	TMRD            int
	RefreshInterval int
}

// Cycles converts the timing into cycles of the given clock. Every minimum is
// rounded up so that it is never violated.
func (t Timing) Cycles(freq sim.Freq) CycleTiming {
	return CycleTiming{
		PowerUp:         freq.CyclesCovering(t.PowerUp),
		TRP:             freq.CyclesCovering(t.TRP),
		TRFC:            freq.CyclesCovering(t.TRFC),
		TRCD:            freq.CyclesCovering(t.TRCD),
		TMRD:            t.TMRDCycles,
		RefreshInterval: int(freq.Cycle(t.RefreshInterval)),
	}
}

// CASLatency is the number of cycles between a READ and its first data byte.
// It is fixed by the mode register.
func CASLatency() int {
	return signal.DefaultModeRegister.CASLatency
}

// BurstLength is the number of bytes moved per READ or WRITE. It is fixed by
// the mode register and matches the number of bytes in a word.
func BurstLength() int {
	return signal.DefaultModeRegister.BurstLength
}

// WorstAccess is the longest time, in cycles, the controller can spend on
// one request after leaving idle. It is a row miss read: precharge, activate,
// read, CAS latency and the whole burst, followed by the return to idle.
func (t CycleTiming) WorstAccess() int {
	return 1 + t.TRP + t.TRCD + CASLatency() + 1 + BurstLength()
}

// RefreshLatency bounds how many cycles pass between the refresh timer
// expiring and the REFRESH command. The access that was dispatched in the
// same cycle finishes first, then every bank is precharged.
func (t CycleTiming) RefreshLatency() int {
	return t.WorstAccess() + 1 + t.TRP
}

// MaxRefreshGap is the longest distance between two REFRESH commands the
// controller can produce. The first gap is the longest since the timer only
// starts after the mode register is loaded, TRFC after the last init
// refresh.
func (t CycleTiming) MaxRefreshGap() int {
	return t.RefreshInterval + t.TRFC + t.RefreshLatency()
}

func (t CycleTiming) mustBeValid() {
	if t.PowerUp < 1 || t.TRP < 1 || t.TRFC < 1 || t.TRCD < 1 || t.TMRD < 1 {
		panic(fmt.Sprintf("every timing parameter must be at least 1 cycle, got %+v", t))
	}

	// A refresh that becomes due during an access must be issued, and its
	// TRFC must pass, before the timer expires again.
	if t.RefreshInterval <= t.RefreshLatency()+t.TRFC {
		panic(fmt.Sprintf(
			"refresh interval of %d cycles cannot fit an access and a refresh "+
				"of %d cycles", t.RefreshInterval, t.RefreshLatency()+t.TRFC))
	}
}
