package sdram

import (
	"github.com/sarchlab/sdramsim/sdram/internal/org"
	"github.com/sarchlab/sdramsim/sdram/internal/signal"
)

// A MemoryRequest is what a client drives on the request interface in one
// cycle. The request is only considered when Valid is set.
type MemoryRequest struct {
	// Address is a word address. Only the bits below Comp.Capacity are
	// wired to the device, so higher addresses alias lower ones.
	Address uint32
	Data    uint32
	IsWrite bool
	Valid   bool
}

// A MemoryResponse is what the controller drives on the response interface
// in one cycle. Valid pulses for one cycle when a read completes. Data keeps
// the last read word.
type MemoryResponse struct {
	Data  uint32
	Valid bool
	Busy  bool
}

// PendingOperation is the request the controller has admitted and is working
// on.
type PendingOperation struct {
	IsWrite bool
	Address uint32
	Data    uint32
}

// RefreshState is the refresh timer. Due is raised when Counter reaches the
// refresh interval and stays raised until a refresh command is issued.
type RefreshState struct {
	Counter int
	Due     bool
}

// ControllerState is the state machine register. Resume and Delay only
// matter while State is StateWait.
type ControllerState struct {
	State  State
	Resume State
	Delay  int
}

// Command is one cycle of the device command interface.
type Command = signal.Command

// CommandKind is the kind of a device command.
type CommandKind = signal.CommandKind

// BankState is the open-row state of one bank.
type BankState = org.BankState

// Location identifies a word in the device.
type Location = org.Location

// Device command kinds.
const (
	CmdKindNOP              = signal.CmdKindNOP
	CmdKindActivate         = signal.CmdKindActivate
	CmdKindRead             = signal.CmdKindRead
	CmdKindWrite            = signal.CmdKindWrite
	CmdKindPrecharge        = signal.CmdKindPrecharge
	CmdKindRefresh          = signal.CmdKindRefresh
	CmdKindLoadModeRegister = signal.CmdKindLoadModeRegister
	NumCmdKind              = signal.NumCmdKind
)

// NumBanks is the number of banks the controller tracks.
const NumBanks = org.NumBanks

// Pins is one cycle of controller outputs at the device boundary, with the
// command encoded onto the CS#, RAS#, CAS# and WE# strobes.
type Pins = signal.Pins

// A Device sits on the other side of the command interface. Clock presents
// one cycle of pin levels and returns the byte the device drives on the data
// bus in that cycle.
type Device interface {
	Clock(pins Pins) uint8
}

// A Client sits on the request interface. Drive is called once per cycle
// with the response the controller registered in the previous cycle and
// returns the request for this cycle.
type Client interface {
	Drive(rsp MemoryResponse) MemoryRequest
}
