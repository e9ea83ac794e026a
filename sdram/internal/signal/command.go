package signal

// CommandKind is the kind of command the controller presents to the device
// in a cycle.
type CommandKind int

// CommandKinds supported by the device.
const (
	CmdKindNOP CommandKind = iota
	CmdKindActivate
	CmdKindRead
	CmdKindWrite
	CmdKindPrecharge
	CmdKindRefresh
	CmdKindLoadModeRegister
	NumCmdKind
)

var cmdKindNames = [NumCmdKind]string{
	"NOP",
	"ACTIVATE",
	"READ",
	"WRITE",
	"PRECHARGE",
	"REFRESH",
	"LOAD_MODE_REGISTER",
}

func (k CommandKind) String() string {
	if k < 0 || k >= NumCmdKind {
		return "UNKNOWN"
	}

	return cmdKindNames[k]
}

// Address bus geometry.
const (
	BankBits = 2
	AddrBits = 13

	BankMask = 1<<BankBits - 1
	AddrMask = 1<<AddrBits - 1

	// AutoPrechargeBit is A10. With PRECHARGE it selects all banks. With
	// READ and WRITE it would request auto precharge, which the controller
	// never does.
	AutoPrechargeBit = 1 << 10
)

// Command is what the controller drives onto the device pins during one
// cycle.
type Command struct {
	Kind CommandKind
	Bank uint8
	Addr uint16

	DataOut      uint8
	OutputEnable bool
	DataMask     bool
}

// NOP returns a command that does nothing but still carries the data
// signals.
func NOP() Command {
	return Command{Kind: CmdKindNOP}
}

// IsNOP returns true if the command does not ask the device to do anything.
func (c Command) IsNOP() bool {
	return c.Kind == CmdKindNOP
}

// AllBanks returns true if a precharge command targets every bank.
func (c Command) AllBanks() bool {
	return c.Kind == CmdKindPrecharge && c.Addr&AutoPrechargeBit != 0
}
