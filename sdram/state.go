package sdram

// State is the state of the controller state machine.
type State int

// States of the controller. The first group runs once after reset. StateWait
// is shared by every operation that has to let device time pass.
const (
	StateInit State = iota
	StateInitPrecharge
	StateInitRefresh1
	StateInitRefresh2
	StateLoadMode
	StateIdle
	StateRefresh
	StateActivate
	StateRead
	StateReadData
	StateWrite
	StatePrecharge
	StateWait
	numStates
)

var stateNames = [numStates]string{
	"Init",
	"InitPrecharge",
	"InitRefresh1",
	"InitRefresh2",
	"LoadMode",
	"Idle",
	"Refresh",
	"Activate",
	"Read",
	"ReadData",
	"Write",
	"Precharge",
	"Wait",
}

func (s State) String() string {
	if !s.valid() {
		return "Invalid"
	}

	return stateNames[s]
}

func (s State) valid() bool {
	return s >= 0 && s < numStates
}

// Initializing returns true for the states of the power-up sequence.
func (s State) Initializing() bool {
	return s >= StateInit && s <= StateLoadMode
}
