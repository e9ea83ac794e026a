package org

// NumBanks is the number of banks in the device.
const NumBanks = 4

// BankState is the open-row state of one bank. OpenRow is meaningless while
// the bank is closed.
type BankState struct {
	IsOpen  bool
	OpenRow uint16
}

// Access classifies an access against the bank table.
type Access int

// Access results.
const (
	AccessClosed Access = iota
	AccessHit
	AccessMiss
)

func (a Access) String() string {
	switch a {
	case AccessClosed:
		return "bank_closed"
	case AccessHit:
		return "row_hit"
	case AccessMiss:
		return "row_miss"
	default:
		return "unknown"
	}
}

// BankTable tracks the open row of every bank. It is a value type so that a
// copy is a snapshot.
type BankTable [NumBanks]BankState

// Classify decides whether an access finds its bank closed, finds its row
// already open, or has to evict another row first.
func (t *BankTable) Classify(loc Location) Access {
	b := t[loc.Bank%NumBanks]

	switch {
	case !b.IsOpen:
		return AccessClosed
	case b.OpenRow == loc.Row:
		return AccessHit
	default:
		return AccessMiss
	}
}

// Open marks the bank as holding the row.
func (t *BankTable) Open(bank uint8, row uint16) {
	t[bank%NumBanks] = BankState{IsOpen: true, OpenRow: row}
}

// Close marks the bank as closed.
func (t *BankTable) Close(bank uint8) {
	t[bank%NumBanks] = BankState{}
}

// CloseAll marks every bank as closed.
func (t *BankTable) CloseAll() {
	*t = BankTable{}
}

// AnyOpen returns true if at least one bank holds an open row.
func (t *BankTable) AnyOpen() bool {
	for _, b := range t {
		if b.IsOpen {
			return true
		}
	}

	return false
}
