package chip

import (
	"fmt"

	"github.com/sarchlab/sdramsim/sdram/internal/org"
)

func checkLocation(bank uint8, row uint16, byteCol uint16) error {
	if int(bank) >= NumBanks {
		return fmt.Errorf("bank %d out of range", bank)
	}

	if int(row) >= NumRows {
		return fmt.Errorf("row %d out of range", row)
	}

	if int(byteCol) >= NumByteCols {
		return fmt.Errorf("column %d out of range", byteCol)
	}

	return nil
}

// Peek reads a stored byte without going through the command interface.
func (c *Chip) Peek(bank uint8, row uint16, byteCol uint16) (uint8, error) {
	if err := checkLocation(bank, row, byteCol); err != nil {
		return 0, err
	}

	r, ok := c.storage[rowKey{bank: bank, row: row}]
	if !ok {
		return 0, nil
	}

	return r[byteCol], nil
}

// Poke writes a stored byte without going through the command interface.
func (c *Chip) Poke(bank uint8, row uint16, byteCol uint16, v uint8) error {
	if err := checkLocation(bank, row, byteCol); err != nil {
		return err
	}

	c.row(bank, row)[byteCol] = v

	return nil
}

// PeekWord reads the word at a location, lowest byte first, the way the
// controller lays it out.
func (c *Chip) PeekWord(loc org.Location) (uint32, error) {
	var w uint32

	for k := 0; k < org.BytesPerWord; k++ {
		b, err := c.Peek(loc.Bank, loc.Row, org.ColumnAddress(loc.Column)+uint16(k))
		if err != nil {
			return 0, err
		}

		w |= uint32(b) << (8 * k)
	}

	return w, nil
}

// PokeWord writes the word at a location, lowest byte first.
func (c *Chip) PokeWord(loc org.Location, w uint32) error {
	for k := 0; k < org.BytesPerWord; k++ {
		err := c.Poke(loc.Bank, loc.Row, org.ColumnAddress(loc.Column)+uint16(k),
			uint8(w>>(8*k)))
		if err != nil {
			return err
		}
	}

	return nil
}
