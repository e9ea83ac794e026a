// Package org describes how the device is organized: how a word address
// lands on a bank, a row and a column, and which row each bank holds open.
package org

import "fmt"

// Location identifies one word in the device.
type Location struct {
	Bank   uint8
	Row    uint16
	Column uint16
}

func (l Location) String() string {
	return fmt.Sprintf("b%d/r%d/c%d", l.Bank, l.Row, l.Column)
}

// A Mapper converts word addresses into locations. Only addresses below
// Capacity have a location of their own. Map folds the others back onto
// them.
type Mapper interface {
	Map(addr uint32) Location
	Capacity() uint64
}

// RowBankColMapper lays a word address out as row | bank | column, from the
// most significant bits down. Consecutive words share a row until the column
// bits wrap, after which the next bank is used.
type RowBankColMapper struct {
	ColumnBits int
	BankBits   int
	RowBits    int
}

// DefaultMapper matches a 4-bank device with 8192 rows and 256 four-byte
// word columns per row.
var DefaultMapper = RowBankColMapper{
	ColumnBits: 8,
	BankBits:   2,
	RowBits:    13,
}

// Map returns the location of the word address. Bits above the row bits are
// ignored, so addr and addr+Capacity() share a location.
func (m RowBankColMapper) Map(addr uint32) Location {
	col := addr & mask(m.ColumnBits)
	addr >>= m.ColumnBits
	bank := addr & mask(m.BankBits)
	addr >>= m.BankBits
	row := addr & mask(m.RowBits)

	return Location{
		Bank:   uint8(bank),
		Row:    uint16(row),
		Column: uint16(col),
	}
}

// WordsPerRow returns the number of words in one row of one bank.
func (m RowBankColMapper) WordsPerRow() uint32 {
	return 1 << m.ColumnBits
}

// Capacity returns the number of addressable words.
func (m RowBankColMapper) Capacity() uint64 {
	return 1 << (m.ColumnBits + m.BankBits + m.RowBits)
}

func mask(bits int) uint32 {
	return 1<<bits - 1
}

// BytesPerWord is the number of device bytes that make a controller word.
// It equals the burst length.
const BytesPerWord = 4

// ColumnAddress converts a word column into the byte column that starts its
// burst. The auto-precharge bit is left clear.
func ColumnAddress(col uint16) uint16 {
	return col * BytesPerWord
}
