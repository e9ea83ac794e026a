// Package memtester provides a client that checks an SDRAM controller end to
// end by writing pseudo-random words and reading every one of them back.
package memtester

import (
	"log"
	"math/rand"

	"github.com/sarchlab/sdramsim/sdram"
)

type phase int

const (
	phaseWrite phase = iota
	phaseRead
	phaseDone
)

// A Mismatch is a read that did not return what was written.
type Mismatch struct {
	Address  uint32
	Expected uint32
	Actual   uint32
}

// Tester drives the request interface of a controller. It first writes
// NumAccess random words to random addresses and then reads back every
// address it wrote.
type Tester struct {
	rng        *rand.Rand
	logger     *log.Logger
	maxAddress uint32
	writeLeft  int

	phase     phase
	known     map[uint32]uint32
	order     []uint32
	readIndex int

	inflight     bool
	inflightRead bool
	inflightAddr uint32

	writes     int
	reads      int
	mismatches []Mismatch
}

// Drive consumes the response of the last cycle and returns the request for
// this cycle.
func (t *Tester) Drive(rsp sdram.MemoryResponse) sdram.MemoryRequest {
	if t.inflight && t.inflightRead && rsp.Valid {
		t.checkReadResult(rsp.Data)
	}

	if rsp.Busy {
		return sdram.MemoryRequest{}
	}

	if t.inflight && !t.inflightRead {
		t.inflight = false
	}

	if t.inflight {
		return sdram.MemoryRequest{}
	}

	switch t.phase {
	case phaseWrite:
		return t.doWrite()
	case phaseRead:
		return t.doRead()
	}

	return sdram.MemoryRequest{}
}

func (t *Tester) doWrite() sdram.MemoryRequest {
	address := uint32(t.rng.Int63n(int64(t.maxAddress)))
	data := t.rng.Uint32()

	if _, written := t.known[address]; !written {
		t.order = append(t.order, address)
	}

	t.known[address] = data
	t.writeLeft--
	t.writes++
	t.inflight = true
	t.inflightRead = false
	t.inflightAddr = address

	if t.writeLeft == 0 {
		t.phase = phaseRead
	}

	t.logf("tester, write, 0x%X, 0x%08X", address, data)

	return sdram.MemoryRequest{
		Address: address,
		Data:    data,
		IsWrite: true,
		Valid:   true,
	}
}

func (t *Tester) doRead() sdram.MemoryRequest {
	if t.readIndex >= len(t.order) {
		t.phase = phaseDone
		return sdram.MemoryRequest{}
	}

	address := t.order[t.readIndex]
	t.readIndex++
	t.inflight = true
	t.inflightRead = true
	t.inflightAddr = address

	t.logf("tester, read, 0x%X", address)

	return sdram.MemoryRequest{Address: address, Valid: true}
}

func (t *Tester) checkReadResult(data uint32) {
	t.inflight = false
	t.reads++

	expected := t.known[t.inflightAddr]
	if data == expected {
		return
	}

	t.mismatches = append(t.mismatches, Mismatch{
		Address:  t.inflightAddr,
		Expected: expected,
		Actual:   data,
	})

	t.logf("tester, mismatch at 0x%X, expected 0x%08X, got 0x%08X",
		t.inflightAddr, expected, data)
}

func (t *Tester) logf(format string, args ...any) {
	if t.logger == nil {
		return
	}

	t.logger.Printf(format, args...)
}

// Done returns true when every written address has been read back.
func (t *Tester) Done() bool {
	if t.phase == phaseRead && !t.inflight && t.readIndex >= len(t.order) {
		t.phase = phaseDone
	}

	return t.phase == phaseDone
}

// Writes returns the number of writes issued.
func (t *Tester) Writes() int {
	return t.writes
}

// Reads returns the number of read results received.
func (t *Tester) Reads() int {
	return t.reads
}

// Mismatches returns the reads that returned wrong data.
func (t *Tester) Mismatches() []Mismatch {
	return t.mismatches
}
