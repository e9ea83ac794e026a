package sdram

import (
	"github.com/sarchlab/sdramsim/sdram/internal/org"
	"github.com/sarchlab/sdramsim/sdram/internal/signal"
)

// registers is everything the controller remembers from one cycle to the
// next. It is copied by value, so a step works on its own copy and the
// result replaces the old registers at once.
type registers struct {
	ctrl ControllerState

	prechargeAll  bool
	prechargeNext State

	ready   bool
	latch   requestLatch
	refresh RefreshState
	ser     byteSerializer
	banks   org.BankTable
	rsp     MemoryResponse
}

func initialRegisters() registers {
	return registers{
		ctrl: ControllerState{State: StateInit},
		rsp:  MemoryResponse{Busy: true},
	}
}

// inputs are the signals sampled at the start of a cycle.
type inputs struct {
	req MemoryRequest

	// dq is the data bus byte registered in the previous cycle.
	dq uint8
}

// outputs are the signals driven in a cycle, plus a few flags that tell the
// component what happened so it can report it.
type outputs struct {
	cmd Command
	rsp MemoryResponse

	admitted   bool
	dispatched bool
	access     org.Access
	op         PendingOperation

	refreshStarted bool
	refreshIssued  bool
	completed      bool
	recovered      bool
}

// A stepper computes the next register values. It holds only configuration.
type stepper struct {
	timing CycleTiming
	mapper org.Mapper
}

// step is the whole controller. It never modifies cur.
func (s stepper) step(cur registers, in inputs) (registers, outputs) {
	if !cur.ctrl.State.valid() {
		return s.restart()
	}

	next := cur
	out := outputs{cmd: signal.NOP()}
	out.cmd.DataMask = !cur.ready

	next.refresh = tickRefresh(cur.refresh, s.timing.RefreshInterval)
	next.rsp.Valid = false
	out.admitted = next.latch.admit(in.req, cur.ready)
	out.op = cur.latch.op

	switch cur.ctrl.State {
	case StateInit:
		next.ready = false
		s.enterWait(&next, s.timing.PowerUp, StateInitPrecharge)
	case StateInitPrecharge:
		out.cmd = s.issuePrechargeAll(out.cmd, &next)
		s.enterWait(&next, s.timing.TRP, StateInitRefresh1)
	case StateInitRefresh1:
		out.cmd.Kind = signal.CmdKindRefresh
		s.enterWait(&next, s.timing.TRFC, StateInitRefresh2)
	case StateInitRefresh2:
		out.cmd.Kind = signal.CmdKindRefresh
		s.enterWait(&next, s.timing.TRFC, StateLoadMode)
	case StateLoadMode:
		s.loadMode(&next, &out)
	case StateIdle:
		s.idle(cur, &next, &out)
	case StateRefresh:
		out.cmd.Kind = signal.CmdKindRefresh
		next.refresh.Due = false
		out.refreshIssued = true
		s.enterWait(&next, s.timing.TRFC, StateIdle)
	case StateActivate:
		s.activate(cur, &next, &out)
	case StateRead:
		s.read(cur, &next, &out)
	case StateReadData:
		s.readData(in, &next, &out)
	case StateWrite:
		s.write(cur, &next, &out)
	case StatePrecharge:
		s.precharge(cur, &next, &out)
	case StateWait:
		s.wait(cur, &next, &out)
	}

	out.rsp = MemoryResponse{
		Data:  next.rsp.Data,
		Valid: next.rsp.Valid,
		Busy:  !next.ready || next.latch.valid,
	}
	next.rsp = out.rsp

	return next, out
}

// restart throws away everything, including the admitted request, and
// starts over from power up.
func (s stepper) restart() (registers, outputs) {
	next := initialRegisters()
	out := outputs{
		cmd:       signal.NOP(),
		rsp:       next.rsp,
		recovered: true,
	}
	out.cmd.DataMask = true

	return next, out
}

// enterWait lets gap cycles pass between the command issued in this cycle
// and the first command of the resume state.
func (s stepper) enterWait(next *registers, gap int, resume State) {
	if gap <= 1 {
		next.ctrl = ControllerState{State: resume}
		return
	}

	next.ctrl = ControllerState{
		State:  StateWait,
		Resume: resume,
		Delay:  gap - 1,
	}
}

func (s stepper) wait(cur registers, next *registers, out *outputs) {
	if cur.ctrl.Delay > 1 {
		next.ctrl.Delay--
		return
	}

	next.ctrl = ControllerState{State: cur.ctrl.Resume}

	// The first byte goes on the bus one cycle ahead so that the WRITE
	// command and its data leave together.
	if cur.ctrl.Resume == StateWrite {
		out.cmd.DataOut = uint8(cur.ser.word)
		out.cmd.OutputEnable = true
	}
}

func (s stepper) issuePrechargeAll(cmd Command, next *registers) Command {
	cmd.Kind = signal.CmdKindPrecharge
	cmd.Addr = signal.AutoPrechargeBit
	next.banks.CloseAll()

	return cmd
}

func (s stepper) loadMode(next *registers, out *outputs) {
	out.cmd.Kind = signal.CmdKindLoadModeRegister
	out.cmd.Addr = signal.DefaultModeRegister.Encode()

	next.refresh = RefreshState{}
	next.ready = true

	s.enterWait(next, s.timing.TMRD, StateIdle)
}

func (s stepper) idle(cur registers, next *registers, out *outputs) {
	if cur.refresh.Due {
		next.prechargeAll = true
		next.prechargeNext = StateRefresh
		next.ctrl = ControllerState{State: StatePrecharge}
		out.refreshStarted = true

		return
	}

	if !cur.latch.valid {
		return
	}

	op := cur.latch.op
	loc := s.mapper.Map(op.Address)
	access := cur.banks.Classify(loc)

	out.dispatched = true
	out.access = access

	if op.IsWrite {
		next.ser.load(op.Data)
	} else {
		next.ser.load(0)
	}

	switch access {
	case org.AccessClosed:
		next.ctrl = ControllerState{State: StateActivate}
	case org.AccessHit:
		next.ctrl = ControllerState{State: transferState(op)}
	case org.AccessMiss:
		next.prechargeAll = false
		next.prechargeNext = StateActivate
		next.ctrl = ControllerState{State: StatePrecharge}
	}
}

func (s stepper) precharge(cur registers, next *registers, out *outputs) {
	if cur.prechargeAll {
		out.cmd = s.issuePrechargeAll(out.cmd, next)
	} else {
		loc := s.mapper.Map(cur.latch.op.Address)
		out.cmd.Kind = signal.CmdKindPrecharge
		out.cmd.Bank = loc.Bank
		next.banks.Close(loc.Bank)
	}

	s.enterWait(next, s.timing.TRP, cur.prechargeNext)
}

func (s stepper) activate(cur registers, next *registers, out *outputs) {
	op := cur.latch.op
	loc := s.mapper.Map(op.Address)

	out.cmd.Kind = signal.CmdKindActivate
	out.cmd.Bank = loc.Bank
	out.cmd.Addr = loc.Row & signal.AddrMask
	next.banks.Open(loc.Bank, loc.Row)

	s.enterWait(next, s.timing.TRCD, transferState(op))
}

func (s stepper) read(cur registers, next *registers, out *outputs) {
	loc := s.mapper.Map(cur.latch.op.Address)

	out.cmd.Kind = signal.CmdKindRead
	out.cmd.Bank = loc.Bank
	out.cmd.Addr = org.ColumnAddress(loc.Column)

	// The first byte is driven CAS latency cycles after the READ and is
	// sampled into the data register one cycle after that.
	s.enterWait(next, CASLatency()+1, StateReadData)
}

func (s stepper) readData(in inputs, next *registers, out *outputs) {
	next.ser.shiftIn(in.dq)
	if !next.ser.done() {
		return
	}

	next.rsp.Data = next.ser.word
	next.rsp.Valid = true
	next.latch.clear()
	next.ctrl = ControllerState{State: StateIdle}
	out.completed = true
}

func (s stepper) write(cur registers, next *registers, out *outputs) {
	if cur.ser.cursor == 0 {
		loc := s.mapper.Map(cur.latch.op.Address)
		out.cmd.Kind = signal.CmdKindWrite
		out.cmd.Bank = loc.Bank
		out.cmd.Addr = org.ColumnAddress(loc.Column)
	}

	out.cmd.DataOut = next.ser.nextOut()
	out.cmd.OutputEnable = true

	if !next.ser.done() {
		return
	}

	next.latch.clear()
	next.ctrl = ControllerState{State: StateIdle}
	out.completed = true
}

func transferState(op PendingOperation) State {
	if op.IsWrite {
		return StateWrite
	}

	return StateRead
}
