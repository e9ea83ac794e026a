// Package sdram provides a cycle-accurate model of a single-port SDRAM
// controller. The controller takes one word request at a time, keeps the row
// of every bank open for as long as possible, and refreshes the device
// periodically.
package sdram

import (
	"github.com/sarchlab/sdramsim/sdram/internal/org"
	"github.com/sarchlab/sdramsim/sim"
	"github.com/sarchlab/sdramsim/tracing"
)

// Comp is the SDRAM controller component. It is clocked every cycle for as
// long as it runs.
type Comp struct {
	*sim.TickingComponent

	device  Device
	client  Client
	stepper stepper

	regs    registers
	dq      uint8
	lastCmd Command
	cycle   uint64

	resetPending  bool
	stopped       bool
	stopCondition func() bool

	reqTaskID      string
	refreshTaskID  string
	refreshIssued  bool
	completedCount uint64
}

// Start schedules the first clock cycle.
func (c *Comp) Start() {
	c.Lock()
	c.stopped = false
	c.Unlock()

	c.TickNow()
}

// Stop makes the controller stop at the next clock cycle.
func (c *Comp) Stop() {
	c.Lock()
	c.stopped = true
	c.Unlock()
}

// Reset asserts the reset signal. The next cycle is the first cycle of the
// initialization sequence and whatever operation was in flight is lost.
func (c *Comp) Reset() {
	c.Lock()
	c.resetPending = true
	c.Unlock()
}

// SetClient connects the request interface.
func (c *Comp) SetClient(client Client) {
	c.Lock()
	c.client = client
	c.Unlock()
}

// Tick runs one clock cycle. It returns false once the controller is
// stopped.
func (c *Comp) Tick() bool {
	c.Lock()
	defer c.Unlock()

	if c.stopped || (c.stopCondition != nil && c.stopCondition()) {
		c.stopped = true
		return false
	}

	req := MemoryRequest{}
	if c.client != nil {
		req = c.client.Drive(c.regs.rsp)
	}

	if c.resetPending {
		c.resetPending = false
		c.regs = initialRegisters()
		c.abandonTasks()
	}

	next, out := c.stepper.step(c.regs, inputs{req: req, dq: c.dq})
	c.regs = next
	c.dq = c.device.Clock(out.cmd.Pins())
	c.lastCmd = out.cmd

	c.report(req, out)
	c.cycle++

	return true
}

func (c *Comp) report(req MemoryRequest, out outputs) {
	if out.recovered {
		c.abandonTasks()
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosRecovered})
	}

	if !out.cmd.IsNOP() {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosCommandIssued,
			Item:   out.cmd,
			Detail: CommandDetail{Cycle: c.cycle, Time: c.CurrentTime()},
		})
	}

	if out.admitted {
		c.reqTaskID = sim.GetIDGenerator().Generate()
		tracing.StartTask(c.reqTaskID, "", c, TaskKindRequest, opName(req.IsWrite), req)
	}

	if out.refreshStarted {
		c.startRefreshTask()
	}

	if out.refreshIssued {
		c.refreshIssued = true
	}

	if c.refreshTaskID != "" && c.refreshIssued &&
		c.regs.ctrl.State == StateIdle {
		tracing.EndTask(c.refreshTaskID, c)
		c.refreshTaskID = ""
		c.refreshIssued = false
	}

	if out.dispatched && c.reqTaskID != "" {
		tracing.AddTaskStep(c.reqTaskID, c, out.access.String())
	}

	if out.completed {
		c.completedCount++

		if c.reqTaskID != "" {
			tracing.EndTask(c.reqTaskID, c)
			c.reqTaskID = ""
		}

		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosOpCompleted,
			Item:   out.op,
			Detail: out.rsp,
		})
	}
}

func (c *Comp) startRefreshTask() {
	c.refreshTaskID = sim.GetIDGenerator().Generate()
	c.refreshIssued = false
	tracing.StartTask(c.refreshTaskID, "", c, TaskKindRefresh, "refresh", nil)

	if c.reqTaskID != "" {
		tracing.AddTaskStep(c.reqTaskID, c, StepRefreshStall)
	}
}

// abandonTasks ends the tasks that a reset or a recovery throws away.
func (c *Comp) abandonTasks() {
	if c.reqTaskID != "" {
		tracing.EndTask(c.reqTaskID, c)
		c.reqTaskID = ""
	}

	if c.refreshTaskID != "" {
		tracing.EndTask(c.refreshTaskID, c)
		c.refreshTaskID = ""
		c.refreshIssued = false
	}
}

func opName(isWrite bool) string {
	if isWrite {
		return "write"
	}

	return "read"
}

// Ready returns true once initialization has finished.
func (c *Comp) Ready() bool {
	c.Lock()
	defer c.Unlock()

	return c.regs.ready
}

// Busy returns the busy signal the controller drove in the last cycle.
func (c *Comp) Busy() bool {
	c.Lock()
	defer c.Unlock()

	return c.regs.rsp.Busy
}

// Response returns the response the controller drove in the last cycle.
func (c *Comp) Response() MemoryResponse {
	c.Lock()
	defer c.Unlock()

	return c.regs.rsp
}

// State returns the state machine register.
func (c *Comp) State() ControllerState {
	c.Lock()
	defer c.Unlock()

	return c.regs.ctrl
}

// Pending returns the admitted operation, if any.
func (c *Comp) Pending() (PendingOperation, bool) {
	c.Lock()
	defer c.Unlock()

	return c.regs.latch.op, c.regs.latch.valid
}

// RefreshState returns the refresh timer.
func (c *Comp) RefreshState() RefreshState {
	c.Lock()
	defer c.Unlock()

	return c.regs.refresh
}

// BankStates returns a snapshot of the open row of every bank.
func (c *Comp) BankStates() [NumBanks]BankState {
	c.Lock()
	defer c.Unlock()

	return c.regs.banks
}

// LastCommand returns the command driven in the last cycle.
func (c *Comp) LastCommand() Command {
	c.Lock()
	defer c.Unlock()

	return c.lastCmd
}

// Cycle returns the number of cycles the controller has run.
func (c *Comp) Cycle() uint64 {
	c.Lock()
	defer c.Unlock()

	return c.cycle
}

// CompletedOps returns the number of operations that have completed.
func (c *Comp) CompletedOps() uint64 {
	c.Lock()
	defer c.Unlock()

	return c.completedCount
}

// Timing returns the cycle timing the controller enforces.
func (c *Comp) Timing() CycleTiming {
	return c.stepper.timing
}

// Capacity returns the number of words the controller can address.
func (c *Comp) Capacity() uint64 {
	return c.stepper.mapper.Capacity()
}

// Locate returns where a word address lives in the device.
func (c *Comp) Locate(addr uint32) Location {
	return c.stepper.mapper.Map(addr)
}

// Mapper converts word addresses into device locations.
type Mapper = org.Mapper

// DefaultMapper lays addresses out as row | bank | column for a device with
// 4 banks, 8192 rows and 256 word columns per row.
func DefaultMapper() Mapper {
	return org.DefaultMapper
}

// Status is a snapshot of the controller registers.
type Status struct {
	Cycle        uint64
	State        string
	Resume       string
	Delay        int
	Ready        bool
	Busy         bool
	Pending      *PendingOperation
	Refresh      RefreshState
	Banks        [NumBanks]BankState
	LastCommand  string
	CompletedOps uint64
}

// Status returns a snapshot of the controller registers.
func (c *Comp) Status() Status {
	c.Lock()
	defer c.Unlock()

	s := Status{
		Cycle:        c.cycle,
		State:        c.regs.ctrl.State.String(),
		Delay:        c.regs.ctrl.Delay,
		Ready:        c.regs.ready,
		Busy:         c.regs.rsp.Busy,
		Refresh:      c.regs.refresh,
		Banks:        c.regs.banks,
		LastCommand:  c.lastCmd.Kind.String(),
		CompletedOps: c.completedCount,
	}

	if c.regs.ctrl.State == StateWait {
		s.Resume = c.regs.ctrl.Resume.String()
	}

	if c.regs.latch.valid {
		op := c.regs.latch.op
		s.Pending = &op
	}

	return s
}
