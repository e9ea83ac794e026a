package sdram

import (
	"log"
	"sync"

	"github.com/sarchlab/sdramsim/datarecording"
	"github.com/sarchlab/sdramsim/sdram/internal/org"
	"github.com/sarchlab/sdramsim/sim"
)

// HookPosCommandIssued is triggered when the controller drives a command
// other than NOP. The item is the Command and the detail is a CommandDetail.
var HookPosCommandIssued = &sim.HookPos{Name: "SDRAMCommandIssued"}

// HookPosOpCompleted is triggered when an operation completes. The item is
// the PendingOperation and the detail is the MemoryResponse driven in the
// same cycle.
var HookPosOpCompleted = &sim.HookPos{Name: "SDRAMOpCompleted"}

// HookPosRecovered is triggered when the controller finds itself in an
// unknown state and restarts initialization.
var HookPosRecovered = &sim.HookPos{Name: "SDRAMRecovered"}

// Tracing task kinds. A request task runs from admission to completion and
// takes one of RequestSteps when it is dispatched. A refresh task runs from
// the decision to refresh until the controller is idle again.
const (
	TaskKindRequest = "req_in"
	TaskKindRefresh = "refresh"
)

// StepRefreshStall is added to a request that waits for a refresh.
const StepRefreshStall = "refresh_stall"

// RequestSteps lists the steps a request task can take.
var RequestSteps = []string{
	org.AccessClosed.String(),
	org.AccessHit.String(),
	org.AccessMiss.String(),
	StepRefreshStall,
}

// CommandDetail tells when a command was issued.
type CommandDetail struct {
	Cycle uint64
	Time  sim.VTimeInSec
}

// CommandCounter counts the issued commands of every kind.
type CommandCounter struct {
	lock   sync.Mutex
	counts [NumCmdKind]uint64
}

// NewCommandCounter creates a CommandCounter.
func NewCommandCounter() *CommandCounter {
	return &CommandCounter{}
}

// Func counts the command.
func (c *CommandCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCommandIssued {
		return
	}

	cmd := ctx.Item.(Command)

	c.lock.Lock()
	c.counts[cmd.Kind]++
	c.lock.Unlock()
}

// Count returns the number of commands of the kind issued so far.
func (c *CommandCounter) Count(kind CommandKind) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[kind]
}

// Reset sets every count back to zero.
func (c *CommandCounter) Reset() {
	c.lock.Lock()
	c.counts = [NumCmdKind]uint64{}
	c.lock.Unlock()
}

// CommandLogger writes one line per issued command.
type CommandLogger struct {
	logger *log.Logger
}

// NewCommandLogger creates a CommandLogger that writes to the logger.
func NewCommandLogger(logger *log.Logger) *CommandLogger {
	return &CommandLogger{logger: logger}
}

// Func logs the command.
func (l *CommandLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCommandIssued {
		return
	}

	cmd := ctx.Item.(Command)
	detail := ctx.Detail.(CommandDetail)

	name := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		name = named.Name()
	}

	l.logger.Printf("%.10f, %d, %s, %s, bank %d, addr 0x%04x",
		detail.Time, detail.Cycle, name, cmd.Kind, cmd.Bank, cmd.Addr)
}

type commandEntry struct {
	Cycle     uint64
	Time      float64
	Component string
	Command   string
	Bank      uint8
	Addr      uint16
}

// CommandTableName is the table CommandRecorder writes to.
const CommandTableName = "sdram_command"

// CommandRecorder writes every issued command into a data recorder.
type CommandRecorder struct {
	recorder datarecording.DataRecorder
}

// NewCommandRecorder creates the command table and returns a hook that fills
// it.
func NewCommandRecorder(recorder datarecording.DataRecorder) *CommandRecorder {
	recorder.CreateTable(CommandTableName, commandEntry{})

	return &CommandRecorder{recorder: recorder}
}

// Func records the command.
func (r *CommandRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCommandIssued {
		return
	}

	cmd := ctx.Item.(Command)
	detail := ctx.Detail.(CommandDetail)

	name := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		name = named.Name()
	}

	r.recorder.InsertData(CommandTableName, commandEntry{
		Cycle:     detail.Cycle,
		Time:      float64(detail.Time),
		Component: name,
		Command:   cmd.Kind.String(),
		Bank:      cmd.Bank,
		Addr:      cmd.Addr,
	})
}
