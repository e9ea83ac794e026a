// Package chip provides a behavioural model of a 4-bank, byte-wide SDRAM
// device. It stores data, plays back read bursts with the programmed CAS
// latency and checks the commands it receives against the device timing
// rules. Broken rules are recorded, not enforced.
package chip

import (
	"fmt"

	"github.com/sarchlab/sdramsim/sdram/internal/org"
	"github.com/sarchlab/sdramsim/sdram/internal/signal"
)

// Device geometry.
const (
	NumBanks    = org.NumBanks
	NumRows     = 8192
	NumByteCols = 1024
)

const columnMask = NumByteCols - 1

// Config holds the timing rules the device checks, in cycles.
type Config struct {
	PowerUpCycles int
	TRP           int
	TRFC          int
	TRCD          int
	TMRD          int

	// MaxRefreshGap is the longest allowed distance between two refresh
	// commands once the device is initialized. Zero disables the check.
	MaxRefreshGap int
}

// DefaultConfig returns the rules of the part at 100 MHz.
func DefaultConfig() Config {
	return Config{
		PowerUpCycles: 10000,
		TRP:           2,
		TRFC:          7,
		TRCD:          2,
		TMRD:          2,
	}
}

// A Violation is a broken device rule.
type Violation struct {
	Cycle  uint64
	Rule   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("cycle %d: %s: %s", v.Cycle, v.Rule, v.Detail)
}

// Rule names.
const (
	RulePowerUp       = "power_up"
	RuleInitRefresh   = "init_refresh"
	RuleModeRegister  = "mode_register"
	RuleTRP           = "tRP"
	RuleTRFC          = "tRFC"
	RuleTRCD          = "tRCD"
	RuleTMRD          = "tMRD"
	RuleBankOpen      = "bank_open"
	RuleBankClosed    = "bank_closed"
	RuleRefreshOpen   = "refresh_with_open_bank"
	RuleRefreshGap    = "refresh_gap"
	RuleAutoPrecharge = "auto_precharge"
	RuleWriteData     = "write_data"
	RuleBusContention = "bus_contention"
	RuleStrobes       = "bad_strobes"
)

type bankState struct {
	open          bool
	row           uint16
	activatedAt   uint64
	prechargedAt  uint64
	everActivated bool
	everPrecharge bool
}

type rowKey struct {
	bank uint8
	row  uint16
}

type burst struct {
	active bool
	bank   uint8
	row    uint16
	col    uint16
	start  uint64
}

// Chip is the device model. It implements sdram.Device.
type Chip struct {
	cfg   Config
	cycle uint64

	storage map[rowKey]*[NumByteCols]byte
	banks   [NumBanks]bankState

	mode           signal.ModeRegister
	modeSet        bool
	modeSetAt      uint64
	initRefreshes  int
	lastRefreshAt  uint64
	everRefreshed  bool
	refreshGapSeen bool

	readBurst  burst
	writeBurst burst

	violations []Violation
	counts     [signal.NumCmdKind]uint64
}

// New creates a device that checks the given rules.
func New(cfg Config) *Chip {
	return &Chip{
		cfg:     cfg,
		storage: make(map[rowKey]*[NumByteCols]byte),
		mode:    signal.DefaultModeRegister,
	}
}

// Clock samples the pins for one device cycle and returns the byte on the
// data bus. Strobes that name no command are a violation and otherwise act
// as a NOP.
func (c *Chip) Clock(pins signal.Pins) uint8 {
	cmd, ok := pins.Decode()
	if !ok {
		c.violate(RuleStrobes, "CS#/RAS#/CAS#/WE# = %04b is not a command",
			uint8(pins.Strobes))
	}

	c.counts[cmd.Kind]++

	if !cmd.IsNOP() {
		c.checkCommon(cmd)
		c.execute(cmd)
	}

	c.checkRefreshGap()

	out, driving := c.readOut()
	if driving && cmd.OutputEnable {
		c.violate(RuleBusContention,
			"controller drives the data bus during a read burst")
	}

	c.writeIn(cmd)

	c.cycle++

	return out
}

func (c *Chip) execute(cmd signal.Command) {
	switch cmd.Kind {
	case signal.CmdKindLoadModeRegister:
		c.loadMode(cmd)
	case signal.CmdKindRefresh:
		c.refresh()
	case signal.CmdKindPrecharge:
		c.precharge(cmd)
	case signal.CmdKindActivate:
		c.activate(cmd)
	case signal.CmdKindRead, signal.CmdKindWrite:
		c.access(cmd)
	}
}

func (c *Chip) checkCommon(cmd signal.Command) {
	if c.cycle < uint64(c.cfg.PowerUpCycles) {
		c.violate(RulePowerUp, "%s before the power-up time elapsed", cmd.Kind)
	}

	if c.everRefreshed && c.since(c.lastRefreshAt) < c.cfg.TRFC {
		c.violate(RuleTRFC, "%s %d cycles after REFRESH",
			cmd.Kind, c.since(c.lastRefreshAt))
	}

	if c.modeSet && c.since(c.modeSetAt) < c.cfg.TMRD {
		c.violate(RuleTMRD, "%s %d cycles after LOAD_MODE_REGISTER",
			cmd.Kind, c.since(c.modeSetAt))
	}
}

func (c *Chip) loadMode(cmd signal.Command) {
	c.checkPrechargeToCommand(cmd.Kind)

	mode, err := signal.DecodeModeRegister(cmd.Addr)
	if err != nil {
		c.violate(RuleModeRegister, "%v", err)
		return
	}

	c.mode = mode
	c.modeSet = true
	c.modeSetAt = c.cycle
}

func (c *Chip) refresh() {
	c.checkPrechargeToCommand(signal.CmdKindRefresh)

	for _, b := range c.banks {
		if b.open {
			c.violate(RuleRefreshOpen, "REFRESH while a bank is open")
			break
		}
	}

	c.initRefreshes++
	c.lastRefreshAt = c.cycle
	c.everRefreshed = true
	c.refreshGapSeen = false
}

// checkPrechargeToCommand checks tRP for commands that involve every bank.
func (c *Chip) checkPrechargeToCommand(kind signal.CommandKind) {
	for i := range c.banks {
		b := &c.banks[i]
		if b.everPrecharge && c.since(b.prechargedAt) < c.cfg.TRP {
			c.violate(RuleTRP, "%s %d cycles after precharging bank %d",
				kind, c.since(b.prechargedAt), i)

			return
		}
	}
}

func (c *Chip) precharge(cmd signal.Command) {
	if cmd.AllBanks() {
		for i := range c.banks {
			c.closeBank(i)
		}

		return
	}

	c.closeBank(int(cmd.Bank) % NumBanks)
}

func (c *Chip) closeBank(i int) {
	c.banks[i].open = false
	c.banks[i].prechargedAt = c.cycle
	c.banks[i].everPrecharge = true
}

func (c *Chip) activate(cmd signal.Command) {
	c.mustBeInitialized(cmd)

	b := &c.banks[int(cmd.Bank)%NumBanks]

	if b.open {
		c.violate(RuleBankOpen, "ACTIVATE row %d on bank %d with row %d open",
			cmd.Addr, cmd.Bank, b.row)
	}

	if b.everPrecharge && c.since(b.prechargedAt) < c.cfg.TRP {
		c.violate(RuleTRP, "ACTIVATE %d cycles after precharging bank %d",
			c.since(b.prechargedAt), cmd.Bank)
	}

	b.open = true
	b.row = cmd.Addr & signal.AddrMask
	b.activatedAt = c.cycle
	b.everActivated = true
}

func (c *Chip) mustBeInitialized(cmd signal.Command) {
	if c.initRefreshes < 2 {
		c.violate(RuleInitRefresh, "%s after %d initial refreshes",
			cmd.Kind, c.initRefreshes)
	}

	if !c.modeSet {
		c.violate(RuleModeRegister, "%s before the mode register is set",
			cmd.Kind)
	}
}

func (c *Chip) access(cmd signal.Command) {
	c.mustBeInitialized(cmd)

	bank := int(cmd.Bank) % NumBanks
	b := &c.banks[bank]

	if !b.open {
		c.violate(RuleBankClosed, "%s on closed bank %d", cmd.Kind, bank)
		return
	}

	if c.since(b.activatedAt) < c.cfg.TRCD {
		c.violate(RuleTRCD, "%s %d cycles after ACTIVATE on bank %d",
			cmd.Kind, c.since(b.activatedAt), bank)
	}

	if cmd.Addr&signal.AutoPrechargeBit != 0 {
		c.violate(RuleAutoPrecharge, "%s with auto precharge", cmd.Kind)
	}

	br := burst{
		active: true,
		bank:   uint8(bank),
		row:    b.row,
		col:    cmd.Addr & columnMask,
		start:  c.cycle,
	}

	if cmd.Kind == signal.CmdKindRead {
		br.start += uint64(c.mode.CASLatency)
		c.readBurst = br

		return
	}

	c.writeBurst = br
}

// burstColumn returns the column of the k-th byte in a burst.
func (c *Chip) burstColumn(br burst, k int) uint16 {
	bl := uint16(c.mode.BurstLength)
	base := br.col &^ (bl - 1)
	offset := br.col & (bl - 1)

	if c.mode.Sequential {
		offset = (offset + uint16(k)) & (bl - 1)
	} else {
		offset ^= uint16(k)
	}

	return base | offset
}

func (c *Chip) burstIndex(br burst) (int, bool) {
	if !br.active || c.cycle < br.start {
		return 0, false
	}

	k := int(c.cycle - br.start)
	if k >= c.mode.BurstLength {
		return 0, false
	}

	return k, true
}

func (c *Chip) readOut() (uint8, bool) {
	k, ok := c.burstIndex(c.readBurst)
	if !ok {
		return 0, false
	}

	br := c.readBurst

	return c.row(br.bank, br.row)[c.burstColumn(br, k)], true
}

func (c *Chip) writeIn(cmd signal.Command) {
	k, ok := c.burstIndex(c.writeBurst)
	if !ok || cmd.DataMask {
		return
	}

	if !cmd.OutputEnable {
		c.violate(RuleWriteData, "write burst byte %d not driven", k)
		return
	}

	br := c.writeBurst
	c.row(br.bank, br.row)[c.burstColumn(br, k)] = cmd.DataOut
}

func (c *Chip) checkRefreshGap() {
	if c.cfg.MaxRefreshGap == 0 || !c.modeSet || c.refreshGapSeen {
		return
	}

	if c.since(c.lastRefreshAt) > c.cfg.MaxRefreshGap {
		c.violate(RuleRefreshGap, "no REFRESH for more than %d cycles",
			c.cfg.MaxRefreshGap)
		c.refreshGapSeen = true
	}
}

func (c *Chip) row(bank uint8, row uint16) *[NumByteCols]byte {
	key := rowKey{bank: bank, row: row}

	r, ok := c.storage[key]
	if !ok {
		r = new([NumByteCols]byte)
		c.storage[key] = r
	}

	return r
}

func (c *Chip) since(t uint64) int {
	return int(c.cycle - t)
}

func (c *Chip) violate(rule, format string, args ...any) {
	c.violations = append(c.violations, Violation{
		Cycle:  c.cycle,
		Rule:   rule,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Violations returns the broken rules in the order they were found.
func (c *Chip) Violations() []Violation {
	v := make([]Violation, len(c.violations))
	copy(v, c.violations)

	return v
}

// CommandCount returns how many commands of the kind the device received.
func (c *Chip) CommandCount(kind signal.CommandKind) uint64 {
	return c.counts[kind]
}

// Cycle returns the number of cycles the device has been clocked.
func (c *Chip) Cycle() uint64 {
	return c.cycle
}

// Mode returns the programmed mode register and whether it has been set.
func (c *Chip) Mode() (signal.ModeRegister, bool) {
	return c.mode, c.modeSet
}

// OpenRow returns the row open in the bank, if any.
func (c *Chip) OpenRow(bank uint8) (uint16, bool) {
	b := c.banks[int(bank)%NumBanks]
	return b.row, b.open
}
