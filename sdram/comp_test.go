package sdram

import (
	"bytes"
	"database/sql"
	"log"
	"math/rand"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/sdramsim/datarecording"
	"github.com/sarchlab/sdramsim/sdram/chip"
	"github.com/sarchlab/sdramsim/sdram/internal/signal"
	"github.com/sarchlab/sdramsim/sim"
	"github.com/sarchlab/sdramsim/tracing"
)

// scriptedClient issues a fixed list of operations, one whenever the
// controller is not busy, and keeps the data of every read it gets back.
type scriptedClient struct {
	ops   []PendingOperation
	next  int
	reads []uint32
}

func (c *scriptedClient) Drive(rsp MemoryResponse) MemoryRequest {
	if rsp.Valid {
		c.reads = append(c.reads, rsp.Data)
	}

	if rsp.Busy || c.next >= len(c.ops) {
		return MemoryRequest{}
	}

	op := c.ops[c.next]
	c.next++

	return MemoryRequest{
		Address: op.Address,
		Data:    op.Data,
		IsWrite: op.IsWrite,
		Valid:   true,
	}
}

func (c *scriptedClient) issuedAll() bool {
	return c.next >= len(c.ops)
}

func write(addr, data uint32) PendingOperation {
	return PendingOperation{IsWrite: true, Address: addr, Data: data}
}

func read(addr uint32) PendingOperation {
	return PendingOperation{Address: addr}
}

func chipConfig(t CycleTiming) chip.Config {
	return chip.Config{
		PowerUpCycles: t.PowerUp,
		TRP:           t.TRP,
		TRFC:          t.TRFC,
		TRCD:          t.TRCD,
		TMRD:          t.TMRD,
		MaxRefreshGap: t.MaxRefreshGap(),
	}
}

func tickUntil(c *Comp, limit int, cond func() bool) {
	for i := 0; i < limit; i++ {
		if cond() {
			return
		}

		c.Tick()
	}

	Expect(cond()).To(BeTrue(), "condition not met in %d cycles", limit)
}

var _ = Describe("Builder", func() {
	It("should convert the default timing at 100 MHz", func() {
		Expect(MakeBuilder().CycleTiming()).To(Equal(CycleTiming{
			PowerUp:         10000,
			TRP:             2,
			TRFC:            7,
			TRCD:            2,
			TMRD:            2,
			RefreshInterval: 750,
		}))
	})

	It("should round minimums up at other frequencies", func() {
		t := MakeBuilder().WithFreq(133 * sim.MHz).CycleTiming()

		Expect(t.TRP).To(Equal(2))
		Expect(t.TRFC).To(Equal(9))
		Expect(t.RefreshInterval).To(BeNumerically("~", 997, 1))
	})

	It("should panic without an engine", func() {
		Expect(func() {
			MakeBuilder().WithDevice(chip.New(chip.DefaultConfig())).Build("SDRAM")
		}).To(Panic())
	})

	It("should panic without a device", func() {
		Expect(func() {
			MakeBuilder().WithEngine(sim.NewSerialEngine()).Build("SDRAM")
		}).To(Panic())
	})

	It("should panic with a refresh interval shorter than a refresh", func() {
		t := testCycleTiming
		t.RefreshInterval = t.TRP + t.TRFC

		Expect(func() {
			MakeBuilder().
				WithEngine(sim.NewSerialEngine()).
				WithDevice(chip.New(chip.DefaultConfig())).
				WithCycleTiming(t).
				Build("SDRAM")
		}).To(Panic())
	})

	It("should bound the refresh latency by a row miss read", func() {
		Expect(testCycleTiming.WorstAccess()).To(Equal(12))
		Expect(testCycleTiming.RefreshLatency()).To(Equal(15))
		Expect(testCycleTiming.MaxRefreshGap()).To(Equal(118))
	})

	It("should panic when an access and a refresh do not fit the interval", func() {
		t := testCycleTiming
		t.RefreshInterval = t.RefreshLatency() + t.TRFC

		build := func() {
			MakeBuilder().
				WithEngine(sim.NewSerialEngine()).
				WithDevice(chip.New(chip.DefaultConfig())).
				WithCycleTiming(t).
				Build("SDRAM")
		}

		Expect(build).To(Panic())

		t.RefreshInterval++
		Expect(build).NotTo(Panic())
	})

	It("should accept the default timing at 1 GHz", func() {
		t := MakeBuilder().WithFreq(1 * sim.GHz).CycleTiming()

		Expect(t.RefreshLatency()).To(Equal(54))
		Expect(t.MaxRefreshGap()).To(Equal(7500 + 66 + 54))
	})
})

var _ = Describe("Comp with a mocked device", func() {
	var (
		mockCtrl *gomock.Controller
		device   *MockDevice
		comp     *Comp
		cmds     []Command
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		device = NewMockDevice(mockCtrl)
		cmds = nil

		device.EXPECT().
			Clock(gomock.Any()).
			DoAndReturn(func(pins signal.Pins) uint8 {
				cmd, ok := pins.Decode()
				Expect(ok).To(BeTrue())
				cmds = append(cmds, cmd)
				return 0
			}).
			AnyTimes()

		comp = MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithDevice(device).
			WithCycleTiming(testCycleTiming).
			Build("SDRAM")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run the initialization sequence", func() {
		for i := 0; i < 12; i++ {
			Expect(comp.Ready()).To(BeFalse())
			Expect(comp.Busy()).To(BeTrue())
			comp.Tick()
		}

		Expect(comp.Ready()).To(BeTrue())
		Expect(comp.Busy()).To(BeFalse())

		issued := map[int]CommandKind{}
		for i, cmd := range cmds {
			Expect(cmd.DataMask).To(BeTrue())
			Expect(cmd.OutputEnable).To(BeFalse())

			if !cmd.IsNOP() {
				issued[i] = cmd.Kind
			}
		}

		Expect(issued).To(Equal(map[int]CommandKind{
			3:  CmdKindPrecharge,
			5:  CmdKindRefresh,
			8:  CmdKindRefresh,
			11: CmdKindLoadModeRegister,
		}))
		Expect(cmds[3].AllBanks()).To(BeTrue())
		Expect(cmds[11].Addr).To(Equal(signal.DefaultModeRegister.Encode()))
	})

	It("should ignore requests before it is ready", func() {
		comp.SetClient(clientFunc(func(MemoryResponse) MemoryRequest {
			return MemoryRequest{Address: 1, IsWrite: true, Valid: true}
		}))

		for i := 0; i < 12; i++ {
			comp.Tick()
		}

		Expect(comp.Ready()).To(BeTrue())
		_, pending := comp.Pending()
		Expect(pending).To(BeFalse())

		comp.Tick()

		op, pending := comp.Pending()
		Expect(pending).To(BeTrue())
		Expect(op).To(Equal(write(1, 0)))
	})

	It("should report its registers", func() {
		comp.SetClient(clientFunc(func(MemoryResponse) MemoryRequest {
			return MemoryRequest{Address: 7, Data: 9, IsWrite: true, Valid: true}
		}))

		for i := 0; i < 12; i++ {
			comp.Tick()
		}

		status := comp.Status()
		Expect(status.Cycle).To(Equal(uint64(12)))
		Expect(status.Ready).To(BeTrue())
		Expect(status.Busy).To(BeFalse())
		Expect(status.State).To(Equal("Wait"))
		Expect(status.Resume).To(Equal("Idle"))
		Expect(status.LastCommand).To(Equal(CmdKindLoadModeRegister.String()))
		Expect(status.Pending).To(BeNil())

		comp.Tick()

		status = comp.Status()
		Expect(status.State).To(Equal("Idle"))
		Expect(status.Resume).To(BeEmpty())
		Expect(status.Busy).To(BeTrue())
		Expect(status.Pending).To(Equal(&PendingOperation{
			IsWrite: true, Address: 7, Data: 9,
		}))
	})

	It("should restart when the state register is corrupted", func() {
		recovered := 0
		comp.AcceptHook(&funcHook{f: func(ctx sim.HookCtx) {
			if ctx.Pos == HookPosRecovered {
				recovered++
			}
		}})

		tickUntil(comp, 20, comp.Ready)
		comp.regs.ctrl.State = State(42)
		comp.Tick()

		Expect(recovered).To(Equal(1))
		Expect(comp.Ready()).To(BeFalse())
		Expect(comp.State().State).To(Equal(StateInit))
		Expect(comp.LastCommand().DataMask).To(BeTrue())

		tickUntil(comp, 20, comp.Ready)
	})

	It("should stop ticking after Stop", func() {
		Expect(comp.Tick()).To(BeTrue())
		comp.Stop()
		Expect(comp.Tick()).To(BeFalse())
		Expect(comp.Cycle()).To(Equal(uint64(1)))
	})
})

var _ = Describe("Comp with a device model", func() {
	var (
		timing  CycleTiming
		device  *chip.Chip
		counter *CommandCounter
		comp    *Comp
	)

	build := func(client Client, hooks ...sim.Hook) {
		device = chip.New(chipConfig(timing))
		counter = NewCommandCounter()

		comp = MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithDevice(device).
			WithClient(client).
			WithCycleTiming(timing).
			WithAdditionalHooks(append(hooks, counter)...).
			Build("SDRAM")
	}

	run := func(client *scriptedClient) {
		tickUntil(comp, 100000, func() bool {
			return client.issuedAll() &&
				comp.CompletedOps() == uint64(len(client.ops))
		})
		comp.Tick()
	}

	BeforeEach(func() {
		timing = testCycleTiming
		timing.RefreshInterval = 1000
	})

	AfterEach(func() {
		Expect(device.Violations()).To(BeEmpty())
	})

	It("should read back what was written", func() {
		client := &scriptedClient{ops: []PendingOperation{
			write(1, 0xAABBCCDD),
			read(1),
		}}
		build(client)

		run(client)

		Expect(client.reads).To(Equal([]uint32{0xAABBCCDD}))
		Expect(device.PeekWord(comp.Locate(1))).To(Equal(uint32(0xAABBCCDD)))
	})

	It("should alias word addresses beyond the capacity", func() {
		capacity := uint32(DefaultMapper().Capacity())
		client := &scriptedClient{ops: []PendingOperation{
			write(capacity+5, 0x12345678),
			read(5),
		}}
		build(client)

		run(client)

		Expect(comp.Capacity()).To(Equal(uint64(1 << 23)))
		Expect(comp.Locate(capacity + 5)).To(Equal(comp.Locate(5)))
		Expect(client.reads).To(Equal([]uint32{0x12345678}))
	})

	It("should keep a row open across accesses", func() {
		client := &scriptedClient{}
		build(client)
		tickUntil(comp, 100, comp.Ready)
		counter.Reset()

		for i := uint32(0); i < 4; i++ {
			client.ops = append(client.ops, write(i, i*0x01010101))
		}
		for i := uint32(0); i < 4; i++ {
			client.ops = append(client.ops, read(i))
		}
		run(client)

		Expect(counter.Count(CmdKindActivate)).To(Equal(uint64(1)))
		Expect(counter.Count(CmdKindPrecharge)).To(Equal(uint64(0)))
		Expect(counter.Count(CmdKindWrite)).To(Equal(uint64(4)))
		Expect(counter.Count(CmdKindRead)).To(Equal(uint64(4)))
		Expect(client.reads).To(Equal([]uint32{
			0, 0x01010101, 0x02020202, 0x03030303,
		}))
	})

	It("should close the row on a miss", func() {
		client := &scriptedClient{}
		build(client)
		tickUntil(comp, 100, comp.Ready)
		counter.Reset()

		client.ops = []PendingOperation{
			write(0, 0x11111111),
			write(1024, 0x22222222),
			read(0),
			read(1024),
		}
		run(client)

		Expect(comp.Locate(1024).Bank).To(Equal(comp.Locate(0).Bank))
		Expect(counter.Count(CmdKindActivate)).To(Equal(uint64(4)))
		Expect(counter.Count(CmdKindPrecharge)).To(Equal(uint64(3)))
		Expect(client.reads).To(Equal([]uint32{0x11111111, 0x22222222}))
	})

	It("should keep rows of different banks open", func() {
		client := &scriptedClient{}
		build(client)
		tickUntil(comp, 100, comp.Ready)
		counter.Reset()

		client.ops = []PendingOperation{
			write(0, 1),
			write(256, 2),
			read(0),
			read(256),
		}
		run(client)

		Expect(counter.Count(CmdKindActivate)).To(Equal(uint64(2)))
		Expect(counter.Count(CmdKindPrecharge)).To(Equal(uint64(0)))
		Expect(comp.BankStates()[0].IsOpen).To(BeTrue())
		Expect(comp.BankStates()[1].IsOpen).To(BeTrue())
	})

	It("should refresh on time under constant traffic", func() {
		timing.RefreshInterval = 100

		rng := rand.New(rand.NewSource(1))
		shadow := map[uint32]uint32{}
		client := &scriptedClient{}
		expected := []uint32{}

		for i := 0; i < 600; i++ {
			addr := uint32(rng.Intn(4096))
			if rng.Intn(2) == 0 {
				data := rng.Uint32()
				shadow[addr] = data
				client.ops = append(client.ops, write(addr, data))

				continue
			}

			client.ops = append(client.ops, read(addr))
			expected = append(expected, shadow[addr])
		}

		build(client)
		run(client)

		Expect(client.reads).To(Equal(expected))
		Expect(counter.Count(CmdKindRefresh)).To(
			BeNumerically(">=", comp.Cycle()/uint64(timing.MaxRefreshGap())))
		Expect(device.CommandCount(signal.CmdKindRefresh)).To(
			Equal(counter.Count(CmdKindRefresh)))
	})

	It("should not lose a refresh at the shortest interval", func() {
		timing.RefreshInterval = timing.RefreshLatency() + timing.TRFC + 1

		client := &scriptedClient{}
		for i := 0; i < 400; i++ {
			client.ops = append(client.ops, read(uint32(i%2)*1024))
		}

		build(client)
		run(client)

		Expect(counter.Count(CmdKindRefresh)).To(
			BeNumerically(">=", comp.Cycle()/uint64(timing.MaxRefreshGap())))
	})

	It("should only admit requests made while not busy", func() {
		timing.RefreshInterval = 50

		var made, done []PendingOperation
		client := clientFunc(func(rsp MemoryResponse) MemoryRequest {
			req := MemoryRequest{
				Address: uint32(len(made) * 97),
				Data:    uint32(len(made)),
				IsWrite: len(made)%3 != 0,
				Valid:   true,
			}

			if !rsp.Busy {
				made = append(made, PendingOperation{
					IsWrite: req.IsWrite, Address: req.Address, Data: req.Data,
				})
			}

			return req
		})
		completion := &funcHook{f: func(ctx sim.HookCtx) {
			if ctx.Pos == HookPosOpCompleted {
				done = append(done, ctx.Item.(PendingOperation))
			}
		}}

		build(client, completion)
		for i := 0; i < 2000; i++ {
			comp.Tick()

			op, pending := comp.Pending()
			if pending {
				Expect(comp.Busy()).To(BeTrue())
				Expect(op).To(Equal(made[len(made)-1]))
			}
		}

		Expect(len(done)).To(BeNumerically(">", 50))
		Expect(made[:len(done)]).To(Equal(done))
		Expect(len(made) - len(done)).To(BeNumerically("<=", 1))
	})

	It("should run on the engine until stopped", func() {
		engine := sim.NewSerialEngine()
		client := &scriptedClient{ops: []PendingOperation{
			write(7, 0x01020304),
			read(7),
		}}

		device = chip.New(chipConfig(timing))
		comp = MakeBuilder().
			WithEngine(engine).
			WithDevice(device).
			WithClient(client).
			WithCycleTiming(timing).
			WithStopCondition(func() bool { return len(client.reads) == 1 }).
			Build("SDRAM")

		comp.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(client.reads).To(Equal([]uint32{0x01020304}))
		Expect(engine.CurrentTime()).To(BeNumerically("~",
			float64(comp.Cycle())*float64(sim.Freq(100*sim.MHz).Period()), 1e-12))
	})

	DescribeTable("reset",
		func(target State) {
			timing.RefreshInterval = 60
			client := &scriptedClient{}
			for i := uint32(0); i < 50; i++ {
				client.ops = append(client.ops, write(i*300, i), read(i*300))
			}
			build(client)

			tickUntil(comp, 10000, func() bool {
				return comp.State().State == target
			})

			comp.Reset()
			comp.Tick()
			Expect(comp.Ready()).To(BeFalse())
			Expect(comp.Busy()).To(BeTrue())
			_, pending := comp.Pending()
			Expect(pending).To(BeFalse())

			after := &scriptedClient{ops: []PendingOperation{
				write(5, 0xCAFEF00D),
				read(5),
			}}
			comp.SetClient(after)
			tickUntil(comp, 10000, func() bool { return len(after.reads) == 1 })

			Expect(after.reads).To(Equal([]uint32{0xCAFEF00D}))
		},
		Entry("during initialization", StateInitRefresh1),
		Entry("while activating", StateActivate),
		Entry("while writing", StateWrite),
		Entry("while reading", StateReadData),
		Entry("while refreshing", StateRefresh),
	)
})

var _ = Describe("Comp reporting", func() {
	var (
		timing CycleTiming
		engine *sim.SerialEngine
		client *scriptedClient
		comp   *Comp
	)

	BeforeEach(func() {
		timing = testCycleTiming
		timing.RefreshInterval = 1000

		client = &scriptedClient{ops: []PendingOperation{
			write(0, 1),
			write(1, 2),
			write(1024, 3),
			read(1024),
			read(300),
		}}
	})

	JustBeforeEach(func() {
		engine = sim.NewSerialEngine()
		comp = MakeBuilder().
			WithEngine(engine).
			WithDevice(chip.New(chipConfig(timing))).
			WithClient(client).
			WithCycleTiming(timing).
			Build("SDRAM")
	})

	run := func() {
		tickUntil(comp, 1000, func() bool { return comp.CompletedOps() == 5 })
	}

	It("should trace how requests find their rows", func() {
		steps := tracing.NewStepCountTracer(tracing.KindFilter(TaskKindRequest))
		tracing.CollectTrace(comp, steps)

		run()

		Expect(steps.StepCount("bank_closed")).To(Equal(uint64(2)))
		Expect(steps.StepCount("row_hit")).To(Equal(uint64(2)))
		Expect(steps.StepCount("row_miss")).To(Equal(uint64(1)))
		Expect(steps.TaskCount("row_miss")).To(Equal(uint64(1)))
		Expect(RequestSteps).To(ContainElements(steps.StepNames()))
	})

	It("should trace request latency in cycles", func() {
		latency := tracing.NewLatencyTracer(
			engine, 100*sim.MHz, tracing.KindFilter(TaskKindRequest))
		tracing.CollectTrace(comp, latency)

		comp.stopCondition = func() bool { return comp.completedCount == 5 }
		comp.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(latency.Count()).To(Equal(uint64(5)))
		Expect(latency.AverageCycles()).To(BeNumerically(">", 0))
		Expect(latency.MaxCycles()).To(BeNumerically("<=",
			uint64(timing.WorstAccess())))
	})

	Context("with frequent refreshes", func() {
		BeforeEach(func() {
			timing.RefreshInterval = 40
			client.ops = nil
		})

		It("should trace refreshes", func() {
			refreshes := tracing.NewBusyTimeTracer(
				engine, 100*sim.MHz, tracing.KindFilter(TaskKindRefresh))
			tracing.CollectTrace(comp, refreshes)
			engine.RegisterSimulationEndHandler(refreshes)

			ticks := 0
			comp.stopCondition = func() bool {
				ticks++
				return ticks > 200
			}

			comp.Start()
			Expect(engine.Run()).To(Succeed())
			engine.Finished()

			Expect(refreshes.BusyCycles()).To(BeNumerically(">=",
				uint64(timing.TRP+timing.TRFC)))
		})
	})

	It("should log commands", func() {
		buf := new(bytes.Buffer)
		comp.AcceptHook(NewCommandLogger(log.New(buf, "", 0)))

		run()

		Expect(buf.String()).To(ContainSubstring("SDRAM, LOAD_MODE_REGISTER"))
		Expect(buf.String()).To(ContainSubstring("ACTIVATE, bank 0, addr 0x0001"))
	})

	It("should record commands", func() {
		db, err := sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
		defer db.Close()

		recorder := datarecording.NewWithDB(db)
		comp.AcceptHook(NewCommandRecorder(recorder))

		run()
		recorder.Flush()

		var n int
		Expect(db.QueryRow(
			"SELECT COUNT(*) FROM sdram_command WHERE Command = 'WRITE'",
		).Scan(&n)).To(Succeed())
		Expect(n).To(Equal(3))

		var cycle uint64
		Expect(db.QueryRow(
			"SELECT Cycle FROM sdram_command WHERE Command = 'LOAD_MODE_REGISTER'",
		).Scan(&cycle)).To(Succeed())
		Expect(cycle).To(Equal(uint64(11)))
	})
})

type funcHook struct {
	f func(ctx sim.HookCtx)
}

func (h *funcHook) Func(ctx sim.HookCtx) {
	h.f(ctx)
}

type clientFunc func(rsp MemoryResponse) MemoryRequest

func (f clientFunc) Drive(rsp MemoryResponse) MemoryRequest {
	return f(rsp)
}
