package sdram

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sdramsim/sdram/internal/org"
	"github.com/sarchlab/sdramsim/sdram/internal/signal"
)

var testCycleTiming = CycleTiming{
	PowerUp:         3,
	TRP:             2,
	TRFC:            3,
	TRCD:            2,
	TMRD:            2,
	RefreshInterval: 100,
}

func idleRegisters() registers {
	return registers{
		ctrl:  ControllerState{State: StateIdle},
		ready: true,
	}
}

func withPending(r registers, op PendingOperation) registers {
	r.latch = requestLatch{op: op, valid: true}
	return r
}

var _ = Describe("Refresh timer", func() {
	It("should raise due every interval", func() {
		r := RefreshState{}
		r = tickRefresh(r, 3)
		r = tickRefresh(r, 3)
		Expect(r).To(Equal(RefreshState{Counter: 2}))

		r = tickRefresh(r, 3)
		Expect(r).To(Equal(RefreshState{Counter: 0, Due: true}))

		r = tickRefresh(r, 3)
		Expect(r).To(Equal(RefreshState{Counter: 1, Due: true}))
	})
})

var _ = Describe("Byte serializer", func() {
	It("should send the lowest byte first", func() {
		s := byteSerializer{}
		s.load(0xAABBCCDD)

		out := []uint8{}
		for !s.done() {
			out = append(out, s.nextOut())
		}

		Expect(out).To(Equal([]uint8{0xDD, 0xCC, 0xBB, 0xAA}))
	})

	It("should assemble the first byte into the lowest byte", func() {
		s := byteSerializer{}
		s.load(0xFFFFFFFF)

		for _, b := range []uint8{0xDD, 0xCC, 0xBB, 0xAA} {
			s.shiftIn(b)
		}

		Expect(s.done()).To(BeTrue())
		Expect(s.word).To(Equal(uint32(0xAABBCCDD)))
	})
})

var _ = Describe("Step", func() {
	var s stepper

	BeforeEach(func() {
		s = stepper{timing: testCycleTiming, mapper: org.DefaultMapper}
	})

	Context("wait", func() {
		It("should resume after the gap", func() {
			r := idleRegisters()
			s.enterWait(&r, 3, StateRefresh)
			Expect(r.ctrl).To(Equal(ControllerState{
				State: StateWait, Resume: StateRefresh, Delay: 2,
			}))

			r, _ = s.step(r, inputs{})
			Expect(r.ctrl.State).To(Equal(StateWait))
			Expect(r.ctrl.Delay).To(Equal(1))

			r, _ = s.step(r, inputs{})
			Expect(r.ctrl).To(Equal(ControllerState{State: StateRefresh}))
		})

		It("should go straight to the resume state for short gaps", func() {
			r := idleRegisters()
			s.enterWait(&r, 1, StateRead)
			Expect(r.ctrl).To(Equal(ControllerState{State: StateRead}))
		})

		It("should pre-arm the first write byte on the last wait cycle", func() {
			r := idleRegisters()
			r.ser.load(0x11223344)
			r.ctrl = ControllerState{State: StateWait, Resume: StateWrite, Delay: 1}

			r, out := s.step(r, inputs{})

			Expect(out.cmd.Kind).To(Equal(signal.CmdKindNOP))
			Expect(out.cmd.OutputEnable).To(BeTrue())
			Expect(out.cmd.DataOut).To(Equal(uint8(0x44)))
			Expect(r.ctrl.State).To(Equal(StateWrite))
		})

		It("should not drive data when resuming elsewhere", func() {
			r := idleRegisters()
			r.ctrl = ControllerState{State: StateWait, Resume: StateRead, Delay: 1}

			_, out := s.step(r, inputs{})

			Expect(out.cmd.OutputEnable).To(BeFalse())
		})
	})

	Context("initialization", func() {
		It("should mask data and stay busy until the mode is loaded", func() {
			r, out := s.step(initialRegisters(), inputs{
				req: MemoryRequest{Valid: true},
			})

			Expect(out.cmd.DataMask).To(BeTrue())
			Expect(out.admitted).To(BeFalse())
			Expect(out.rsp.Busy).To(BeTrue())
			Expect(r.ctrl).To(Equal(ControllerState{
				State: StateWait, Resume: StateInitPrecharge, Delay: 2,
			}))
		})

		It("should precharge every bank", func() {
			r := initialRegisters()
			r.ctrl.State = StateInitPrecharge
			r.banks.Open(1, 4)

			r, out := s.step(r, inputs{})

			Expect(out.cmd.Kind).To(Equal(signal.CmdKindPrecharge))
			Expect(out.cmd.AllBanks()).To(BeTrue())
			Expect(r.banks.AnyOpen()).To(BeFalse())
			Expect(r.ctrl.Resume).To(Equal(StateInitRefresh1))
		})

		It("should refresh twice", func() {
			r := initialRegisters()
			r.ctrl.State = StateInitRefresh1

			r, out := s.step(r, inputs{})
			Expect(out.cmd.Kind).To(Equal(signal.CmdKindRefresh))
			Expect(r.ctrl.Resume).To(Equal(StateInitRefresh2))

			r.ctrl = ControllerState{State: StateInitRefresh2}
			r, out = s.step(r, inputs{})
			Expect(out.cmd.Kind).To(Equal(signal.CmdKindRefresh))
			Expect(r.ctrl.Resume).To(Equal(StateLoadMode))
		})

		It("should load the mode register and become ready", func() {
			r := initialRegisters()
			r.ctrl.State = StateLoadMode
			r.refresh = RefreshState{Counter: 42, Due: true}

			r, out := s.step(r, inputs{})

			Expect(out.cmd.Kind).To(Equal(signal.CmdKindLoadModeRegister))
			Expect(out.cmd.Addr).To(Equal(uint16(0x022)))
			Expect(r.ready).To(BeTrue())
			Expect(r.refresh).To(Equal(RefreshState{}))
			Expect(out.rsp.Busy).To(BeFalse())
			Expect(r.ctrl.Resume).To(Equal(StateIdle))
		})
	})

	Context("request latch", func() {
		It("should admit a request when ready and empty", func() {
			req := MemoryRequest{Address: 5, Data: 9, IsWrite: true, Valid: true}

			r, out := s.step(idleRegisters(), inputs{req: req})

			Expect(out.admitted).To(BeTrue())
			Expect(r.latch.valid).To(BeTrue())
			Expect(r.latch.op).To(Equal(PendingOperation{IsWrite: true, Address: 5, Data: 9}))
			Expect(out.rsp.Busy).To(BeTrue())
			Expect(r.ctrl.State).To(Equal(StateIdle))
		})

		It("should ignore requests without the strobe", func() {
			r, out := s.step(idleRegisters(), inputs{req: MemoryRequest{Address: 5}})

			Expect(out.admitted).To(BeFalse())
			Expect(r.latch.valid).To(BeFalse())
			Expect(out.rsp.Busy).To(BeFalse())
		})

		It("should hold only one request", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 1})
			r.ctrl.State = StateActivate

			r, out := s.step(r, inputs{req: MemoryRequest{Address: 2, Valid: true}})

			Expect(out.admitted).To(BeFalse())
			Expect(r.latch.op.Address).To(Equal(uint32(1)))
		})
	})

	Context("dispatch", func() {
		It("should refresh before serving a pending request", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 1})
			r.refresh.Due = true

			r, out := s.step(r, inputs{})

			Expect(out.refreshStarted).To(BeTrue())
			Expect(out.dispatched).To(BeFalse())
			Expect(r.ctrl.State).To(Equal(StatePrecharge))
			Expect(r.prechargeAll).To(BeTrue())
			Expect(r.prechargeNext).To(Equal(StateRefresh))
			Expect(r.latch.valid).To(BeTrue())
		})

		It("should activate a closed bank", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 1})

			r, out := s.step(r, inputs{})

			Expect(out.access).To(Equal(org.AccessClosed))
			Expect(r.ctrl.State).To(Equal(StateActivate))
		})

		It("should go straight to the transfer on a hit", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 1, IsWrite: true, Data: 7})
			r.banks.Open(0, 0)

			r, out := s.step(r, inputs{})

			Expect(out.access).To(Equal(org.AccessHit))
			Expect(r.ctrl.State).To(Equal(StateWrite))
			Expect(r.ser).To(Equal(byteSerializer{word: 7}))
		})

		It("should precharge one bank on a miss", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 1024 + 256})
			r.banks.Open(1, 0)
			r.banks.Open(2, 0)

			r, out := s.step(r, inputs{})
			Expect(out.access).To(Equal(org.AccessMiss))
			Expect(r.ctrl.State).To(Equal(StatePrecharge))
			Expect(r.prechargeAll).To(BeFalse())
			Expect(r.prechargeNext).To(Equal(StateActivate))

			r, out = s.step(r, inputs{})
			Expect(out.cmd.Kind).To(Equal(signal.CmdKindPrecharge))
			Expect(out.cmd.Bank).To(Equal(uint8(1)))
			Expect(out.cmd.AllBanks()).To(BeFalse())
			Expect(r.banks[1].IsOpen).To(BeFalse())
			Expect(r.banks[2].IsOpen).To(BeTrue())
			Expect(r.ctrl.Resume).To(Equal(StateActivate))
		})
	})

	Context("operations", func() {
		It("should activate the row and wait tRCD", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 3*1024 + 2*256 + 5})
			r.ctrl.State = StateActivate

			r, out := s.step(r, inputs{})

			Expect(out.cmd).To(Equal(signal.Command{
				Kind: signal.CmdKindActivate, Bank: 2, Addr: 3,
			}))
			Expect(r.banks[2]).To(Equal(BankState{IsOpen: true, OpenRow: 3}))
			Expect(r.ctrl).To(Equal(ControllerState{
				State: StateWait, Resume: StateRead, Delay: 1,
			}))
		})

		It("should read and wait for the CAS latency", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 5})
			r.ctrl.State = StateRead

			r, out := s.step(r, inputs{})

			Expect(out.cmd).To(Equal(signal.Command{
				Kind: signal.CmdKindRead, Bank: 0, Addr: 20,
			}))
			Expect(r.ctrl).To(Equal(ControllerState{
				State: StateWait, Resume: StateReadData, Delay: CASLatency(),
			}))
		})

		It("should collect four bytes and pulse valid once", func() {
			r := withPending(idleRegisters(), PendingOperation{Address: 5})
			r.ctrl.State = StateReadData

			var out outputs
			for _, b := range []uint8{0xDD, 0xCC, 0xBB} {
				r, out = s.step(r, inputs{dq: b})
				Expect(out.rsp.Valid).To(BeFalse())
				Expect(out.rsp.Busy).To(BeTrue())
				Expect(r.ctrl.State).To(Equal(StateReadData))
			}

			r, out = s.step(r, inputs{dq: 0xAA})
			Expect(out.completed).To(BeTrue())
			Expect(out.rsp).To(Equal(MemoryResponse{Data: 0xAABBCCDD, Valid: true}))
			Expect(r.ctrl.State).To(Equal(StateIdle))
			Expect(r.latch.valid).To(BeFalse())

			_, out = s.step(r, inputs{})
			Expect(out.rsp).To(Equal(MemoryResponse{Data: 0xAABBCCDD}))
		})

		It("should shift the word out over four cycles", func() {
			r := withPending(idleRegisters(), PendingOperation{
				Address: 256 + 3, IsWrite: true, Data: 0xAABBCCDD,
			})
			r.ser.load(0xAABBCCDD)
			r.ctrl.State = StateWrite

			r, out := s.step(r, inputs{})
			Expect(out.cmd).To(Equal(signal.Command{
				Kind: signal.CmdKindWrite, Bank: 1, Addr: 12,
				DataOut: 0xDD, OutputEnable: true,
			}))

			for _, b := range []uint8{0xCC, 0xBB} {
				r, out = s.step(r, inputs{})
				Expect(out.cmd).To(Equal(signal.Command{DataOut: b, OutputEnable: true}))
				Expect(out.completed).To(BeFalse())
			}

			r, out = s.step(r, inputs{})
			Expect(out.cmd.DataOut).To(Equal(uint8(0xAA)))
			Expect(out.completed).To(BeTrue())
			Expect(out.rsp.Busy).To(BeFalse())
			Expect(out.rsp.Valid).To(BeFalse())
			Expect(r.ctrl.State).To(Equal(StateIdle))
		})

		It("should refresh and clear the due flag", func() {
			r := idleRegisters()
			r.ctrl.State = StateRefresh
			r.refresh = RefreshState{Counter: 10, Due: true}

			r, out := s.step(r, inputs{})

			Expect(out.cmd.Kind).To(Equal(signal.CmdKindRefresh))
			Expect(out.refreshIssued).To(BeTrue())
			Expect(r.refresh).To(Equal(RefreshState{Counter: 11}))
			Expect(r.ctrl.Resume).To(Equal(StateIdle))
		})
	})

	It("should restart from power up in an unknown state", func() {
		r := withPending(idleRegisters(), PendingOperation{Address: 9, IsWrite: true})
		r.ctrl.State = State(99)
		r.banks.Open(3, 3)

		next, out := s.step(r, inputs{req: MemoryRequest{Valid: true}})

		Expect(out.recovered).To(BeTrue())
		Expect(out.admitted).To(BeFalse())
		Expect(out.cmd.IsNOP()).To(BeTrue())
		Expect(out.rsp.Busy).To(BeTrue())
		Expect(next).To(Equal(initialRegisters()))
		Expect(State(99).String()).To(Equal("Invalid"))
	})
})
