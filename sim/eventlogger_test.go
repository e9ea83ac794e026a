package sim

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countDownTicker struct {
	left int
}

func (t *countDownTicker) Tick() bool {
	t.left--
	return t.left > 0
}

type plainEvent struct {
	EventBase
}

type noopHandler struct{}

func (noopHandler) Handle(Event) error {
	return nil
}

var _ = Describe("EventLogger", func() {
	It("should log other events by type", func() {
		buf := new(bytes.Buffer)
		engine := NewSerialEngine()
		engine.AcceptHook(NewEventLogger(log.New(buf, "", 0)))

		engine.Schedule(plainEvent{EventBase: NewEventBase(2e-9, noopHandler{})})
		Expect(engine.Run()).To(Succeed())

		Expect(buf.String()).To(Equal("0.0000000020, sim.plainEvent, -\n"))
	})

	It("should log every tick with its cycle", func() {
		buf := new(bytes.Buffer)
		engine := NewSerialEngine()
		engine.AcceptHook(NewEventLogger(log.New(buf, "", 0)))

		tc := NewTickingComponent("Ticker", engine, 1*GHz,
			&countDownTicker{left: 2})
		tc.TickNow()

		Expect(engine.Run()).To(Succeed())

		Expect(buf.String()).To(Equal(
			"0.0000000000, cycle 0, tick Ticker\n" +
				"0.0000000010, cycle 1, tick Ticker\n"))
	})
})
