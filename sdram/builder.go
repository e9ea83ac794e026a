package sdram

import (
	"github.com/sarchlab/sdramsim/sim"
)

// A Builder can build SDRAM controllers.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	timing        Timing
	cycleTiming   *CycleTiming
	device        Device
	client        Client
	mapper        Mapper
	stopCondition func() bool
	hooks         []sim.Hook
}

// MakeBuilder creates a builder with the default parameters: a 100 MHz clock
// and the default timing.
func MakeBuilder() Builder {
	return Builder{
		freq:   100 * sim.MHz,
		timing: DefaultTiming(),
		mapper: DefaultMapper(),
	}
}

// WithEngine sets the engine that drives the controller clock.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the controller clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithTiming sets the device timing. It is converted to cycles of the clock
// when the controller is built.
func (b Builder) WithTiming(timing Timing) Builder {
	b.timing = timing
	b.cycleTiming = nil

	return b
}

// WithCycleTiming sets the timing directly in cycles, ignoring the clock
// frequency.
func (b Builder) WithCycleTiming(timing CycleTiming) Builder {
	b.cycleTiming = &timing
	return b
}

// WithDevice sets the device on the command interface.
func (b Builder) WithDevice(device Device) Builder {
	b.device = device
	return b
}

// WithClient sets the client on the request interface.
func (b Builder) WithClient(client Client) Builder {
	b.client = client
	return b
}

// WithMapper sets how word addresses map onto banks, rows and columns.
func (b Builder) WithMapper(mapper Mapper) Builder {
	b.mapper = mapper
	return b
}

// WithStopCondition sets a condition that is checked at every cycle. The
// controller stops ticking once it returns true.
func (b Builder) WithStopCondition(cond func() bool) Builder {
	b.stopCondition = cond
	return b
}

// WithAdditionalHooks adds hooks to the controller.
func (b Builder) WithAdditionalHooks(hooks ...sim.Hook) Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// CycleTiming returns the timing in cycles that the built controller will
// use.
func (b Builder) CycleTiming() CycleTiming {
	if b.cycleTiming != nil {
		return *b.cycleTiming
	}

	return b.timing.Cycles(b.freq)
}

// Build creates a new controller.
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	timing := b.CycleTiming()
	timing.mustBeValid()

	c := &Comp{
		device:        b.device,
		client:        b.client,
		stopCondition: b.stopCondition,
		regs:          initialRegisters(),
		stepper: stepper{
			timing: timing,
			mapper: b.mapper,
		},
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		panic("engine is not set")
	}

	if b.device == nil {
		panic("device is not set")
	}

	if b.mapper == nil {
		panic("mapper is not set")
	}

	if b.freq <= 0 {
		panic("frequency must be positive")
	}
}
