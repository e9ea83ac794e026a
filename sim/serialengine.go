package sim

import (
	"log"
	"reflect"
	"sync"
	"sync/atomic"
)

// A SerialEngine handles one event at a time on the goroutine that calls
// Run.
type SerialEngine struct {
	HookableBase

	timeLock sync.RWMutex
	time     VTimeInSec
	queue    EventQueue
	handled  atomic.Uint64

	// gate is held while an event is handled and for as long as the engine
	// is paused.
	gate      sync.Mutex
	pauseLock sync.Mutex
	paused    bool

	runLock sync.Mutex

	endHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine with an empty queue at time 0.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{queue: NewEventQueue()}
}

// Schedule queues an event. Events cannot be scheduled in the past.
func (e *SerialEngine) Schedule(evt Event) {
	if now := e.CurrentTime(); evt.Time() < now {
		log.Panicf("cannot schedule %s at %.10f, the time is %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	e.queue.Push(evt)
}

// Run handles events until the queue is empty or a handler returns an
// error. The time stays at the failed event.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for e.queue.Len() > 0 {
		if err := e.handleNext(); err != nil {
			return err
		}
	}

	return nil
}

func (e *SerialEngine) handleNext() error {
	e.gate.Lock()
	defer e.gate.Unlock()

	evt := e.queue.Pop()

	e.timeLock.Lock()
	e.time = evt.Time()
	e.timeLock.Unlock()

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	err := evt.Handler().Handle(evt)
	e.handled.Add(1)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return err
}

// Pause stops Run before the next event. Pausing twice is a no-op.
func (e *SerialEngine) Pause() {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	if e.paused {
		return
	}

	e.gate.Lock()
	e.paused = true
}

// Continue lets a paused Run go on.
func (e *SerialEngine) Continue() {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	if !e.paused {
		return
	}

	e.paused = false
	e.gate.Unlock()
}

// CurrentTime returns the time of the event being handled, or of the last
// one handled.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.time
}

// Handled returns the number of events handled so far.
func (e *SerialEngine) Handled() uint64 {
	return e.handled.Load()
}

// RegisterSimulationEndHandler adds a handler for Finished to call.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.endHandlers = append(e.endHandlers, handler)
}

// Finished calls the registered handlers in registration order.
func (e *SerialEngine) Finished() {
	now := e.CurrentTime()
	for _, h := range e.endHandlers {
		h.Handle(now)
	}
}
