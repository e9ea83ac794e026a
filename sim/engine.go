package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler is told the final time once a run is over.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine owns simulated time. It hands events to their handlers in time
// order, and events due at the same time in the order they were scheduled.
// Every event is wrapped by HookPosBeforeEvent and HookPosAfterEvent.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run handles events until none are left or a handler fails.
	Run() error

	// Pause holds Run between two events until Continue is called, so that
	// the monitor can read a component that is not ticking.
	Pause()
	Continue()

	// Handled returns the number of events Run has handed out so far.
	Handled() uint64

	// RegisterSimulationEndHandler adds a handler for Finished to call.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished calls every registered SimulationEndHandler with the current
	// time. Tracers use it to close the tasks a stopped run left open.
	Finished()
}
