package sim

// VTimeInSec is simulated time in seconds.
type VTimeInSec float64

// An Event is a piece of work due at a point in simulated time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler
}

// A Handler owns the state that its events change. An event may only be
// acted on by the handler it was scheduled for.
type Handler interface {
	Handle(e Event) error
}

// EventBase carries the fields every event has.
type EventBase struct {
	ID      string
	time    VTimeInSec
	handler Handler
}

// NewEventBase creates an EventBase with a fresh ID.
func NewEventBase(t VTimeInSec, handler Handler) EventBase {
	return EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// Time returns when the event is due.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler the event was scheduled for.
func (e EventBase) Handler() Handler {
	return e.handler
}
