package sim

import (
	"log"
	"reflect"
)

// EventLogger prints a line before every event is handled. Ticks carry
// their cycle so that the lines can be matched with the command log.
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger creates an EventLogger that writes to the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func logs the event if the hook fires before it is handled.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	target := "-"
	if named, ok := evt.Handler().(Named); ok {
		target = named.Name()
	}

	if tick, ok := evt.(TickEvent); ok {
		h.logger.Printf("%.10f, cycle %d, tick %s", evt.Time(), tick.Cycle, target)
		return
	}

	h.logger.Printf("%.10f, %s, %s", evt.Time(), reflect.TypeOf(evt), target)
}
