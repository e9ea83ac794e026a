package tracing

import (
	"sync"

	"github.com/sarchlab/sdramsim/sim"
)

// LatencyTracer measures how many clock cycles tasks take from start to end,
// for example how long a request waits for its response.
type LatencyTracer struct {
	timeTeller sim.TimeTeller
	freq       sim.Freq
	filter     TaskFilter

	lock    sync.Mutex
	started map[string]sim.VTimeInSec
	count   uint64
	total   uint64
	max     uint64
}

// NewLatencyTracer creates a LatencyTracer that counts cycles of the given
// clock.
func NewLatencyTracer(
	timeTeller sim.TimeTeller,
	freq sim.Freq,
	filter TaskFilter,
) *LatencyTracer {
	return &LatencyTracer{
		timeTeller: timeTeller,
		freq:       freq,
		filter:     filter,
		started:    make(map[string]sim.VTimeInSec),
	}
}

// StartTask remembers when an accepted task started.
func (t *LatencyTracer) StartTask(task Task) {
	if !accept(t.filter, task) {
		return
	}

	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.started[task.ID] = now
	t.lock.Unlock()
}

// StepTask does nothing.
func (t *LatencyTracer) StepTask(_ Task) {}

// EndTask adds the latency of a task that was started while traced.
func (t *LatencyTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.started[task.ID]
	if !ok {
		return
	}

	delete(t.started, task.ID)

	cycles := t.freq.Cycle(t.timeTeller.CurrentTime() - start)
	t.count++
	t.total += cycles
	t.max = max(t.max, cycles)
}

// Count returns the number of tasks that ended.
func (t *LatencyTracer) Count() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// AverageCycles returns the mean latency of the tasks that ended.
func (t *LatencyTracer) AverageCycles() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return float64(t.total) / float64(t.count)
}

// MaxCycles returns the longest latency seen.
func (t *LatencyTracer) MaxCycles() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.max
}

// AverageTime returns AverageCycles in seconds.
func (t *LatencyTracer) AverageTime() sim.VTimeInSec {
	return sim.VTimeInSec(t.AverageCycles()) * t.freq.Period()
}
