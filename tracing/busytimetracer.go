package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/sdramsim/sim"
)

type span struct {
	start, end sim.VTimeInSec
}

// BusyTimeTracer measures for how many clock cycles at least one task of
// interest was running, such as the cycles a controller spends refreshing.
// Overlapping tasks are counted once.
type BusyTimeTracer struct {
	timeTeller sim.TimeTeller
	freq       sim.Freq
	filter     TaskFilter

	lock    sync.Mutex
	running map[string]sim.VTimeInSec
	ended   []span
	busy    uint64
}

// NewBusyTimeTracer creates a BusyTimeTracer that counts cycles of the given
// clock.
func NewBusyTimeTracer(
	timeTeller sim.TimeTeller,
	freq sim.Freq,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		freq:       freq,
		filter:     filter,
		running:    make(map[string]sim.VTimeInSec),
	}
}

// StartTask remembers when an accepted task started.
func (t *BusyTimeTracer) StartTask(task Task) {
	if !accept(t.filter, task) {
		return
	}

	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.running[task.ID] = now
	t.lock.Unlock()
}

// StepTask does nothing.
func (t *BusyTimeTracer) StepTask(_ Task) {}

// EndTask closes the span of a traced task.
func (t *BusyTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.running[task.ID]
	if !ok {
		return
	}

	t.end(task.ID, start, t.timeTeller.CurrentTime())
	t.fold()
}

// TerminateAllTasks ends every running task at the given time.
func (t *BusyTimeTracer) TerminateAllTasks(now sim.VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for id, start := range t.running {
		t.end(id, start, now)
	}

	t.fold()
}

// Handle ends the running tasks when the simulation ends.
func (t *BusyTimeTracer) Handle(now sim.VTimeInSec) {
	t.TerminateAllTasks(now)
}

func (t *BusyTimeTracer) end(id string, start, now sim.VTimeInSec) {
	delete(t.running, id)
	t.ended = append(t.ended, span{start: start, end: now})
}

// fold merges the ended spans into the busy count. A running task may still
// overlap them, so folding waits until nothing runs.
func (t *BusyTimeTracer) fold() {
	if len(t.running) > 0 || len(t.ended) == 0 {
		return
	}

	sort.Slice(t.ended, func(i, j int) bool {
		return t.ended[i].start < t.ended[j].start
	})

	cur := t.ended[0]
	for _, s := range t.ended[1:] {
		if s.start <= cur.end {
			cur.end = max(cur.end, s.end)
			continue
		}

		t.busy += t.freq.Cycle(cur.end - cur.start)
		cur = s
	}

	t.busy += t.freq.Cycle(cur.end - cur.start)
	t.ended = t.ended[:0]
}

// BusyCycles returns the busy cycles of the tasks folded so far.
func (t *BusyTimeTracer) BusyCycles() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busy
}

// BusyTime returns BusyCycles in seconds.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInSec {
	return sim.VTimeInSec(t.BusyCycles()) * t.freq.Period()
}
