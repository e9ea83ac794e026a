package tracing

import (
	"sort"
	"sync"
)

// StepCountTracer counts the steps that traced tasks go through, such as how
// many requests found their row open. Steps of tasks it did not see start
// are ignored.
type StepCountTracer struct {
	filter TaskFilter

	lock    sync.Mutex
	running map[string]map[string]bool
	steps   map[string]uint64
	tasks   map[string]uint64
}

// NewStepCountTracer creates a StepCountTracer.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	return &StepCountTracer{
		filter:  filter,
		running: make(map[string]map[string]bool),
		steps:   make(map[string]uint64),
		tasks:   make(map[string]uint64),
	}
}

// StartTask starts following an accepted task.
func (t *StepCountTracer) StartTask(task Task) {
	if !accept(t.filter, task) {
		return
	}

	t.lock.Lock()
	t.running[task.ID] = make(map[string]bool)
	t.lock.Unlock()
}

// StepTask counts the step, and the task the first time it has the step.
func (t *StepCountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	seen, ok := t.running[task.ID]
	if !ok {
		return
	}

	for _, step := range task.Steps {
		t.steps[step.What]++

		if !seen[step.What] {
			seen[step.What] = true
			t.tasks[step.What]++
		}
	}
}

// EndTask stops following the task.
func (t *StepCountTracer) EndTask(task Task) {
	t.lock.Lock()
	delete(t.running, task.ID)
	t.lock.Unlock()
}

// StepNames returns the names of the steps counted so far, sorted.
func (t *StepCountTracer) StepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, 0, len(t.steps))
	for name := range t.steps {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// StepCount returns how many times the step was taken.
func (t *StepCountTracer) StepCount(name string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.steps[name]
}

// TaskCount returns how many tasks took the step at least once.
func (t *StepCountTracer) TaskCount(name string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tasks[name]
}
