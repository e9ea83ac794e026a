package tracing

import (
	"fmt"

	"github.com/sarchlab/sdramsim/sim"
)

// CollectTrace attaches the tracer to the domain. A tracer can be attached
// to a domain once.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, h := range domain.Hooks() {
		if th, ok := h.(*traceHook); ok && th.tracer == tracer {
			panic(fmt.Sprintf("%s is already traced by %T",
				domain.Name(), tracer))
		}
	}

	domain.AcceptHook(&traceHook{tracer: tracer})
}

// traceHook forwards the task hooks of a domain to a tracer and ignores all
// others.
type traceHook struct {
	tracer Tracer
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosTaskStart:
		h.tracer.StartTask(task)
	case HookPosTaskStep:
		h.tracer.StepTask(task)
	case HookPosTaskEnd:
		h.tracer.EndTask(task)
	}
}
