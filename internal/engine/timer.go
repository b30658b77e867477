package engine

import (
	"github.com/roach88/reactors/internal/graph"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// Timer fires first at its offset and then every period. A zero period
// fires once.
type Timer struct {
	id     ir.TriggerID
	name   string
	offset timing.Duration
	period timing.Duration
}

// NewTimer creates a timer owned by the reactor being assembled.
func NewTimer(a *AssemblyCtx, name string, offset, period timing.Duration) *Timer {
	full := a.componentName(name)
	t := &Timer{
		id:     a.asm.graph.AddTrigger(graph.KindTimer, full),
		name:   full,
		offset: offset,
		period: period,
	}
	a.asm.timers = append(a.asm.timers, t)
	return t
}

func (t *Timer) Name() string                  { return t.name }
func (t *Timer) ID() ir.TriggerID              { return t.id }
func (t *Timer) Offset() timing.Duration       { return t.offset }
func (t *Timer) Period() timing.Duration       { return t.period }
func (t *Timer) triggerIDs() []ir.TriggerID    { return []ir.TriggerID{t.id} }
func (t *Timer) isPresent(c *ReactionCtx) bool { return c.s.present[t.id] }

// firstTag is the tag of the first firing.
func (t *Timer) firstTag() timing.Tag {
	return timing.TagAt(t.offset)
}
