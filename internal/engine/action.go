package engine

import (
	"context"

	"github.com/roach88/reactors/internal/graph"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// Action is a schedulable trigger: a logical or a physical action.
type Action interface {
	Component
	ID() ir.TriggerID
	MinDelay() timing.Duration
	IsPhysical() bool
}

// actionValues stores the values carried by scheduled events, keyed by tag.
// Only the scheduler goroutine touches it.
type actionValues[T any] struct {
	id       ir.TriggerID
	name     string
	minDelay timing.Duration
	values   map[timing.Tag]T
}

func newActionValues[T any](a *AssemblyCtx, name string, minDelay timing.Duration) actionValues[T] {
	full := a.componentName(name)
	id := a.asm.graph.AddTrigger(graph.KindAction, full)
	return actionValues[T]{id: id, name: full, minDelay: minDelay, values: make(map[timing.Tag]T)}
}

func (v *actionValues[T]) cleanup(tag timing.Tag) {
	delete(v.values, tag)
}

func (v *actionValues[T]) store(val T) func(timing.Tag) {
	return func(tag timing.Tag) { v.values[tag] = val }
}

func (v *actionValues[T]) get(ctx *ReactionCtx) (T, bool) {
	ctx.checkRead(v.id, v.name)
	if ctx.s.present[v.id] {
		if val, ok := v.values[ctx.tag]; ok {
			return val, true
		}
	}
	var zero T
	return zero, false
}

// LogicalAction is a delayable trigger scheduled only from reactions.
type LogicalAction[T any] struct {
	actionValues[T]
}

// NewLogicalAction creates a logical action. minDelay is added to every
// offset it is scheduled with.
func NewLogicalAction[T any](a *AssemblyCtx, name string, minDelay timing.Duration) *LogicalAction[T] {
	act := &LogicalAction[T]{actionValues: newActionValues[T](a, name, minDelay)}
	a.asm.actions[act.id] = act
	return act
}

func (a *LogicalAction[T]) Name() string                  { return a.name }
func (a *LogicalAction[T]) ID() ir.TriggerID              { return a.id }
func (a *LogicalAction[T]) MinDelay() timing.Duration     { return a.minDelay }
func (a *LogicalAction[T]) IsPhysical() bool              { return false }
func (a *LogicalAction[T]) triggerIDs() []ir.TriggerID    { return []ir.TriggerID{a.id} }
func (a *LogicalAction[T]) isPresent(c *ReactionCtx) bool { return c.s.present[a.id] }

// Get returns the value the action carries at the current tag.
func (a *LogicalAction[T]) Get(ctx *ReactionCtx) (T, bool) {
	return a.get(ctx)
}

// Schedule schedules the action without a value.
func (a *LogicalAction[T]) Schedule(ctx *ReactionCtx, off timing.Offset) {
	ctx.Schedule(a, off)
}

// ScheduleValue schedules the action carrying v at current tag + off +
// min delay.
func (a *LogicalAction[T]) ScheduleValue(ctx *ReactionCtx, v T, off timing.Offset) {
	ctx.schedule(a, off, a.store(v))
}

// PhysicalAction is a trigger scheduled from outside the logical-time
// discipline, through an AsyncLink.
type PhysicalAction[T any] struct {
	actionValues[T]
}

// NewPhysicalAction creates a physical action.
func NewPhysicalAction[T any](a *AssemblyCtx, name string, minDelay timing.Duration) *PhysicalAction[T] {
	act := &PhysicalAction[T]{actionValues: newActionValues[T](a, name, minDelay)}
	a.asm.actions[act.id] = act
	return act
}

func (a *PhysicalAction[T]) Name() string                  { return a.name }
func (a *PhysicalAction[T]) ID() ir.TriggerID              { return a.id }
func (a *PhysicalAction[T]) MinDelay() timing.Duration     { return a.minDelay }
func (a *PhysicalAction[T]) IsPhysical() bool              { return true }
func (a *PhysicalAction[T]) triggerIDs() []ir.TriggerID    { return []ir.TriggerID{a.id} }
func (a *PhysicalAction[T]) isPresent(c *ReactionCtx) bool { return c.s.present[a.id] }

// Get returns the value the action carries at the current tag.
func (a *PhysicalAction[T]) Get(ctx *ReactionCtx) (T, bool) {
	return a.get(ctx)
}

// NewLink returns a handle other goroutines may use to schedule a. The
// reaction must have declared a as an effect. While any link is open, a
// keep-alive scheduler waits for physical events instead of shutting down.
func (a *PhysicalAction[T]) NewLink(ctx *ReactionCtx) *AsyncLink[T] {
	ctx.checkWrite(a.id, a.name)
	ctx.s.live.Add(1)
	return &AsyncLink[T]{s: ctx.s, action: a}
}

// Spawn starts fn on a new goroutine with a fresh link to a. The link is
// closed when fn returns. fn's context is cancelled when the scheduler
// terminates, and termination waits for fn to return.
func (a *PhysicalAction[T]) Spawn(ctx *ReactionCtx, fn func(context.Context, *AsyncLink[T])) {
	link := a.NewLink(ctx)
	s := ctx.s
	s.spawned.Add(1)
	go func() {
		defer s.spawned.Done()
		defer link.Close()
		fn(s.runCtx, link)
	}()
}
