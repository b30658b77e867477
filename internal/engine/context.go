package engine

import (
	"log/slog"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

type portWrite struct {
	id     ir.TriggerID
	value  any
	cell   tagCell
	commit func()
}

type scheduledEvent struct {
	trigger ir.TriggerID
	tag     timing.Tag
	store   func(timing.Tag)
}

// Record is a labeled value a reaction emits into the trace.
type Record struct {
	Label string
	Value any
}

// ReactionCtx is the capability object a reaction body runs with.
//
// Writes, schedules, stop requests and records are buffered in the context
// and committed by the scheduler after the reaction's level completes, in
// execution order. A context is valid only while its reaction runs.
type ReactionCtx struct {
	s      *Scheduler
	info   *reactionInfo
	tag    timing.Tag
	active bool

	writes    []portWrite
	schedules []scheduledEvent
	stops     []timing.Tag
	records   []Record
}

func (c *ReactionCtx) checkActive() {
	if !c.active {
		fault(FaultContextEscaped, c.info.name, "context used after its reaction returned")
	}
}

func (c *ReactionCtx) checkRead(id ir.TriggerID, name string) {
	c.checkActive()
	if !c.info.reads[id] {
		fault(FaultUndeclaredUse, c.info.name, "%s is not a declared trigger, use or effect", name)
	}
}

func (c *ReactionCtx) checkWrite(id ir.TriggerID, name string) {
	c.checkActive()
	if !c.info.writes[id] {
		fault(FaultUndeclaredEffect, c.info.name, "%s is not a declared effect", name)
	}
}

// pendingWrite returns this reaction's latest uncommitted write to a port.
func (c *ReactionCtx) pendingWrite(id ir.TriggerID) (any, bool) {
	for i := len(c.writes) - 1; i >= 0; i-- {
		if c.writes[i].id == id {
			return c.writes[i].value, true
		}
	}
	return nil, false
}

// Tag returns the tag being executed.
func (c *ReactionCtx) Tag() timing.Tag {
	c.checkActive()
	return c.tag
}

// ReactionName returns the executing reaction's name ("main/src#0").
func (c *ReactionCtx) ReactionName() string {
	return c.info.name
}

// StartTime returns the physical instant of the origin tag.
func (c *ReactionCtx) StartTime() timing.Instant {
	c.checkActive()
	return c.s.t0
}

// LogicalTime returns the start time plus the tag's offset.
func (c *ReactionCtx) LogicalTime() timing.Instant {
	c.checkActive()
	return c.s.t0.Add(c.tag.Offset)
}

// ElapsedLogicalTime returns the tag's offset from the origin.
func (c *ReactionCtx) ElapsedLogicalTime() timing.Duration {
	c.checkActive()
	return c.tag.Offset
}

// PhysicalTime reads the physical clock.
func (c *ReactionCtx) PhysicalTime() timing.Instant {
	c.checkActive()
	return c.s.clock.Now()
}

// ElapsedPhysicalTime returns the physical time since the start.
func (c *ReactionCtx) ElapsedPhysicalTime() timing.Duration {
	c.checkActive()
	return c.s.clock.Now().Sub(c.s.t0)
}

// IsShutdown reports whether this is the shutdown tag.
func (c *ReactionCtx) IsShutdown() bool {
	c.checkActive()
	return c.s.present[ir.ShutdownTrigger]
}

// IsPresent reports whether comp carries a value or fired at this tag. For
// a multiport, any present channel counts.
func (c *ReactionCtx) IsPresent(comp Component) bool {
	for _, id := range comp.triggerIDs() {
		c.checkRead(id, comp.Name())
	}
	return comp.isPresent(c)
}

// Schedule schedules a logical action without a value at the current tag
// plus off plus the action's minimum delay. Physical actions must be
// scheduled through an AsyncLink.
func (c *ReactionCtx) Schedule(a Action, off timing.Offset) {
	c.schedule(a, off, nil)
}

func (c *ReactionCtx) schedule(a Action, off timing.Offset, store func(timing.Tag)) {
	c.checkWrite(a.ID(), a.Name())
	if a.IsPhysical() {
		fault(FaultScheduleFromWrongContext, c.info.name, "physical action %s must be scheduled through an AsyncLink", a.Name())
	}
	if off.Delay() < 0 {
		fault(FaultNegativeDelay, c.info.name, "action %s scheduled with delay %d", a.Name(), off.Delay())
	}
	c.schedules = append(c.schedules, scheduledEvent{
		trigger: a.ID(),
		tag:     c.tag.Successor(off.Plus(a.MinDelay())),
		store:   store,
	})
}

// RequestStop asks the scheduler to shut down at the current tag plus off.
// It is cooperative: reactions already running finish, and the earliest
// request wins.
func (c *ReactionCtx) RequestStop(off timing.Offset) {
	c.checkActive()
	if off.Delay() < 0 {
		fault(FaultNegativeDelay, c.info.name, "stop requested with delay %d", off.Delay())
	}
	c.stops = append(c.stops, c.tag.Successor(off))
}

// Record emits a labeled value into the run's trace.
func (c *ReactionCtx) Record(label string, value any) {
	c.checkActive()
	c.records = append(c.records, Record{Label: label, Value: value})
}

// Logger returns the scheduler's logger annotated with the reaction and tag.
func (c *ReactionCtx) Logger() *slog.Logger {
	c.checkActive()
	return c.s.log.With("reaction", c.info.name, "tag", c.tag.String())
}
