package engine

import (
	"slices"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// event is a pending firing of one or more triggers at one tag.
type event struct {
	tag      timing.Tag
	triggers []ir.TriggerID // sorted, unique
}

// eventQueue is a minimum-tag-first queue of events.
//
// Events are kept sorted by tag. Inserting at a tag that is already queued
// merges the trigger sets, so there is at most one event per tag and no
// order among equal tags to preserve. Owned by the scheduler goroutine.
type eventQueue struct {
	events []event
}

func compareEventTag(e event, tag timing.Tag) int {
	return e.tag.Compare(tag)
}

// Push inserts triggers at tag, merging with an existing event.
func (q *eventQueue) Push(tag timing.Tag, triggers ...ir.TriggerID) {
	i, found := slices.BinarySearchFunc(q.events, tag, compareEventTag)
	if found {
		merged := append(q.events[i].triggers, triggers...)
		slices.Sort(merged)
		q.events[i].triggers = slices.Compact(merged)
		return
	}
	ts := slices.Clone(triggers)
	slices.Sort(ts)
	q.events = slices.Insert(q.events, i, event{tag: tag, triggers: slices.Compact(ts)})
}

// Peek returns the earliest event without removing it.
func (q *eventQueue) Peek() (event, bool) {
	if len(q.events) == 0 {
		return event{}, false
	}
	return q.events[0], true
}

// Pop removes and returns the earliest event.
func (q *eventQueue) Pop() (event, bool) {
	if len(q.events) == 0 {
		return event{}, false
	}
	e := q.events[0]

	// Nil out the slot so the trigger slice can be collected.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	return len(q.events)
}

// Clear discards every queued event.
func (q *eventQueue) Clear() {
	clear(q.events)
	q.events = q.events[:0]
}
