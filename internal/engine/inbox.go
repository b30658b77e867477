package engine

import (
	"sync"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// physicalEvent is a physical action firing handed to the scheduler.
type physicalEvent struct {
	trigger ir.TriggerID
	tag     timing.Tag
	store   func(timing.Tag) // nil for value-less events
}

// inbox is the synchronized path from foreign goroutines into the
// scheduler.
//
// The queue is unbounded so a sender never blocks on the scheduler. Events
// are stamped under the inbox lock from the physical clock and clamped after
// the last processed tag, which the scheduler publishes here after every
// tag.
//
// The signal channel enables context-aware waiting in the scheduler loop.
type inbox struct {
	mu      sync.Mutex
	events  []physicalEvent
	closed  bool
	signal  chan struct{} // Signals event availability (buffered, size 1)
	clock   timing.Clock
	t0      timing.Instant
	latest  timing.Tag
	started bool
	last    map[ir.TriggerID]timing.Tag
}

func newInbox(clock timing.Clock) *inbox {
	return &inbox{
		events: make([]physicalEvent, 0, 16),
		signal: make(chan struct{}, 1),
		clock:  clock,
		last:   make(map[ir.TriggerID]timing.Tag),
	}
}

// start records the physical instant of the origin tag.
func (q *inbox) start(t0 timing.Instant) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.t0 = t0
}

// elapsed returns the physical time since the origin.
func (q *inbox) elapsed() timing.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clock.Now().Sub(q.t0)
}

// Enqueue stamps an event delay after the current physical time and adds it
// to the back of the queue. Thread-safe: may be called from any goroutine.
// Returns false if the inbox is closed.
func (q *inbox) Enqueue(trigger ir.TriggerID, delay timing.Duration, store func(timing.Tag)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	tag := timing.TagAt(q.clock.Now().Sub(q.t0).SaturatingAdd(delay))
	if q.started && !tag.After(q.latest) {
		tag = q.latest.NextMicrostep()
	}
	// Two firings of one action never share a tag.
	if last, ok := q.last[trigger]; ok && !tag.After(last) {
		tag = last.NextMicrostep()
	}
	q.last[trigger] = tag
	q.events = append(q.events, physicalEvent{trigger: trigger, tag: tag, store: store})
	q.notify()
	return true
}

// notify signals without blocking. The buffer of 1 coalesces signals.
func (q *inbox) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Wake signals the scheduler without adding an event.
func (q *inbox) Wake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.notify()
	}
}

// Publish records the last processed tag.
func (q *inbox) Publish(tag timing.Tag) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.latest = tag
	q.started = true
}

// Drain removes and returns all queued events in arrival order.
func (q *inbox) Drain() []physicalEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]physicalEvent, 0, cap(out))
	return out
}

// Wait returns a channel that signals when events may be available.
func (q *inbox) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes any waiter.
func (q *inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.events = nil
	close(q.signal)
}
