package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/reactors/internal/timing"
)

// AsyncLink is the thread-safe handle for scheduling a physical action from
// outside reaction execution. It is the only runtime object that may cross
// goroutines.
type AsyncLink[T any] struct {
	s      *Scheduler
	action *PhysicalAction[T]
	closed atomic.Bool
}

// Schedule fires the action without a value at physical now + off.
func (l *AsyncLink[T]) Schedule(off timing.Offset) error {
	return l.send(off, nil)
}

// ScheduleValue fires the action carrying v at physical now + off.
//
// The tag is computed from the physical clock, not the scheduler's logical
// tag, and is clamped strictly after the last processed tag. Returns
// ErrSchedulerTerminated once the scheduler has terminated.
func (l *AsyncLink[T]) ScheduleValue(v T, off timing.Offset) error {
	return l.send(off, l.action.store(v))
}

func (l *AsyncLink[T]) send(off timing.Offset, store func(timing.Tag)) error {
	if off.Delay() < 0 {
		return fmt.Errorf("schedule %s: negative delay %d", l.action.name, off.Delay())
	}
	delay := off.Plus(l.action.minDelay).Delay()
	if !l.s.inbox.Enqueue(l.action.id, delay, store) {
		return ErrSchedulerTerminated
	}
	return nil
}

// Elapsed returns the physical time since the scheduler's origin.
func (l *AsyncLink[T]) Elapsed() timing.Duration {
	return l.s.inbox.elapsed()
}

// Close releases the link. A keep-alive scheduler shuts down once no links
// remain open and its queue is empty. Close is idempotent.
func (l *AsyncLink[T]) Close() {
	if l.closed.CompareAndSwap(false, true) {
		l.s.live.Add(-1)
		l.s.inbox.Wake()
	}
}
