package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/reactors/internal/timing"
)

// ManualClock is a physical clock that only moves when a test advances it.
//
// It implements timing.Clock. Channels returned by After fire when Advance
// moves the clock to or past their deadline, so a scheduler pacing against
// a ManualClock runs exactly as far as the test allows.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManualClock creates a clock reading a fixed epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

// Now returns the current reading.
func (c *ManualClock) Now() timing.Instant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return timing.InstantOf(c.now)
}

// After returns a channel that receives once the clock has advanced by d.
// A non-positive d fires immediately.
func (c *ManualClock) After(d timing.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	deadline := c.now.Add(d.Std())
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, waiter{deadline: deadline, ch: ch})
	return ch
}

// Advance moves the clock forward by d and fires every due waiter.
func (c *ManualClock) Advance(d timing.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d.Std())
	sort.SliceStable(c.waiters, func(i, j int) bool {
		return c.waiters[i].deadline.Before(c.waiters[j].deadline)
	})
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.deadline.After(c.now) {
			kept = append(kept, w)
			continue
		}
		w.ch <- c.now
	}
	c.waiters = kept
}

// Waiters returns the number of pending After channels.
func (c *ManualClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
