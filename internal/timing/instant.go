package timing

import (
	"time"
)

// Instant is an opaque monotonic reading of a physical clock.
type Instant struct {
	t time.Time
}

// InstantOf wraps a time.Time.
func InstantOf(t time.Time) Instant {
	return Instant{t: t}
}

// Time returns the underlying time.Time.
func (i Instant) Time() time.Time {
	return i.t
}

// Sub returns i-o, clamped to Zero when o is later than i.
func (i Instant) Sub(o Instant) Duration {
	return FromStd(i.t.Sub(o.t))
}

// Add returns i+d.
func (i Instant) Add(d Duration) Instant {
	return Instant{t: i.t.Add(d.Std())}
}

// Before reports whether i is strictly earlier than o.
func (i Instant) Before(o Instant) bool {
	return i.t.Before(o.t)
}

// Clock is a source of physical time.
//
// The scheduler reads Now to stamp physical events and to pace logical time,
// and waits on After while blocked on a future tag.
type Clock interface {
	Now() Instant
	After(d Duration) <-chan time.Time
}

// SystemClock reads the monotonic system clock.
type SystemClock struct{}

// Now returns the current monotonic time.
func (SystemClock) Now() Instant {
	return Instant{t: time.Now()}
}

// After waits for d to elapse.
func (SystemClock) After(d Duration) <-chan time.Time {
	return time.After(d.Std())
}
