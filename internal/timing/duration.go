package timing

import (
	"math"
	"time"
)

// Duration is a non-negative span of logical or physical time in nanoseconds.
//
// Arithmetic never wraps silently. The Checked* methods report overflow and
// the Saturating* methods clamp to Zero or MaxDuration.
type Duration int64

const (
	Nanosecond  Duration = 1
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
	Day                  = 24 * Hour
	Week                 = 7 * Day

	// Zero is the empty duration.
	Zero Duration = 0

	// MaxDuration is the largest representable duration.
	MaxDuration Duration = math.MaxInt64
)

// FromStd converts a time.Duration, clamping negative values to Zero.
func FromStd(d time.Duration) Duration {
	if d < 0 {
		return Zero
	}
	return Duration(d)
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String renders the duration using time.Duration formatting ("1.5s", "100ms").
func (d Duration) String() string {
	if d == MaxDuration {
		return "forever"
	}
	return time.Duration(d).String()
}

// IsZero reports whether d is Zero.
func (d Duration) IsZero() bool {
	return d == 0
}

// CheckedAdd returns d+o. ok is false if the sum overflows or either operand
// is negative.
func (d Duration) CheckedAdd(o Duration) (Duration, bool) {
	if d < 0 || o < 0 || d > MaxDuration-o {
		return 0, false
	}
	return d + o, true
}

// CheckedSub returns d-o. ok is false if the result would be negative.
func (d Duration) CheckedSub(o Duration) (Duration, bool) {
	if o < 0 || o > d {
		return 0, false
	}
	return d - o, true
}

// CheckedMul returns d*n. ok is false on overflow or a negative factor.
func (d Duration) CheckedMul(n int64) (Duration, bool) {
	if n < 0 || d < 0 {
		return 0, false
	}
	if d != 0 && n > int64(MaxDuration/d) {
		return 0, false
	}
	return d * Duration(n), true
}

// CheckedDiv returns d/n. ok is false if n is not positive.
func (d Duration) CheckedDiv(n int64) (Duration, bool) {
	if n <= 0 {
		return 0, false
	}
	return d / Duration(n), true
}

// SaturatingAdd returns d+o, clamped to MaxDuration.
func (d Duration) SaturatingAdd(o Duration) Duration {
	if r, ok := d.CheckedAdd(o); ok {
		return r
	}
	if o < 0 {
		return d.SaturatingSub(-o)
	}
	return MaxDuration
}

// SaturatingSub returns d-o, clamped to Zero.
func (d Duration) SaturatingSub(o Duration) Duration {
	if r, ok := d.CheckedSub(o); ok {
		return r
	}
	return Zero
}

// SaturatingMul returns d*n, clamped to MaxDuration. A negative factor
// yields Zero.
func (d Duration) SaturatingMul(n int64) Duration {
	if r, ok := d.CheckedMul(n); ok {
		return r
	}
	if n < 0 {
		return Zero
	}
	return MaxDuration
}
