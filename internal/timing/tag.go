package timing

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MicroStep distinguishes simultaneous logical instants. Within one logical
// time it only ever increases.
type MicroStep uint64

// Tag is a point in logical time: an offset from the run origin plus a
// microstep. Tags are totally ordered by offset, then microstep.
type Tag struct {
	Offset    Duration
	Microstep MicroStep
}

var (
	// Origin is the tag of the startup event.
	Origin = Tag{}

	// Forever is later than every reachable tag. The scheduler uses it as
	// the shutdown tag while no stop is pending.
	Forever = Tag{Offset: MaxDuration, Microstep: math.MaxUint64}
)

// TagAt returns the tag (d, 0).
func TagAt(d Duration) Tag {
	return Tag{Offset: d}
}

// Compare returns -1, 0 or +1 as t is before, equal to or after o.
func (t Tag) Compare(o Tag) int {
	if c := cmp.Compare(t.Offset, o.Offset); c != 0 {
		return c
	}
	return cmp.Compare(t.Microstep, o.Microstep)
}

// Before reports whether t < o.
func (t Tag) Before(o Tag) bool { return t.Compare(o) < 0 }

// After reports whether t > o.
func (t Tag) After(o Tag) bool { return t.Compare(o) > 0 }

// NextMicrostep returns (offset, microstep+1), saturating to Forever.
func (t Tag) NextMicrostep() Tag {
	if t.Microstep == math.MaxUint64 {
		return Forever
	}
	return Tag{Offset: t.Offset, Microstep: t.Microstep + 1}
}

// Successor returns the tag an event scheduled from t with offset o lands on.
//
// A zero delay (Asap or After(0)) yields the next microstep. A positive delay
// d yields (offset+d, 0). Overflow saturates to Forever.
func (t Tag) Successor(o Offset) Tag {
	if o.delay <= 0 {
		return t.NextMicrostep()
	}
	off, ok := t.Offset.CheckedAdd(o.delay)
	if !ok || off == MaxDuration {
		return Forever
	}
	return Tag{Offset: off}
}

// String renders the tag as "(100ms, 0)".
func (t Tag) String() string {
	if t == Forever {
		return "(forever)"
	}
	return fmt.Sprintf("(%s, %d)", t.Offset, t.Microstep)
}

// Key renders the tag in the compact "offset/microstep" form accepted by
// ParseTag, with the offset in nanoseconds and a unit.
func (t Tag) Key() string {
	return strconv.FormatInt(int64(t.Offset), 10) + "ns/" + strconv.FormatUint(uint64(t.Microstep), 10)
}

// ParseTag parses "offset/microstep" (for example "5ms/0"). The microstep
// part may be omitted and defaults to zero.
func ParseTag(s string) (Tag, error) {
	off, step, found := strings.Cut(strings.TrimSpace(s), "/")
	d, err := ParseDuration(off)
	if err != nil {
		return Tag{}, err
	}
	if !found {
		return TagAt(d), nil
	}
	m, err := strconv.ParseUint(strings.TrimSpace(step), 10, 64)
	if err != nil {
		return Tag{}, fmt.Errorf("parse tag %q: invalid microstep: %w", s, err)
	}
	return Tag{Offset: d, Microstep: MicroStep(m)}, nil
}

// Offset is the policy for scheduling relative to the current tag.
type Offset struct {
	delay Duration
	after bool
}

// Asap schedules at the same logical time, next microstep.
var Asap = Offset{}

// After schedules d later. After(0) is a distinct value from Asap but lands
// on the same tag.
func After(d Duration) Offset {
	return Offset{delay: d, after: true}
}

// IsAsap reports whether o is Asap.
func (o Offset) IsAsap() bool {
	return !o.after
}

// Delay returns the delay of o (zero for Asap).
func (o Offset) Delay() Duration {
	return o.delay
}

// Plus extends o by a minimum delay. A zero extension leaves o unchanged.
func (o Offset) Plus(extra Duration) Offset {
	if extra == 0 {
		return o
	}
	return After(o.delay.SaturatingAdd(extra))
}

// String renders "asap" or "after(100ms)".
func (o Offset) String() string {
	if !o.after {
		return "asap"
	}
	return "after(" + o.delay.String() + ")"
}
