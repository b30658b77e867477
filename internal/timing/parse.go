package timing

import (
	"fmt"
	"strings"
)

// ParseError describes a malformed duration string.
type ParseError struct {
	Input   string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse duration %q: %s", e.Input, e.Message)
}

// units maps every accepted unit keyword to its scale.
var units = map[string]Duration{
	"ns": Nanosecond, "nsec": Nanosecond, "nsecs": Nanosecond,
	"nanosecond": Nanosecond, "nanoseconds": Nanosecond,

	"us": Microsecond, "usec": Microsecond, "usecs": Microsecond,
	"microsecond": Microsecond, "microseconds": Microsecond,

	"ms": Millisecond, "msec": Millisecond, "msecs": Millisecond,
	"millisecond": Millisecond, "milliseconds": Millisecond,

	"s": Second, "sec": Second, "secs": Second,
	"second": Second, "seconds": Second,

	"min": Minute, "mins": Minute, "minute": Minute, "minutes": Minute,

	"h": Hour, "hour": Hour, "hours": Hour,

	"d": Day, "day": Day, "days": Day,

	"week": Week, "weeks": Week,
}

// ParseDuration parses a numeric literal followed by a unit keyword, for
// example "200 ms", "1sec" or "3 weeks". The literal "0" needs no unit.
// Malformed input always yields a *ParseError.
func ParseDuration(s string) (Duration, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, &ParseError{Input: s, Message: "cannot parse empty string"}
	}

	end := strings.IndexFunc(in, func(r rune) bool { return r < '0' || r > '9' })
	if end == -1 {
		end = len(in)
	}
	if end == 0 {
		return 0, &ParseError{Input: s, Message: "invalid number"}
	}

	var n int64
	for _, c := range in[:end] {
		d := int64(c - '0')
		if n > (int64(MaxDuration)-d)/10 {
			return 0, &ParseError{Input: s, Message: "duration overflow"}
		}
		n = n*10 + d
	}

	unit := strings.TrimSpace(in[end:])
	if unit == "" {
		if n == 0 {
			return Zero, nil
		}
		return 0, &ParseError{Input: s, Message: "time unit required"}
	}

	scale, ok := units[unit]
	if !ok {
		return 0, &ParseError{Input: s, Message: fmt.Sprintf("unknown time unit '%s'", unit)}
	}

	d, ok := Duration(n).CheckedMul(int64(scale))
	if !ok {
		return 0, &ParseError{Input: s, Message: "duration overflow"}
	}
	return d, nil
}

// MustParseDuration is like ParseDuration but panics on error. Intended for
// tests and constant tables.
func MustParseDuration(s string) Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}
