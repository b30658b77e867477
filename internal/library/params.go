package library

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/roach88/reactors/internal/timing"
)

// Params holds the parameters of one reactor instance. Values are int64,
// float64, string or bool.
type Params map[string]any

// ParamError describes a missing, unknown or malformed parameter.
type ParamError struct {
	Kind    string
	Param   string
	Message string
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: parameter %q: %s", e.Kind, e.Param, e.Message)
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// check rejects parameters a kind does not accept.
func (p Params) check(kind string, allowed []string) error {
	for _, k := range p.Keys() {
		if !slices.Contains(allowed, k) {
			return &ParamError{Kind: kind, Param: k, Message: "unknown parameter"}
		}
	}
	return nil
}

// reader extracts typed parameters, keeping the first error.
type reader struct {
	kind string
	p    Params
	err  error
}

func (p Params) reader(kind string) *reader {
	return &reader{kind: kind, p: p}
}

func (r *reader) fail(param, format string, args ...any) {
	if r.err == nil {
		r.err = &ParamError{Kind: r.kind, Param: param, Message: fmt.Sprintf(format, args...)}
	}
}

func (r *reader) int(name string, def int64) int64 {
	v, ok := r.p[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < math.MaxInt64 {
			return int64(n)
		}
		r.fail(name, "expected integer, got %v", n)
	default:
		r.fail(name, "expected integer, got %T", v)
	}
	return def
}

// positive reads an integer that must be at least one.
func (r *reader) positive(name string, def int64) int64 {
	n := r.int(name, def)
	if n < 1 {
		r.fail(name, "must be at least 1, got %d", n)
		return def
	}
	return n
}

// duration reads a duration literal such as "10 ms". The integer 0 is
// accepted as the zero duration.
func (r *reader) duration(name string, def timing.Duration) timing.Duration {
	v, ok := r.p[name]
	if !ok {
		return def
	}
	switch d := v.(type) {
	case string:
		parsed, err := timing.ParseDuration(d)
		if err != nil {
			r.fail(name, "%v", err)
			return def
		}
		return parsed
	case int64:
		if d == 0 {
			return 0
		}
	case int:
		if d == 0 {
			return 0
		}
	}
	r.fail(name, "expected duration with unit, got %v", v)
	return def
}

func (r *reader) string(name, def string) string {
	v, ok := r.p[name]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(name, "expected string, got %T", v)
		return def
	}
	return s
}

func (r *reader) bool(name string, def bool) bool {
	v, ok := r.p[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(name, "expected bool, got %T", v)
		return def
	}
	return b
}

// offset maps a zero duration to Asap and anything else to After.
func offset(d timing.Duration) timing.Offset {
	if d == 0 {
		return timing.Asap
	}
	return timing.After(d)
}
