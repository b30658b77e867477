package harness

import (
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/trace"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// RunID is the id the run was stored under.
	RunID string `json:"run_id"`

	// Network is the name of the network that ran.
	Network string `json:"network"`

	// Trace contains every trace entry in order.
	Trace []trace.Entry `json:"trace"`

	// Digest is the trace's content digest.
	Digest string `json:"digest"`

	// Stats are the scheduler's counters.
	Stats engine.Stats `json:"stats"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Entry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Executions returns the exec entries of reactions matching name.
func (r *Result) Executions(name string) []trace.Entry {
	var out []trace.Entry
	for _, e := range r.Trace {
		if e.Kind == trace.KindExec && matchReaction(e.Reaction, name) {
			out = append(out, e)
		}
	}
	return out
}
