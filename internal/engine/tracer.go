package engine

import (
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// Tracer observes execution. All calls happen on the scheduler goroutine in
// execution order, so a trace is identical for sequential and parallel runs.
type Tracer interface {
	// TagStarted is called before any reaction of tag runs.
	TagStarted(tag timing.Tag)

	// ReactionExecuted is called once per reaction execution, after its
	// level completes.
	ReactionExecuted(tag timing.Tag, key ir.ReactionKey, reaction string)

	// ValueRecorded is called for each ReactionCtx.Record, right after the
	// recording reaction's ReactionExecuted.
	ValueRecorded(tag timing.Tag, reaction, label string, value any)
}

type nopTracer struct{}

func (nopTracer) TagStarted(timing.Tag) {}
func (nopTracer) ReactionExecuted(timing.Tag, ir.ReactionKey, string) {}
func (nopTracer) ValueRecorded(timing.Tag, string, string, any) {}
