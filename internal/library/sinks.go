package library

import (
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

var recorderKind = Kind{
	Name:        "recorder",
	Description: "records every input into the trace and its input count at shutdown",
	Params:      []string{"label"},
	Build:       buildRecorder,
}

type recorderReactor struct {
	PortSet
	in    *engine.Port[int64]
	label string
	count int64

	record ir.LocalReactionID
}

func buildRecorder(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("recorder")
	label := pr.string("label", "in")
	if pr.err != nil {
		return nil, pr.err
	}

	r := &recorderReactor{in: engine.NewInput[int64](a, "in"), label: label}
	r.AddPort("in", r.in)

	ids := a.NewReactions(2)
	r.record = ids[0]
	a.DeclareTriggers(ids[0], r.in)
	a.DeclareTriggers(ids[1], engine.Shutdown)
	return r, nil
}

func (r *recorderReactor) React(ctx *engine.ReactionCtx, id ir.LocalReactionID) {
	if id != r.record {
		ctx.Record("count", r.count)
		return
	}
	if v, ok := r.in.Get(ctx); ok {
		r.count++
		ctx.Record(r.label, v)
		ctx.Logger().Debug("recorded", "label", r.label, "value", v)
	}
}

var stopperKind = Kind{
	Name:        "stopper",
	Description: "requests shutdown once it has seen after inputs",
	Params:      []string{"after", "delay"},
	Build:       buildStopper,
}

type stopperReactor struct {
	PortSet
	in    *engine.Port[int64]
	after int64
	seen  int64
	delay timing.Offset
}

func buildStopper(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("stopper")
	after := pr.positive("after", 1)
	d := pr.duration("delay", 0)
	if pr.err != nil {
		return nil, pr.err
	}

	r := &stopperReactor{in: engine.NewInput[int64](a, "in"), after: after, delay: offset(d)}
	r.AddPort("in", r.in)

	count := a.NewReactions(1)[0]
	a.DeclareTriggers(count, r.in)
	return r, nil
}

func (r *stopperReactor) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	r.seen++
	if r.seen == r.after {
		ctx.Logger().Info("stop requested", "inputs", r.seen)
		ctx.RequestStop(r.delay)
	}
}
