package library

import (
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

var relayKind = Kind{
	Name:        "relay",
	Description: "forwards in to out at the same tag",
	Build:       buildRelay,
}

type relayReactor struct {
	PortSet
	in  *engine.Port[int64]
	out *engine.Port[int64]
}

func buildRelay(a *engine.AssemblyCtx, _ Params, _ Env) (Instance, error) {
	r := &relayReactor{
		in:  engine.NewInput[int64](a, "in"),
		out: engine.NewOutput[int64](a, "out"),
	}
	r.AddPort("in", r.in)
	r.AddPort("out", r.out)

	fwd := a.NewReactions(1)[0]
	a.DeclareTriggers(fwd, r.in)
	a.DeclareEffects(fwd, r.out)
	return r, nil
}

func (r *relayReactor) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	if v, ok := r.in.Get(ctx); ok {
		r.out.Set(ctx, v)
	}
}

var scaleKind = Kind{
	Name:        "scale",
	Description: "emits in multiplied by factor",
	Params:      []string{"factor"},
	Build:       buildScale,
}

type scaleReactor struct {
	PortSet
	in     *engine.Port[int64]
	out    *engine.Port[int64]
	factor int64
}

func buildScale(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("scale")
	factor := pr.int("factor", 2)
	if pr.err != nil {
		return nil, pr.err
	}

	r := &scaleReactor{
		in:     engine.NewInput[int64](a, "in"),
		out:    engine.NewOutput[int64](a, "out"),
		factor: factor,
	}
	r.AddPort("in", r.in)
	r.AddPort("out", r.out)

	mul := a.NewReactions(1)[0]
	a.DeclareTriggers(mul, r.in)
	a.DeclareEffects(mul, r.out)
	return r, nil
}

func (r *scaleReactor) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	if v, ok := r.in.Get(ctx); ok {
		r.out.Set(ctx, v*r.factor)
	}
}

var delayKind = Kind{
	Name:        "delay",
	Description: "forwards in to out after a logical delay",
	Params:      []string{"delay"},
	Build:       buildDelay,
}

type delayReactor struct {
	PortSet
	in     *engine.Port[int64]
	out    *engine.Port[int64]
	act    *engine.LogicalAction[int64]
	accept ir.LocalReactionID
}

func buildDelay(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("delay")
	d := pr.duration("delay", 0)
	if pr.err != nil {
		return nil, pr.err
	}

	r := &delayReactor{
		in:  engine.NewInput[int64](a, "in"),
		out: engine.NewOutput[int64](a, "out"),
		act: engine.NewLogicalAction[int64](a, "act", d),
	}
	r.AddPort("in", r.in)
	r.AddPort("out", r.out)

	ids := a.NewReactions(2)
	r.accept = ids[0]
	a.DeclareTriggers(ids[0], r.in)
	a.DeclareEffects(ids[0], r.act)
	a.DeclareTriggers(ids[1], r.act)
	a.DeclareEffects(ids[1], r.out)
	return r, nil
}

func (r *delayReactor) React(ctx *engine.ReactionCtx, id ir.LocalReactionID) {
	if id == r.accept {
		if v, ok := r.in.Get(ctx); ok {
			r.act.ScheduleValue(ctx, v, timing.Asap)
		}
		return
	}
	if v, ok := r.act.Get(ctx); ok {
		r.out.Set(ctx, v)
	}
}

var sumKind = Kind{
	Name:        "sum",
	Description: "adds the present channels of ins",
	Params:      []string{"width"},
	Build:       buildSum,
}

type sumReactor struct {
	PortSet
	ins *engine.Multiport[int64]
	out *engine.Port[int64]
}

func buildSum(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("sum")
	width := pr.positive("width", 2)
	if pr.err != nil {
		return nil, pr.err
	}

	r := &sumReactor{
		ins: engine.NewInputMultiport[int64](a, "ins", int(width)),
		out: engine.NewOutput[int64](a, "out"),
	}
	r.AddMultiport("ins", r.ins)
	r.AddPort("out", r.out)

	add := a.NewReactions(1)[0]
	a.DeclareTriggers(add, r.ins)
	a.DeclareEffects(add, r.out)
	return r, nil
}

func (r *sumReactor) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	var total int64
	n := 0
	for _, v := range r.ins.Present(ctx) {
		total += v
		n++
	}
	if n > 0 {
		r.out.Set(ctx, total)
	}
}
