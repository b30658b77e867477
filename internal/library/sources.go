package library

import (
	"context"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

var clockKind = Kind{
	Name:        "clock",
	Description: "timer source; emits start, start+step, ... on out",
	Params:      []string{"offset", "period", "start", "step"},
	Build:       buildClock,
}

type clockReactor struct {
	PortSet
	timer *engine.Timer
	out   *engine.Port[int64]
	next  int64
	step  int64
}

func buildClock(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("clock")
	off := pr.duration("offset", 0)
	period := pr.duration("period", 0)
	start := pr.int("start", 0)
	step := pr.int("step", 1)
	if pr.err != nil {
		return nil, pr.err
	}

	r := &clockReactor{next: start, step: step}
	r.timer = engine.NewTimer(a, "t", off, period)
	r.out = engine.NewOutput[int64](a, "out")
	r.AddPort("out", r.out)

	tick := a.NewReactions(1)[0]
	a.DeclareTriggers(tick, r.timer)
	a.DeclareEffects(tick, r.out)
	return r, nil
}

func (r *clockReactor) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	r.out.Set(ctx, r.next)
	r.next += r.step
}

var tickerKind = Kind{
	Name:        "ticker",
	Description: "goroutine scheduling a physical action every period; emits 0..count-1 on out",
	Params:      []string{"period", "count"},
	Build:       buildTicker,
}

type tickerReactor struct {
	PortSet
	tick   *engine.PhysicalAction[int64]
	out    *engine.Port[int64]
	clock  timing.Clock
	period timing.Duration
	count  int64

	start ir.LocalReactionID
}

func buildTicker(a *engine.AssemblyCtx, p Params, env Env) (Instance, error) {
	pr := p.reader("ticker")
	period := pr.duration("period", 10*timing.Millisecond)
	count := pr.positive("count", 5)
	if pr.err != nil {
		return nil, pr.err
	}

	r := &tickerReactor{clock: env.clock(), period: period, count: count}
	r.tick = engine.NewPhysicalAction[int64](a, "tick", 0)
	r.out = engine.NewOutput[int64](a, "out")
	r.AddPort("out", r.out)

	ids := a.NewReactions(2)
	r.start = ids[0]
	a.DeclareTriggers(ids[0], engine.Startup)
	a.DeclareEffects(ids[0], r.tick)
	a.DeclareTriggers(ids[1], r.tick)
	a.DeclareEffects(ids[1], r.out)
	return r, nil
}

func (r *tickerReactor) React(ctx *engine.ReactionCtx, id ir.LocalReactionID) {
	if id == r.start {
		r.tick.Spawn(ctx, r.run)
		return
	}
	if v, ok := r.tick.Get(ctx); ok {
		r.out.Set(ctx, v)
	}
}

func (r *tickerReactor) run(ctx context.Context, link *engine.AsyncLink[int64]) {
	for i := range r.count {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(r.period):
		}
		if err := link.ScheduleValue(i, timing.Asap); err != nil {
			return
		}
	}
}
