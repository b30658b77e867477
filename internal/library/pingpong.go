package library

import (
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

var pingPongKind = Kind{
	Name:        "pingpong",
	Description: "ping sends count, count-1, ... 1 to pong, which echoes each back; out carries the echoes",
	Params:      []string{"count", "stop"},
	Build:       buildPingPong,
}

// pingPong is a composite: its out port is bound from the ping child.
type pingPong struct {
	PortSet
	ping *ping
	pong *pong
}

func (*pingPong) React(*engine.ReactionCtx, ir.LocalReactionID) {}

func buildPingPong(a *engine.AssemblyCtx, p Params, _ Env) (Instance, error) {
	pr := p.reader("pingpong")
	count := pr.positive("count", 10)
	stop := pr.bool("stop", true)
	if pr.err != nil {
		return nil, pr.err
	}

	pp := &pingPong{}
	var err error
	pp.ping, err = engine.AssembleChild[*ping](a, "ping", func(ca *engine.AssemblyCtx) (*ping, error) {
		return newPing(ca, count, stop), nil
	})
	if err != nil {
		return nil, err
	}
	pp.pong, err = engine.AssembleChild[*pong](a, "pong", func(ca *engine.AssemblyCtx) (*pong, error) {
		return newPong(ca), nil
	})
	if err != nil {
		return nil, err
	}

	out := engine.NewOutput[int64](a, "out")
	pp.AddPort("out", out)
	if err := engine.Bind(a, pp.ping.send, pp.pong.receive); err != nil {
		return nil, err
	}
	if err := engine.Bind(a, pp.pong.send, pp.ping.receive); err != nil {
		return nil, err
	}
	if err := engine.Bind(a, pp.ping.received, out); err != nil {
		return nil, err
	}
	return pp, nil
}

type ping struct {
	send     *engine.Port[int64]
	receive  *engine.Port[int64]
	received *engine.Port[int64]
	serve    *engine.LogicalAction[struct{}]
	left     int64
	stop     bool

	serveID ir.LocalReactionID
}

func newPing(a *engine.AssemblyCtx, count int64, stop bool) *ping {
	p := &ping{
		send:     engine.NewOutput[int64](a, "send"),
		receive:  engine.NewInput[int64](a, "receive"),
		received: engine.NewOutput[int64](a, "received"),
		serve:    engine.NewLogicalAction[struct{}](a, "serve", 0),
		left:     count,
		stop:     stop,
	}
	ids := a.NewReactions(2)
	p.serveID = ids[0]
	a.DeclareTriggers(ids[0], engine.Startup, p.serve)
	a.DeclareEffects(ids[0], p.send)
	a.DeclareTriggers(ids[1], p.receive)
	a.DeclareEffects(ids[1], p.serve, p.received)
	return p
}

func (p *ping) React(ctx *engine.ReactionCtx, id ir.LocalReactionID) {
	if id == p.serveID {
		p.send.Set(ctx, p.left)
		p.left--
		return
	}
	v, ok := p.receive.Get(ctx)
	if !ok {
		return
	}
	p.received.Set(ctx, v)
	switch {
	case p.left > 0:
		p.serve.Schedule(ctx, timing.Asap)
	case p.stop:
		ctx.RequestStop(timing.Asap)
	}
}

type pong struct {
	receive *engine.Port[int64]
	send    *engine.Port[int64]
}

func newPong(a *engine.AssemblyCtx) *pong {
	p := &pong{
		receive: engine.NewInput[int64](a, "receive"),
		send:    engine.NewOutput[int64](a, "send"),
	}
	echo := a.NewReactions(1)[0]
	a.DeclareTriggers(echo, p.receive)
	a.DeclareEffects(echo, p.send)
	return p
}

func (p *pong) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	if v, ok := p.receive.Get(ctx); ok {
		p.send.Set(ctx, v)
	}
}
