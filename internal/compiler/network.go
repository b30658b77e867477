package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/library"
	"github.com/roach88/reactors/internal/timing"
)

// RootName is the name of the reactor every network is assembled under.
// Reaction names read "main/<label>#<n>".
const RootName = "main"

// Network is a compiled network description.
type Network struct {
	Name        string
	Options     Options
	Reactors    []ReactorDecl // declaration order
	Connections []Connection
}

// Options are the run options a network file may set. Zero values mean
// the engine defaults.
type Options struct {
	Workers     int
	Timeout     timing.Duration
	KeepAlive   bool
	FastForward bool
}

// ReactorDecl instantiates one library kind. A bank of n declares n
// children named label[0] … label[n-1].
type ReactorDecl struct {
	Label  string
	Kind   string
	Params library.Params
	Bank   int
	Pos    token.Pos
}

// PortRef addresses a port as "reactor.port", where either side may carry
// an index: "sink[1].in", "add.ins[0]".
type PortRef struct {
	Reactor string
	Port    string
}

// String renders the reference as written in the network file.
func (r PortRef) String() string {
	return r.Reactor + "." + r.Port
}

// ParsePortRef splits "reactor.port".
func ParsePortRef(s string) (PortRef, error) {
	reactor, port, ok := strings.Cut(s, ".")
	if !ok || reactor == "" || port == "" {
		return PortRef{}, fmt.Errorf("port reference %q must have the form reactor.port", s)
	}
	return PortRef{Reactor: reactor, Port: port}, nil
}

// Connection binds From to To.
type Connection struct {
	From PortRef
	To   PortRef
	Pos  token.Pos
}

// EngineOptions converts the network's options to engine options.
func (o Options) EngineOptions() []engine.Option {
	var opts []engine.Option
	if o.Workers > 0 {
		opts = append(opts, engine.WithWorkers(o.Workers))
	}
	if o.Timeout > 0 {
		opts = append(opts, engine.WithTimeout(o.Timeout))
	}
	if o.KeepAlive {
		opts = append(opts, engine.WithKeepAlive(true))
	}
	if o.FastForward {
		opts = append(opts, engine.WithFastForward(true))
	}
	return opts
}

// CanonicalValue implements ir.Canonical.
func (n *Network) CanonicalValue() any {
	reactors := make([]any, len(n.Reactors))
	for i, r := range n.Reactors {
		params := make(map[string]any, len(r.Params))
		for k, v := range r.Params {
			params[k] = v
		}
		reactors[i] = map[string]any{
			"label":  r.Label,
			"kind":   r.Kind,
			"params": params,
			"bank":   int64(r.Bank),
		}
	}
	conns := make([]any, len(n.Connections))
	for i, c := range n.Connections {
		conns[i] = map[string]any{"from": c.From.String(), "to": c.To.String()}
	}
	return map[string]any{
		"name": n.Name,
		"options": map[string]any{
			"workers":      int64(n.Options.Workers),
			"timeout_ns":   int64(n.Options.Timeout),
			"keepalive":    n.Options.KeepAlive,
			"fast_forward": n.Options.FastForward,
		},
		"reactors":    reactors,
		"connections": conns,
	}
}

// Digest returns the network's content digest. Two files describing the
// same network in the same order share a digest.
func (n *Network) Digest() (string, error) {
	return ir.Digest(ir.DomainNetwork, n)
}
