package compiler

import (
	"fmt"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/library"
)

// Root is the reactor a network is assembled under. It owns the declared
// reactors and has no reactions of its own.
type Root struct {
	children map[string]library.Instance
}

// React implements engine.Reactor.
func (*Root) React(*engine.ReactionCtx, ir.LocalReactionID) {}

// Child returns the instance named name ("clk", "sink[1]").
func (r *Root) Child(name string) (library.Instance, bool) {
	inst, ok := r.children[name]
	return inst, ok
}

// Build returns the build function assembling n from reg's kinds.
//
// Reactors are assembled in declaration order, then connections are bound
// in order. Binding errors from the engine keep their assembly code;
// reference errors carry the connection's source position.
func (n *Network) Build(reg *library.Registry, env library.Env) engine.BuildFunc[*Root] {
	return func(a *engine.AssemblyCtx) (*Root, error) {
		root := &Root{children: make(map[string]library.Instance)}

		for _, d := range n.Reactors {
			build := func(ca *engine.AssemblyCtx) (library.Instance, error) {
				return reg.Build(ca, d.Kind, d.Params, env)
			}
			if d.Bank == 0 {
				inst, err := engine.AssembleChild[library.Instance](a, d.Label, build)
				if err != nil {
					return nil, err
				}
				root.children[d.Label] = inst
				continue
			}
			bank, err := engine.AssembleBank[library.Instance](a, d.Label, d.Bank, func(ca *engine.AssemblyCtx, _ int) (library.Instance, error) {
				return build(ca)
			})
			if err != nil {
				return nil, err
			}
			for i, inst := range bank {
				root.children[fmt.Sprintf("%s[%d]", d.Label, i)] = inst
			}
		}

		for _, c := range n.Connections {
			up, err := root.endpoint(c.From)
			if err != nil {
				return nil, &CompileError{Field: "connections", Message: err.Error(), Pos: c.Pos}
			}
			down, err := root.endpoint(c.To)
			if err != nil {
				return nil, &CompileError{Field: "connections", Message: err.Error(), Pos: c.Pos}
			}
			if err := library.Connect(a, up, down); err != nil {
				return nil, err
			}
		}
		return root, nil
	}
}

func (r *Root) endpoint(ref PortRef) (library.Endpoint, error) {
	inst, ok := r.children[ref.Reactor]
	if !ok {
		return library.Endpoint{}, fmt.Errorf("unknown reactor %q", ref.Reactor)
	}
	ep, err := library.Resolve(inst, ref.Port)
	if err != nil {
		return library.Endpoint{}, fmt.Errorf("%s: %w", ref, err)
	}
	return ep, nil
}

// Assemble builds n into a program rooted at RootName.
func (n *Network) Assemble(reg *library.Registry, env library.Env) (*engine.Program, error) {
	return engine.Assemble(RootName, n.Build(reg, env))
}
