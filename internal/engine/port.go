package engine

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/reactors/internal/graph"
	"github.com/roach88/reactors/internal/ir"
)

// PortKind distinguishes input from output ports.
type PortKind uint8

const (
	Input PortKind = iota
	Output
)

// String returns "input" or "output".
func (k PortKind) String() string {
	if k == Input {
		return "input"
	}
	return "output"
}

// cell holds a port's value for the current tag. Bound ports share the cell
// of the head of their chain.
type cell[T any] struct {
	value   T
	present bool
	dirty   bool
}

func (c *cell[T]) mark() bool {
	if c.dirty {
		return false
	}
	c.dirty = true
	return true
}

func (c *cell[T]) clear() {
	var zero T
	c.value = zero
	c.present = false
	c.dirty = false
}

// Port is a typed, tag-scoped, single-writer value cell.
//
// A value set during a tag is visible to readers for that tag only. Binding
// makes a downstream port share its upstream's cell; only the head of a
// chain may be written.
type Port[T any] struct {
	id         ir.TriggerID
	name       string
	kind       PortKind
	cell       *cell[T]
	upstream   *Port[T]
	downstream []*Port[T]
}

func newPort[T any](a *AssemblyCtx, name string, kind PortKind) *Port[T] {
	full := a.componentName(name)
	return &Port[T]{
		id:   a.asm.graph.AddTrigger(graph.KindPort, full),
		name: full,
		kind: kind,
		cell: &cell[T]{},
	}
}

// NewInput creates an input port owned by the reactor being assembled.
func NewInput[T any](a *AssemblyCtx, name string) *Port[T] {
	return newPort[T](a, name, Input)
}

// NewOutput creates an output port owned by the reactor being assembled.
func NewOutput[T any](a *AssemblyCtx, name string) *Port[T] {
	return newPort[T](a, name, Output)
}

// Name returns the port's full name ("main/src.out").
func (p *Port[T]) Name() string { return p.name }

// ID returns the port's trigger id.
func (p *Port[T]) ID() ir.TriggerID { return p.id }

// Kind returns whether p is an input or an output.
func (p *Port[T]) Kind() PortKind { return p.kind }

// IsBound reports whether p has an upstream.
func (p *Port[T]) IsBound() bool { return p.upstream != nil }

// ElemType returns the port's element type.
func (p *Port[T]) ElemType() reflect.Type { return reflect.TypeFor[T]() }

func (p *Port[T]) triggerIDs() []ir.TriggerID { return []ir.TriggerID{p.id} }

func (p *Port[T]) isPresent(c *ReactionCtx) bool {
	if _, ok := c.pendingWrite(p.id); ok {
		return true
	}
	return p.cell.present
}

// Set writes v for the current tag. The reaction must have declared p as
// an effect and p must not be bound to an upstream.
func (p *Port[T]) Set(ctx *ReactionCtx, v T) {
	ctx.checkWrite(p.id, p.name)
	if p.upstream != nil {
		fault(FaultWriteToBoundPort, ctx.info.name, "port %s is bound to %s", p.name, p.upstream.name)
	}
	c := p.cell
	ctx.writes = append(ctx.writes, portWrite{
		id:    p.id,
		value: v,
		cell:  c,
		commit: func() {
			c.value = v
			c.present = true
		},
	})
}

// SetOpt writes v if ok is true and does nothing otherwise.
func (p *Port[T]) SetOpt(ctx *ReactionCtx, v T, ok bool) {
	if ok {
		p.Set(ctx, v)
		return
	}
	ctx.checkWrite(p.id, p.name)
}

// Get returns the value committed for the current tag, if any. A reaction
// sees its own writes.
func (p *Port[T]) Get(ctx *ReactionCtx) (T, bool) {
	ctx.checkRead(p.id, p.name)
	if v, ok := ctx.pendingWrite(p.id); ok {
		return v.(T), true
	}
	if p.cell.present {
		return p.cell.value, true
	}
	var zero T
	return zero, false
}

// AnyPort is a port of unknown element type. Network loaders use it to
// bind ports whose types are only known at runtime.
type AnyPort interface {
	Component
	ID() ir.TriggerID
	Kind() PortKind
	ElemType() reflect.Type
	bindTo(a *AssemblyCtx, down AnyPort) error
}

func (p *Port[T]) bindTo(a *AssemblyCtx, down AnyPort) error {
	d, ok := down.(*Port[T])
	if !ok {
		return a.fail(newAssemblyError(ErrCodePortTypeMismatch, a.inst.path,
			"cannot bind %s (%s) to %s (%s)", p.name, p.ElemType(), down.Name(), down.ElemType()))
	}
	return Bind(a, p, d)
}

// BindAny connects two ports whose element types are checked at runtime.
func BindAny(a *AssemblyCtx, up, down AnyPort) error {
	return up.bindTo(a, down)
}

// Bind connects up to down. down shares up's cell from then on.
//
// Fails with CannotBind if down already has an upstream and with
// CyclicDependency if up is fed, directly or transitively, by down.
func Bind[T any](a *AssemblyCtx, up, down *Port[T]) error {
	if down.upstream != nil {
		return a.fail(newAssemblyError(ErrCodeCannotBind, a.inst.path,
			"port %s is already bound to %s", down.name, down.upstream.name))
	}

	chain := []string{down.name}
	for at := up; at != nil; at = at.upstream {
		chain = append(chain, at.name)
		if at == down {
			slices.Reverse(chain)
			return a.fail(&AssemblyError{
				Code:    ErrCodeCyclicDependency,
				Message: "cyclic port binding: " + strings.Join(chain, " → "),
				Reactor: a.inst.path,
			})
		}
	}

	down.upstream = up
	up.downstream = append(up.downstream, down)
	down.share(up.cell)
	a.asm.graph.Binds(up.id, down.id)
	return nil
}

func (p *Port[T]) share(c *cell[T]) {
	p.cell = c
	for _, d := range p.downstream {
		d.share(c)
	}
}

// String implements fmt.Stringer.
func (p *Port[T]) String() string {
	return fmt.Sprintf("%s %s[%s]", p.kind, p.name, p.ElemType())
}
