package engine

import (
	"fmt"
	"iter"

	"github.com/roach88/reactors/internal/ir"
)

// Multiport is an indexed collection of independent port channels.
type Multiport[T any] struct {
	name     string
	channels []*Port[T]
}

func newMultiport[T any](a *AssemblyCtx, name string, width int, kind PortKind) *Multiport[T] {
	m := &Multiport[T]{name: a.componentName(name)}
	if width <= 0 {
		a.fail(newAssemblyError(ErrCodeBadWidth, a.inst.path, "multiport %s has width %d", m.name, width))
		return m
	}
	m.channels = make([]*Port[T], width)
	for i := range width {
		m.channels[i] = newPort[T](a, fmt.Sprintf("%s[%d]", name, i), kind)
	}
	return m
}

// NewInputMultiport creates an input multiport of the given width. A width
// below one fails the assembly with BadWidth.
func NewInputMultiport[T any](a *AssemblyCtx, name string, width int) *Multiport[T] {
	return newMultiport[T](a, name, width, Input)
}

// NewOutputMultiport creates an output multiport of the given width.
func NewOutputMultiport[T any](a *AssemblyCtx, name string, width int) *Multiport[T] {
	return newMultiport[T](a, name, width, Output)
}

// Name returns the multiport's full name.
func (m *Multiport[T]) Name() string { return m.name }

// Len returns the number of channels.
func (m *Multiport[T]) Len() int { return len(m.channels) }

// At returns channel i.
func (m *Multiport[T]) At(i int) *Port[T] { return m.channels[i] }

// Channels returns all channels in index order.
func (m *Multiport[T]) Channels() []*Port[T] { return m.channels }

func (m *Multiport[T]) triggerIDs() []ir.TriggerID {
	ids := make([]ir.TriggerID, len(m.channels))
	for i, p := range m.channels {
		ids[i] = p.id
	}
	return ids
}

func (m *Multiport[T]) isPresent(c *ReactionCtx) bool {
	for _, p := range m.channels {
		if p.isPresent(c) {
			return true
		}
	}
	return false
}

// Present iterates the channels that carry a value at the current tag, in
// index order.
func (m *Multiport[T]) Present(ctx *ReactionCtx) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, p := range m.channels {
			if v, ok := p.Get(ctx); ok {
				if !yield(i, v) {
					return
				}
			}
		}
	}
}

// Width returns the number of channels.
func (m *Multiport[T]) Width() int { return len(m.channels) }

// Channel returns channel i as an AnyPort.
func (m *Multiport[T]) Channel(i int) AnyPort { return m.channels[i] }

// AnyMultiport is a multiport of unknown element type.
type AnyMultiport interface {
	Component
	Width() int
	Channel(i int) AnyPort
}

// BindMulti zips up's channels onto down's. The widths must match.
func BindMulti[T any](a *AssemblyCtx, up, down *Multiport[T]) error {
	return BindAnyMulti(a, up, down)
}

// BindAnyMulti zips two multiports whose element types are checked at
// runtime, channel by channel.
func BindAnyMulti(a *AssemblyCtx, up, down AnyMultiport) error {
	if up.Width() != down.Width() {
		return a.fail(newAssemblyError(ErrCodeBadWidth, a.inst.path,
			"cannot bind %s (width %d) to %s (width %d)", up.Name(), up.Width(), down.Name(), down.Width()))
	}
	for i := range up.Width() {
		if err := BindAny(a, up.Channel(i), down.Channel(i)); err != nil {
			return err
		}
	}
	return nil
}
