package engine

import (
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// Component is anything a reaction can declare as a trigger, use or effect:
// ports, multiports, actions, timers and the startup/shutdown triggers.
type Component interface {
	// Name returns the component's full debug name.
	Name() string

	triggerIDs() []ir.TriggerID
	isPresent(c *ReactionCtx) bool
}

type specialTrigger struct {
	id   ir.TriggerID
	name string
}

func (s specialTrigger) Name() string                  { return s.name }
func (s specialTrigger) triggerIDs() []ir.TriggerID    { return []ir.TriggerID{s.id} }
func (s specialTrigger) isPresent(c *ReactionCtx) bool { return c.s.present[s.id] }

var (
	// Startup is present at the origin tag only.
	Startup Component = specialTrigger{id: ir.StartupTrigger, name: "startup"}

	// Shutdown is present at the shutdown tag only.
	Shutdown Component = specialTrigger{id: ir.ShutdownTrigger, name: "shutdown"}
)

// tagCell is a port cell the scheduler clears at cleanup.
type tagCell interface {
	// mark flags the cell written this tag; false if it already was.
	mark() bool
	clear()
}

// tagValues is an action's value store, cleared per tag at cleanup.
type tagValues interface {
	cleanup(tag timing.Tag)
}
