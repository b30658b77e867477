package ir

import (
	"cmp"
	"fmt"
)

// ReactorID identifies a reactor instance. Ids are assigned in assembly
// order, parents before their children.
type ReactorID uint32

// LocalReactionID identifies a reaction within its reactor, in declaration
// order.
type LocalReactionID uint16

// GlobalReactionID identifies a reaction across the whole program.
type GlobalReactionID struct {
	Reactor ReactorID
	Local   LocalReactionID
}

// Compare orders by reactor, then local id.
func (g GlobalReactionID) Compare(o GlobalReactionID) int {
	if c := cmp.Compare(g.Reactor, o.Reactor); c != 0 {
		return c
	}
	return cmp.Compare(g.Local, o.Local)
}

// String renders "r3.1".
func (g GlobalReactionID) String() string {
	return fmt.Sprintf("r%d.%d", g.Reactor, g.Local)
}

// TriggerID identifies a trigger component: a port channel, an action, a
// timer, or one of the two special triggers.
type TriggerID uint32

const (
	// StartupTrigger is present at the origin tag only.
	StartupTrigger TriggerID = 0

	// ShutdownTrigger is present at the shutdown tag only.
	ShutdownTrigger TriggerID = 1

	// FirstUserTrigger is the first id handed out to user components.
	FirstUserTrigger TriggerID = 2
)

// LevelIx is a reaction's topological level. Reactions on the same level
// have no dependency path between them.
type LevelIx uint32

// ReactionKey is the execution order key of a reaction.
type ReactionKey struct {
	Level LevelIx
	ID    GlobalReactionID
}

// Compare orders by level, then by reaction id.
func (k ReactionKey) Compare(o ReactionKey) int {
	if c := cmp.Compare(k.Level, o.Level); c != 0 {
		return c
	}
	return k.ID.Compare(o.ID)
}

// Less reports whether k sorts before o.
func (k ReactionKey) Less(o ReactionKey) bool {
	return k.Compare(o) < 0
}

// String renders "L2:r3.1".
func (k ReactionKey) String() string {
	return fmt.Sprintf("L%d:%s", k.Level, k.ID)
}
