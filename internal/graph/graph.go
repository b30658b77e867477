package graph

import (
	"fmt"

	"github.com/roach88/reactors/internal/ir"
)

// NodeKind classifies graph nodes.
type NodeKind uint8

const (
	KindSpecial NodeKind = iota
	KindPort
	KindAction
	KindTimer
	KindReaction
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case KindSpecial:
		return "special"
	case KindPort:
		return "port"
	case KindAction:
		return "action"
	case KindTimer:
		return "timer"
	case KindReaction:
		return "reaction"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// EdgeKind classifies dependency edges.
type EdgeKind uint8

const (
	// EdgePriority orders two reactions of the same reactor by declaration.
	EdgePriority EdgeKind = iota
	// EdgeBind connects an upstream port to a downstream port.
	EdgeBind
	// EdgeTrigger makes a component fire a reaction.
	EdgeTrigger
	// EdgeUse lets a reaction read a component without being fired by it.
	EdgeUse
	// EdgeEffect lets a reaction write a component.
	EdgeEffect
)

// String returns the edge kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgePriority:
		return "priority"
	case EdgeBind:
		return "bind"
	case EdgeTrigger:
		return "trigger"
	case EdgeUse:
		return "use"
	case EdgeEffect:
		return "effect"
	default:
		return fmt.Sprintf("edge(%d)", uint8(k))
	}
}

// NodeID indexes DepGraph nodes.
type NodeID int32

type node struct {
	kind     NodeKind
	name     string
	trigger  ir.TriggerID
	reaction ir.GlobalReactionID
}

// Edge is a directed dependency edge.
type Edge struct {
	From NodeID
	To   NodeID
	Kind EdgeKind
}

// DepGraph is the dependency graph of one program.
//
// Triggers and reactions are added in declaration order, so NodeID order is
// declaration order. Analysis breaks every tie on NodeID.
type DepGraph struct {
	nodes     []node
	edges     []Edge
	out       [][]int32 // node -> indices into edges
	triggers  []NodeID  // TriggerID -> node
	reactions map[ir.GlobalReactionID]NodeID
}

// New returns a graph holding the startup and shutdown triggers.
func New() *DepGraph {
	g := &DepGraph{reactions: make(map[ir.GlobalReactionID]NodeID)}
	g.AddTrigger(KindSpecial, "startup")
	g.AddTrigger(KindSpecial, "shutdown")
	return g
}

func (g *DepGraph) addNode(n node) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	return id
}

// AddTrigger registers a trigger component and returns its id.
func (g *DepGraph) AddTrigger(kind NodeKind, name string) ir.TriggerID {
	t := ir.TriggerID(len(g.triggers))
	n := g.addNode(node{kind: kind, name: name, trigger: t})
	g.triggers = append(g.triggers, n)
	return t
}

// AddReaction registers a reaction.
func (g *DepGraph) AddReaction(id ir.GlobalReactionID, name string) {
	if _, ok := g.reactions[id]; ok {
		panic(fmt.Sprintf("graph: reaction %s registered twice", id))
	}
	g.reactions[id] = g.addNode(node{kind: KindReaction, name: name, reaction: id})
}

func (g *DepGraph) addEdge(kind EdgeKind, from, to NodeID) {
	for _, ei := range g.out[from] {
		if e := g.edges[ei]; e.To == to && e.Kind == kind {
			return
		}
	}
	g.out[from] = append(g.out[from], int32(len(g.edges)))
	g.edges = append(g.edges, Edge{From: from, To: to, Kind: kind})
}

func (g *DepGraph) triggerNode(t ir.TriggerID) NodeID {
	if int(t) >= len(g.triggers) {
		panic(fmt.Sprintf("graph: unknown trigger %d", t))
	}
	return g.triggers[t]
}

func (g *DepGraph) reactionNode(r ir.GlobalReactionID) NodeID {
	n, ok := g.reactions[r]
	if !ok {
		panic(fmt.Sprintf("graph: unknown reaction %s", r))
	}
	return n
}

// orders reports whether e constrains execution within one tag. An effect
// on an action only schedules a later tag.
func (g *DepGraph) orders(e Edge) bool {
	return e.Kind != EdgeEffect || g.nodes[e.To].kind == KindPort
}

// TriggersReaction records that t fires r.
func (g *DepGraph) TriggersReaction(t ir.TriggerID, r ir.GlobalReactionID) {
	g.addEdge(EdgeTrigger, g.triggerNode(t), g.reactionNode(r))
}

// UsedBy records that r reads t without being fired by it.
func (g *DepGraph) UsedBy(t ir.TriggerID, r ir.GlobalReactionID) {
	g.addEdge(EdgeUse, g.triggerNode(t), g.reactionNode(r))
}

// Effects records that r writes t.
func (g *DepGraph) Effects(r ir.GlobalReactionID, t ir.TriggerID) {
	g.addEdge(EdgeEffect, g.reactionNode(r), g.triggerNode(t))
}

// Binds records a port binding from up to down.
func (g *DepGraph) Binds(up, down ir.TriggerID) {
	g.addEdge(EdgeBind, g.triggerNode(up), g.triggerNode(down))
}

// Precedes records that a runs before b within one tag.
func (g *DepGraph) Precedes(a, b ir.GlobalReactionID) {
	g.addEdge(EdgePriority, g.reactionNode(a), g.reactionNode(b))
}

// NumTriggers returns the number of trigger ids handed out.
func (g *DepGraph) NumTriggers() int {
	return len(g.triggers)
}

// NumReactions returns the number of registered reactions.
func (g *DepGraph) NumReactions() int {
	return len(g.reactions)
}

// TriggerName returns the debug name of t.
func (g *DepGraph) TriggerName(t ir.TriggerID) string {
	return g.nodes[g.triggerNode(t)].name
}

// TriggerKind returns the node kind of t.
func (g *DepGraph) TriggerKind(t ir.TriggerID) NodeKind {
	return g.nodes[g.triggerNode(t)].kind
}

// ReactionName returns the debug name of r.
func (g *DepGraph) ReactionName(r ir.GlobalReactionID) string {
	return g.nodes[g.reactionNode(r)].name
}

// Edges returns a copy of all edges in insertion order.
func (g *DepGraph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// NodeName returns the debug name of n.
func (g *DepGraph) NodeName(n NodeID) string {
	return g.nodes[n].name
}

// NodeKind returns the kind of n.
func (g *DepGraph) NodeKind(n NodeID) NodeKind {
	return g.nodes[n].kind
}

// NumNodes returns the number of nodes.
func (g *DepGraph) NumNodes() int {
	return len(g.nodes)
}
