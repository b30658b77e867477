package graph

import (
	"container/heap"
	"slices"

	"github.com/roach88/reactors/internal/ir"
)

// Plan is a sorted, duplicate-free set of reactions to execute.
type Plan []ir.ReactionKey

// Merge returns the sorted union of p and o. Neither input is modified.
func (p Plan) Merge(o Plan) Plan {
	if len(o) == 0 {
		return p
	}
	if len(p) == 0 {
		return o
	}
	out := make(Plan, 0, len(p)+len(o))
	i, j := 0, 0
	for i < len(p) && j < len(o) {
		switch c := p[i].Compare(o[j]); {
		case c < 0:
			out = append(out, p[i])
			i++
		case c > 0:
			out = append(out, o[j])
			j++
		default:
			out = append(out, p[i])
			i++
			j++
		}
	}
	out = append(out, p[i:]...)
	return append(out, o[j:]...)
}

// Dataflow is the result of analyzing a DepGraph.
type Dataflow struct {
	keys     []ir.ReactionKey // all reactions in execution order
	index    map[ir.GlobalReactionID]int
	plans    []Plan // TriggerID -> reactions fired
	maxLevel ir.LevelIx
}

// Reactions returns every reaction key in execution order.
func (d *Dataflow) Reactions() []ir.ReactionKey {
	return d.keys
}

// Key returns the execution key of r.
func (d *Dataflow) Key(r ir.GlobalReactionID) ir.ReactionKey {
	return d.keys[d.index[r]]
}

// Index returns the dense position of r in Reactions.
func (d *Dataflow) Index(r ir.GlobalReactionID) int {
	return d.index[r]
}

// PlanFor returns the reactions fired when t is present.
func (d *Dataflow) PlanFor(t ir.TriggerID) Plan {
	if int(t) >= len(d.plans) {
		return nil
	}
	return d.plans[t]
}

// MaxLevel returns the highest level assigned to any reaction.
func (d *Dataflow) MaxLevel() ir.LevelIx {
	return d.maxLevel
}

// Analyze orders the graph topologically and assigns reaction levels.
//
// Kahn's algorithm visits ready nodes in ascending NodeID order. A reaction's
// level is the number of reactions on the longest path leading to it, so any
// dependency path from B to A gives level(B) < level(A). If the graph has a
// cycle, Analyze returns a *CycleError.
func (g *DepGraph) Analyze() (*Dataflow, error) {
	n := len(g.nodes)
	indeg := make([]int, n)
	for _, e := range g.edges {
		if g.orders(e) {
			indeg[e.To]++
		}
	}

	ready := &nodeHeap{}
	for id := range n {
		if indeg[id] == 0 {
			heap.Push(ready, NodeID(id))
		}
	}

	depth := make([]ir.LevelIx, n)
	visited := 0
	for ready.Len() > 0 {
		v := heap.Pop(ready).(NodeID)
		visited++

		next := depth[v]
		if g.nodes[v].kind == KindReaction {
			next++
		}
		for _, ei := range g.out[v] {
			if !g.orders(g.edges[ei]) {
				continue
			}
			w := g.edges[ei].To
			depth[w] = max(depth[w], next)
			indeg[w]--
			if indeg[w] == 0 {
				heap.Push(ready, w)
			}
		}
	}

	if visited < n {
		return nil, g.cycleError(indeg)
	}

	d := &Dataflow{
		keys:  make([]ir.ReactionKey, 0, len(g.reactions)),
		index: make(map[ir.GlobalReactionID]int, len(g.reactions)),
		plans: make([]Plan, len(g.triggers)),
	}
	levels := make(map[ir.GlobalReactionID]ir.LevelIx, len(g.reactions))
	for id, nd := range g.nodes {
		if nd.kind != KindReaction {
			continue
		}
		lvl := depth[id]
		levels[nd.reaction] = lvl
		d.keys = append(d.keys, ir.ReactionKey{Level: lvl, ID: nd.reaction})
		d.maxLevel = max(d.maxLevel, lvl)
	}
	slices.SortFunc(d.keys, ir.ReactionKey.Compare)
	for i, k := range d.keys {
		d.index[k.ID] = i
	}

	for t, tn := range g.triggers {
		d.plans[t] = g.planFrom(tn, levels)
	}
	return d, nil
}

// planFrom collects the reactions triggered by n or by any port bound
// downstream of it.
func (g *DepGraph) planFrom(n NodeID, levels map[ir.GlobalReactionID]ir.LevelIx) Plan {
	var plan Plan
	seen := map[NodeID]bool{n: true}
	stack := []NodeID{n}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ei := range g.out[v] {
			e := g.edges[ei]
			switch e.Kind {
			case EdgeTrigger:
				r := g.nodes[e.To].reaction
				plan = append(plan, ir.ReactionKey{Level: levels[r], ID: r})
			case EdgeBind:
				if !seen[e.To] {
					seen[e.To] = true
					stack = append(stack, e.To)
				}
			}
		}
	}
	slices.SortFunc(plan, ir.ReactionKey.Compare)
	return slices.Compact(plan)
}

// nodeHeap is a min-heap of node ids.
type nodeHeap []NodeID

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *nodeHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
