package graph

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports a dependency cycle found during analysis.
type CycleError struct {
	// Reactions names the reactions in the cycle's strongly connected
	// component, in declaration order.
	Reactions []string

	// Path is one cycle through the component, first node repeated last.
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " → "))
}

// cycleError runs Tarjan's algorithm over the nodes Kahn's algorithm could
// not visit and reports the first cyclic component in NodeID order.
func (g *DepGraph) cycleError(indeg []int) *CycleError {
	for _, scc := range g.tarjanSCC(indeg) {
		if len(scc) == 1 && !g.hasSelfLoop(scc[0]) {
			continue
		}
		slices.Sort(scc)

		ce := &CycleError{}
		for _, v := range scc {
			if g.nodes[v].kind == KindReaction {
				ce.Reactions = append(ce.Reactions, g.nodes[v].name)
			}
		}
		for _, v := range g.reconstructCyclePath(scc) {
			ce.Path = append(ce.Path, g.nodes[v].name)
		}
		return ce
	}
	// Unreachable when Kahn's algorithm left nodes unvisited.
	return &CycleError{Path: []string{"unknown"}}
}

func (g *DepGraph) hasSelfLoop(v NodeID) bool {
	for _, ei := range g.out[v] {
		if e := g.edges[ei]; e.To == v && g.orders(e) {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components among nodes with a
// remaining in-degree, ordered so the component holding the smallest node
// id comes first.
func (g *DepGraph) tarjanSCC(indeg []int) [][]NodeID {
	var (
		index   = 0
		stack   []NodeID
		indices = make(map[NodeID]int)
		lowlink = make(map[NodeID]int)
		onStack = make(map[NodeID]bool)
		sccs    [][]NodeID
	)

	var strongConnect func(NodeID)
	strongConnect = func(v NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, ei := range g.out[v] {
			w := g.edges[ei].To
			if indeg[w] == 0 || !g.orders(g.edges[ei]) {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range g.nodes {
		id := NodeID(v)
		if indeg[id] == 0 {
			continue
		}
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}

	slices.SortFunc(sccs, func(a, b []NodeID) int {
		return int(slices.Min(a)) - int(slices.Min(b))
	})
	return sccs
}

// reconstructCyclePath finds the shortest cycle through the smallest node
// of scc, staying inside the component.
func (g *DepGraph) reconstructCyclePath(scc []NodeID) []NodeID {
	start := scc[0]
	member := make(map[NodeID]bool, len(scc))
	for _, v := range scc {
		member[v] = true
	}

	prev := map[NodeID]NodeID{}
	queue := []NodeID{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, ei := range g.out[v] {
			w := g.edges[ei].To
			if !member[w] || !g.orders(g.edges[ei]) {
				continue
			}
			if w == start {
				path := []NodeID{start}
				for at := v; at != start; at = prev[at] {
					path = append(path, at)
				}
				slices.Reverse(path)
				return append([]NodeID{start}, path...)
			}
			if _, seen := prev[w]; !seen {
				prev[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []NodeID{start, start}
}
