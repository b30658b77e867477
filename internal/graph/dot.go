package graph

import (
	"fmt"
	"io"
	"strconv"
)

var nodeShapes = map[NodeKind]string{
	KindSpecial:  "doublecircle",
	KindPort:     "box",
	KindAction:   "diamond",
	KindTimer:    "circle",
	KindReaction: "ellipse",
}

var edgeStyles = map[EdgeKind]string{
	EdgePriority: "dotted",
	EdgeBind:     "bold",
	EdgeTrigger:  "solid",
	EdgeUse:      "dashed",
	EdgeEffect:   "solid",
}

// FormatDOT writes g in Graphviz DOT syntax. Nodes and edges appear in
// declaration order, so the output is stable across runs.
func FormatDOT(w io.Writer, name string, g *DepGraph) error {
	if _, err := fmt.Fprintf(w, "digraph %s {\n  rankdir=LR;\n", strconv.Quote(name)); err != nil {
		return err
	}
	for id, n := range g.nodes {
		if _, err := fmt.Fprintf(w, "  n%d [label=%s, shape=%s];\n", id, strconv.Quote(n.name), nodeShapes[n.kind]); err != nil {
			return err
		}
	}
	for _, e := range g.edges {
		if _, err := fmt.Fprintf(w, "  n%d -> n%d [style=%s, label=%q];\n", e.From, e.To, edgeStyles[e.Kind], e.Kind.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
