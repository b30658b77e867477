// Package graph holds the static dependency graph of a reactor program.
//
// Nodes live in dense arrays and are addressed by NodeID, so port bindings
// may form arbitrary graphs without any ownership cycles. The graph is built
// once during assembly, analyzed once, and read-only afterwards.
//
// Analysis produces:
//   - a level for every reaction (longest path counted in reactions)
//   - a Plan for every trigger: the reactions it fires, port chains followed
//   - a CycleError naming the reactions of any dependency cycle
package graph
