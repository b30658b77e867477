// Package compiler turns CUE network descriptions into runnable programs.
//
// A network file declares run options, the reactors to instantiate from
// the library and the connections between their ports:
//
//	name: "pipeline"
//	options: {
//		timeout: "10 ms"
//		workers: 2
//	}
//	reactors: {
//		clk:  {kind: "clock", params: {period: "1 ms"}}
//		x2:   {kind: "scale"}
//		sink: {kind: "recorder", bank: 2}
//	}
//	connections: [
//		{from: "clk.out", to: "x2.in"},
//		{from: "x2.out", to: "sink[0].in"},
//		{from: "clk.out", to: "sink[1].in"},
//	]
//
// LoadNetwork reads every .cue file of a directory into one CUE instance,
// CompileNetwork extracts a Network from the resulting value, and
// Network.Assemble builds it into an engine.Program. Errors carry the CUE
// source position of the offending field.
package compiler
