// Package timing provides the time and tag model of the reactor runtime.
//
// Two notions of time coexist:
//   - Physical time: Instant values read from a Clock. Only differences are
//     meaningful.
//   - Logical time: Tag values, a (Duration offset from the run origin,
//     MicroStep) pair. Tags form a strict total order and drive every
//     scheduling decision.
//
// This package imports nothing internal. Every other runtime package builds
// on it.
package timing
