// Package library provides the reactor kinds a network file can
// instantiate by name.
//
// Each kind is a Factory that assembles one reactor and exposes its ports
// by name, so a loader can bind "src.out" to "sink.in" without knowing the
// Go types involved. All numeric ports carry int64.
//
// Kinds:
//   - clock: timer source counting up on its out port
//   - relay: forwards in to out
//   - scale: multiplies in by a factor
//   - delay: forwards in to out through a logical action
//   - sum: adds the present channels of a multiport
//   - recorder: records its input into the trace
//   - stopper: requests shutdown after n inputs
//   - pingpong: a ping and a pong exchanging count messages
//   - ticker: a goroutine feeding a physical action
package library
