// Package trace records what a scheduler executed.
//
// A Recorder implements engine.Tracer. It stamps every entry with a
// sequence number from a monotonic counter and can render the trace as
// text for golden files or reduce it to a content digest. Two runs of the
// same network with the same options produce byte-identical traces and
// equal digests, whatever the worker count.
package trace
