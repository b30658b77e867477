// Package engine implements the reactor runtime: assembly, runtime objects
// (ports, actions, timers), the event queue, the scheduler core and the
// async bridge.
//
// ARCHITECTURE:
//
// Assembly:
// Assemble runs user build functions that create components, assemble child
// reactors, bind ports and declare reactions with their triggers, uses and
// effects. The resulting dependency graph is analyzed once; any error aborts
// the whole assembly and no Program is returned.
//
// Single-Writer Scheduler:
// One goroutine owns the event queue, all port cells and all action values.
// For each tag it:
//  1. marks the tag's triggers present
//  2. executes the triggered reactions level by level, in ReactionKey order
//  3. commits each level's effects in key order; port writes queue the
//     downstream reactions of higher levels
//  4. clears tag-scoped values (cleanup)
//
// Reactions of one level have no dependency path between them and may run
// on a worker pool. Their effects are buffered in per-reaction contexts and
// committed in key order, so parallel and sequential runs are identical.
//
// Async Bridge:
// AsyncLink is the only handle that may cross goroutines. It stamps a tag
// from the physical clock and hands the event to the inbox. The scheduler
// drains the inbox between tags and clamps every tag after the last
// processed one.
//
// Failure model:
//   - Assembly errors are returned as *AssemblyError.
//   - Usage violations inside reactions panic with *RuntimeFault.
//   - Sends to a terminated scheduler return ErrSchedulerTerminated.
package engine
