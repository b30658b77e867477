// Package store provides SQLite-backed durable storage for recorded runs.
//
// A run row holds the network name, options, counters and the trace
// digest. Its trace entries live in an append-only table keyed by
// (run_id, seq).
//
// # Ordering
//
// All ordering uses the seq column assigned by the trace recorder, never
// wall-clock time, so reading a run back yields the exact entry order the
// scheduler produced and the same digest.
//
// # Schema
//
// schema.sql creates the tables. Indexes added later are numbered
// migrations tracked in PRAGMA user_version; Open applies the missing ones.
// Every connection runs in WAL mode with foreign keys enforced, so
// deleting a run removes its entries.
//
// Entries are selected with Filter values (Kind, Reaction, Label,
// Between, And, Or) which compile to parameterized WHERE clauses.
//
// The store is a tool-side artifact. The scheduler never touches it.
package store
