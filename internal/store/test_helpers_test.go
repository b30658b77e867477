package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestRun inserts a bare run row.
func insertTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO runs (id, network, started_at, options, tags, reactions, digest, status, runtime_version, trace_version)
		VALUES (?, 'main', '2026-01-01T00:00:00Z', '{}', 0, 0, '', 'ok', '0.1.0', '1')
	`, id)
	if err != nil {
		t.Fatalf("insert run %s: %v", id, err)
	}
}

// createTestTrace records a small two-tag trace.
func createTestTrace() *trace.Recorder {
	r := trace.NewRecorder()
	t0 := timing.Origin
	t1 := timing.Tag{Offset: 5 * timing.Millisecond, Microstep: 1}
	key := ir.ReactionKey{Level: 1, ID: ir.GlobalReactionID{Reactor: 2}}

	r.TagStarted(t0)
	r.ReactionExecuted(t0, ir.ReactionKey{}, "main/src#0")
	r.TagStarted(t1)
	r.ReactionExecuted(t1, key, "main/sum#0")
	r.ValueRecorded(t1, "main/sum#0", "total", int64(12))
	r.ValueRecorded(t1, "main/sum#0", "name", "sum")
	r.ValueRecorded(t1, "main/sum#0", "ok", true)
	r.ValueRecorded(t1, "main/sum#0", "period", 100*timing.Millisecond)
	return r
}

// createTestRun builds a run record for rec.
func createTestRun(t *testing.T, id string, rec *trace.Recorder) Run {
	t.Helper()
	digest, err := rec.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	return Run{
		ID:        id,
		Network:   "main",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Options:   map[string]any{"workers": 1, "fast_forward": true},
		Tags:      len(rec.Tags()),
		Reactions: len(rec.Executions("")),
		Digest:    digest,
	}
}
