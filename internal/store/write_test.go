package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/trace"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	run := createTestRun(t, "run-1", rec)

	require.NoError(t, s.WriteRun(ctx, run, rec.Entries()))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "main", got.Network)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, map[string]any{"workers": int64(1), "fast_forward": true}, got.Options)
	assert.Equal(t, 2, got.Tags)
	assert.Equal(t, 2, got.Reactions)
	assert.Equal(t, run.Digest, got.Digest)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, ir.RuntimeVersion, got.RuntimeVersion)
	assert.Equal(t, ir.TraceVersion, got.TraceVersion)
}

func TestWriteRun_EntriesPreserved(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	require.NoError(t, s.WriteRun(ctx, createTestRun(t, "run-1", rec), rec.Entries()))

	entries, err := s.ReadEntries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, len(rec.Entries()))

	want := rec.Entries()
	for i := range want {
		assert.Equal(t, want[i].Seq, entries[i].Seq)
		assert.Equal(t, want[i].Kind, entries[i].Kind)
		assert.Equal(t, want[i].Tag, entries[i].Tag)
		assert.Equal(t, want[i].Reaction, entries[i].Reaction)
		assert.Equal(t, want[i].Label, entries[i].Label)
	}

	values := map[string]any{}
	for _, e := range entries {
		if e.Kind == trace.KindValue {
			values[e.Label] = e.Value
		}
	}
	assert.Equal(t, map[string]any{
		"total":  int64(12),
		"name":   "sum",
		"ok":     true,
		"period": "100ms",
	}, values)
}

func TestWriteRun_DuplicateIDFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	run := createTestRun(t, "run-1", rec)

	require.NoError(t, s.WriteRun(ctx, run, rec.Entries()))
	assert.Error(t, s.WriteRun(ctx, run, rec.Entries()))

	// The failed write left nothing behind.
	entries, err := s.ReadEntries(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, entries, len(rec.Entries()))
}

func TestWriteRun_FaultStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := Run{ID: "run-f", Network: "main", StartedAt: time.Now(), Status: StatusFault}

	require.NoError(t, s.WriteRun(ctx, run, nil))
	got, err := s.ReadRun(ctx, "run-f")
	require.NoError(t, err)
	assert.Equal(t, StatusFault, got.Status)
}

func TestDeleteRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	require.NoError(t, s.WriteRun(ctx, createTestRun(t, "run-1", rec), rec.Entries()))

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	require.NoError(t, s.DeleteRun(ctx, "run-1"))

	_, err := s.ReadRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
	entries, err := s.ReadEntries(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
