package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/trace"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_OrderedByStart(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		run := createTestRun(t, id, rec)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.WriteRun(ctx, run, nil))
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	latest, err := s.LatestRun(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)

	_, err = s.LatestRun(ctx, "other")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReadExecutions_OnlyExec(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	require.NoError(t, s.WriteRun(ctx, createTestRun(t, "run-1", rec), rec.Entries()))

	execs, err := s.ReadExecutions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, execs, 2)
	for _, e := range execs {
		assert.Equal(t, trace.KindExec, e.Kind)
	}
	assert.Equal(t, "main/sum#0", execs[1].Reaction)
	assert.EqualValues(t, 1, execs[1].Level)
}

func TestVerifyRun_DigestSurvivesStorage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	require.NoError(t, s.WriteRun(ctx, createTestRun(t, "run-1", rec), rec.Entries()))

	v, err := s.VerifyRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, v.OK(), "stored %s, computed %s", v.Stored, v.Computed)
	assert.Equal(t, len(rec.Entries()), v.Entries)
}

func TestVerifyRun_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()
	require.NoError(t, s.WriteRun(ctx, createTestRun(t, "run-1", rec), rec.Entries()))

	_, err := s.db.Exec(`DELETE FROM entries WHERE run_id = 'run-1' AND seq = 2`)
	require.NoError(t, err)

	v, err := s.VerifyRun(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, v.OK())
}

func TestVerifyRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.VerifyRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_EqualStartOrdersByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestTrace()

	for _, id := range []string{"b", "B", "a"} {
		require.NoError(t, s.WriteRun(ctx, createTestRun(t, id, rec), nil))
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	// Binary collation puts upper case first.
	assert.Equal(t, []string{"B", "a", "b"}, ids)

	latest, err := s.LatestRun(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}
