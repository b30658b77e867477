package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	rec := createTestTrace()
	require.NoError(t, s.WriteRun(ctx, createTestRun(t, "run-1", rec), rec.Entries()))
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err = Open(path)
		require.NoError(t, err, "reopen %d", i)
		runs, err := s.ListRuns(ctx)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
		require.NoError(t, s.Close())
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/runs.db")
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())

	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestOpen_ConnectionSettings(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			got, err := s.pragma(tt.pragma)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, []string{
		"id", "network", "started_at", "options", "tags", "reactions",
		"digest", "status", "runtime_version", "trace_version",
	}, tableColumns(t, s.DB(), "runs"))
	assert.Equal(t, []string{
		"run_id", "seq", "kind", "offset_ns", "microstep", "level", "reaction", "label", "value",
	}, tableColumns(t, s.DB(), "entries"))

	assert.Contains(t, tableIndexes(t, s.DB(), "entries"), "idx_entries_reaction")
	assert.Contains(t, tableIndexes(t, s.DB(), "entries"), "idx_entries_kind")
	assert.Contains(t, tableIndexes(t, s.DB(), "runs"), "idx_runs_network")
}

func TestSchema_Constraints(t *testing.T) {
	entry := `INSERT INTO entries (run_id, seq, kind, offset_ns, microstep) VALUES (?, ?, ?, 0, 0)`

	t.Run("kind is checked", func(t *testing.T) {
		s := createTestStore(t)
		insertTestRun(t, s, "run-1")
		_, err := s.db.Exec(entry, "run-1", 1, "bogus")
		assert.Error(t, err)
	})

	t.Run("seq is unique per run", func(t *testing.T) {
		s := createTestStore(t)
		insertTestRun(t, s, "run-1")
		insertTestRun(t, s, "run-2")
		_, err := s.db.Exec(entry, "run-1", 1, "tag")
		require.NoError(t, err)
		_, err = s.db.Exec(entry, "run-2", 1, "tag")
		require.NoError(t, err)
		_, err = s.db.Exec(entry, "run-1", 1, "tag")
		assert.Error(t, err)
	})

	t.Run("entry needs a run", func(t *testing.T) {
		s := createTestStore(t)
		_, err := s.db.Exec(entry, "missing", 1, "tag")
		assert.Error(t, err)
	})

	t.Run("deleting a run removes its entries", func(t *testing.T) {
		s := createTestStore(t)
		insertTestRun(t, s, "run-1")
		_, err := s.db.Exec(entry, "run-1", 1, "tag")
		require.NoError(t, err)
		_, err = s.db.Exec(`DELETE FROM runs WHERE id = 'run-1'`)
		require.NoError(t, err)

		var n int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n))
		assert.Zero(t, n)
	})
}

func TestMigrate_FromVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	// A database created before any migration existed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
	assert.Equal(t, 2, v)
	assert.Contains(t, tableIndexes(t, s.DB(), "runs"), "idx_runs_network")
}

func TestMigrate_SkipsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	// Claim version 1 without its index: only later migrations run.
	_, err = db.Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	indexes := tableIndexes(t, s.DB(), "entries")
	assert.NotContains(t, indexes, "idx_entries_kind")
	assert.Contains(t, tableIndexes(t, s.DB(), "runs"), "idx_runs_network")
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? ORDER BY name`, table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
