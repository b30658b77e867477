package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// storedRuns runs the pipeline into a fresh database under each id.
func storedRuns(t *testing.T, ids ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	for _, id := range ids {
		_, err := runCommand(t, "text", id, "--db", dbPath, "--timeout", "2 ms", "testdata/pipeline")
		require.NoError(t, err)
	}
	return dbPath
}

func TestTraceList(t *testing.T) {
	dbPath := storedRuns(t, "run-a", "run-b")

	out, err := runCLI(t, "trace", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-a  pipeline")
	assert.Contains(t, out, "run-b  pipeline")

	out, err = runCLI(t, "trace", "list", "--db", dbPath, "--network", "other")
	require.NoError(t, err)
	assert.Equal(t, "No runs found.\n", out)
}

func TestTraceList_JSON(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	out, err := runCLI(t, "--format", "json", "trace", "list", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data []RunInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "run-a", resp.Data[0].ID)
	assert.Equal(t, 3, resp.Data[0].Tags)
	assert.Equal(t, store.StatusOK, resp.Data[0].Status)
}

func TestTraceShow(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	out, err := runCLI(t, "trace", "show", "--db", dbPath, "--run", "run-a")
	require.NoError(t, err)
	assert.Contains(t, out, "# run run-a (pipeline) digest ")
	assert.Contains(t, out, "tag (1ms, 0)\n  exec L0 main/clk#0\n  exec L1 main/x2#0\n  exec L2 main/add#0\n  exec L3 main/sink#0\n  value main/sink#0 total=3\n")
	assert.Contains(t, out, "tag (2ms, 0)\n  exec L4 main/sink#1\n  value main/sink#1 count=2\n")
}

func TestTraceShow_Filters(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	out, err := runCLI(t, "trace", "show", "--db", dbPath, "--network", "pipeline", "--reaction", "main/sink#1")
	require.NoError(t, err)
	assert.Contains(t, out, "tag (2ms, 0)\n  exec L4 main/sink#1\n  value main/sink#1 count=2\n")
	assert.NotContains(t, out, "main/clk#0")
	assert.NotContains(t, out, "tag (0s, 0)")

	out, err = runCLI(t, "trace", "show", "--db", dbPath, "--exec")
	require.NoError(t, err)
	assert.NotContains(t, out, "value ")
	assert.Contains(t, out, "  exec L0 main/clk#0\n")
}

func TestTraceShow_JSON(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	out, err := runCLI(t, "--format", "json", "trace", "show", "--db", dbPath, "--run", "run-a", "--reaction", "main/sink")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-a", resp.Data.Run.ID)

	var values []any
	for _, e := range resp.Data.Entries {
		if e.Kind == "value" {
			values = append(values, e.Value)
		}
	}
	// JSON numbers decode as float64.
	assert.Equal(t, []any{float64(0), float64(3), float64(2)}, values)
}

func TestTraceShow_Errors(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	_, err := runCLI(t, "trace", "show", "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	_, err = runCLI(t, "trace", "show", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	_, err = runCLI(t, "trace", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceVerify(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	out, err := runCLI(t, "trace", "verify", "--db", dbPath, "--run", "run-a")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ run run-a: ")

	// Tamper with a stored value.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(), `UPDATE entries SET value = '99' WHERE run_id = 'run-a' AND kind = 'value'`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err = runCLI(t, "trace", "verify", "--db", dbPath, "--run", "run-a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "digest mismatch")
}

func TestTraceShow_LabelAndRange(t *testing.T) {
	dbPath := storedRuns(t, "run-a")

	out, err := runCLI(t, "trace", "show", "--db", dbPath, "--label", "total")
	require.NoError(t, err)
	assert.Contains(t, out, "tag (1ms, 0)\n  value main/sink#0 total=3\n")
	assert.NotContains(t, out, "count=")
	assert.NotContains(t, out, "exec ")
	assert.NotContains(t, out, "tag (2ms, 0)")

	out, err = runCLI(t, "trace", "show", "--db", dbPath, "--from", "1 ms", "--to", "1 ms")
	require.NoError(t, err)
	assert.Contains(t, out, "tag (1ms, 0)\n  exec L0 main/clk#0\n")
	assert.NotContains(t, out, "tag (0s, 0)")
	assert.NotContains(t, out, "tag (2ms, 0)")

	_, err = runCLI(t, "trace", "show", "--db", dbPath, "--from", "soon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShowFilter(t *testing.T) {
	filter, err := showFilter(&TraceOptions{})
	require.NoError(t, err)
	assert.Nil(t, filter)

	filter, err = showFilter(&TraceOptions{ExecOnly: true, Reaction: "main/a"})
	require.NoError(t, err)
	assert.Equal(t, store.And{Filters: []store.Filter{
		store.Kind{Kind: trace.KindExec},
		store.Reaction{Name: "main/a"},
	}}, filter)

	filter, err = showFilter(&TraceOptions{Label: "total"})
	require.NoError(t, err)
	assert.Equal(t, store.Or{Filters: []store.Filter{
		store.Kind{Kind: trace.KindTag},
		store.And{Filters: []store.Filter{store.Label{Label: "total"}}},
	}}, filter)

	filter, err = showFilter(&TraceOptions{From: "0/3"})
	require.NoError(t, err)
	assert.Equal(t, store.Between{From: timing.Tag{Microstep: 3}, To: timing.Forever}, filter)

	_, err = showFilter(&TraceOptions{To: "later"})
	assert.Error(t, err)
}

func TestDropEmptyTags(t *testing.T) {
	entries := []trace.Entry{
		{Kind: trace.KindTag, Seq: 1},
		{Kind: trace.KindExec, Reaction: "main/a#0", Seq: 2},
		{Kind: trace.KindTag, Seq: 3},
		{Kind: trace.KindTag, Seq: 4},
		{Kind: trace.KindValue, Reaction: "main/a#1", Seq: 5},
		{Kind: trace.KindTag, Seq: 6},
	}

	assert.Equal(t, []trace.Entry{entries[0], entries[1], entries[3], entries[4]}, dropEmptyTags(entries))
	assert.Empty(t, dropEmptyTags(nil))
}
