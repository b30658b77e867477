package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/trace"
)

// runCommand executes the run command with a fixed run id.
func runCommand(t *testing.T, format, runID string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions:    &RootOptions{Format: format},
		RunIDGenerator: trace.NewFixedGenerator(runID),
	})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRun_Pipeline(t *testing.T) {
	out, err := runCommand(t, "text", "run-1", "testdata/pipeline")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ pipeline: 6 tag(s), 21 reaction(s), last tag (5ms, 0)")
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "digest ")
}

func TestRun_Trace(t *testing.T) {
	out, err := runCommand(t, "text", "run-1", "--trace", "--timeout", "2 ms", "testdata/pipeline")
	require.NoError(t, err)

	assert.Contains(t, out, "tag (0s, 0)\n  exec L0 main/clk#0\n")
	assert.Contains(t, out, "value main/sink#0 total=3")
	assert.NotContains(t, out, "total=6")
	assert.Contains(t, out, "last tag (2ms, 0)")
}

func TestRun_JSON(t *testing.T) {
	out, err := runCommand(t, "json", "run-json", "--workers", "1", "testdata/pipeline")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-json", resp.RunID)
	assert.Equal(t, RunResult{
		RunID:     "run-json",
		Network:   "pipeline",
		Tags:      6,
		Reactions: 21,
		LastTag:   "(5ms, 0)",
		Digest:    resp.Data.Digest,
		Status:    store.StatusOK,
	}, resp.Data)
	assert.Len(t, resp.Data.Digest, 64)
}

func TestRun_WorkersDoNotChangeDigest(t *testing.T) {
	digest := func(workers string) string {
		out, err := runCommand(t, "json", "run", "--workers", workers, "testdata/pipeline")
		require.NoError(t, err)
		var resp struct {
			Data RunResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.Digest
	}
	assert.Equal(t, digest("1"), digest("4"))
}

func TestRun_StoresRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, err := runCommand(t, "text", "stored-1", "--db", dbPath, "testdata/pipeline")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "stored-1")
	require.NoError(t, err)
	assert.Equal(t, "pipeline", run.Network)
	assert.Equal(t, 6, run.Tags)
	assert.Equal(t, 21, run.Reactions)
	assert.Equal(t, int64(2), run.Options["workers"])
	assert.Equal(t, true, run.Options["fast_forward"])

	v, err := st.VerifyRun(ctx, "stored-1")
	require.NoError(t, err)
	assert.True(t, v.OK())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"missing directory", []string{"testdata/missing"}, ExitCommandError, "failed to load network"},
		{"cycle", []string{"testdata/cycle"}, ExitFailure, "CYCLIC_DEPENDENCY"},
		{"bad reference", []string{"testdata/badref"}, ExitFailure, `unknown reactor "sink"`},
		{"bad timeout flag", []string{"--timeout", "soon", "testdata/pipeline"}, ExitCommandError, "--timeout"},
		{"bad workers flag", []string{"--workers", "-2", "testdata/pipeline"}, ExitCommandError, "non-negative"},
		{"no arguments", []string{}, ExitFailure, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, "text", "x", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// faulty writes to a port it never declared as an effect.
type faulty struct {
	out *engine.Port[int]
}

func (f *faulty) React(ctx *engine.ReactionCtx, _ ir.LocalReactionID) {
	f.out.Set(ctx, 1)
}

func TestExecute_RecoversRuntimeFault(t *testing.T) {
	prog, err := engine.Assemble("main", func(a *engine.AssemblyCtx) (*faulty, error) {
		r := &faulty{out: engine.NewOutput[int](a, "out")}
		id := a.NewReactions(1)[0]
		a.DeclareTriggers(id, engine.Startup)
		return r, nil
	})
	require.NoError(t, err)

	_, err = execute(context.Background(), prog, engine.WithFastForward(true), engine.WithLogger(quietLogger()))
	require.Error(t, err)

	var fault *engine.RuntimeFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, engine.FaultUndeclaredEffect, fault.Code)
	assert.Equal(t, "main#0", fault.Reaction)
}
