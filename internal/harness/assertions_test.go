package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// sampleTrace mirrors two tags of a clock feeding a recorder.
func sampleTrace() []trace.Entry {
	ms := timing.Millisecond
	return []trace.Entry{
		{Seq: 1, Kind: trace.KindTag, Tag: timing.Origin},
		{Seq: 2, Kind: trace.KindExec, Tag: timing.Origin, Level: 0, Reaction: "main/clk#0"},
		{Seq: 3, Kind: trace.KindExec, Tag: timing.Origin, Level: 1, Reaction: "main/sink#0"},
		{Seq: 4, Kind: trace.KindValue, Tag: timing.Origin, Reaction: "main/sink#0", Label: "in", Value: int64(0)},
		{Seq: 5, Kind: trace.KindTag, Tag: timing.TagAt(ms)},
		{Seq: 6, Kind: trace.KindExec, Tag: timing.TagAt(ms), Level: 0, Reaction: "main/clk#0"},
		{Seq: 7, Kind: trace.KindExec, Tag: timing.TagAt(ms), Level: 1, Reaction: "main/sink#0"},
		{Seq: 8, Kind: trace.KindValue, Tag: timing.TagAt(ms), Reaction: "main/sink#0", Label: "in", Value: int64(1)},
		{Seq: 9, Kind: trace.KindTag, Tag: timing.TagAt(2 * ms)},
		{Seq: 10, Kind: trace.KindExec, Tag: timing.TagAt(2 * ms), Level: 2, Reaction: "main/sink#1"},
		{Seq: 11, Kind: trace.KindValue, Tag: timing.TagAt(2 * ms), Reaction: "main/sink#1", Label: "count", Value: int64(2)},
	}
}

func sampleResult() *Result {
	r := NewResult()
	r.Trace = sampleTrace()
	r.Stats = engine.Stats{Tags: 3, Reactions: 5, Last: timing.TagAt(2 * timing.Millisecond)}
	return r
}

func TestMatchReaction(t *testing.T) {
	assert.True(t, matchReaction("main/sink#0", "main/sink#0"))
	assert.True(t, matchReaction("main/sink#1", "main/sink"))
	assert.False(t, matchReaction("main/sink#1", "main/sink#0"))
	assert.False(t, matchReaction("main/sinker#0", "main/sink"))
	assert.False(t, matchReaction("main/pp/ping#0", "main/pp"))
}

func TestAssertFiresCount(t *testing.T) {
	entries := sampleTrace()

	require.NoError(t, assertFiresCount(entries, Assertion{Reaction: "main/clk#0", Expected: 2}))
	require.NoError(t, assertFiresCount(entries, Assertion{Reaction: "main/sink", Expected: 3}))
	require.NoError(t, assertFiresCount(entries, Assertion{Reaction: "main/other", Expected: 0}))

	err := assertFiresCount(entries, Assertion{Reaction: "main/clk#0", Expected: 5})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertFiresCount, aerr.Type)
	assert.Equal(t, "5 executions of main/clk#0", aerr.Expected)
	assert.Equal(t, "2 executions", aerr.Actual)
}

func TestAssertFiresOrder(t *testing.T) {
	entries := sampleTrace()

	require.NoError(t, assertFiresOrder(entries, Assertion{
		Reactions: []string{"main/clk#0", "main/sink#0", "main/sink#1"},
	}))

	err := assertFiresOrder(entries, Assertion{Reactions: []string{"main/sink#0", "main/clk#0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main/sink#0 (pos 3) should be before main/clk#0 (pos 2)")

	err = assertFiresOrder(entries, Assertion{Reactions: []string{"main/clk#0", "main/gone#0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing reaction: main/gone#0")
}

func TestAssertValueAt(t *testing.T) {
	entries := sampleTrace()

	require.NoError(t, assertValueAt(entries, Assertion{Reaction: "main/sink", Label: "in", Tag: "1 ms/0", Value: 1}))
	require.NoError(t, assertValueAt(entries, Assertion{Reaction: "main/sink#1", Tag: "2 ms", Value: 2}))

	err := assertValueAt(entries, Assertion{Reaction: "main/sink", Label: "in", Tag: "1 ms", Value: 7})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "1 other value(s) at (1ms, 0)", aerr.Actual)
	require.Len(t, aerr.Trace, 1)
	assert.Contains(t, err.Error(), "value main/sink#0 in=1")

	err = assertValueAt(entries, Assertion{Reaction: "main/sink", Label: "in", Tag: "5 ms", Value: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing recorded at (5ms, 0)")

	err = assertValueAt(entries, Assertion{Reaction: "main/sink", Tag: "soon", Value: 1})
	require.Error(t, err)
}

func TestAssertStopsAt(t *testing.T) {
	result := sampleResult()

	require.NoError(t, assertStopsAt(result, Assertion{Tag: "2 ms/0"}))

	err := assertStopsAt(result, Assertion{Tag: "3 ms"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: shutdown at (3ms, 0)")
	assert.Contains(t, err.Error(), "Actual: shutdown at (2ms, 0)")
}

func TestAssertValues_ReadsStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	result := sampleResult()
	require.NoError(t, st.WriteRun(ctx, store.Run{
		ID:      "run-1",
		Network: "timer",
		Status:  store.StatusOK,
	}, result.Trace))

	require.NoError(t, assertValues(ctx, st, "run-1", Assertion{Reaction: "main/sink#0", Label: "in", Values: []any{0, 1}}))
	require.NoError(t, assertValues(ctx, st, "run-1", Assertion{Reaction: "main/sink", Values: []any{0, 1, 2}}))

	err = assertValues(ctx, st, "run-1", Assertion{Reaction: "main/sink#0", Label: "in", Values: []any{1, 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: main/sink#0 in = [1 0]")
	assert.Contains(t, err.Error(), "Actual: [0 1]")

	err = assertValues(ctx, st, "missing", Assertion{Reaction: "main/sink#0", Values: []any{}})
	require.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(int64(3), 3))
	assert.True(t, valuesEqual("a", "a"))
	assert.True(t, valuesEqual(true, true))
	assert.False(t, valuesEqual("3", 3))
	assert.False(t, valuesEqual(nil, 0))
	assert.False(t, valuesEqual(int64(3), 4))
}

func TestEvaluateAssertions(t *testing.T) {
	result := sampleResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertFiresCount, Reaction: "main/clk#0", Expected: 2},
		{Type: AssertStopsAt, Tag: "2 ms"},
		{Type: AssertFiresCount, Reaction: "main/clk#0", Expected: 9},
		{Type: "eventually"},
		{Type: AssertValues, Reaction: "main/sink#0"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Assertion failed: fires_count")
	assert.Contains(t, errs[1], `assertion[3]: unknown assertion type "eventually"`)
	assert.Contains(t, errs[2], "assertion[4]: values requires database context")
}
