package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

func record(r *Recorder) {
	t0 := timing.Origin
	t1 := timing.TagAt(5 * timing.Millisecond)
	key := func(level int, reactor int) ir.ReactionKey {
		return ir.ReactionKey{Level: ir.LevelIx(level), ID: ir.GlobalReactionID{Reactor: ir.ReactorID(reactor)}}
	}

	r.TagStarted(t0)
	r.ReactionExecuted(t0, key(0, 1), "main/src#0")
	r.TagStarted(t1)
	r.ReactionExecuted(t1, key(0, 1), "main/src#0")
	r.ReactionExecuted(t1, key(1, 2), "main/sum#0")
	r.ValueRecorded(t1, "main/sum#0", "total", int64(3))
	r.ValueRecorded(t1, "main/sum#0", "note", "hi")
}

func TestRecorder_SequencesEntries(t *testing.T) {
	r := NewRecorder()
	record(r)

	entries := r.Entries()
	require.Len(t, entries, 7)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, []timing.Tag{timing.Origin, timing.TagAt(5 * timing.Millisecond)}, r.Tags())
	assert.Len(t, r.Executions(""), 3)
	assert.Len(t, r.Executions("main/src#0"), 2)

	totals := r.Values("total")
	require.Len(t, totals, 1)
	assert.Equal(t, int64(3), totals[0].Value)
}

func TestRecorder_DigestStable(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	record(a)
	record(b)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	b.ValueRecorded(timing.Origin, "main/x#0", "late", true)
	dc, err := b.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestRecorder_DigestAcceptsAnyValue(t *testing.T) {
	r := NewRecorder()
	r.ValueRecorded(timing.Origin, "main#0", "f", 1.5)
	r.ValueRecorded(timing.Origin, "main#0", "d", 3*timing.Millisecond)
	r.ValueRecorded(timing.Origin, "main#0", "nil", nil)

	_, err := r.Digest()
	assert.NoError(t, err)
}

func TestWriteText(t *testing.T) {
	r := NewRecorder()
	record(r)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r.Entries()))
	assert.Equal(t, `tag (0s, 0)
  exec L0 main/src#0
tag (5ms, 0)
  exec L0 main/src#0
  exec L1 main/sum#0
  value main/sum#0 total=3
  value main/sum#0 note="hi"
`, buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, `"a b"`, FormatValue("a b"))
	assert.Equal(t, "100ms", FormatValue(100*timing.Millisecond))
	assert.Equal(t, "true", FormatValue(true))
}
