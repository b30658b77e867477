package trace

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// Kind distinguishes trace entries.
type Kind string

const (
	KindTag   Kind = "tag"
	KindExec  Kind = "exec"
	KindValue Kind = "value"
)

// Entry is one trace record.
type Entry struct {
	Seq      int64
	Kind     Kind
	Tag      timing.Tag
	Level    ir.LevelIx // exec only
	Reaction string     // exec and value
	Label    string     // value only
	Value    any        // value only
}

// CanonicalValue implements ir.Canonical.
func (e Entry) CanonicalValue() any {
	m := map[string]any{
		"seq":       e.Seq,
		"kind":      string(e.Kind),
		"offset_ns": int64(e.Tag.Offset),
		"microstep": uint64(e.Tag.Microstep),
	}
	switch e.Kind {
	case KindExec:
		m["reaction"] = e.Reaction
		m["level"] = uint32(e.Level)
	case KindValue:
		m["reaction"] = e.Reaction
		m["label"] = e.Label
		m["value"] = Normalize(e.Value)
	}
	return m
}

// Recorder collects trace entries. It implements engine.Tracer.
type Recorder struct {
	mu      sync.Mutex
	seq     *Sequence
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{seq: NewSequence()}
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = r.seq.Next()
	r.entries = append(r.entries, e)
}

// TagStarted records the start of a tag.
func (r *Recorder) TagStarted(tag timing.Tag) {
	r.add(Entry{Kind: KindTag, Tag: tag})
}

// ReactionExecuted records one reaction execution.
func (r *Recorder) ReactionExecuted(tag timing.Tag, key ir.ReactionKey, reaction string) {
	r.add(Entry{Kind: KindExec, Tag: tag, Level: key.Level, Reaction: reaction})
}

// ValueRecorded records a labeled value.
func (r *Recorder) ValueRecorded(tag timing.Tag, reaction, label string, value any) {
	r.add(Entry{Kind: KindValue, Tag: tag, Reaction: reaction, Label: label, Value: value})
}

// Entries returns a copy of every entry in order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Executions returns the exec entries, optionally only those of reaction.
func (r *Recorder) Executions(reaction string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Kind == KindExec && (reaction == "" || e.Reaction == reaction) {
			out = append(out, e)
		}
	}
	return out
}

// Values returns the value entries carrying label, in order.
func (r *Recorder) Values(label string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Kind == KindValue && e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// Tags returns the processed tags in order.
func (r *Recorder) Tags() []timing.Tag {
	var out []timing.Tag
	for _, e := range r.Entries() {
		if e.Kind == KindTag {
			out = append(out, e.Tag)
		}
	}
	return out
}

// Digest returns the content digest of the trace.
func (r *Recorder) Digest() (string, error) {
	return Digest(r.Entries())
}

// Digest returns the content digest of entries.
func Digest(entries []Entry) (string, error) {
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e
	}
	return ir.Digest(ir.DomainTrace, map[string]any{
		"version": ir.TraceVersion,
		"entries": list,
	})
}

// WriteText renders entries one per line:
//
//	tag (5ms, 0)
//	  exec L1 main/sum#0
//	  value main/sum#0 total=3
func WriteText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		var err error
		switch e.Kind {
		case KindTag:
			_, err = fmt.Fprintf(w, "tag %s\n", e.Tag)
		case KindExec:
			_, err = fmt.Fprintf(w, "  exec L%d %s\n", e.Level, e.Reaction)
		case KindValue:
			_, err = fmt.Fprintf(w, "  value %s %s=%s\n", e.Reaction, e.Label, FormatValue(e.Value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatValue renders a recorded value for text output. Strings are
// quoted.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}

// Normalize maps a recorded value onto the types canonical JSON
// accepts.
func Normalize(v any) any {
	switch val := v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return val
	case nil:
		return "<nil>"
	default:
		return FormatValue(v)
	}
}
