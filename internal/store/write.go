package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/trace"
)

// Run status values.
const (
	StatusOK    = "ok"
	StatusFault = "fault"
)

// Run is a recorded scheduler execution.
type Run struct {
	ID        string
	Network   string
	StartedAt time.Time
	Options   map[string]any
	Tags      int
	Reactions int
	Digest    string
	Status    string

	RuntimeVersion string
	TraceVersion   string
}

// WriteRun stores a run and its trace entries in one transaction. Writing
// an id that already exists fails.
func (s *Store) WriteRun(ctx context.Context, run Run, entries []trace.Entry) error {
	optsJSON, err := marshalOptions(run.Options)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if run.Status == "" {
		run.Status = StatusOK
	}
	if run.RuntimeVersion == "" {
		run.RuntimeVersion = ir.RuntimeVersion
	}
	if run.TraceVersion == "" {
		run.TraceVersion = ir.TraceVersion
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, network, started_at, options, tags, reactions, digest, status, runtime_version, trace_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Network,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		optsJSON,
		run.Tags,
		run.Reactions,
		run.Digest,
		run.Status,
		run.RuntimeVersion,
		run.TraceVersion,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries
		(run_id, seq, kind, offset_ns, microstep, level, reaction, label, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run %s: prepare: %w", run.ID, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var value any
		if e.Kind == trace.KindValue {
			v, err := marshalValue(e.Value)
			if err != nil {
				return fmt.Errorf("write run %s: entry %d: %w", run.ID, e.Seq, err)
			}
			value = v
		}
		_, err := stmt.ExecContext(ctx,
			run.ID,
			e.Seq,
			string(e.Kind),
			int64(e.Tag.Offset),
			int64(e.Tag.Microstep),
			int64(e.Level),
			e.Reaction,
			e.Label,
			value,
		)
		if err != nil {
			return fmt.Errorf("write run %s: entry %d: %w", run.ID, e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}

// DeleteRun removes a run and its entries. Deleting a missing run is not an
// error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
