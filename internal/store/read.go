package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, network, started_at, options, tags, reactions, digest, status, runtime_version, trace_version`

// ReadRun returns the run with the given id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run, oldest first. Ties are broken by id.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started run of network.
func (s *Store) LatestRun(ctx context.Context, network string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE network = ?
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, network)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run of %s: %w", network, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run of %s: %w", network, err)
	}
	return run, nil
}

// ReadEntries returns a run's trace entries in seq order. A missing run
// has no entries.
func (s *Store) ReadEntries(ctx context.Context, runID string) ([]trace.Entry, error) {
	return s.QueryEntries(ctx, runID, nil)
}

// ReadExecutions returns a run's exec entries in seq order.
func (s *Store) ReadExecutions(ctx context.Context, runID string) ([]trace.Entry, error) {
	return s.QueryEntries(ctx, runID, Kind{Kind: trace.KindExec})
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		startedAt string
		optsJSON  string
	)
	err := row.Scan(
		&run.ID,
		&run.Network,
		&startedAt,
		&optsJSON,
		&run.Tags,
		&run.Reactions,
		&run.Digest,
		&run.Status,
		&run.RuntimeVersion,
		&run.TraceVersion,
	)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.Options, err = unmarshalOptions(optsJSON)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func scanEntry(row scanner) (trace.Entry, error) {
	var (
		e         trace.Entry
		kind      string
		offset    int64
		microstep int64
		level     int64
		value     sql.NullString
	)
	if err := row.Scan(&e.Seq, &kind, &offset, &microstep, &level, &e.Reaction, &e.Label, &value); err != nil {
		return trace.Entry{}, err
	}

	e.Kind = trace.Kind(kind)
	e.Tag = timing.Tag{Offset: timing.Duration(offset), Microstep: timing.MicroStep(microstep)}
	e.Level = ir.LevelIx(level)
	if value.Valid {
		v, err := unmarshalValue(value.String)
		if err != nil {
			return trace.Entry{}, err
		}
		e.Value = v
	}
	return e, nil
}
