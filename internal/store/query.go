package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// Filter selects trace entries.
//
// This is a sealed interface: only the types in this file implement it, and
// compileFilter switches over all of them.
//
// Filter types:
//   - Kind: entries of one kind
//   - Reaction: entries of a reaction, or of every reaction of a reactor
//   - Label: value entries with one label
//   - Between: entries whose tag lies in an inclusive range
//   - And, Or: combinations
type Filter interface {
	filterNode()
}

// Kind matches entries of one kind.
type Kind struct {
	Kind trace.Kind
}

// Reaction matches entries of the named reaction. A name without "#n"
// matches every reaction of that reactor.
type Reaction struct {
	Name string
}

// Label matches value entries with the given label.
type Label struct {
	Label string
}

// Between matches entries with From <= tag <= To. A To of timing.Forever
// leaves the range open.
type Between struct {
	From timing.Tag
	To   timing.Tag
}

// And matches entries matched by every filter. An empty And matches all.
type And struct {
	Filters []Filter
}

// Or matches entries matched by any filter. An empty Or matches nothing.
type Or struct {
	Filters []Filter
}

func (Kind) filterNode()     {}
func (Reaction) filterNode() {}
func (Label) filterNode()    {}
func (Between) filterNode()  {}
func (And) filterNode()      {}
func (Or) filterNode()       {}

// compileFilter renders f as a WHERE fragment over the entries table.
// Values are always bound as parameters, never interpolated.
func compileFilter(f Filter) (string, []any, error) {
	switch f := f.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Kind:
		return "kind = ?", []any{string(f.Kind)}, nil
	case Reaction:
		if f.Name == "" {
			return "", nil, fmt.Errorf("reaction filter: empty name")
		}
		if strings.Contains(f.Name, "#") {
			return "reaction = ?", []any{f.Name}, nil
		}
		prefix := f.Name + "#"
		return "substr(reaction, 1, ?) = ?", []any{utf8.RuneCountInString(prefix), prefix}, nil
	case Label:
		return "(kind = 'value' AND label = ?)", []any{f.Label}, nil
	case Between:
		if f.To.Before(f.From) {
			return "", nil, fmt.Errorf("tag range: %s is before %s", f.To, f.From)
		}
		sql := "(offset_ns > ? OR (offset_ns = ? AND microstep >= ?))"
		params := []any{int64(f.From.Offset), int64(f.From.Offset), int64(f.From.Microstep)}
		if f.To != timing.Forever {
			sql += " AND (offset_ns < ? OR (offset_ns = ? AND microstep <= ?))"
			params = append(params, int64(f.To.Offset), int64(f.To.Offset), int64(f.To.Microstep))
		}
		return sql, params, nil
	case And:
		return compileJunction(f.Filters, " AND ", "1 = 1")
	case Or:
		return compileJunction(f.Filters, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

func compileJunction(filters []Filter, op, empty string) (string, []any, error) {
	if len(filters) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(filters))
	var params []any
	for _, sub := range filters {
		sql, p, err := compileFilter(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return "(" + strings.Join(parts, op) + ")", params, nil
}

// QueryEntries returns the entries of a run matched by f, in seq order.
// A nil filter matches every entry.
func (s *Store) QueryEntries(ctx context.Context, runID string, f Filter) ([]trace.Entry, error) {
	where, params, err := compileFilter(f)
	if err != nil {
		return nil, fmt.Errorf("query entries %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, offset_ns, microstep, level, reaction, label, value
		FROM entries
		WHERE run_id = ? AND `+where+`
		ORDER BY seq ASC
	`, append([]any{runID}, params...)...)
	if err != nil {
		return nil, fmt.Errorf("query entries %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []trace.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("query entries %s: %w", runID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query entries %s: %w", runID, err)
	}
	return entries, nil
}
