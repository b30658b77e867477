package store

import (
	"context"
	"fmt"

	"github.com/roach88/reactors/internal/trace"
)

// Verification compares a run's stored digest with one recomputed from its
// stored entries.
type Verification struct {
	RunID    string
	Entries  int
	Stored   string
	Computed string
}

// OK reports whether the digests agree.
func (v Verification) OK() bool {
	return v.Stored == v.Computed
}

// VerifyRun recomputes the digest of a stored run. A mismatch means the
// entries were modified or truncated after the run was recorded.
func (s *Store) VerifyRun(ctx context.Context, id string) (Verification, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return Verification{}, fmt.Errorf("verify run: %w", err)
	}
	entries, err := s.ReadEntries(ctx, id)
	if err != nil {
		return Verification{}, fmt.Errorf("verify run: %w", err)
	}
	computed, err := trace.Digest(entries)
	if err != nil {
		return Verification{}, fmt.Errorf("verify run %s: %w", id, err)
	}
	return Verification{
		RunID:    id,
		Entries:  len(entries),
		Stored:   run.Digest,
		Computed: computed,
	}, nil
}
