package trace

import "sync/atomic"

// Sequence is a monotonic counter for ordering trace entries.
//
// Entries are stamped with a strictly increasing seq number rather than a
// wall-clock reading, so a replayed run numbers its entries identically.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// The scheduler's single-writer design means only one goroutine typically
// calls Next().
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a new sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence starting at a specific number.
// Used to append to a stored run.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and increments the counter.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
