package engine

import (
	"context"
	"log/slog"
)

// Run assembles a program rooted at a reactor named name and runs it to
// completion.
func Run[R Reactor](ctx context.Context, name string, build BuildFunc[R], opts ...Option) (Stats, error) {
	p, err := Assemble(name, build)
	if err != nil {
		return Stats{}, err
	}
	s := NewScheduler(p, opts...)
	if err := s.Run(ctx); err != nil {
		return s.Stats(), err
	}
	return s.Stats(), nil
}

// RunMain is the entry point for programs embedding a reactor network. It
// returns a process exit status: 0 after a normal termination and 1 when
// the program could not be assembled or started.
func RunMain[R Reactor](ctx context.Context, name string, build BuildFunc[R], opts ...Option) int {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}

	if _, err := Run(ctx, name, build, opts...); err != nil {
		log.Error("run failed", "program", name, "error", err)
		return 1
	}
	return 0
}
