package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/reactors/internal/timing"
)

// Options configures a Scheduler.
type Options struct {
	// Workers bounds intra-level parallelism. 0 uses GOMAXPROCS and 1 runs
	// every reaction on the scheduler goroutine.
	Workers int

	// Timeout stops the run at tag (Timeout, 0). Zero means no timeout.
	Timeout timing.Duration

	// KeepAlive keeps an idle scheduler waiting for physical events while
	// async links are open.
	KeepAlive bool

	// FastForward disables real-time pacing: tags are processed as soon as
	// they are reached.
	FastForward bool

	// DumpGraph writes the dependency graph in DOT syntax to GraphOut
	// before running.
	DumpGraph bool
	GraphOut  io.Writer

	// Tracer observes execution. Nil disables tracing.
	Tracer Tracer

	// Clock is the physical clock. Nil uses the system clock.
	Clock timing.Clock

	// Logger receives scheduler logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Option allows configuration of scheduler parameters.
type Option func(*Options)

// WithWorkers sets the worker count.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithTimeout sets the logical timeout.
func WithTimeout(d timing.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithKeepAlive keeps the scheduler alive while async links are open.
func WithKeepAlive(keep bool) Option {
	return func(o *Options) { o.KeepAlive = keep }
}

// WithFastForward disables real-time pacing.
func WithFastForward(ff bool) Option {
	return func(o *Options) { o.FastForward = ff }
}

// WithGraphDump writes the dependency graph to w before running.
func WithGraphDump(w io.Writer) Option {
	return func(o *Options) {
		o.DumpGraph = true
		o.GraphOut = w
	}
}

// WithTracer installs a Tracer.
func WithTracer(t Tracer) Option {
	return func(o *Options) { o.Tracer = t }
}

// WithClock sets the physical clock.
func WithClock(c timing.Clock) Option {
	return func(o *Options) { o.Clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithOptions replaces all options at once.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}
