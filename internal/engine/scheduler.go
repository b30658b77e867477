package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/reactors/internal/ir"
	"github.com/roach88/reactors/internal/timing"
)

// State is the scheduler's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateAdvancing
	StateShuttingDown
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateAdvancing:
		return "advancing"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stats summarizes a finished run.
type Stats struct {
	Tags      int
	Reactions int
	Last      timing.Tag
	Elapsed   time.Duration
}

// Scheduler executes a Program.
//
// One goroutine, the one calling Run, owns the event queue, every port cell
// and every action value. Other goroutines interact only through AsyncLink.
type Scheduler struct {
	prog    *Program
	opts    Options
	workers int
	log     *slog.Logger
	clock   timing.Clock
	tracer  Tracer

	queue eventQueue
	inbox *inbox
	state atomic.Int32

	t0       timing.Instant
	tag      timing.Tag
	latest   timing.Tag
	started  bool
	shutdown timing.Tag

	present map[ir.TriggerID]bool
	dirty   []tagCell
	ready   []bool // by reaction index
	pending int

	runCtx  context.Context
	spawned sync.WaitGroup
	live    atomic.Int64

	stats Stats
}

// NewScheduler prepares p for execution.
func NewScheduler(p *Program, opts ...Option) *Scheduler {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{
		prog:     p,
		opts:     o,
		workers:  o.Workers,
		log:      o.Logger,
		clock:    o.Clock,
		tracer:   o.Tracer,
		shutdown: timing.Forever,
		present:  make(map[ir.TriggerID]bool),
		ready:    make([]bool, len(p.reactions)),
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = timing.SystemClock{}
	}
	if s.tracer == nil {
		s.tracer = nopTracer{}
	}
	s.inbox = newInbox(s.clock)
	return s
}

// State returns the current lifecycle state. Safe from any goroutine.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Stats returns the run's counters. Valid after Run returns.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Program returns the program being executed.
func (s *Scheduler) Program() *Program {
	return s.prog
}

// Run executes the program until shutdown.
//
// The run ends at the earliest of: a stop request, the timeout, an empty
// event queue (unless kept alive by open async links) and ctx cancellation.
// Cancellation is a graceful stop and returns nil. A RuntimeFault raised by
// a reaction propagates as a panic after the scheduler has terminated.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.prog.ran.CompareAndSwap(false, true) {
		return ErrProgramReused
	}
	if s.opts.DumpGraph && s.opts.GraphOut != nil {
		if err := s.prog.WriteDOT(s.opts.GraphOut); err != nil {
			return fmt.Errorf("dump graph: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	defer s.terminate(cancel)

	start := time.Now()
	s.t0 = s.clock.Now()
	s.inbox.start(s.t0)
	if s.opts.Timeout > 0 {
		s.shutdown = timing.TagAt(s.opts.Timeout)
	}

	s.queue.Push(timing.Origin, ir.StartupTrigger)
	for _, t := range s.prog.timers {
		s.queue.Push(t.firstTag(), t.id)
	}

	s.setState(StateRunning)
	s.log.Info("scheduler started",
		"program", s.prog.name,
		"workers", s.workers,
		"timeout", s.opts.Timeout.String(),
		"fast_forward", s.opts.FastForward)

	err := s.loop(ctx)
	s.stats.Elapsed = time.Since(start)
	return err
}

func (s *Scheduler) loop(ctx context.Context) error {
	for {
		s.drainInbox()
		if ctx.Err() != nil {
			s.stopAt(s.latest.NextMicrostep(), "context cancelled")
		}

		next, ok := s.queue.Peek()
		if !ok || !next.tag.Before(s.shutdown) {
			if s.shutdown == timing.Forever {
				if s.opts.KeepAlive && s.live.Load() > 0 {
					s.setState(StateAdvancing)
					select {
					case <-s.inbox.Wait():
					case <-ctx.Done():
					}
					continue
				}
				// A link may have sent and closed since the last drain.
				if s.drainInbox() > 0 {
					continue
				}
				s.stopAt(s.latest.NextMicrostep(), "event queue empty")
			}
			// An idle run without keepalive accepts no more physical events,
			// so there is nothing to wait for.
			if (ok || s.opts.KeepAlive) && s.pace(ctx, s.shutdown) {
				continue
			}
			s.setState(StateShuttingDown)
			s.queue.Clear()
			s.processTag(s.shutdown, []ir.TriggerID{ir.ShutdownTrigger})
			return nil
		}

		if s.pace(ctx, next.tag) {
			continue
		}
		ev, _ := s.queue.Pop()
		s.processTag(ev.tag, ev.triggers)
	}
}

// pace waits until the physical clock reaches tag. It returns true when the
// wait was interrupted by a physical event or cancellation, in which case
// the caller re-examines the queue.
func (s *Scheduler) pace(ctx context.Context, tag timing.Tag) bool {
	if s.opts.FastForward || ctx.Err() != nil || tag == timing.Forever {
		return false
	}
	remaining := tag.Offset - s.clock.Now().Sub(s.t0)
	if remaining <= 0 {
		return false
	}

	s.setState(StateAdvancing)
	select {
	case <-s.clock.After(remaining):
		return false
	case <-s.inbox.Wait():
		return true
	case <-ctx.Done():
		return true
	}
}

// drainInbox moves physical events into the event queue and returns how
// many it queued. Events stamped before the last processed tag are moved
// after it, keeping their arrival order.
func (s *Scheduler) drainInbox() int {
	n := 0
	floor := s.latest
	for _, ev := range s.inbox.Drain() {
		tag := ev.tag
		if s.started && !tag.After(floor) {
			tag = floor.NextMicrostep()
			floor = tag
		}
		if !tag.Before(s.shutdown) {
			s.log.Debug("physical event dropped after shutdown",
				"trigger", s.prog.graph.TriggerName(ev.trigger),
				"tag", tag.String())
			continue
		}
		if ev.store != nil {
			ev.store(tag)
		}
		s.queue.Push(tag, ev.trigger)
		n++
	}
	return n
}

// stopAt lowers the shutdown tag to tag.
func (s *Scheduler) stopAt(tag timing.Tag, reason string) {
	if !tag.Before(s.shutdown) {
		return
	}
	s.shutdown = tag
	s.log.Info("shutdown requested", "tag", tag.String(), "reason", reason)
}

// processTag runs every reaction triggered at tag to a fixed point and then
// clears tag-scoped values.
func (s *Scheduler) processTag(tag timing.Tag, triggers []ir.TriggerID) {
	if s.State() != StateShuttingDown {
		s.setState(StateDraining)
	}
	s.tag = tag
	s.tracer.TagStarted(tag)

	for _, id := range triggers {
		s.present[id] = true
		if t, ok := s.prog.timerByID[id]; ok && t.period > 0 {
			if nt := tag.Successor(timing.After(t.period)); nt.Before(s.shutdown) {
				s.queue.Push(nt, id)
			}
		}
		s.markReady(id)
	}

	s.executeLevels()
	s.cleanup()

	s.latest = tag
	s.started = true
	s.inbox.Publish(tag)
	s.stats.Tags++
	s.stats.Last = tag
	s.log.Debug("tag drained", "tag", tag.String())
}

func (s *Scheduler) markReady(id ir.TriggerID) {
	for _, key := range s.prog.flow.PlanFor(id) {
		i := s.prog.flow.Index(key.ID)
		if !s.ready[i] {
			s.ready[i] = true
			s.pending++
		}
	}
}

// executeLevels runs ready reactions level by level. A commit only readies
// reactions of higher levels, so a single ascending pass reaches the fixed
// point.
func (s *Scheduler) executeLevels() {
	rs := s.prog.reactions
	var batch []*ReactionCtx
	for i := 0; i < len(rs) && s.pending > 0; {
		level := rs[i].key.Level
		batch = batch[:0]
		for ; i < len(rs) && rs[i].key.Level == level; i++ {
			if s.ready[i] {
				s.ready[i] = false
				s.pending--
				batch = append(batch, &ReactionCtx{s: s, info: rs[i], tag: s.tag})
			}
		}
		if len(batch) == 0 {
			continue
		}
		s.runBatch(batch)
		for _, c := range batch {
			s.commit(c)
		}
	}
}

// runBatch executes the reactions of one level. With more than one worker
// they run concurrently; a panic in any of them is re-raised here, the
// first in key order winning.
func (s *Scheduler) runBatch(batch []*ReactionCtx) {
	if s.workers <= 1 || len(batch) == 1 {
		for _, c := range batch {
			s.invoke(c)
		}
		return
	}

	panics := make([]any, len(batch))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, c := range batch {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panics[i] = r
				}
			}()
			s.invoke(c)
			return nil
		})
	}
	// Every task returns nil; panics are collected above.
	_ = g.Wait()

	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
}

func (s *Scheduler) invoke(c *ReactionCtx) {
	c.active = true
	defer func() { c.active = false }()
	s.prog.reactors[c.info.id.Reactor].reactor.React(c, c.info.id.Local)
}

// commit applies one reaction's buffered effects.
func (s *Scheduler) commit(c *ReactionCtx) {
	for _, w := range c.writes {
		w.commit()
		if w.cell.mark() {
			s.dirty = append(s.dirty, w.cell)
		}
		s.present[w.id] = true
		s.markReady(w.id)
	}
	for _, ev := range c.schedules {
		if !ev.tag.Before(s.shutdown) {
			continue
		}
		if ev.store != nil {
			ev.store(ev.tag)
		}
		s.queue.Push(ev.tag, ev.trigger)
	}
	for _, tag := range c.stops {
		s.stopAt(tag, "requested by "+c.info.name)
	}

	s.tracer.ReactionExecuted(s.tag, c.info.key, c.info.name)
	for _, r := range c.records {
		s.tracer.ValueRecorded(s.tag, c.info.name, r.Label, r.Value)
	}
	s.stats.Reactions++
}

// cleanup clears every value scoped to the current tag.
func (s *Scheduler) cleanup() {
	for _, c := range s.dirty {
		c.clear()
	}
	clear(s.dirty)
	s.dirty = s.dirty[:0]

	for id := range s.present {
		if a, ok := s.prog.actions[id]; ok {
			a.cleanup(s.tag)
		}
	}
	clear(s.present)
}

func (s *Scheduler) terminate(cancel context.CancelFunc) {
	s.inbox.Close()
	cancel()
	s.spawned.Wait()
	s.queue.Clear()
	s.setState(StateTerminated)
	s.log.Info("scheduler terminated",
		"tags", s.stats.Tags,
		"reactions", s.stats.Reactions,
		"last", s.stats.Last.String())
}
