package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/reactors/internal/compiler"
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/library"
	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/testutil"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// RunTimeout bounds a scenario's wall-clock time. Networks fed by
// physical actions never receive events under the manual clock and are
// stopped here instead of hanging.
const RunTimeout = 30 * time.Second

// Harness is the test execution engine.
// It runs scenarios with a manual clock and a fixed run id.
type Harness struct {
	store  *store.Store
	clock  *testutil.ManualClock
	idGen  trace.IDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and compile the network, applying option overrides
// 3. Run it in fast-forward with a trace recorder
// 4. Store the run and its trace
// 5. Evaluate assertions and return the result
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	h := &Harness{
		store:  st,
		clock:  testutil.NewManualClock(),
		idGen:  trace.NewFixedGenerator(runID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result, err := h.execute(ctx, scenario)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
		RunID: result.RunID,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	network, err := compiler.LoadNetwork(scenario.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}
	opts, err := applyOverrides(network.Options, scenario.Options)
	if err != nil {
		return nil, err
	}

	prog, err := network.Assemble(library.Default(), library.Env{Clock: h.clock})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble network: %w", err)
	}

	rec := trace.NewRecorder()
	engineOpts := append(opts.EngineOptions(),
		engine.WithFastForward(true),
		engine.WithClock(h.clock),
		engine.WithTracer(rec),
		engine.WithLogger(h.logger))
	sched := engine.NewScheduler(prog, engineOpts...)

	runCtx, cancel := context.WithTimeout(ctx, RunTimeout)
	defer cancel()
	if err := sched.Run(runCtx); err != nil {
		return nil, fmt.Errorf("failed to run network: %w", err)
	}

	result := NewResult()
	result.RunID = h.idGen.Generate()
	result.Network = network.Name
	result.Trace = rec.Entries()
	result.Stats = sched.Stats()
	result.Digest, err = rec.Digest()
	if err != nil {
		return nil, fmt.Errorf("failed to digest trace: %w", err)
	}

	run := store.Run{
		ID:        result.RunID,
		Network:   network.Name,
		StartedAt: h.clock.Now().Time(),
		Options: map[string]any{
			"workers":    int64(opts.Workers),
			"timeout_ns": int64(opts.Timeout),
		},
		Tags:      result.Stats.Tags,
		Reactions: result.Stats.Reactions,
		Digest:    result.Digest,
		Status:    store.StatusOK,
	}
	if err := h.store.WriteRun(ctx, run, result.Trace); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	h.logger.Info("scenario executed",
		"network", network.Name,
		"run_id", result.RunID,
		"tags", result.Stats.Tags,
		"reactions", result.Stats.Reactions,
	)
	return result, nil
}

// applyOverrides merges scenario options over the network's. Scenarios
// run sequentially unless they ask for workers.
func applyOverrides(base compiler.Options, o ScenarioOptions) (compiler.Options, error) {
	out := base
	if out.Workers == 0 {
		out.Workers = 1
	}
	if o.Workers > 0 {
		out.Workers = o.Workers
	}
	if o.Timeout != "" {
		d, err := timing.ParseDuration(o.Timeout)
		if err != nil {
			return out, fmt.Errorf("options.timeout: %w", err)
		}
		out.Timeout = d
	}
	return out, nil
}
