package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reactors/internal/compiler"
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/library"
	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	runFlags
	Database  string
	ShowTrace bool
	DumpGraph bool

	// RunIDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator trace.IDGenerator
}

// RunResult summarizes one run.
type RunResult struct {
	RunID     string `json:"run_id"`
	Network   string `json:"network"`
	Tags      int    `json:"tags"`
	Reactions int    `json:"reactions"`
	LastTag   string `json:"last_tag"`
	Digest    string `json:"digest"`
	Status    string `json:"status"`
	Stored    bool   `json:"stored"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <network-dir>",
		Short: "Run a network",
		Long: `Load the CUE network in a directory, assemble it and run it until shutdown.

The run ends at the first of: a stop request from a reaction, the timeout,
an empty event queue (unless --keepalive) or Ctrl-C. With --db the run and
its trace are stored in a SQLite database for the trace command.

Examples:
  reactors run ./networks/pipeline
  reactors run ./networks/pipeline --fast --timeout "1 sec" --trace
  reactors run ./networks/ticker --keepalive --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(opts, args[0], cmd)
		},
	}

	opts.runFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to store the run in")
	cmd.Flags().BoolVar(&opts.ShowTrace, "trace", false, "print the execution trace")
	cmd.Flags().BoolVar(&opts.DumpGraph, "dump-graph", false, "write the dependency graph (DOT) to stderr before running")

	return cmd
}

func runNetwork(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	network, err := loadNetwork(formatter, dir)
	if err != nil {
		return err
	}
	runOpts, err := opts.runFlags.apply(cmd, network.Options)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid flags", err)
	}

	// Open the database first so a bad path fails before the run.
	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	prog, err := assemble(formatter, network, library.Env{})
	if err != nil {
		return err
	}

	idGen := opts.RunIDGenerator
	if idGen == nil {
		idGen = trace.UUIDv7Generator{}
	}
	runID := idGen.Generate()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr()).With("run_id", runID)

	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := trace.NewRecorder()
	engineOpts := append(runOpts.EngineOptions(),
		engine.WithTracer(rec),
		engine.WithLogger(logger))
	if opts.DumpGraph {
		engineOpts = append(engineOpts, engine.WithGraphDump(cmd.ErrOrStderr()))
	}

	startedAt := time.Now()
	stats, runErr := execute(ctx, prog, engineOpts...)
	var fault *engine.RuntimeFault
	if runErr != nil && !errors.As(runErr, &fault) {
		return formatter.Fail(ExitFailure, "run failed", runErr)
	}

	entries := rec.Entries()
	digest, err := trace.Digest(entries)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to digest trace", err)
	}

	result := RunResult{
		RunID:     runID,
		Network:   network.Name,
		Tags:      stats.Tags,
		Reactions: stats.Reactions,
		LastTag:   stats.Last.String(),
		Digest:    digest,
		Status:    store.StatusOK,
	}
	if fault != nil {
		result.Status = store.StatusFault
	}

	if st != nil {
		err := st.WriteRun(ctx, store.Run{
			ID:        runID,
			Network:   network.Name,
			StartedAt: startedAt,
			Options:   optionsRecord(runOpts),
			Tags:      stats.Tags,
			Reactions: stats.Reactions,
			Digest:    digest,
			Status:    result.Status,
		}, entries)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to store run", err)
		}
		result.Stored = true
		logger.Info("run stored", "db", opts.Database)
	}

	if fault != nil {
		_ = formatter.Error(string(fault.Code), fault.Error(), result)
		return WrapExitError(ExitFailure, "runtime fault", fault)
	}

	if formatter.JSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: runID})
	}
	w := formatter.Writer
	if opts.ShowTrace {
		if err := trace.WriteText(w, entries); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "✓ %s: %d tag(s), %d reaction(s), last tag %s\n",
		network.Name, stats.Tags, stats.Reactions, result.LastTag)
	fmt.Fprintf(w, "  run %s\n", runID)
	fmt.Fprintf(w, "  digest %s\n", digest)
	return nil
}

// optionsRecord is the options map stored with a run.
func optionsRecord(o compiler.Options) map[string]any {
	return map[string]any{
		"workers":      int64(o.Workers),
		"timeout_ns":   int64(o.Timeout),
		"keepalive":    o.KeepAlive,
		"fast_forward": o.FastForward,
	}
}
