package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/reactors/internal/compiler"
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/library"
	"github.com/roach88/reactors/internal/testutil"
	"github.com/roach88/reactors/internal/trace"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	runFlags
	Runs        int
	VaryWorkers bool
	Deadline    time.Duration
}

// CheckResult reports whether repeated runs agreed.
type CheckResult struct {
	Network       string        `json:"network"`
	Runs          int           `json:"runs"`
	Digest        string        `json:"digest"`
	Deterministic bool          `json:"deterministic"`
	Mismatches    []RunMismatch `json:"mismatches,omitempty"`
}

// RunMismatch is a run whose trace differs from the first run's.
type RunMismatch struct {
	Run     int    `json:"run"`
	Workers int    `json:"workers"`
	Digest  string `json:"digest"`
	Diff    string `json:"diff"`
}

// checkRun is the outcome of one repetition.
type checkRun struct {
	workers int
	entries []trace.Entry
	digest  string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <network-dir>",
		Short: "Run a network repeatedly and compare traces",
		Long: `Run a network N times in parallel under a manual clock with fast-forward
and compare the trace digests. Any difference is reported with a diff
against the first run.

Exit codes:
  0 - All runs produced the same trace
  1 - Traces differ, or the network failed to assemble or run
  2 - Command error (invalid paths, flags, etc.)

Examples:
  reactors check ./networks/pipeline -n 20
  reactors check ./networks/pipeline -n 8 --vary-workers`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	opts.runFlags.register(cmd)
	cmd.Flags().IntVarP(&opts.Runs, "runs", "n", 10, "number of runs")
	cmd.Flags().BoolVar(&opts.VaryWorkers, "vary-workers", false, "give run i i+1 workers")
	cmd.Flags().DurationVar(&opts.Deadline, "deadline", 30*time.Second, "wall-clock limit per run")

	return cmd
}

func runCheck(opts *CheckOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Runs < 1 {
		return formatter.Fail(ExitCommandError, "invalid flags", fmt.Errorf("--runs must be at least 1"))
	}

	network, err := loadNetwork(formatter, dir)
	if err != nil {
		return err
	}
	runOpts, err := opts.runFlags.apply(cmd, network.Options)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid flags", err)
	}
	// Surface assembly errors once instead of N times.
	if _, err := assemble(formatter, network, library.Env{}); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = newLogger(opts.RootOptions, cmd.ErrOrStderr())
	}

	runs := make([]checkRun, opts.Runs)
	g, gctx := errgroup.WithContext(ctx)
	for i := range runs {
		o := runOpts
		if opts.VaryWorkers {
			o.Workers = i + 1
		}
		g.Go(func() error {
			run, err := checkOnce(gctx, network, o, opts.Deadline, logger.With("run", i))
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return formatter.Fail(ExitFailure, "check failed", err)
	}

	result := CheckResult{
		Network:       network.Name,
		Runs:          len(runs),
		Digest:        runs[0].digest,
		Deterministic: true,
	}
	for i, run := range runs[1:] {
		if run.digest == result.Digest {
			continue
		}
		result.Deterministic = false
		result.Mismatches = append(result.Mismatches, RunMismatch{
			Run:     i + 1,
			Workers: run.workers,
			Digest:  run.digest,
			Diff:    cmp.Diff(runs[0].entries, run.entries),
		})
	}

	return outputCheck(formatter, result)
}

// checkOnce assembles and runs a fresh copy of network.
func checkOnce(ctx context.Context, network *compiler.Network, o compiler.Options, deadline time.Duration, logger *slog.Logger) (checkRun, error) {
	clock := testutil.NewManualClock()
	prog, err := network.Assemble(library.Default(), library.Env{Clock: clock})
	if err != nil {
		return checkRun{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	rec := trace.NewRecorder()
	engineOpts := append(o.EngineOptions(),
		engine.WithFastForward(true),
		engine.WithClock(clock),
		engine.WithTracer(rec),
		engine.WithLogger(logger))
	if _, err := execute(ctx, prog, engineOpts...); err != nil {
		return checkRun{}, err
	}

	digest, err := rec.Digest()
	if err != nil {
		return checkRun{}, err
	}
	return checkRun{workers: o.Workers, entries: rec.Entries(), digest: digest}, nil
}

func outputCheck(formatter *OutputFormatter, result CheckResult) error {
	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Deterministic {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_NONDETERMINISTIC",
				Message: fmt.Sprintf("%d of %d run(s) differ", len(result.Mismatches), result.Runs),
			}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Deterministic {
			fmt.Fprintf(w, "✓ %s: %d run(s) agree\n", result.Network, result.Runs)
			fmt.Fprintf(w, "  digest %s\n", result.Digest)
		} else {
			fmt.Fprintf(w, "✗ %s: %d of %d run(s) differ from run 0\n",
				result.Network, len(result.Mismatches), result.Runs)
			for _, m := range result.Mismatches {
				fmt.Fprintf(w, "\nrun %d (workers %d) digest %s\n", m.Run, m.Workers, m.Digest)
				fmt.Fprintf(w, "diff (-run 0 +run %d):\n%s", m.Run, m.Diff)
			}
		}
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("%d run(s) not deterministic", len(result.Mismatches)))
	}
	return nil
}
