package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reactors/internal/compiler"
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/library"
	"github.com/roach88/reactors/internal/timing"
)

// runFlags override the options a network file sets. A flag left unset
// keeps the file's value.
type runFlags struct {
	Timeout     string
	Workers     int
	KeepAlive   bool
	FastForward bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Timeout, "timeout", "", `logical time limit, e.g. "5 sec" (overrides the network file)`)
	cmd.Flags().IntVarP(&f.Workers, "workers", "w", 0, "reaction worker goroutines (0 = one per CPU)")
	cmd.Flags().BoolVar(&f.KeepAlive, "keepalive", false, "wait for physical events when the event queue is empty")
	cmd.Flags().BoolVar(&f.FastForward, "fast", false, "do not wait for physical time to catch up with logical time")
}

// apply merges the flags set on cmd over base.
func (f *runFlags) apply(cmd *cobra.Command, base compiler.Options) (compiler.Options, error) {
	out := base
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		d, err := timing.ParseDuration(f.Timeout)
		if err != nil {
			return out, fmt.Errorf("--timeout: %w", err)
		}
		out.Timeout = d
	}
	if flags.Changed("workers") {
		if f.Workers < 0 {
			return out, fmt.Errorf("--workers must be non-negative")
		}
		out.Workers = f.Workers
	}
	if flags.Changed("keepalive") {
		out.KeepAlive = f.KeepAlive
	}
	if flags.Changed("fast") {
		out.FastForward = f.FastForward
	}
	return out, nil
}

// loadNetwork loads dir, reporting failures through f. A missing or empty
// directory is a command error; a network that does not compile is a
// failure.
func loadNetwork(f *OutputFormatter, dir string) (*compiler.Network, error) {
	network, err := compiler.LoadNetwork(dir)
	if err == nil {
		f.VerboseLog("Loaded network %s: %d reactor(s), %d connection(s)",
			network.Name, len(network.Reactors), len(network.Connections))
		return network, nil
	}
	switch ErrorCode(err) {
	case compiler.ErrCodeNotFound, compiler.ErrCodeScanError, compiler.ErrCodeNoFiles:
		return nil, f.Fail(ExitCommandError, "failed to load network", err)
	default:
		return nil, f.Fail(ExitFailure, "failed to load network", err)
	}
}

// assemble builds network from the default library.
func assemble(f *OutputFormatter, network *compiler.Network, env library.Env) (*engine.Program, error) {
	prog, err := network.Assemble(library.Default(), env)
	if err != nil {
		return nil, f.Fail(ExitFailure, "failed to assemble network", err)
	}
	return prog, nil
}

// execute runs prog to completion. A runtime fault raised by a reaction
// is returned as an error together with the counters reached so far.
func execute(ctx context.Context, prog *engine.Program, opts ...engine.Option) (stats engine.Stats, err error) {
	sched := engine.NewScheduler(prog, opts...)
	defer func() {
		if r := recover(); r != nil {
			fault, ok := engine.AsRuntimeFault(r)
			if !ok {
				panic(r)
			}
			stats, err = sched.Stats(), fault
		}
	}()
	err = sched.Run(ctx)
	return sched.Stats(), err
}
