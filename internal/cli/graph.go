package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reactors/internal/library"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Order bool
}

// ReactionInfo is one reaction in execution order.
type ReactionInfo struct {
	Name  string `json:"name"`
	Level uint32 `json:"level"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <network-dir>",
		Short: "Print a network's dependency graph",
		Long: `Assemble a network and print its dependency graph in Graphviz DOT syntax.

With --order, print the reactions in execution order with their levels
instead.

Examples:
  reactors graph ./networks/pipeline | dot -Tsvg > pipeline.svg
  reactors graph ./networks/pipeline --order`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Order, "order", false, "print reactions in execution order instead of DOT")

	return cmd
}

func runGraph(opts *GraphOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	network, err := loadNetwork(formatter, dir)
	if err != nil {
		return err
	}
	prog, err := assemble(formatter, network, library.Env{})
	if err != nil {
		return err
	}

	if opts.Order {
		order := prog.ReactionOrder()
		infos := make([]ReactionInfo, len(order))
		for i, r := range order {
			infos[i] = ReactionInfo{Name: r.Name, Level: uint32(r.Level)}
		}
		if formatter.JSON() {
			return formatter.Success(infos)
		}
		for _, r := range infos {
			fmt.Fprintf(formatter.Writer, "L%d %s\n", r.Level, r.Name)
		}
		return nil
	}

	if formatter.JSON() {
		return formatter.Fail(ExitCommandError, "graph", fmt.Errorf("DOT output has no JSON form; use --order"))
	}
	return prog.WriteDOT(formatter.Writer)
}
