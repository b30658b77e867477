package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reactors/internal/library"
)

// KindInfo describes one library reactor kind.
type KindInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "kinds",
		Short:         "List the reactor kinds a network may use",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(rootOpts, cmd)
		},
	}
}

func runKinds(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg := library.Default()
	kinds := make([]KindInfo, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		k, _ := reg.Lookup(name)
		params := k.Params
		if params == nil {
			params = []string{}
		}
		kinds = append(kinds, KindInfo{Name: k.Name, Description: k.Description, Params: params})
	}

	if formatter.JSON() {
		return formatter.Success(kinds)
	}
	for _, k := range kinds {
		fmt.Fprintf(formatter.Writer, "%-10s %s\n", k.Name, k.Description)
		if len(k.Params) > 0 {
			fmt.Fprintf(formatter.Writer, "%-10s params: %s\n", "", strings.Join(k.Params, ", "))
		}
	}
	return nil
}
