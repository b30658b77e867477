// Command reactors runs deterministic reactor networks described in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reactors/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
