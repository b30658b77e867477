package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/reactors/internal/compiler"
	"github.com/roach88/reactors/internal/engine"
	"github.com/roach88/reactors/internal/library"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Network string            `json:"network,omitempty"`
	Digest  string            `json:"digest,omitempty"`
	Summary *engine.Summary   `json:"summary,omitempty"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a network.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <network-dir>",
		Short: "Check a network without running it",
		Long: `Load, compile and assemble a CUE network without running it.

Reports CUE errors, unknown reactor kinds and parameters, bad port
references, type mismatches and dependency cycles.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	network, err := compiler.LoadNetwork(dir)
	if err != nil {
		switch ErrorCode(err) {
		case compiler.ErrCodeNotFound, compiler.ErrCodeScanError, compiler.ErrCodeNoFiles:
			// Command-level errors (exit code 2)
			return formatter.Fail(ExitCommandError, "failed to load network", err)
		}
		return outputValidationErrors(formatter, []ValidationIssue{issueOf(err)})
	}
	formatter.VerboseLog("Loaded network %s from %s", network.Name, dir)

	prog, err := network.Assemble(library.Default(), library.Env{})
	if err != nil {
		return outputValidationErrors(formatter, []ValidationIssue{issueOf(err)})
	}

	digest, err := network.Digest()
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to digest network", err)
	}
	summary := prog.Summary()
	return outputValidateSuccess(formatter, ValidationResult{
		Valid:   true,
		Network: network.Name,
		Digest:  digest,
		Summary: &summary,
	})
}

// issueOf converts a load or assembly error to a ValidationIssue.
func issueOf(err error) ValidationIssue {
	issue := ValidationIssue{Code: ErrorCode(err), Message: err.Error()}
	var (
		pos        token.Pos
		loadErr    *compiler.LoadError
		compileErr *compiler.CompileError
	)
	switch {
	case errors.As(err, &loadErr):
		issue.Message = loadErr.Message
		pos = loadErr.Pos
	case errors.As(err, &compileErr):
		issue.Message = compileErr.Message
		pos = compileErr.Pos
	}
	if pos.IsValid() {
		issue.Line = pos.Line()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	s := result.Summary
	fmt.Fprintf(formatter.Writer, "✓ Network %s is valid\n", result.Network)
	fmt.Fprintf(formatter.Writer, "  %d reactor(s), %d reaction(s), %d level(s), %d timer(s)\n",
		s.Reactors, s.Reactions, s.Levels, s.Timers)
	formatter.VerboseLog("digest %s", result.Digest)
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationIssue) error {
	if formatter.JSON() {
		_ = formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
