package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// TraceOptions holds flags for the trace commands.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Network  string
	ExecOnly bool
	Reaction string // optional - filter to one reaction or reactor
	Label    string
	From     string
	To       string
}

// RunInfo is a stored run as listed by trace list.
type RunInfo struct {
	ID        string         `json:"id"`
	Network   string         `json:"network"`
	StartedAt string         `json:"started_at"`
	Tags      int            `json:"tags"`
	Reactions int            `json:"reactions"`
	Digest    string         `json:"digest"`
	Status    string         `json:"status"`
	Options   map[string]any `json:"options,omitempty"`
}

// TraceEntry is one trace entry in JSON output.
type TraceEntry struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	Tag      string `json:"tag"`
	Level    *int   `json:"level,omitempty"`
	Reaction string `json:"reaction,omitempty"`
	Label    string `json:"label,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// TraceResult holds the output of trace show.
type TraceResult struct {
	Run     RunInfo      `json:"run"`
	Entries []TraceEntry `json:"entries"`
}

// VerifyResult holds the output of trace verify.
type VerifyResult struct {
	RunID    string `json:"run_id"`
	Entries  int    `json:"entries"`
	Stored   string `json:"stored"`
	Computed string `json:"computed"`
	OK       bool   `json:"ok"`
}

// NewTraceCommand creates the trace command and its subcommands.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored runs",
		Long: `Inspect runs stored by "reactors run --db".

Examples:
  reactors trace list --db ./runs.db
  reactors trace show --db ./runs.db --run 0190f3a2-...
  reactors trace show --db ./runs.db --network pipeline --reaction main/sink
  reactors trace verify --db ./runs.db --run 0190f3a2-...`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List stored runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Network, "network", "", "only runs of this network")

	show := &cobra.Command{
		Use:           "show",
		Short:         "Print a stored trace",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceShow(opts, cmd)
		},
	}
	show.Flags().StringVar(&opts.RunID, "run", "", "run id (default: the latest run)")
	show.Flags().StringVar(&opts.Network, "network", "", "pick the latest run of this network")
	show.Flags().BoolVar(&opts.ExecOnly, "exec", false, "only reaction executions")
	show.Flags().StringVar(&opts.Reaction, "reaction", "", `only entries of a reaction ("main/sink#0") or reactor ("main/sink")`)
	show.Flags().StringVar(&opts.Label, "label", "", "only values recorded under this label")
	show.Flags().StringVar(&opts.From, "from", "", `first tag to show ("2 ms/0")`)
	show.Flags().StringVar(&opts.To, "to", "", "last tag to show")

	verify := &cobra.Command{
		Use:           "verify",
		Short:         "Recompute a stored run's digest",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceVerify(opts, cmd)
		},
	}
	verify.Flags().StringVar(&opts.RunID, "run", "", "run id (required)")
	_ = verify.MarkFlagRequired("run")

	cmd.AddCommand(list, show, verify)
	return cmd
}

// openStore opens an existing database. Unlike run --db it never creates
// one.
func openStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, formatter.Fail(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to list runs", err)
	}

	infos := []RunInfo{}
	for _, r := range runs {
		if opts.Network != "" && r.Network != opts.Network {
			continue
		}
		infos = append(infos, runInfo(r))
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}
	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, r := range infos {
		fmt.Fprintf(w, "%s  %-12s %s  %d tag(s)  %d reaction(s)  %s\n",
			r.ID, r.Network, r.StartedAt, r.Tags, r.Reactions, r.Status)
	}
	return nil
}

func runTraceShow(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := selectRun(ctx, st, opts)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Fail(ExitCommandError, "run not found", err)
		}
		return formatter.Fail(ExitCommandError, "failed to read run", err)
	}

	filter, err := showFilter(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid filter", err)
	}
	entries, err := st.QueryEntries(ctx, run.ID, filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read trace", err)
	}
	entries = dropEmptyTags(entries)

	if formatter.JSON() {
		out := TraceResult{Run: runInfo(run), Entries: make([]TraceEntry, len(entries))}
		for i, e := range entries {
			out.Entries[i] = traceEntry(e)
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "# run %s (%s) digest %s\n", run.ID, run.Network, run.Digest)
	return trace.WriteText(w, entries)
}

func runTraceVerify(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := st.VerifyRun(context.Background(), opts.RunID)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to verify run", err)
	}
	result := VerifyResult{
		RunID:    v.RunID,
		Entries:  v.Entries,
		Stored:   v.Stored,
		Computed: v.Computed,
		OK:       v.OK(),
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result, RunID: v.RunID}
		if !result.OK {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_DIGEST_MISMATCH", Message: "stored digest does not match the stored trace"}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else if result.OK {
		fmt.Fprintf(formatter.Writer, "✓ run %s: %d entries, digest %s\n", v.RunID, v.Entries, v.Stored)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ run %s: digest mismatch\n  stored   %s\n  computed %s\n", v.RunID, v.Stored, v.Computed)
	}

	if !result.OK {
		return NewExitError(ExitFailure, "digest mismatch for run "+v.RunID)
	}
	return nil
}

// selectRun resolves --run and --network to one stored run. With neither
// it picks the most recently started run.
func selectRun(ctx context.Context, st *store.Store, opts *TraceOptions) (store.Run, error) {
	switch {
	case opts.RunID != "":
		return st.ReadRun(ctx, opts.RunID)
	case opts.Network != "":
		return st.LatestRun(ctx, opts.Network)
	}
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return store.Run{}, err
	}
	if len(runs) == 0 {
		return store.Run{}, fmt.Errorf("latest run: %w", store.ErrRunNotFound)
	}
	return runs[len(runs)-1], nil
}

// showFilter builds the store filter for trace show. Unless --exec is
// given, tag entries are kept so that the text output stays grouped by tag.
func showFilter(opts *TraceOptions) (store.Filter, error) {
	var narrow []store.Filter
	if opts.ExecOnly {
		narrow = append(narrow, store.Kind{Kind: trace.KindExec})
	}
	if opts.Reaction != "" {
		narrow = append(narrow, store.Reaction{Name: opts.Reaction})
	}
	if opts.Label != "" {
		narrow = append(narrow, store.Label{Label: opts.Label})
	}

	var filter store.Filter
	switch {
	case opts.ExecOnly:
		filter = store.And{Filters: narrow}
	case len(narrow) > 0:
		filter = store.Or{Filters: []store.Filter{
			store.Kind{Kind: trace.KindTag},
			store.And{Filters: narrow},
		}}
	}

	if opts.From == "" && opts.To == "" {
		return filter, nil
	}
	between := store.Between{From: timing.Origin, To: timing.Forever}
	var err error
	if opts.From != "" {
		if between.From, err = timing.ParseTag(opts.From); err != nil {
			return nil, fmt.Errorf("--from: %w", err)
		}
	}
	if opts.To != "" {
		if between.To, err = timing.ParseTag(opts.To); err != nil {
			return nil, fmt.Errorf("--to: %w", err)
		}
	}
	if filter == nil {
		return between, nil
	}
	return store.And{Filters: []store.Filter{between, filter}}, nil
}

// dropEmptyTags removes tag entries not followed by any entry of their tag.
func dropEmptyTags(entries []trace.Entry) []trace.Entry {
	out := entries[:0:0]
	for i, e := range entries {
		if e.Kind == trace.KindTag && (i+1 == len(entries) || entries[i+1].Kind == trace.KindTag) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func runInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:        r.ID,
		Network:   r.Network,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
		Tags:      r.Tags,
		Reactions: r.Reactions,
		Digest:    r.Digest,
		Status:    r.Status,
		Options:   r.Options,
	}
}

func traceEntry(e trace.Entry) TraceEntry {
	out := TraceEntry{
		Seq:      e.Seq,
		Kind:     string(e.Kind),
		Tag:      e.Tag.String(),
		Reaction: e.Reaction,
		Label:    e.Label,
		Value:    e.Value,
	}
	if e.Kind == trace.KindExec {
		level := int(e.Level)
		out.Level = &level
	}
	return out
}
