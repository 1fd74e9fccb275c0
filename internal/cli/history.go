package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Kind     string
	Status   string
	Limit    int
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Entries []journal.Entry `json:"entries"`
	Counts  map[string]int  `json:"counts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List commands recorded in a gateway journal",
		Long: `List the most recent commands a gateway recorded in its journal,
oldest first, with per-kind totals.

Example:
  graphgate history --db ./graphgate.db
  graphgate history --db ./graphgate.db --kind create_node --limit 5
  graphgate history --db ./graphgate.db --status error --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only commands of this kind")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only commands with this status (success|error)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", journal.DefaultLimit, "maximum number of commands")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	// Opening would create a fresh journal; a missing file is a usage error.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	entries, err := j.Recent(ctx, journal.Query{Limit: opts.Limit, Kind: opts.Kind, Status: opts.Status})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}
	counts, err := j.Count(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	result := HistoryResult{Entries: entries, Counts: counts}
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}
	writeHistoryText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func writeHistoryText(w io.Writer, result HistoryResult, verbose bool) {
	fmt.Fprintln(w, "=== Commands ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no commands)")
	}
	for _, e := range result.Entries {
		kind := e.Kind
		if kind == "" {
			kind = "(undecoded)"
		}
		fmt.Fprintf(w, "  [%d] %-24s %-7s %8s  %s\n",
			e.Seq, kind, e.Status, e.Duration.Round(time.Microsecond), e.ReceivedAt.UTC().Format(time.RFC3339))
		if e.Message != "" {
			fmt.Fprintf(w, "       %s\n", e.Message)
		}
		if verbose {
			fmt.Fprintf(w, "       Params: %s\n", e.Params)
			fmt.Fprintf(w, "       Remote: %s  ID: %s\n", e.Remote, truncateID(e.ID))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Totals ===")
	kinds := make([]string, 0, len(result.Counts))
	for k := range result.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		name := k
		if name == "" {
			name = "(undecoded)"
		}
		fmt.Fprintf(w, "  %-24s %d\n", name, result.Counts[k])
	}
}

// truncateID shortens an ID for display.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
