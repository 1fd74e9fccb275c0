package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/docs"
)

// DocsOptions holds flags for the docs command.
type DocsOptions struct {
	*RootOptions
	Query docs.Query
}

// NewDocsCommand creates the docs command.
func NewDocsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DocsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Browse the node reference",
		Long: `Browse the embedded node reference without a running gateway.

Example:
  graphgate docs --action categories
  graphgate docs --category blend_modes
  graphgate docs --node "perlin noise"
  graphgate docs --action search --query warp`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showDocs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query.Category, "category", "", "reference section (default: all)")
	cmd.Flags().StringVar(&opts.Query.Filter, "filter", "", "case-insensitive filter within the section")
	cmd.Flags().StringVar(&opts.Query.NodeName, "node", "", "look up one node by name")
	cmd.Flags().StringVar(&opts.Query.Action, "action", "", "categories|search")
	cmd.Flags().StringVar(&opts.Query.Search, "query", "", "search text for --action search")

	return cmd
}

func showDocs(opts *DocsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	ref, err := docs.Load()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load documentation", err)
	}
	res, err := ref.Lookup(opts.Query)
	if err != nil {
		_ = formatter.Error("E_DOCS", err.Error(), nil)
		return WrapExitError(ExitCommandError, "documentation lookup failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(res)
	}
	text, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render documentation", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(text))
	return nil
}
