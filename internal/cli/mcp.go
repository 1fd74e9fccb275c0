package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/client"
	"github.com/roach88/graphgate/internal/docs"
	"github.com/roach88/graphgate/internal/mcpbridge"
	"github.com/roach88/graphgate/internal/server"
)

// MCPOptions holds flags for the mcp command.
type MCPOptions struct {
	*RootOptions
	Addr    string
	Timeout time.Duration
}

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MCPOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the gateway's commands as MCP tools over stdio",
		Long: `Serve every gateway command as an MCP tool over stdin/stdout.

Tool calls are forwarded to a running gateway. Logs go to stderr so they
never mix with the protocol stream.

Example:
  graphgate mcp --addr localhost:9881`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", server.Addr("localhost", server.DefaultPort), "gateway address")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", client.DefaultTimeout, "how long to wait for each reply")

	return cmd
}

func runMCP(opts *MCPOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	ref, err := docs.Load()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load documentation", err)
	}
	c := client.New(opts.Addr, client.WithTimeout(opts.Timeout), client.WithLogger(logger))

	logger.Info("mcp bridge starting", "gateway", opts.Addr)
	if err := mcpbridge.Run(cmd.Context(), c, ref, Version, logger); err != nil {
		return WrapExitError(ExitFailure, "mcp bridge error", err)
	}
	return nil
}
