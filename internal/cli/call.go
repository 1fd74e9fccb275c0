package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/client"
	"github.com/roach88/graphgate/internal/server"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Addr    string
	Params  string
	Timeout time.Duration
	Retries int
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <command>",
		Short: "Send one command to a running gateway",
		Long: `Send one command to a running gateway and print its result.

Example:
  graphgate call get_scene_info
  graphgate call create_node --params '{"definition_id":"sbs::compositing::blend"}'
  graphgate call list_recipes --addr 127.0.0.1:9882 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return callGateway(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", server.Addr("localhost", server.DefaultPort), "gateway address")
	cmd.Flags().StringVar(&opts.Params, "params", "{}", "command parameters as a JSON object")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", client.DefaultTimeout, "how long to wait for the reply")
	cmd.Flags().IntVar(&opts.Retries, "retries", client.DefaultRetries, "connection retries")

	return cmd
}

func callGateway(opts *CallOptions, kind string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(opts.Params), &params); err != nil {
		return WrapExitError(ExitCommandError, "invalid --params JSON", err)
	}

	c := client.New(opts.Addr,
		client.WithTimeout(opts.Timeout),
		client.WithRetries(opts.Retries, client.DefaultRetryDelay),
	)
	formatter.VerboseLog("sending %s to %s", kind, opts.Addr)

	res, err := c.Send(cmd.Context(), kind, params)
	if err != nil {
		if client.IsConnect(err) {
			_ = formatter.Error("E_CONNECT", err.Error(), map[string]string{"addr": opts.Addr})
			return WrapExitError(ExitCommandError, "gateway unreachable", err)
		}
		_ = formatter.Error("E_COMMAND", err.Error(), map[string]string{"command": kind})
		return WrapExitError(ExitFailure, fmt.Sprintf("command '%s' failed", kind), err)
	}

	if opts.Format == "json" {
		return formatter.Success(res)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, res, "", "  "); err != nil {
		return WrapExitError(ExitFailure, "malformed result", err)
	}
	return formatter.Success(out.String())
}
