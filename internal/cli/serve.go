package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/graphgate/internal/bridge"
	"github.com/roach88/graphgate/internal/command"
	"github.com/roach88/graphgate/internal/config"
	"github.com/roach88/graphgate/internal/host/simhost"
	"github.com/roach88/graphgate/internal/journal"
	"github.com/roach88/graphgate/internal/server"
)

// ServeOptions holds flags for the serve command. Flags that are set
// override the config file and environment.
type ServeOptions struct {
	*RootOptions
	Host           string
	Ports          []int
	Journal        string
	Scene          string
	CommandTimeout time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Long: `Run the gateway against the simulated host.

The gateway listens on every configured port. Commands are executed one
at a time on the host's owning loop. With a journal path set, every
answered command is recorded in SQLite and can be listed with
'graphgate history'.

Example:
  graphgate serve
  graphgate serve --port 9881 --port 9882 --journal ./graphgate.db
  GRAPHGATE_LOG_LEVEL=debug graphgate serve --scene ./scene.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", config.DefaultHost, "listen host")
	cmd.Flags().IntSliceVarP(&opts.Ports, "port", "p", []int{server.DefaultPort}, "listen port (repeatable)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite command journal")
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "path to YAML scene for the simulated host")
	cmd.Flags().DurationVar(&opts.CommandTimeout, "command-timeout", config.DefaultCommandTimeout, "per-command execution timeout")

	return cmd
}

// resolveConfig layers explicitly set flags over the loaded config.
func resolveConfig(opts *ServeOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.Config, nil)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.Host
	}
	if flags.Changed("port") {
		cfg.Ports = opts.Ports
	}
	if flags.Changed("journal") {
		cfg.JournalPath = opts.Journal
	}
	if flags.Changed("scene") {
		cfg.ScenePath = opts.Scene
	}
	if flags.Changed("command-timeout") {
		cfg.CommandTimeout = opts.CommandTimeout
		if cfg.ClientTimeout <= cfg.CommandTimeout {
			cfg.ClientTimeout = cfg.CommandTimeout + 10*time.Second
		}
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadHost(path string) (*simhost.Host, error) {
	if path == "" {
		return simhost.Default(), nil
	}
	scene, err := simhost.LoadScene(path)
	if err != nil {
		return nil, err
	}
	return simhost.New(scene), nil
}

func runGateway(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Level(),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	h, err := loadHost(cfg.ScenePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scene", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	b := bridge.New(bridge.WithTimeout(cfg.CommandTimeout), bridge.WithLogger(logger))
	dispatcher := command.New(h, b, command.WithLogger(logger), command.WithVersion(Version))

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithClientTimeout(cfg.ClientTimeout),
		server.WithMaxMessageSize(cfg.MaxMessageBytes),
	}
	if cfg.JournalPath != "" {
		logger.Info("opening journal", "path", cfg.JournalPath)
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		last, err := j.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		serverOpts = append(serverOpts, server.WithJournal(j), server.WithClock(bridge.NewClockAt(last)))
	}
	srv := server.New(dispatcher, cfg.Addrs(), serverOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := b.Run(gctx); err != nil {
			return fmt.Errorf("owner loop: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		select {
		case <-srv.Ready():
			for _, addr := range srv.Addrs() {
				fmt.Fprintf(cmd.OutOrStdout(), "Gateway listening on %s\n", addr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
		case <-gctx.Done():
		}
		return nil
	})

	// Once shutdown was requested every member exits with a context error.
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitFailure, "gateway error", err)
	}

	logger.Info("gateway stopped gracefully")
	return nil
}
