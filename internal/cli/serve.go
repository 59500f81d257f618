package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/cadbridge/internal/actions"
	"github.com/roach88/cadbridge/internal/bridge"
	"github.com/roach88/cadbridge/internal/config"
	"github.com/roach88/cadbridge/internal/docstore"
	"github.com/roach88/cadbridge/internal/metrics"
	"github.com/roach88/cadbridge/internal/receiver"
	"github.com/roach88/cadbridge/internal/seed"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigFile string

	// Flag values; applied over the loaded config only when set.
	Addr         string
	Path         string
	Database     string
	Seed         string
	Demo         bool
	LockOSThread bool

	// OnListen is called with the bound address once the server accepts
	// connections (for testing).
	OnListen func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge",
		Long: `Open the document, optionally seed it, and serve envelopes over HTTP.

Settings are layered: built-in defaults, then --config, then CADBRIDGE_*
environment variables, then flags.

Examples:
  cadbridge serve --demo
  cadbridge serve --db ./model.db --seed ./fixture.yaml --addr 127.0.0.1:9000
  CADBRIDGE_LOG_FORMAT=json cadbridge serve --config bridge.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&opts.Path, "path", "", "envelope endpoint path")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite document (:memory: for a throwaway one)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "fixture to apply at startup (.yaml, .json or .cue)")
	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "apply the built-in demo document at startup")
	cmd.Flags().BoolVar(&opts.LockOSThread, "lock-os-thread", false, "pin the mutation goroutine to one OS thread")

	return cmd
}

// resolveConfig loads the layered config and applies explicitly set flags.
func (o *ServeOptions) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = o.Addr
	}
	if flags.Changed("path") {
		cfg.Path = o.Path
	}
	if flags.Changed("db") {
		cfg.Database = o.Database
	}
	if flags.Changed("seed") {
		cfg.Seed = o.Seed
	}
	if flags.Changed("demo") {
		cfg.Demo = o.Demo
	}
	if flags.Changed("lock-os-thread") {
		cfg.LockOSThread = o.LockOSThread
	}

	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *ServeOptions, cfg config.Config) error {
	logger := cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)
	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("opening document", "path", cfg.Database)
	doc, err := docstore.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open document", err)
	}
	defer func() {
		if closeErr := doc.Close(); closeErr != nil {
			logger.Error("error closing document", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := applyStartupSeed(ctx, logger, doc, cfg); err != nil {
		return err
	}

	reg, err := actions.NewRegistry()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build action registry", err)
	}

	m := metrics.New(true)
	ser := bridge.NewSerializer(doc,
		bridge.WithLogger(logger),
		bridge.WithObserver(m),
		bridge.WithLockOSThread(cfg.LockOSThread),
	)
	b := bridge.New(reg, ser, logger)

	serCtx, cancelSer := context.WithCancel(context.Background())
	defer cancelSer()
	serDone := make(chan error, 1)
	go func() { serDone <- ser.Run(serCtx) }()

	router := receiver.NewRouter(b, receiver.Options{
		Path:         cfg.Path,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Metrics:      m,
		Logger:       logger,
	})
	srv := receiver.NewServer(cfg.Addr, router, logger)
	if err := srv.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Bridge listening on http://%s%s\n", srv.Addr(), cfg.Path)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.OnListen != nil {
		opts.OnListen(srv.Addr())
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case serveErr = <-srv.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if serveErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown incomplete", "error", err)
		}
	}

	// Requests have drained; anything still queued is failed by the stop.
	ser.Stop()
	cancelSer()
	if err := <-serDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("serializer stopped with error", "error", err)
	}

	if serveErr != nil {
		return WrapExitError(ExitFailure, "http server error", serveErr)
	}
	logger.Info("bridge stopped gracefully")
	return nil
}

func applyStartupSeed(ctx context.Context, logger *slog.Logger, doc *docstore.Store, cfg config.Config) error {
	var fixture *seed.Seed
	switch {
	case cfg.Demo:
		fixture = seed.Demo()
	case cfg.Seed != "":
		s, err := seed.Load(cfg.Seed)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load seed", err)
		}
		fixture = s
	default:
		return nil
	}

	ids, err := seed.Apply(ctx, doc, fixture)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to apply seed", err)
	}
	logger.Info("seed applied", "name", fixture.Name, "elements", len(ids))
	return nil
}
