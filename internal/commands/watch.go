package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/guardian/internal/bootstrap"
	"github.com/dwsmith1983/guardian/internal/server"
	"github.com/dwsmith1983/guardian/internal/telemetry"
	"github.com/dwsmith1983/guardian/internal/watcher"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd(opts *Options) *cobra.Command {
	var (
		addr     string
		noServer bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the analysis on a schedule and serve the latest report over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, addr, noServer)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Status server address (overrides server.addr)")
	cmd.Flags().BoolVar(&noServer, "no-server", false, "Do not start the status server")
	return cmd
}

func runWatch(opts *Options, addr string, noServer bool) error {
	ctx := context.Background()

	cfg, err := bootstrap.LoadConfig(ctx, opts.configPath())
	if err != nil {
		return err
	}
	logger := opts.loggerAt(os.Stderr, slog.LevelInfo)

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, opts.Version)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	runner, cleanup, err := bootstrap.NewRunner(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer cleanup()

	wcfg := types.WatcherConfig{RunOnStart: true}
	if cfg.Watcher != nil {
		wcfg = *cfg.Watcher
	}
	w, err := watcher.New(runner, wcfg, logger)
	if err != nil {
		return err
	}

	if addr == "" && cfg.Server != nil {
		addr = cfg.Server.Addr
	}
	var srv *server.Server
	if !noServer && addr != "" {
		srv = server.New(addr, w, logger)
	}

	w.Start(ctx)
	color.Green("Watching %d source(s) every %s", len(cfg.Sources), w.Status().Interval)

	// Graceful shutdown
	errCh := make(chan error, 1)
	if srv != nil {
		go func() {
			errCh <- srv.Start()
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		w.Stop(shutdownCtx)
		if srv != nil {
			if err := srv.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}
		return nil
	}

	select {
	case err := <-errCh:
		_ = shutdown()
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		if err := shutdown(); err != nil {
			return err
		}
		color.Green("Watcher stopped gracefully")
		return nil
	}
}
