// Package lambda holds the shared wiring of the scheduled analyzer Lambda.
package lambda

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dwsmith1983/guardian/internal/bootstrap"
	"github.com/dwsmith1983/guardian/internal/telemetry"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// DefaultConfigPath is where the deployment package places guardian.yaml.
const DefaultConfigPath = "/var/task/guardian.yaml"

// Analyzer is the part of *analysis.Runner the handler drives.
type Analyzer interface {
	Run(ctx context.Context) (types.Report, error)
	Notify(ctx context.Context, rep types.Report) (int, error)
}

// Deps holds shared dependencies for Lambda handlers.
type Deps struct {
	Analyzer Analyzer
	Notify   bool
	Logger   *slog.Logger

	cleanup  func()
	shutdown telemetry.Shutdown
}

// Close releases alert sinks and flushes telemetry.
func (d *Deps) Close(ctx context.Context) error {
	if d.cleanup != nil {
		d.cleanup()
	}
	if d.shutdown != nil {
		return d.shutdown(ctx)
	}
	return nil
}

// Init creates shared dependencies from environment variables.
// Reads: GUARDIAN_CONFIG, GUARDIAN_NOTIFY, plus the GUARDIAN_* overrides
// applied by config.ApplyEnv.
func Init(ctx context.Context, version string) (*Deps, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	notify, err := strconv.ParseBool(envOrDefault("GUARDIAN_NOTIFY", "true"))
	if err != nil {
		return nil, fmt.Errorf("GUARDIAN_NOTIFY: %w", err)
	}

	cfg, err := bootstrap.LoadConfig(ctx, envOrDefault("GUARDIAN_CONFIG", DefaultConfigPath))
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}

	// Console output lands in CloudWatch Logs next to the JSON log lines.
	runner, cleanup, err := bootstrap.NewRunner(ctx, cfg, logger, os.Stdout)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return &Deps{
		Analyzer: runner,
		Notify:   notify,
		Logger:   logger,
		cleanup:  cleanup,
		shutdown: shutdown,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
