// Package bootstrap turns a guardian.yaml into a ready analysis runner. It is
// shared by the CLI and the Lambda entry point.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dwsmith1983/guardian/internal/alert"
	"github.com/dwsmith1983/guardian/internal/analysis"
	"github.com/dwsmith1983/guardian/internal/calendar"
	"github.com/dwsmith1983/guardian/internal/config"
	"github.com/dwsmith1983/guardian/internal/engine"
	"github.com/dwsmith1983/guardian/internal/intake"
	"github.com/dwsmith1983/guardian/internal/rules"
	"github.com/dwsmith1983/guardian/internal/schedule"
	"github.com/dwsmith1983/guardian/pkg/types"
)

const defaultRulesTimeout = 10 * time.Second

// LoadConfig reads guardian.yaml from a directory or an explicit file path,
// then resolves credentials from Secrets Manager when configured.
func LoadConfig(ctx context.Context, path string) (*types.ProjectConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg *types.ProjectConfig
	if info.IsDir() {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Secrets != nil {
		client, err := config.NewSecretsClient(ctx, cfg.Secrets.Region)
		if err != nil {
			return nil, err
		}
		if err := config.ApplySecrets(ctx, cfg, client); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadCatalog resolves the configured rule source.
func LoadCatalog(ctx context.Context, rc types.RulesConfig, logger *slog.Logger) (*rules.Catalog, error) {
	timeout, err := schedule.ParseWindow(rc.Timeout, defaultRulesTimeout)
	if err != nil {
		return nil, fmt.Errorf("rules timeout: %w", err)
	}
	return rules.Load(ctx, rules.Source{
		Path:     rc.Path,
		URL:      rc.URL,
		TextPath: rc.TextPath,
		Timeout:  timeout,
		Fallback: rc.FallbackToDefaults,
		Logger:   logger,
	})
}

// LoadBlackout returns the named calendar, or the default change freeze when
// none is configured.
func LoadBlackout(cfg *types.ProjectConfig) (*calendar.Blackout, error) {
	if cfg.Blackout == "" {
		return calendar.Default(), nil
	}
	reg := calendar.NewRegistry()
	for _, dir := range cfg.CalendarDirs {
		if err := reg.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	b := reg.Get(cfg.Blackout)
	if b == nil {
		return nil, fmt.Errorf("blackout calendar %q not found in %v", cfg.Blackout, cfg.CalendarDirs)
	}
	return b, nil
}

// NewRunner wires config into an analysis runner with every configured
// source and alert sink. The returned cleanup closes the sinks.
func NewRunner(ctx context.Context, cfg *types.ProjectConfig, logger *slog.Logger, out io.Writer) (*analysis.Runner, func(), error) {
	catalog, err := LoadCatalog(ctx, cfg.Rules, logger)
	if err != nil {
		return nil, nil, err
	}

	blackout, err := LoadBlackout(cfg)
	if err != nil {
		return nil, nil, err
	}

	window, err := schedule.ParseWindow(cfg.RiskWindow, engine.DefaultRiskWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("risk window: %w", err)
	}

	opts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithBlackout(blackout),
		analysis.WithRiskWindow(window),
	}
	for _, sc := range cfg.Sources {
		src, err := intake.New(sc, intake.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("source %s: %w", config.SourceName(sc), err)
		}
		opts = append(opts, analysis.WithSource(src, sc.Retry))
	}

	dispatcher, err := alert.NewDispatcher(cfg.Alerts, alert.WithLogger(logger), alert.WithOutput(out))
	if err != nil {
		return nil, nil, fmt.Errorf("creating alert dispatcher: %w", err)
	}
	opts = append(opts, analysis.WithNotifier(dispatcher))

	cleanup := func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("closing alert sinks", "error", err)
		}
	}
	return analysis.New(catalog, opts...), cleanup, nil
}
