// Package config handles loading and validation of guardian.yaml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// FileName is the project configuration file looked up in a directory.
const FileName = "guardian.yaml"

// Load reads and parses guardian.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads a configuration file, applies GUARDIAN_* environment
// overrides and validates the result. Relative paths in the file are
// resolved against the file's directory.
func LoadFile(path string) (*types.ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	resolvePaths(&cfg, filepath.Dir(path))
	ApplyEnv(&cfg, NewEnv())

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func resolvePaths(cfg *types.ProjectConfig, base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	cfg.Rules.Path = abs(cfg.Rules.Path)
	cfg.Rules.TextPath = abs(cfg.Rules.TextPath)
	for i := range cfg.CalendarDirs {
		cfg.CalendarDirs[i] = abs(cfg.CalendarDirs[i])
	}
	for i := range cfg.Sources {
		cfg.Sources[i].Incidents = abs(cfg.Sources[i].Incidents)
		cfg.Sources[i].Changes = abs(cfg.Sources[i].Changes)
	}
	for i := range cfg.Alerts {
		cfg.Alerts[i].Path = abs(cfg.Alerts[i].Path)
	}
}

// Validate checks a parsed configuration. All problems are reported together.
func Validate(cfg *types.ProjectConfig) error {
	var errs []error

	if len(cfg.Sources) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}
	names := make(map[string]bool)
	for i, src := range cfg.Sources {
		name := SourceName(src)
		if names[name] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate source name %q", i, name))
		}
		names[name] = true
		errs = append(errs, validateSource(i, src)...)
	}

	for i, a := range cfg.Alerts {
		switch a.Type {
		case types.AlertConsole, types.AlertWebhook, types.AlertFile, types.AlertEmail, types.AlertSQS, types.AlertEventBridge:
		default:
			errs = append(errs, fmt.Errorf("alerts[%d]: unknown alert type %q", i, a.Type))
		}
	}

	if cfg.Blackout != "" && len(cfg.CalendarDirs) == 0 {
		errs = append(errs, fmt.Errorf("blackoutCalendar %q requires at least one calendarDir", cfg.Blackout))
	}

	errs = append(errs, checkDuration("riskWindow", cfg.RiskWindow))
	errs = append(errs, checkDuration("rules.timeout", cfg.Rules.Timeout))
	if cfg.Watcher != nil {
		if cfg.Watcher.Interval == "" {
			errs = append(errs, errors.New("watcher.interval is required"))
		}
		errs = append(errs, checkDuration("watcher.interval", cfg.Watcher.Interval))
	}
	if cfg.Secrets != nil && cfg.Secrets.SecretID == "" {
		errs = append(errs, errors.New("secrets.secretId is required"))
	}
	return errors.Join(errs...)
}

func validateSource(i int, src types.SourceConfig) []error {
	var errs []error
	switch src.Type {
	case types.SourceCSV:
		if src.Incidents == "" && src.Changes == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: csv source needs incidents or changes", i))
		}
	case types.SourceJira, types.SourceServiceNow:
		if src.BaseURL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: %s source needs baseUrl", i, src.Type))
		}
		if src.Type == types.SourceJira && src.Project == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: jira source needs project", i))
		}
	default:
		errs = append(errs, fmt.Errorf("sources[%d]: unknown source type %q", i, src.Type))
	}
	if src.LookbackDays < 0 {
		errs = append(errs, fmt.Errorf("sources[%d]: lookbackDays must not be negative", i))
	}
	if src.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("sources[%d]: rateLimit must not be negative", i))
	}
	if src.Retry != nil && src.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("sources[%d]: retry.maxAttempts must be at least 1", i))
	}
	errs = append(errs, checkDuration(fmt.Sprintf("sources[%d].timeout", i), src.Timeout))
	return errs
}

func checkDuration(field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive", field)
	}
	return nil
}

// SourceName is the configured name of a source, defaulting to its type.
func SourceName(src types.SourceConfig) string {
	if src.Name != "" {
		return src.Name
	}
	return string(src.Type)
}

// envKey turns a source name into an environment-safe key segment.
func envKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, name)
}
