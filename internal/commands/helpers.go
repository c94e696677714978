// Package commands implements the CLI subcommands for the guardian binary.
package commands

import (
	"io"
	"log/slog"
)

// Options holds the persistent flags shared by every subcommand.
type Options struct {
	ConfigPath string
	Verbose    bool
	Version    string
}

func (o *Options) logger(w io.Writer) *slog.Logger {
	return o.loggerAt(w, slog.LevelWarn)
}

// loggerAt logs at level, or at debug with --verbose.
func (o *Options) loggerAt(w io.Writer, level slog.Level) *slog.Logger {
	if o != nil && o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *Options) configPath() string {
	if o == nil || o.ConfigPath == "" {
		return "."
	}
	return o.ConfigPath
}
