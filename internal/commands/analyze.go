package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/guardian/internal/bootstrap"
	"github.com/dwsmith1983/guardian/internal/report"
	"github.com/dwsmith1983/guardian/internal/telemetry"
	"github.com/dwsmith1983/guardian/pkg/types"
)

const analyzeTimeout = 10 * time.Minute

type analyzeFlags struct {
	output     string
	all        bool
	exportPath string
	notify     bool
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd(opts *Options) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Evaluate every configured ticket source against the compliance rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, f)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "human", "Output format: human, json or yaml")
	cmd.Flags().BoolVar(&f.all, "all", false, "List compliant tickets as well as findings")
	cmd.Flags().StringVar(&f.exportPath, "export", "", "Also write the per-ticket results as CSV to this path")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "Send per-owner alerts through the configured sinks")
	return cmd
}

func runAnalyze(ctx context.Context, out, errOut io.Writer, opts *Options, f analyzeFlags) error {
	format, err := report.ParseFormat(f.output)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	cfg, err := bootstrap.LoadConfig(ctx, opts.configPath())
	if err != nil {
		return err
	}
	logger := opts.logger(errOut)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, opts.Version)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	runner, cleanup, err := bootstrap.NewRunner(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer cleanup()

	stop := startSpinner(errOut, format == report.FormatHuman, " Fetching and evaluating tickets...")
	rep, err := runner.Run(ctx)
	stop()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if format == report.FormatHuman {
		report.Print(out, rep, f.all)
	} else if err := report.Write(out, rep, format); err != nil {
		return err
	}

	if f.exportPath != "" {
		if err := exportResults(f.exportPath, rep.Results, rep.GeneratedAt); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(errOut, "%s Exported %d results to %s\n", color.GreenString("✓"), len(rep.Results), f.exportPath)
	}

	if f.notify {
		n, err := runner.Notify(ctx, rep)
		if err != nil {
			return fmt.Errorf("dispatching alerts: %w", err)
		}
		_, _ = fmt.Fprintf(errOut, "%s Dispatched %d owner alerts\n", color.GreenString("✓"), n)
	}
	return nil
}

func exportResults(path string, results []types.EvaluationResult, at time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	if err := report.ExportCSV(f, results, at); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// startSpinner shows progress on interactive terminals and returns the stop
// func. It is a no-op when disabled or when color output is off.
func startSpinner(w io.Writer, enabled bool, suffix string) func() {
	if !enabled || color.NoColor {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}
