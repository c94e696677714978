package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/guardian/internal/aggregate"
	"github.com/dwsmith1983/guardian/internal/bootstrap"
	"github.com/dwsmith1983/guardian/internal/report"
)

// NewPredictCmd creates the predict command.
func NewPredictCmd(opts *Options) *cobra.Command {
	var (
		output string
		window string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "List open incidents that have breached or are about to breach their SLA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, output, window)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format: human, json or yaml")
	cmd.Flags().StringVar(&window, "window", "", "Risk window, e.g. 90m (overrides riskWindow)")
	return cmd
}

func runPredict(ctx context.Context, out, errOut io.Writer, opts *Options, output, window string) error {
	format, err := report.ParseFormat(output)
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
	if window != "" {
		cfg.RiskWindow = window
	}

	runner, cleanup, err := bootstrap.NewRunner(ctx, cfg, opts.logger(errOut), out)
	if err != nil {
		return err
	}
	defer cleanup()

	stop := startSpinner(errOut, format == report.FormatHuman, " Scanning open incidents...")
	statuses, err := runner.Predict(ctx)
	stop()
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	if format == report.FormatHuman {
		report.PrintRisk(out, statuses)
		return nil
	}
	return report.Write(out, map[string]any{
		"counts": aggregate.CountByState(statuses),
		"atRisk": statuses,
	}, format)
}
