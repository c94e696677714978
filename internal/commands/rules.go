package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/guardian/internal/bootstrap"
	"github.com/dwsmith1983/guardian/internal/report"
	"github.com/dwsmith1983/guardian/internal/rules"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// NewRulesCmd creates the rules command group.
func NewRulesCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate compliance rule sets",
	}
	cmd.AddCommand(newRulesShowCmd(opts), newRulesValidateCmd(opts))
	return cmd
}

func newRulesShowCmd(opts *Options) *cobra.Command {
	var (
		output   string
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective rule catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}
			if format == report.FormatHuman {
				format = report.FormatYAML
			}

			cat := rules.Defaults()
			if !defaults {
				cat, err = configuredCatalog(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}
			return report.Write(cmd.OutOrStdout(), cat.Document(), format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: json or yaml")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Show the embedded defaults instead of the configured rules")
	return cmd
}

func newRulesValidateCmd(opts *Options) *cobra.Command {
	var textPath string

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a rule file or directory, or the configured rule source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cat *rules.Catalog
				err error
			)
			if len(args) == 1 {
				cat, err = rules.Load(cmd.Context(), rules.Source{
					Path:     args[0],
					TextPath: textPath,
					Logger:   opts.logger(cmd.ErrOrStderr()),
				})
			} else {
				cat, err = configuredCatalog(cmd.Context(), opts, cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}

	cmd.Flags().StringVar(&textPath, "text", "", "Plain-text step overlay to apply")
	return cmd
}

// configuredCatalog loads the rule source named in guardian.yaml. Fallback
// is disabled so that a broken source is reported rather than masked.
func configuredCatalog(ctx context.Context, opts *Options, errOut io.Writer) (*rules.Catalog, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := bootstrap.LoadConfig(ctx, opts.configPath())
	if err != nil {
		return nil, err
	}
	rc := cfg.Rules
	rc.FallbackToDefaults = false
	return bootstrap.LoadCatalog(ctx, rc, opts.logger(errOut))
}

func printCatalog(w io.Writer, cat *rules.Catalog) {
	bold := color.New(color.Bold)
	doc := cat.Document()

	_, _ = fmt.Fprintf(w, "%s Rules %s are valid (%s)\n", color.GreenString("✓"), bold.Sprint(cat.Name()), cat.Source())
	_, _ = fmt.Fprintf(w, "  SLA priorities:    %d\n", len(doc.SLA))
	_, _ = fmt.Fprintf(w, "  Step categories:   %d\n", len(cat.Categories()))
	_, _ = fmt.Fprintf(w, "  Change types:      %d\n", len(doc.RequiredApprovals))
	_, _ = fmt.Fprintf(w, "  Max reassignments: %d\n", cat.MaxReassignments())
	for _, p := range types.Priorities {
		sla, err := cat.SLA(p)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %-9s response %gh, resolution %gh\n", p, sla.ResponseHours, sla.ResolutionHours)
	}
}
