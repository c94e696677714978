package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/guardian/internal/commands"
)

var version = "dev"

func main() {
	opts := &commands.Options{Version: version}

	root := &cobra.Command{
		Use:   "guardian",
		Short: "ITSM compliance deviation analysis",
		Long: `Guardian evaluates incident and change tickets against SLA and process
rules, groups deviations by accountable owner, flags open incidents that are
about to breach their SLA, and routes per-owner alerts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", ".", "Project directory or path to guardian.yaml")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewAnalyzeCmd(opts),
		commands.NewPredictCmd(opts),
		commands.NewRulesCmd(opts),
		commands.NewWatchCmd(opts),
		commands.NewVersionCmd(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
