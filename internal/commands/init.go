package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/guardian/internal/config"
	"github.com/dwsmith1983/guardian/internal/rules"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a guardian project",
		Long:  "Writes guardian.yaml, the default rule set, a change-freeze calendar and sample CSV exports.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing guardian.yaml")
	return cmd
}

func runInit(w io.Writer, dir string, force bool) error {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "Initializing guardian project in %s\n", dir)

	configPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	for _, sub := range []string{"rules", "calendars", "data"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", path, err)
		}
	}

	files := []struct {
		path    string
		content []byte
	}{
		{config.FileName, []byte(starterConfig)},
		{filepath.Join("rules", "itsm-rules.yaml"), rules.DefaultDocument()},
		{filepath.Join("calendars", "change-freeze.yaml"), []byte(starterCalendar)},
		{filepath.Join("data", "incidents.csv"), []byte(sampleIncidents)},
		{filepath.Join("data", "changes.csv"), []byte(sampleChanges)},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.path)
		if err := os.WriteFile(path, f.content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(w, "  created %s\n", path)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%s Project ready. Next: cd %s && guardian analyze\n", color.GreenString("✓"), dir)
	return nil
}

const starterConfig = `rules:
  path: ./rules
  fallbackToDefaults: true
calendarDirs:
  - ./calendars
blackoutCalendar: change-freeze
riskWindow: 2h
sources:
  - type: csv
    name: sample
    incidents: ./data/incidents.csv
    changes: ./data/changes.csv
alerts:
  - type: console
watcher:
  interval: 1h
  runOnStart: true
server:
  addr: ":8080"
`

const starterCalendar = `name: change-freeze
timezone: UTC
windows:
  - from: friday 18:00
    to: monday 06:00
lastWeekOfMonth: true
dates:
  - "2026-12-25"
  - "2027-01-01"
`

const sampleIncidents = `Incident_ID,Category,Priority,Description,Technician_Name,Technician_Email,Manager_Name,Manager_Email,Created_Date,Response_Date,Resolved_Date,Steps_Completed,Reassignment_Count,Knowledge_Article_Created,Customer_Satisfaction
INC0001,Network,Critical,Core router down,Ana Diaz,ana@example.com,Lee Park,lee@example.com,2026-03-02 09:00:00,2026-03-02 09:40:00,2026-03-02 15:00:00,Initial Assessment | Network Diagnostics,3,No,Dissatisfied
INC0002,Hardware,Low,Laptop fan noise,Bo Chen,bo@example.com,Lee Park,lee@example.com,2026-03-03 08:00:00,2026-03-03 08:30:00,2026-03-03 16:00:00,Initial Assessment | Hardware Diagnostics | Component Testing | Replacement/Repair | System Testing | Documentation | Closure,0,No,Satisfied
INC0003,Database,High,Slow reporting queries,Bo Chen,bo@example.com,Mo Reyes,mo@example.com,2026-03-04 10:00:00,2026-03-04 10:30:00,,Initial Assessment | Query Analysis,1,No,
`

const sampleChanges = `Change_ID,Type,Category,Risk_Level,Description,Technician_Name,Technician_Email,Manager_Name,Manager_Email,Actual_Implementation_Date,Obtained_Approvals,Testing_Required,Testing_Completed,Rollback_Plan_Documented,Implemented_During_Blackout,Post_Implementation_Review_Completed,Knowledge_Base_Updated
CHG0001,Normal,Application,Medium,Release 4.2,Ana Diaz,ana@example.com,Lee Park,lee@example.com,2026-03-04 14:00:00,Manager | CAB,No,No,Yes,,Yes,Yes
CHG0002,Emergency,Security,High,Hotfix TLS config,Bo Chen,bo@example.com,Mo Reyes,mo@example.com,2026-03-06 20:00:00,IT Director,Yes,No,No,,No,No
`
