package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/dwsmith1983/guardian/pkg/types"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
)

func severityColor(s types.Severity) *color.Color {
	switch s {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case types.SeverityHigh:
		return red
	case types.SeverityMedium:
		return yellow
	default:
		return cyan
	}
}

// Print writes a human-readable report. Compliant tickets are listed only
// when all is set.
func Print(w io.Writer, rep types.Report, all bool) {
	s := rep.Summary

	_, _ = bold.Fprintf(w, "Compliance Report")
	fmt.Fprintf(w, "  run=%s", rep.RunID)
	if rep.RulesName != "" {
		fmt.Fprintf(w, "  rules=%s", rep.RulesName)
	}
	if rep.Degraded {
		_, _ = yellow.Fprint(w, "  (degraded: embedded defaults)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Generated: %s\n\n", rep.GeneratedAt.Format(time.RFC3339))

	_, _ = bold.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Tickets:        %d (%d incidents, %d changes)\n", s.Total, s.Incidents, s.Changes)
	status := green
	if s.NonCompliant > 0 {
		status = red
	}
	fmt.Fprintf(w, "  Non-compliant:  %s\n", status.Sprintf("%d (%.1f%%)", s.NonCompliant, s.DeviationRate))
	fmt.Fprintf(w, "  SLA breaches:   %d (%.1f%%)\n", s.SLABreaches, s.SLABreachRate)
	if s.MalformedCount > 0 {
		fmt.Fprintf(w, "  Malformed:      %s\n", yellow.Sprintf("%d skipped", s.MalformedCount))
	}
	fmt.Fprintln(w)

	if len(s.ByKind) > 0 {
		_, _ = bold.Fprintln(w, "Violations by kind:")
		for _, k := range sortedKinds(s.ByKind) {
			fmt.Fprintf(w, "  %-28s %d\n", k, s.ByKind[k])
		}
		fmt.Fprintln(w)
	}

	if len(s.TopOffenders) > 0 {
		_, _ = bold.Fprintln(w, "Top offenders:")
		for _, o := range s.TopOffenders {
			fmt.Fprintf(w, "  %-30s %d\n", displayName(o.Name, o.Email), o.Violations)
		}
		fmt.Fprintln(w)
	}

	printed := false
	for _, r := range rep.Results {
		if r.Status() == types.Compliant && !all {
			continue
		}
		if !printed {
			_, _ = bold.Fprintln(w, "Tickets:")
			printed = true
		}
		printResult(w, r)
	}
	if printed {
		fmt.Fprintln(w)
	}

	if len(rep.AtRisk) > 0 {
		_, _ = bold.Fprintln(w, "SLA risk:")
		PrintRisk(w, rep.AtRisk)
		fmt.Fprintln(w)
	}

	if len(s.Unassigned) > 0 {
		_, _ = yellow.Fprintf(w, "Tickets without an owner: %d\n", len(s.Unassigned))
		for _, id := range s.Unassigned {
			fmt.Fprintf(w, "  %s\n", id)
		}
		fmt.Fprintln(w)
	}

	for _, m := range s.Malformed {
		fmt.Fprintf(w, "  skipped %s: %s\n", malformedLabel(m), m.Reason)
	}
}

func printResult(w io.Writer, r types.EvaluationResult) {
	level := string(r.Priority)
	if r.TicketType == types.TicketChange {
		level = string(r.RiskLevel) + " risk"
	}
	mark := green.Sprint("✓")
	if r.Status() == types.NonCompliant {
		mark = red.Sprint("✗")
	}
	fmt.Fprintf(w, "  %s %-12s %-8s %-14s %-10s %s\n",
		mark, r.TicketID, r.TicketType, r.Category, level, displayName(r.Owner.TechnicianName, r.Owner.TechnicianEmail))
	for _, v := range r.Violations {
		fmt.Fprintf(w, "      %s %s: %s\n", severityColor(v.Severity).Sprintf("%-8s", v.Severity), Title(v.Kind), Describe(v))
	}
}

// PrintRisk writes one line per at-risk or breached incident.
func PrintRisk(w io.Writer, statuses []types.RiskStatus) {
	for _, st := range statuses {
		switch st.State {
		case types.RiskAtRisk:
			remaining := "?"
			if st.HoursRemaining != nil {
				remaining = fmt.Sprintf("%.1fh", *st.HoursRemaining)
			}
			fmt.Fprintf(w, "  %s %-12s %-8s remaining=%s deadline=%s\n",
				yellow.Sprint("AT_RISK "), st.TicketID, st.Priority, remaining, st.Deadline.Format(time.RFC3339))
		case types.RiskBreached:
			fmt.Fprintf(w, "  %s %-12s %-8s deadline=%s\n",
				red.Sprint("BREACHED"), st.TicketID, st.Priority, st.Deadline.Format(time.RFC3339))
		}
	}
}

func displayName(name, email string) string {
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case name != "":
		return name
	case email != "":
		return email
	}
	return "-"
}

func malformedLabel(m types.MalformedRecord) string {
	if m.TicketID != "" {
		return fmt.Sprintf("%s %s", m.Source, m.TicketID)
	}
	return fmt.Sprintf("%s line %d", m.Source, m.Line)
}

func sortedKinds(m map[types.ViolationKind]int) []types.ViolationKind {
	out := make([]types.ViolationKind, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
