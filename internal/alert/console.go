package alert

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dwsmith1983/guardian/internal/report"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// ConsoleSink prints a headline per owner followed by one line per finding.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Name returns the sink identifier.
func (s *ConsoleSink) Name() string { return "console" }

// Send writes the owner headline and the tickets behind it.
func (s *ConsoleSink) Send(_ context.Context, alert types.Alert) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s\n", levelTag(alert.Level), ownerLabel(alert), alert.Message)

	for _, r := range alert.NonCompliant {
		titles := make([]string, 0, len(r.Violations))
		for _, v := range r.Violations {
			titles = append(titles, report.Title(v.Kind))
		}
		fmt.Fprintf(&b, "    %s: %s\n", r.TicketID, strings.Join(titles, ", "))
	}
	for _, st := range alert.AtRisk {
		fmt.Fprintf(&b, "    %s: %s", st.TicketID, st.State)
		if st.HoursRemaining != nil {
			fmt.Fprintf(&b, " (%.1fh remaining)", *st.HoursRemaining)
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(s.w, b.String())
	return err
}

func levelTag(l types.AlertLevel) string {
	switch l {
	case types.AlertLevelError:
		return color.RedString("[ERROR]")
	case types.AlertLevelWarning:
		return color.YellowString("[WARN]")
	default:
		return color.CyanString("[INFO]")
	}
}

func ownerLabel(alert types.Alert) string {
	if alert.OwnerName != "" && alert.OwnerName != alert.OwnerKey {
		return fmt.Sprintf("%s (%s)", alert.OwnerName, alert.OwnerKey)
	}
	return alert.OwnerKey
}
