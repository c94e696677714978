package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dwsmith1983/guardian/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var ownerTemplate = template.Must(template.New("owner.html.tmpl").Funcs(template.FuncMap{
	"title":    Title,
	"describe": Describe,
	"fmtTime":  func(t time.Time) string { return t.Format("Monday, January 2, 2006 at 15:04 MST") },
	"hoursLeft": func(h *float64) string {
		if h == nil {
			return "-"
		}
		return fmt.Sprintf("%.1f", *h)
	},
	"level": func(r types.EvaluationResult) string {
		if r.TicketType == types.TicketChange {
			return string(r.RiskLevel) + " risk"
		}
		return string(r.Priority)
	},
	"severityColor": func(s types.Severity) string {
		switch s {
		case types.SeverityCritical:
			return "#b91c1c"
		case types.SeverityHigh:
			return "#dc2626"
		case types.SeverityMedium:
			return "#d97706"
		}
		return "#2563eb"
	},
}).ParseFS(templateFS, "templates/owner.html.tmpl"))

// OwnerReport is the data behind one owner's HTML report.
type OwnerReport struct {
	RunID       string
	GeneratedAt time.Time
	Group       types.OwnerGroup
	AtRisk      []types.RiskStatus
}

// OwnerName is the display name of the report recipient.
func (o OwnerReport) OwnerName() string {
	if o.Group.Name != "" {
		return o.Group.Name
	}
	return o.Group.Key
}

// Findings returns only the non-compliant results of the group.
func (o OwnerReport) Findings() []types.EvaluationResult {
	var out []types.EvaluationResult
	for _, r := range o.Group.Results {
		if r.Status() == types.NonCompliant {
			out = append(out, r)
		}
	}
	return out
}

// RenderOwnerHTML writes the HTML report for one owner.
func RenderOwnerHTML(w io.Writer, o OwnerReport) error {
	if err := ownerTemplate.Execute(w, o); err != nil {
		return fmt.Errorf("rendering owner report for %s: %w", o.Group.Key, err)
	}
	return nil
}
