// Package report renders evaluation results for people and downstream tools:
// console text, JSON and YAML documents, the Power BI CSV export, and the
// per-owner HTML report used by the email sink.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dwsmith1983/guardian/pkg/types"
)

var kindTitles = map[types.ViolationKind]string{
	types.KindSLAResponseBreach:       "SLA response breach",
	types.KindSLAResolutionBreach:     "SLA resolution breach",
	types.KindMissingProcessSteps:     "Missing process steps",
	types.KindExcessiveReassignments:  "Excessive reassignments",
	types.KindMissingKnowledgeArticle: "Missing knowledge article",
	types.KindPoorSatisfaction:        "Poor customer satisfaction",
	types.KindMissingApprovals:        "Missing approvals",
	types.KindMissingTestingEvidence:  "Missing testing evidence",
	types.KindMissingRollbackPlan:     "Missing rollback plan",
	types.KindBlackoutViolation:       "Blackout window violation",
	types.KindMissingPIR:              "Missing post-implementation review",
	types.KindKBNotUpdated:            "Knowledge base not updated",
}

// Title returns a short human label for a violation kind.
func Title(k types.ViolationKind) string {
	if t, ok := kindTitles[k]; ok {
		return t
	}
	return string(k)
}

func hours(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Describe renders the structured detail of a violation as one line of text.
func Describe(v types.Violation) string {
	d := v.Detail
	switch v.Kind {
	case types.KindSLAResolutionBreach, types.KindSLAResponseBreach:
		s := fmt.Sprintf("Expected: %sh | Actual: %sh", hours(d.ExpectedHours), hours(d.ActualHours))
		if d.ExpectedHours != nil && d.ActualHours != nil {
			s += fmt.Sprintf(" | Exceeded by: %sh", strconv.FormatFloat(roundTo2(*d.ActualHours-*d.ExpectedHours), 'f', -1, 64))
		}
		if d.DeviationPct != nil {
			s += fmt.Sprintf(" (%s%% over SLA)", strconv.FormatFloat(*d.DeviationPct, 'f', 1, 64))
		}
		return s
	case types.KindMissingProcessSteps:
		s := "Missing steps: " + strings.Join(d.MissingSteps, ", ")
		if d.CompletionRate != nil {
			s += fmt.Sprintf(" (%s%% complete)", strconv.FormatFloat(*d.CompletionRate, 'f', 1, 64))
		}
		return s
	case types.KindExcessiveReassignments:
		if d.Count != nil && d.Limit != nil {
			return fmt.Sprintf("Reassigned %d times (maximum allowed: %d)", *d.Count, *d.Limit)
		}
	case types.KindMissingKnowledgeArticle:
		return fmt.Sprintf("Knowledge article required for %s priority incidents but not created", d.Priority)
	case types.KindPoorSatisfaction:
		return fmt.Sprintf("Customer rated the resolution %q", string(d.Satisfaction))
	case types.KindMissingApprovals:
		return fmt.Sprintf("Missing approvals: %s | Required: %s | Obtained: %s",
			list(d.MissingApprovals), list(d.RequiredApprovals), list(d.ObtainedApprovals))
	case types.KindMissingTestingEvidence:
		return fmt.Sprintf("Testing required for %s risk changes but not completed", d.RiskLevel)
	case types.KindMissingRollbackPlan:
		return "No rollback plan documented"
	case types.KindBlackoutViolation:
		return "Implemented during a blackout window"
	case types.KindMissingPIR:
		return "Post-implementation review not completed"
	case types.KindKBNotUpdated:
		return "Knowledge base not updated after the change"
	}
	return Title(v.Kind)
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
