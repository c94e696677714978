// Package engine evaluates incident and change records against a compliance
// policy. Evaluation is pure: no I/O, no shared state, and the same inputs
// always produce structurally equal results.
package engine

import (
	"math"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// Policy is the read-only view of the rule catalog the evaluators consume.
// *rules.Catalog satisfies it.
type Policy interface {
	SLA(p types.Priority) (types.SLATarget, error)
	RequiredSteps(category string) ([]string, bool)
	RequiredApprovals(ct types.ChangeType) ([]string, error)
	MaxReassignments() int
	KBRequired(p types.Priority) bool
	TestingRequired(r types.RiskLevel) bool
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

// overage builds the expected/actual/deviation detail of an SLA breach.
func overage(expected, actual float64) types.ViolationDetail {
	d := types.ViolationDetail{
		ExpectedHours: floatPtr(expected),
		ActualHours:   floatPtr(round(actual, 2)),
	}
	if expected > 0 {
		d.DeviationPct = floatPtr(round((actual-expected)/expected*100, 1))
	}
	return d
}

// difference returns the members of required absent from have, in the order
// of required. Matching is exact.
func difference(required, have []string) []string {
	present := make(map[string]bool, len(have))
	for _, h := range have {
		present[h] = true
	}
	var missing []string
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}
