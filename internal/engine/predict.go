package engine

import (
	"time"

	"github.com/dwsmith1983/guardian/internal/schedule"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// DefaultRiskWindow is the lead time used when PredictAtRisk gets a zero window.
const DefaultRiskWindow = 2 * time.Hour

// PredictAtRisk scans incidents for SLA risk at the given instant. Open
// incidents with less than window left before their resolution deadline are
// AT_RISK; an open incident already past its deadline is AT_RISK with
// negative hours remaining. Resolved incidents that finished after the
// deadline are BREACHED. Output follows input order.
func PredictAtRisk(records []types.IncidentRecord, policy Policy, now time.Time, window time.Duration) ([]types.RiskStatus, error) {
	if window <= 0 {
		window = DefaultRiskWindow
	}

	var out []types.RiskStatus
	for _, rec := range records {
		sla, err := policy.SLA(rec.Priority)
		if err != nil {
			return nil, err
		}

		check := schedule.CheckResolution(rec.CreatedAt, rec.ResolvedAt, sla.ResolutionHours, now, window)
		status := types.RiskStatus{
			TicketID: rec.ID,
			Category: rec.Category,
			Priority: rec.Priority,
			Deadline: check.Deadline,
			Owner:    rec.Owner,
		}

		switch {
		case rec.ResolvedAt == nil && (check.AtRisk || check.Breached):
			status.State = types.RiskAtRisk
			status.HoursRemaining = floatPtr(round(check.Remaining.Hours(), 1))
		case rec.ResolvedAt != nil && check.Breached:
			status.State = types.RiskBreached
		default:
			continue
		}
		out = append(out, status)
	}
	return out, nil
}
