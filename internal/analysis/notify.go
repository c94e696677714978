package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/dwsmith1983/guardian/internal/aggregate"
	"github.com/dwsmith1983/guardian/internal/metrics"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// Alerts builds one alert per owner group that has non-compliant tickets or
// tickets at SLA risk. Owners with nothing to report get no alert. Output
// follows the Summary's owner order.
func Alerts(rep types.Report) []types.Alert {
	risk := aggregate.GroupRisk(rep.AtRisk)

	var out []types.Alert
	for _, g := range rep.Summary.ByOwner {
		var findings []types.EvaluationResult
		for _, res := range g.Results {
			if res.Status() == types.NonCompliant {
				findings = append(findings, res)
			}
		}
		atRisk := risk[g.Key]
		if len(findings) == 0 && len(atRisk) == 0 {
			continue
		}

		out = append(out, types.Alert{
			AlertID:      ulid.Make().String(),
			RunID:        rep.RunID,
			Level:        alertLevel(findings, atRisk),
			OwnerKey:     g.Key,
			OwnerName:    g.Name,
			Recipient:    g.Email,
			Message:      fmt.Sprintf("%d of %d tickets non-compliant, %d at SLA risk", len(findings), g.TicketCount, len(atRisk)),
			NonCompliant: findings,
			AtRisk:       atRisk,
			TicketCount:  g.TicketCount,
			Timestamp:    rep.GeneratedAt,
		})
	}
	return out
}

// alertLevel is error when a critical violation or an overdue ticket is
// present, warning otherwise.
func alertLevel(findings []types.EvaluationResult, atRisk []types.RiskStatus) types.AlertLevel {
	for _, f := range findings {
		for _, v := range f.Violations {
			if v.Severity == types.SeverityCritical {
				return types.AlertLevelError
			}
		}
	}
	for _, st := range atRisk {
		if st.HoursRemaining != nil && *st.HoursRemaining < 0 {
			return types.AlertLevelError
		}
	}
	return types.AlertLevelWarning
}

// Notify dispatches the report's owner alerts. Every alert is attempted; the
// returned count is the number delivered without error.
func (r *Runner) Notify(ctx context.Context, rep types.Report) (int, error) {
	if r.notifier == nil {
		return 0, nil
	}
	ctx, span := r.tracer.Start(ctx, "analysis.Notify")
	defer span.End()

	var (
		sent int
		errs []error
	)
	for _, a := range Alerts(rep) {
		if err := r.notifier.Dispatch(ctx, a); err != nil {
			metrics.AlertsFailed.Inc()
			errs = append(errs, fmt.Errorf("owner %s: %w", a.OwnerKey, err))
			continue
		}
		metrics.AlertsDispatched.Inc()
		sent++
	}
	r.logger.Info("owner alerts dispatched", "run", rep.RunID, "sent", sent, "failed", len(errs))
	return sent, errors.Join(errs...)
}
