package lambda

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dwsmith1983/guardian/internal/aggregate"
	"github.com/dwsmith1983/guardian/pkg/types"
)

// AnalyzeResponse is the compact result returned to the scheduler.
type AnalyzeResponse struct {
	RunID          string  `json:"runId"`
	Rules          string  `json:"rules"`
	Degraded       bool    `json:"degraded,omitempty"`
	Total          int     `json:"total"`
	NonCompliant   int     `json:"nonCompliant"`
	DeviationRate  float64 `json:"deviationRate"`
	SLABreaches    int     `json:"slaBreaches"`
	AtRisk         int     `json:"atRisk"`
	Breached       int     `json:"breached"`
	MalformedCount int     `json:"malformedCount"`
	AlertsSent     int     `json:"alertsSent"`
}

// HandleScheduled runs one analysis for an EventBridge schedule tick. Alert
// delivery failures are logged and do not fail the invocation, so the
// scheduler does not retry a run whose report was already produced.
func HandleScheduled(ctx context.Context, d *Deps, event events.EventBridgeEvent) (AnalyzeResponse, error) {
	d.Logger.Info("scheduled analysis", "eventId", event.ID, "source", event.Source, "time", event.Time)

	rep, err := d.Analyzer.Run(ctx)
	if err != nil {
		d.Logger.Error("analysis failed", "eventId", event.ID, "error", err)
		return AnalyzeResponse{}, fmt.Errorf("analysis failed: %w", err)
	}

	resp := newResponse(rep)
	if d.Notify {
		n, err := d.Analyzer.Notify(ctx, rep)
		resp.AlertsSent = n
		if err != nil {
			d.Logger.Warn("alert delivery incomplete", "runId", rep.RunID, "sent", n, "error", err)
		}
	}

	d.Logger.Info("analysis complete",
		"runId", resp.RunID,
		"total", resp.Total,
		"nonCompliant", resp.NonCompliant,
		"atRisk", resp.AtRisk,
		"alerts", resp.AlertsSent,
	)
	return resp, nil
}

func newResponse(rep types.Report) AnalyzeResponse {
	counts := aggregate.CountByState(rep.AtRisk)
	return AnalyzeResponse{
		RunID:          rep.RunID,
		Rules:          rep.RulesName,
		Degraded:       rep.Degraded,
		Total:          rep.Summary.Total,
		NonCompliant:   rep.Summary.NonCompliant,
		DeviationRate:  rep.Summary.DeviationRate,
		SLABreaches:    rep.Summary.SLABreaches,
		AtRisk:         counts[types.RiskAtRisk],
		Breached:       counts[types.RiskBreached],
		MalformedCount: rep.Summary.MalformedCount,
	}
}
