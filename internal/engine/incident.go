package engine

import "github.com/dwsmith1983/guardian/pkg/types"

// incidentCheck inspects one aspect of an incident. It returns nil when the
// incident complies.
type incidentCheck func(rec types.IncidentRecord, sla types.SLATarget, policy Policy) *types.Violation

// incidentChecks run in this order; the order only affects the violation list.
var incidentChecks = []incidentCheck{
	checkResolutionSLA,
	checkResponseSLA,
	checkProcessSteps,
	checkReassignments,
	checkKnowledgeArticle,
	checkSatisfaction,
}

// EvaluateIncident checks an incident against the policy. All checks are
// independent and cumulative. The only error is a missing SLA entry for the
// incident's priority.
func EvaluateIncident(rec types.IncidentRecord, policy Policy) (types.EvaluationResult, error) {
	sla, err := policy.SLA(rec.Priority)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	result := types.EvaluationResult{
		TicketID:   rec.ID,
		TicketType: types.TicketIncident,
		Category:   rec.Category,
		Priority:   rec.Priority,
		Owner:      rec.Owner,
		Violations: []types.Violation{},
	}
	for _, check := range incidentChecks {
		if v := check(rec, sla, policy); v != nil {
			result.Violations = append(result.Violations, *v)
		}
	}
	return result, nil
}

// checkResolutionSLA flags a resolved incident that took longer than its
// resolution target. Open incidents are left to PredictAtRisk.
func checkResolutionSLA(rec types.IncidentRecord, sla types.SLATarget, _ Policy) *types.Violation {
	actual, ok := rec.ResolutionHours()
	if !ok || actual <= sla.ResolutionHours {
		return nil
	}
	severity := types.SeverityMedium
	if rec.Priority == types.PriorityCritical || rec.Priority == types.PriorityHigh {
		severity = types.SeverityCritical
	}
	detail := overage(sla.ResolutionHours, actual)
	detail.Priority = rec.Priority
	return &types.Violation{Kind: types.KindSLAResolutionBreach, Severity: severity, Detail: detail}
}

// checkResponseSLA applies only where a response timestamp is tracked.
func checkResponseSLA(rec types.IncidentRecord, sla types.SLATarget, _ Policy) *types.Violation {
	actual, ok := rec.ResponseHours()
	if !ok || actual <= sla.ResponseHours {
		return nil
	}
	detail := overage(sla.ResponseHours, actual)
	detail.Priority = rec.Priority
	return &types.Violation{Kind: types.KindSLAResponseBreach, Severity: types.SeverityHigh, Detail: detail}
}

// checkProcessSteps reports required steps that were not completed, in the
// catalog's declared order. Categories without a configured process pass.
func checkProcessSteps(rec types.IncidentRecord, _ types.SLATarget, policy Policy) *types.Violation {
	required, ok := policy.RequiredSteps(rec.Category)
	if !ok || len(required) == 0 {
		return nil
	}
	missing := difference(required, rec.CompletedSteps)
	if len(missing) == 0 {
		return nil
	}
	done := len(required) - len(missing)
	return &types.Violation{
		Kind:     types.KindMissingProcessSteps,
		Severity: types.SeverityHigh,
		Detail: types.ViolationDetail{
			MissingSteps:   missing,
			CompletionRate: floatPtr(round(float64(done)/float64(len(required))*100, 1)),
		},
	}
}

// checkReassignments uses a strict bound: reaching the limit is allowed.
func checkReassignments(rec types.IncidentRecord, _ types.SLATarget, policy Policy) *types.Violation {
	limit := policy.MaxReassignments()
	if rec.ReassignmentCount <= limit {
		return nil
	}
	return &types.Violation{
		Kind:     types.KindExcessiveReassignments,
		Severity: types.SeverityMedium,
		Detail: types.ViolationDetail{
			Count: intPtr(rec.ReassignmentCount),
			Limit: intPtr(limit),
		},
	}
}

func checkKnowledgeArticle(rec types.IncidentRecord, _ types.SLATarget, policy Policy) *types.Violation {
	if !policy.KBRequired(rec.Priority) || rec.KnowledgeArticleCreated {
		return nil
	}
	return &types.Violation{
		Kind:     types.KindMissingKnowledgeArticle,
		Severity: types.SeverityMedium,
		Detail:   types.ViolationDetail{Priority: rec.Priority},
	}
}

func checkSatisfaction(rec types.IncidentRecord, _ types.SLATarget, _ Policy) *types.Violation {
	if rec.CustomerSatisfaction != types.SatisfactionDissatisfied {
		return nil
	}
	return &types.Violation{
		Kind:     types.KindPoorSatisfaction,
		Severity: types.SeverityHigh,
		Detail:   types.ViolationDetail{Satisfaction: rec.CustomerSatisfaction},
	}
}
