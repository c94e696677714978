package engine

import "github.com/dwsmith1983/guardian/pkg/types"

type changeCheck func(rec types.ChangeRecord, required []string, policy Policy) *types.Violation

var changeChecks = []changeCheck{
	checkApprovals,
	checkTestingEvidence,
	checkRollbackPlan,
	checkBlackout,
	checkPostImplementationReview,
	checkKnowledgeBase,
}

// EvaluateChange checks a change request against the policy. The only error
// is a change type with no approval entry in the catalog.
func EvaluateChange(rec types.ChangeRecord, policy Policy) (types.EvaluationResult, error) {
	required, err := policy.RequiredApprovals(rec.ChangeType)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	result := types.EvaluationResult{
		TicketID:   rec.ID,
		TicketType: types.TicketChange,
		Category:   rec.Category,
		RiskLevel:  rec.RiskLevel,
		Owner:      rec.Owner,
		Violations: []types.Violation{},
	}
	for _, check := range changeChecks {
		if v := check(rec, required, policy); v != nil {
			result.Violations = append(result.Violations, *v)
		}
	}
	return result, nil
}

// checkApprovals carries the full required and obtained sets for audit.
func checkApprovals(rec types.ChangeRecord, required []string, _ Policy) *types.Violation {
	missing := difference(required, rec.ObtainedApprovals)
	if len(missing) == 0 {
		return nil
	}
	return &types.Violation{
		Kind:     types.KindMissingApprovals,
		Severity: types.SeverityCritical,
		Detail: types.ViolationDetail{
			MissingApprovals:  missing,
			RequiredApprovals: required,
			ObtainedApprovals: append([]string{}, rec.ObtainedApprovals...),
		},
	}
}

func checkTestingEvidence(rec types.ChangeRecord, _ []string, policy Policy) *types.Violation {
	if !policy.TestingRequired(rec.RiskLevel) || !rec.TestingRequired || rec.TestingCompleted {
		return nil
	}
	return &types.Violation{
		Kind:     types.KindMissingTestingEvidence,
		Severity: types.SeverityHigh,
		Detail:   types.ViolationDetail{RiskLevel: rec.RiskLevel},
	}
}

// checkRollbackPlan applies to every change regardless of risk.
func checkRollbackPlan(rec types.ChangeRecord, _ []string, _ Policy) *types.Violation {
	if rec.RollbackPlanDocumented {
		return nil
	}
	return &types.Violation{Kind: types.KindMissingRollbackPlan, Severity: types.SeverityHigh}
}

// checkBlackout consumes the boolean produced by the calendar collaborator.
func checkBlackout(rec types.ChangeRecord, _ []string, _ Policy) *types.Violation {
	if !rec.ImplementedDuringBlackout {
		return nil
	}
	return &types.Violation{Kind: types.KindBlackoutViolation, Severity: types.SeverityCritical}
}

func checkPostImplementationReview(rec types.ChangeRecord, _ []string, _ Policy) *types.Violation {
	if rec.PostImplementationReviewCompleted {
		return nil
	}
	return &types.Violation{Kind: types.KindMissingPIR, Severity: types.SeverityMedium}
}

func checkKnowledgeBase(rec types.ChangeRecord, _ []string, _ Policy) *types.Violation {
	if rec.KnowledgeBaseUpdated {
		return nil
	}
	return &types.Violation{Kind: types.KindKBNotUpdated, Severity: types.SeverityMedium}
}
