package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/guardian/internal/rules"
	"github.com/dwsmith1983/guardian/pkg/types"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	v := t0.Add(d)
	return &v
}

func testCatalog(t *testing.T) *rules.Catalog {
	t.Helper()
	limit := 2
	cat, err := rules.New(types.RuleDocument{
		Name: "test",
		SLA: map[types.Priority]types.SLATarget{
			types.PriorityCritical: {ResponseHours: 0.25, ResolutionHours: 4},
			types.PriorityHigh:     {ResponseHours: 1, ResolutionHours: 12},
			types.PriorityMedium:   {ResponseHours: 4, ResolutionHours: 48},
			types.PriorityLow:      {ResponseHours: 8, ResolutionHours: 96},
		},
		RequiredSteps: map[string][]string{
			"Network": {"A", "B", "C", "D"},
		},
		RequiredApprovals: map[types.ChangeType][]string{
			types.ChangeStandard:  {"Pre-Approved"},
			types.ChangeNormal:    {"Manager", "CAB"},
			types.ChangeEmergency: {"IT Director", "ECAB"},
		},
		MaxReassignments:          &limit,
		KBRequiredPriorities:      []types.Priority{types.PriorityCritical, types.PriorityHigh},
		TestingRequiredRiskLevels: []types.RiskLevel{types.RiskCritical, types.RiskHigh},
	})
	require.NoError(t, err)
	return cat
}

// compliantIncident satisfies every incident check under testCatalog.
func compliantIncident() types.IncidentRecord {
	return types.IncidentRecord{
		ID:                      "INC-1",
		Category:                "Network",
		Priority:                types.PriorityCritical,
		CreatedAt:               t0,
		ResponseAt:              at(10 * time.Minute),
		ResolvedAt:              at(3 * time.Hour),
		CompletedSteps:          []string{"A", "B", "C", "D"},
		ReassignmentCount:       0,
		KnowledgeArticleCreated: true,
		CustomerSatisfaction:    types.SatisfactionSatisfied,
		Owner:                   types.Owner{TechnicianName: "Ana", ManagerEmail: "lead@example.com"},
	}
}

// compliantChange satisfies every change check under testCatalog.
func compliantChange() types.ChangeRecord {
	return types.ChangeRecord{
		ID:                                "CHG-1",
		ChangeType:                        types.ChangeNormal,
		RiskLevel:                         types.RiskHigh,
		Category:                          "Network",
		ObtainedApprovals:                 []string{"Manager", "CAB"},
		TestingRequired:                   true,
		TestingCompleted:                  true,
		RollbackPlanDocumented:            true,
		PostImplementationReviewCompleted: true,
		KnowledgeBaseUpdated:              true,
	}
}

func kinds(r types.EvaluationResult) []types.ViolationKind {
	out := make([]types.ViolationKind, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Kind)
	}
	return out
}

func find(r types.EvaluationResult, kind types.ViolationKind) *types.Violation {
	for i := range r.Violations {
		if r.Violations[i].Kind == kind {
			return &r.Violations[i]
		}
	}
	return nil
}
