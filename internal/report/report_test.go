package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/guardian/pkg/types"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }

var genAt = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func sampleReport() types.Report {
	owner := types.Owner{TechnicianName: "Ana Diaz", TechnicianEmail: "ana@example.com", ManagerName: "Lee", ManagerEmail: "lee@example.com"}
	incident := types.EvaluationResult{
		TicketID:   "INC-1",
		TicketType: types.TicketIncident,
		Category:   "Network",
		Priority:   types.PriorityCritical,
		Owner:      owner,
		Violations: []types.Violation{
			{Kind: types.KindSLAResolutionBreach, Severity: types.SeverityCritical, Detail: types.ViolationDetail{ExpectedHours: f(4), ActualHours: f(6), DeviationPct: f(50), Priority: types.PriorityCritical}},
			{Kind: types.KindMissingProcessSteps, Severity: types.SeverityHigh, Detail: types.ViolationDetail{MissingSteps: []string{"B", "D"}, CompletionRate: f(50)}},
		},
	}
	change := types.EvaluationResult{
		TicketID:   "CHG-1",
		TicketType: types.TicketChange,
		Category:   "Security",
		RiskLevel:  types.RiskHigh,
		Owner:      owner,
		Violations: []types.Violation{},
	}
	return types.Report{
		RunID:       "01HRUN",
		RulesName:   "itsm-default",
		GeneratedAt: genAt,
		Results:     []types.EvaluationResult{incident, change},
		AtRisk: []types.RiskStatus{
			{TicketID: "INC-7", Priority: types.PriorityHigh, State: types.RiskAtRisk, Deadline: genAt.Add(time.Hour), HoursRemaining: f(1)},
			{TicketID: "INC-1", Priority: types.PriorityCritical, State: types.RiskBreached, Deadline: genAt.Add(-time.Hour)},
		},
		Summary: types.Summary{
			Total:          2,
			Incidents:      1,
			Changes:        1,
			NonCompliant:   1,
			DeviationRate:  50,
			SLABreaches:    1,
			SLABreachRate:  50,
			ByKind:         map[types.ViolationKind]int{types.KindSLAResolutionBreach: 1, types.KindMissingProcessSteps: 1},
			TopOffenders:   []types.OwnerCount{{Name: "Ana Diaz", Email: "ana@example.com", Violations: 2}},
			Unassigned:     []string{"INC-9"},
			Malformed:      []types.MalformedRecord{{Source: types.SourceCSV, Line: 4, Reason: "Priority: unknown priority \"Urgent\""}},
			MalformedCount: 1,
		},
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		v    types.Violation
		want string
	}{
		{
			"resolution breach",
			types.Violation{Kind: types.KindSLAResolutionBreach, Detail: types.ViolationDetail{ExpectedHours: f(4), ActualHours: f(6.25), DeviationPct: f(56.3)}},
			"Expected: 4h | Actual: 6.25h | Exceeded by: 2.25h (56.3% over SLA)",
		},
		{
			"missing steps",
			types.Violation{Kind: types.KindMissingProcessSteps, Detail: types.ViolationDetail{MissingSteps: []string{"B", "D"}, CompletionRate: f(50)}},
			"Missing steps: B, D (50.0% complete)",
		},
		{
			"reassignments",
			types.Violation{Kind: types.KindExcessiveReassignments, Detail: types.ViolationDetail{Count: n(3), Limit: n(2)}},
			"Reassigned 3 times (maximum allowed: 2)",
		},
		{
			"approvals",
			types.Violation{Kind: types.KindMissingApprovals, Detail: types.ViolationDetail{MissingApprovals: []string{"CAB"}, RequiredApprovals: []string{"Manager", "CAB"}, ObtainedApprovals: []string{"Manager"}}},
			"Missing approvals: CAB | Required: Manager, CAB | Obtained: Manager",
		},
		{
			"approvals none obtained",
			types.Violation{Kind: types.KindMissingApprovals, Detail: types.ViolationDetail{MissingApprovals: []string{"CAB"}, RequiredApprovals: []string{"CAB"}}},
			"Missing approvals: CAB | Required: CAB | Obtained: none",
		},
		{
			"knowledge article",
			types.Violation{Kind: types.KindMissingKnowledgeArticle, Detail: types.ViolationDetail{Priority: types.PriorityHigh}},
			"Knowledge article required for High priority incidents but not created",
		},
		{
			"testing",
			types.Violation{Kind: types.KindMissingTestingEvidence, Detail: types.ViolationDetail{RiskLevel: types.RiskCritical}},
			"Testing required for Critical risk changes but not completed",
		},
		{"blackout", types.Violation{Kind: types.KindBlackoutViolation}, "Implemented during a blackout window"},
		{"unknown kind", types.Violation{Kind: "NEW_KIND"}, "NEW_KIND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.v))
		})
	}
}

func TestTitle_CoversEveryKind(t *testing.T) {
	kinds := []types.ViolationKind{
		types.KindSLAResponseBreach, types.KindSLAResolutionBreach, types.KindMissingProcessSteps,
		types.KindExcessiveReassignments, types.KindMissingKnowledgeArticle, types.KindPoorSatisfaction,
		types.KindMissingApprovals, types.KindMissingTestingEvidence, types.KindMissingRollbackPlan,
		types.KindBlackoutViolation, types.KindMissingPIR, types.KindKBNotUpdated,
	}
	for _, k := range kinds {
		assert.NotEqual(t, string(k), Title(k), k)
	}
}

func TestPrint(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	Print(&buf, sampleReport(), false)
	out := buf.String()

	assert.Contains(t, out, "run=01HRUN")
	assert.Contains(t, out, "rules=itsm-default")
	assert.Contains(t, out, "Non-compliant:  1 (50.0%)")
	assert.Contains(t, out, "INC-1")
	assert.Contains(t, out, "Missing steps: B, D")
	assert.NotContains(t, out, "CHG-1", "compliant tickets hidden by default")
	assert.Contains(t, out, "INC-7")
	assert.Contains(t, out, "remaining=1.0h")
	assert.Contains(t, out, "Tickets without an owner: 1")
	assert.Contains(t, out, "skipped csv line 4")

	buf.Reset()
	Print(&buf, sampleReport(), true)
	assert.Contains(t, buf.String(), "CHG-1")
}

func TestWrite_JSONAndYAML(t *testing.T) {
	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rep, FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "01HRUN", decoded["runId"])
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total"])

	buf.Reset()
	require.NoError(t, Write(&buf, rep, FormatYAML))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &y))
	assert.Equal(t, "01HRUN", y["runId"])

	results := y["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "INC-1", first["ticketId"])
	assert.Equal(t, "Incident", first["ticketType"])
	assert.NotContains(t, first, "riskLevel")

	violations := first["violations"].([]any)
	steps := violations[1].(map[string]any)["detail"].(map[string]any)
	keys := make([]string, 0, len(steps))
	for k := range steps {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"missingSteps", "completionRate"}, keys)

	atRisk := y["atRisk"].([]any)
	assert.NotContains(t, atRisk[1].(map[string]any), "hoursRemaining")
	assert.NotContains(t, buf.String(), "null")
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "human", "json", "yaml"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	rep := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, rep.Results, rep.GeneratedAt))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportColumns, rows[0])
	assert.Equal(t, []string{"INC-1", "Incident", "Network", "Critical", "Ana Diaz", "2", "NON_COMPLIANT", "True", "True", "2026-03-31T12:00:00Z"}, rows[1])
	assert.Equal(t, []string{"CHG-1", "Change", "Security", "High", "Ana Diaz", "0", "COMPLIANT", "False", "False", "2026-03-31T12:00:00Z"}, rows[2])
}

func TestRenderOwnerHTML(t *testing.T) {
	rep := sampleReport()
	group := types.OwnerGroup{
		Key:          "lee@example.com",
		Name:         "Lee <Ops>",
		Email:        "lee@example.com",
		TicketCount:  2,
		NonCompliant: 1,
		Results:      rep.Results,
	}

	var buf bytes.Buffer
	require.NoError(t, RenderOwnerHTML(&buf, OwnerReport{RunID: rep.RunID, GeneratedAt: rep.GeneratedAt, Group: group, AtRisk: rep.AtRisk[:1]}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Lee &lt;Ops&gt;")
	assert.Contains(t, out, "INC-1")
	assert.NotContains(t, out, "CHG-1")
	assert.Contains(t, out, "SLA resolution breach")
	assert.Contains(t, out, "INC-7")
	assert.Contains(t, out, "Tuesday, March 31, 2026")
}
