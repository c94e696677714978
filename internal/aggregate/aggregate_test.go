package aggregate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/guardian/pkg/types"
)

func result(id string, tt types.TicketType, category string, owner types.Owner, kinds ...types.ViolationKind) types.EvaluationResult {
	r := types.EvaluationResult{
		TicketID:   id,
		TicketType: tt,
		Category:   category,
		Owner:      owner,
		Violations: []types.Violation{},
	}
	for _, k := range kinds {
		r.Violations = append(r.Violations, types.Violation{Kind: k, Severity: types.SeverityHigh})
	}
	return r
}

var (
	ana  = types.Owner{TechnicianName: "Ana", TechnicianEmail: "ana@example.com", ManagerName: "Lee", ManagerEmail: "Lee@Example.com"}
	bo   = types.Owner{TechnicianName: "Bo", TechnicianEmail: "bo@example.com", ManagerName: "Lee", ManagerEmail: "lee@example.com"}
	cruz = types.Owner{TechnicianName: "Cruz", ManagerName: "Mo"}
)

func TestOwnerKey(t *testing.T) {
	tests := []struct {
		name    string
		owner   types.Owner
		want    string
		wantErr bool
	}{
		{"manager email wins", ana, "lee@example.com", false},
		{"manager name", cruz, "Mo", false},
		{"technician email", types.Owner{TechnicianName: "Ana", TechnicianEmail: "ANA@example.com"}, "ana@example.com", false},
		{"technician name", types.Owner{TechnicianName: " Ana "}, "Ana", false},
		{"blank", types.Owner{ManagerEmail: "  "}, UnassignedKey, true},
		{"zero", types.Owner{}, UnassignedKey, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OwnerKey(tt.owner)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.ErrMissingOwner))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSummarize_Counts(t *testing.T) {
	results := []types.EvaluationResult{
		result("INC-1", types.TicketIncident, "Network", ana, types.KindSLAResolutionBreach, types.KindMissingProcessSteps),
		result("INC-2", types.TicketIncident, "Network", bo),
		result("INC-3", types.TicketIncident, "Database", cruz, types.KindSLAResponseBreach),
		result("CHG-1", types.TicketChange, "Network", bo, types.KindMissingApprovals, types.KindMissingPIR, types.KindKBNotUpdated),
	}

	s := Summarize(results, nil)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Incidents)
	assert.Equal(t, 1, s.Changes)
	assert.Equal(t, 3, s.NonCompliant)
	assert.Equal(t, 75.0, s.DeviationRate)
	assert.Equal(t, 2, s.SLABreaches)
	assert.Equal(t, 50.0, s.SLABreachRate)

	assert.Equal(t, 1, s.ByKind[types.KindSLAResolutionBreach])
	assert.Equal(t, 1, s.ByKind[types.KindMissingApprovals])
	assert.Zero(t, s.ByKind[types.KindBlackoutViolation])

	assert.Equal(t, types.CategoryStats{Tickets: 3, Violations: 5, MeanViolations: 1.67}, s.ByCategory["Network"])
	assert.Equal(t, types.CategoryStats{Tickets: 1, Violations: 1, MeanViolations: 1}, s.ByCategory["Database"])
	assert.Empty(t, s.Unassigned)
	assert.Zero(t, s.MalformedCount)
}

func TestSummarize_OwnerGroups(t *testing.T) {
	results := []types.EvaluationResult{
		result("INC-1", types.TicketIncident, "Network", ana, types.KindMissingPIR),
		result("INC-2", types.TicketIncident, "Network", cruz),
		result("INC-3", types.TicketIncident, "Network", bo),
	}

	s := Summarize(results, nil)
	require.Len(t, s.ByOwner, 2)

	assert.Equal(t, "Mo", s.ByOwner[0].Key)
	assert.Equal(t, 1, s.ByOwner[0].TicketCount)

	lee := s.ByOwner[1]
	assert.Equal(t, "lee@example.com", lee.Key)
	assert.Equal(t, "Lee", lee.Name)
	assert.Equal(t, 2, lee.TicketCount)
	assert.Equal(t, 1, lee.NonCompliant)
	assert.Equal(t, 1, lee.Violations)
	require.Len(t, lee.Results, 2)
	assert.Equal(t, "INC-1", lee.Results[0].TicketID)
	assert.Equal(t, "INC-3", lee.Results[1].TicketID)
}

func TestSummarize_MissingOwnerIsSurfaced(t *testing.T) {
	results := []types.EvaluationResult{
		result("INC-1", types.TicketIncident, "Network", types.Owner{}),
		result("INC-2", types.TicketIncident, "Network", ana),
		result("CHG-1", types.TicketChange, "", types.Owner{}, types.KindMissingPIR),
	}

	s := Summarize(results, nil)
	assert.Equal(t, []string{"INC-1", "CHG-1"}, s.Unassigned)

	var unassigned *types.OwnerGroup
	for i := range s.ByOwner {
		if s.ByOwner[i].Key == UnassignedKey {
			unassigned = &s.ByOwner[i]
		}
	}
	require.NotNil(t, unassigned)
	assert.Equal(t, 2, unassigned.TicketCount)
	assert.Contains(t, s.ByCategory, "Uncategorized")
}

func TestSummarize_OwnerCountsSumToTotal(t *testing.T) {
	owners := []types.Owner{ana, bo, cruz, {}, {TechnicianEmail: "x@example.com"}, {ManagerName: "Mo"}}
	for n := 0; n < 40; n += 7 {
		var results []types.EvaluationResult
		for i := 0; i < n; i++ {
			var k []types.ViolationKind
			if i%3 == 0 {
				k = append(k, types.KindMissingPIR)
			}
			results = append(results, result(fmt.Sprintf("T-%d", i), types.TicketIncident, "Network", owners[i%len(owners)], k...))
		}

		s := Summarize(results, nil)
		sum := 0
		for _, g := range s.ByOwner {
			sum += g.TicketCount
		}
		assert.Equal(t, s.Total, sum, "n=%d", n)
	}
}

func TestSummarize_TopOffenders(t *testing.T) {
	var results []types.EvaluationResult
	add := func(name string, violations int) {
		owner := types.Owner{TechnicianName: name, TechnicianEmail: name + "@example.com", ManagerEmail: "lead@example.com"}
		kinds := make([]types.ViolationKind, violations)
		for i := range kinds {
			kinds[i] = types.KindMissingPIR
		}
		results = append(results, result("T-"+name, types.TicketChange, "Network", owner, kinds...))
	}
	add("f", 1)
	add("e", 2)
	add("d", 3)
	add("c", 3)
	add("b", 5)
	add("a", 6)
	add("g", 0)

	s := Summarize(results, nil)
	require.Len(t, s.TopOffenders, TopOffenderLimit)
	names := make([]string, 0, len(s.TopOffenders))
	for _, o := range s.TopOffenders {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names)
	assert.Equal(t, 6, s.TopOffenders[0].Violations)
}

func TestSummarize_Empty(t *testing.T) {
	malformed := []types.MalformedRecord{{Source: types.SourceCSV, Line: 3, Reason: "unknown priority"}}

	s := Summarize(nil, malformed)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.DeviationRate)
	assert.NotNil(t, s.ByOwner)
	assert.Empty(t, s.TopOffenders)
	assert.Equal(t, 1, s.MalformedCount)
	assert.Equal(t, malformed, s.Malformed)
}

func TestGroupRisk(t *testing.T) {
	statuses := []types.RiskStatus{
		{TicketID: "INC-1", State: types.RiskAtRisk, Owner: ana},
		{TicketID: "INC-2", State: types.RiskBreached, Owner: types.Owner{}},
		{TicketID: "INC-3", State: types.RiskAtRisk, Owner: bo},
	}

	got := GroupRisk(statuses)
	require.Len(t, got, 2)
	assert.Len(t, got["lee@example.com"], 2)
	assert.Equal(t, "INC-3", got["lee@example.com"][1].TicketID)
	assert.Len(t, got[UnassignedKey], 1)

	counts := CountByState(statuses)
	assert.Equal(t, 2, counts[types.RiskAtRisk])
	assert.Equal(t, 1, counts[types.RiskBreached])
}
