package intake

import (
	"strconv"
	"strings"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// incidentRow is the untyped form of an incident shared by every source.
type incidentRow struct {
	ID              string   `validate:"required"`
	Category        string   `validate:"required"`
	Priority        string   `validate:"required,priority"`
	Created         string   `validate:"required,timestamp"`
	Response        string   `validate:"omitempty,timestamp"`
	Resolved        string   `validate:"omitempty,timestamp"`
	Steps           []string `validate:"dive,required"`
	Reassignments   string   `validate:"omitempty,number"`
	KBCreated       string   `validate:"omitempty,yesno"`
	Satisfaction    string   `validate:"omitempty,satisfaction"`
	TechnicianName  string
	TechnicianEmail string `validate:"omitempty,email"`
	ManagerName     string
	ManagerEmail    string `validate:"omitempty,email"`
	Summary         string
}

// changeRow is the untyped form of a change request.
type changeRow struct {
	ID               string `validate:"required"`
	ChangeType       string `validate:"required,changetype"`
	RiskLevel        string `validate:"required,risklevel"`
	Category         string
	Approvals        []string `validate:"dive,required"`
	TestingRequired  string   `validate:"omitempty,yesno"`
	TestingCompleted string   `validate:"omitempty,yesno"`
	RollbackPlan     string   `validate:"omitempty,yesno"`
	DuringBlackout   string   `validate:"omitempty,yesno"`
	ReviewCompleted  string   `validate:"omitempty,yesno"`
	KBUpdated        string   `validate:"omitempty,yesno"`
	Implemented      string   `validate:"omitempty,timestamp"`
	TechnicianName   string
	TechnicianEmail  string `validate:"omitempty,email"`
	ManagerName      string
	ManagerEmail     string `validate:"omitempty,email"`
	Summary          string
}

func trimmed(s string) string { return strings.TrimSpace(s) }

func (r incidentRow) owner() types.Owner {
	return types.Owner{
		TechnicianName:  trimmed(r.TechnicianName),
		TechnicianEmail: trimmed(r.TechnicianEmail),
		ManagerName:     trimmed(r.ManagerName),
		ManagerEmail:    trimmed(r.ManagerEmail),
	}
}

// toIncident validates the row and maps it onto an IncidentRecord. Any
// failure is a *MalformedRecordError.
func (r incidentRow) toIncident(source types.SourceType, line int) (types.IncidentRecord, error) {
	if err := checkRow(source, r.ID, line, r); err != nil {
		return types.IncidentRecord{}, err
	}
	malformed := func(field, reason string) error {
		return &MalformedRecordError{Source: source, TicketID: r.ID, Line: line, Field: field, Reason: reason}
	}

	priority, _ := types.ParsePriority(r.Priority)
	satisfaction, _ := types.ParseSatisfaction(r.Satisfaction)
	kb, _ := parseYesNo(r.KBCreated)
	created, _ := parseTime(r.Created)
	response, _ := parseOptionalTime(r.Response)
	resolved, _ := parseOptionalTime(r.Resolved)

	reassignments := 0
	if v := trimmed(r.Reassignments); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.IncidentRecord{}, malformed("Reassignments", err.Error())
		}
		reassignments = n
	}
	if response != nil && response.Before(created) {
		return types.IncidentRecord{}, malformed("Response", "precedes creation time")
	}
	if resolved != nil && resolved.Before(created) {
		return types.IncidentRecord{}, malformed("Resolved", "precedes creation time")
	}

	steps := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, trimmed(s))
	}

	return types.IncidentRecord{
		ID:                      trimmed(r.ID),
		Category:                trimmed(r.Category),
		Priority:                priority,
		CreatedAt:               created,
		ResponseAt:              response,
		ResolvedAt:              resolved,
		CompletedSteps:          steps,
		ReassignmentCount:       reassignments,
		KnowledgeArticleCreated: kb,
		CustomerSatisfaction:    satisfaction,
		Owner:                   r.owner(),
		Source:                  source,
		Summary:                 trimmed(r.Summary),
	}, nil
}

// toChange validates the row and maps it onto a ChangeRecord.
func (r changeRow) toChange(source types.SourceType, line int) (types.ChangeRecord, error) {
	if err := checkRow(source, r.ID, line, r); err != nil {
		return types.ChangeRecord{}, err
	}

	ct, _ := types.ParseChangeType(r.ChangeType)
	risk, _ := types.ParseRiskLevel(r.RiskLevel)
	implemented, _ := parseOptionalTime(r.Implemented)
	yes := func(s string) bool {
		v, _ := parseYesNo(s)
		return v
	}

	approvals := make([]string, 0, len(r.Approvals))
	for _, a := range r.Approvals {
		approvals = append(approvals, trimmed(a))
	}

	return types.ChangeRecord{
		ID:                                trimmed(r.ID),
		ChangeType:                        ct,
		RiskLevel:                         risk,
		Category:                          trimmed(r.Category),
		ObtainedApprovals:                 approvals,
		TestingRequired:                   yes(r.TestingRequired),
		TestingCompleted:                  yes(r.TestingCompleted),
		RollbackPlanDocumented:            yes(r.RollbackPlan),
		ImplementedDuringBlackout:         yes(r.DuringBlackout),
		PostImplementationReviewCompleted: yes(r.ReviewCompleted),
		KnowledgeBaseUpdated:              yes(r.KBUpdated),
		ImplementedAt:                     implemented,
		Owner: types.Owner{
			TechnicianName:  trimmed(r.TechnicianName),
			TechnicianEmail: trimmed(r.TechnicianEmail),
			ManagerName:     trimmed(r.ManagerName),
			ManagerEmail:    trimmed(r.ManagerEmail),
		},
		Source:  source,
		Summary: trimmed(r.Summary),
	}, nil
}
