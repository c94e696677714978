// Package types defines the public domain types for the Guardian ITSM compliance engine.
package types

import (
	"errors"
	"time"
)

// ErrMissingOwner marks a result that cannot be attributed to a reporting owner.
var ErrMissingOwner = errors.New("missing owner assignment")

// SLATarget is the response and resolution budget for one priority, in hours.
type SLATarget struct {
	ResponseHours   float64 `yaml:"responseHours" json:"responseHours"`
	ResolutionHours float64 `yaml:"resolutionHours" json:"resolutionHours"`
}

// RuleDocument is the serialized form of a compliance rule catalog.
type RuleDocument struct {
	Name                      string                  `yaml:"name,omitempty" json:"name,omitempty"`
	SLA                       map[Priority]SLATarget  `yaml:"sla" json:"sla"`
	RequiredSteps             map[string][]string     `yaml:"requiredSteps" json:"requiredSteps"`
	RequiredApprovals         map[ChangeType][]string `yaml:"requiredApprovals" json:"requiredApprovals"`
	MaxReassignments          *int                    `yaml:"maxReassignments,omitempty" json:"maxReassignments,omitempty"`
	KBRequiredPriorities      []Priority              `yaml:"kbRequiredPriorities,omitempty" json:"kbRequiredPriorities,omitempty"`
	TestingRequiredRiskLevels []RiskLevel             `yaml:"testingRequiredRiskLevels,omitempty" json:"testingRequiredRiskLevels,omitempty"`
}

// Owner identifies who a ticket is reported to.
type Owner struct {
	TechnicianName  string `json:"technicianName,omitempty" yaml:"technicianName,omitempty"`
	TechnicianEmail string `json:"technicianEmail,omitempty" yaml:"technicianEmail,omitempty"`
	ManagerName     string `json:"managerName,omitempty" yaml:"managerName,omitempty"`
	ManagerEmail    string `json:"managerEmail,omitempty" yaml:"managerEmail,omitempty"`
}

// IsZero reports whether no owner field is set.
func (o Owner) IsZero() bool {
	return o == Owner{}
}

// IncidentRecord is a read-only snapshot of one incident.
type IncidentRecord struct {
	ID                      string       `json:"id" yaml:"id"`
	Category                string       `json:"category" yaml:"category"`
	Priority                Priority     `json:"priority" yaml:"priority"`
	CreatedAt               time.Time    `json:"createdAt" yaml:"createdAt"`
	ResponseAt              *time.Time   `json:"responseAt,omitempty" yaml:"responseAt,omitempty"`
	ResolvedAt              *time.Time   `json:"resolvedAt,omitempty" yaml:"resolvedAt,omitempty"`
	CompletedSteps          []string     `json:"completedSteps,omitempty" yaml:"completedSteps,omitempty"`
	ReassignmentCount       int          `json:"reassignmentCount" yaml:"reassignmentCount"`
	KnowledgeArticleCreated bool         `json:"knowledgeArticleCreated" yaml:"knowledgeArticleCreated"`
	CustomerSatisfaction    Satisfaction `json:"customerSatisfaction,omitempty" yaml:"customerSatisfaction,omitempty"`
	Owner                   Owner        `json:"owner" yaml:"owner"`
	Source                  SourceType   `json:"source,omitempty" yaml:"source,omitempty"`
	Summary                 string       `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// ResponseHours returns the hours between creation and first response.
func (r IncidentRecord) ResponseHours() (float64, bool) {
	if r.ResponseAt == nil {
		return 0, false
	}
	return r.ResponseAt.Sub(r.CreatedAt).Hours(), true
}

// ResolutionHours returns the hours between creation and resolution.
// ok is false while the incident is open.
func (r IncidentRecord) ResolutionHours() (float64, bool) {
	if r.ResolvedAt == nil {
		return 0, false
	}
	return r.ResolvedAt.Sub(r.CreatedAt).Hours(), true
}

// ChangeRecord is a read-only snapshot of one change request.
type ChangeRecord struct {
	ID                                string     `json:"id" yaml:"id"`
	ChangeType                        ChangeType `json:"changeType" yaml:"changeType"`
	RiskLevel                         RiskLevel  `json:"riskLevel" yaml:"riskLevel"`
	Category                          string     `json:"category" yaml:"category"`
	ObtainedApprovals                 []string   `json:"obtainedApprovals,omitempty" yaml:"obtainedApprovals,omitempty"`
	TestingRequired                   bool       `json:"testingRequired" yaml:"testingRequired"`
	TestingCompleted                  bool       `json:"testingCompleted" yaml:"testingCompleted"`
	RollbackPlanDocumented            bool       `json:"rollbackPlanDocumented" yaml:"rollbackPlanDocumented"`
	ImplementedDuringBlackout         bool       `json:"implementedDuringBlackout" yaml:"implementedDuringBlackout"`
	PostImplementationReviewCompleted bool       `json:"postImplementationReviewCompleted" yaml:"postImplementationReviewCompleted"`
	KnowledgeBaseUpdated              bool       `json:"knowledgeBaseUpdated" yaml:"knowledgeBaseUpdated"`
	ImplementedAt                     *time.Time `json:"implementedAt,omitempty" yaml:"implementedAt,omitempty"`
	Owner                             Owner      `json:"owner" yaml:"owner"`
	Source                            SourceType `json:"source,omitempty" yaml:"source,omitempty"`
	Summary                           string     `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// ViolationDetail carries the facts behind a violation. Only the fields
// relevant to the violation kind are set.
type ViolationDetail struct {
	ExpectedHours     *float64     `json:"expectedHours,omitempty" yaml:"expectedHours,omitempty"`
	ActualHours       *float64     `json:"actualHours,omitempty" yaml:"actualHours,omitempty"`
	DeviationPct      *float64     `json:"deviationPct,omitempty" yaml:"deviationPct,omitempty"`
	MissingSteps      []string     `json:"missingSteps,omitempty" yaml:"missingSteps,omitempty"`
	CompletionRate    *float64     `json:"completionRate,omitempty" yaml:"completionRate,omitempty"`
	MissingApprovals  []string     `json:"missingApprovals,omitempty" yaml:"missingApprovals,omitempty"`
	RequiredApprovals []string     `json:"requiredApprovals,omitempty" yaml:"requiredApprovals,omitempty"`
	ObtainedApprovals []string     `json:"obtainedApprovals,omitempty" yaml:"obtainedApprovals,omitempty"`
	Count             *int         `json:"count,omitempty" yaml:"count,omitempty"`
	Limit             *int         `json:"limit,omitempty" yaml:"limit,omitempty"`
	Priority          Priority     `json:"priority,omitempty" yaml:"priority,omitempty"`
	RiskLevel         RiskLevel    `json:"riskLevel,omitempty" yaml:"riskLevel,omitempty"`
	Satisfaction      Satisfaction `json:"satisfaction,omitempty" yaml:"satisfaction,omitempty"`
}

// Violation is a single departure from policy.
type Violation struct {
	Kind     ViolationKind   `json:"kind" yaml:"kind"`
	Severity Severity        `json:"severity" yaml:"severity"`
	Detail   ViolationDetail `json:"detail" yaml:"detail"`
}

// EvaluationResult is the outcome of checking one ticket against the catalog.
type EvaluationResult struct {
	TicketID   string      `json:"ticketId" yaml:"ticketId"`
	TicketType TicketType  `json:"ticketType" yaml:"ticketType"`
	Category   string      `json:"category,omitempty" yaml:"category,omitempty"`
	Priority   Priority    `json:"priority,omitempty" yaml:"priority,omitempty"`
	RiskLevel  RiskLevel   `json:"riskLevel,omitempty" yaml:"riskLevel,omitempty"`
	Owner      Owner       `json:"owner" yaml:"owner"`
	Violations []Violation `json:"violations" yaml:"violations"`
}

// Status derives the compliance status from the violation list.
func (r EvaluationResult) Status() ComplianceStatus {
	if len(r.Violations) > 0 {
		return NonCompliant
	}
	return Compliant
}

// Has reports whether the result carries a violation of the given kind.
func (r EvaluationResult) Has(kind ViolationKind) bool {
	for _, v := range r.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// HasSLABreach reports whether any violation is an SLA breach.
func (r EvaluationResult) HasSLABreach() bool {
	for _, v := range r.Violations {
		if v.Kind.IsSLA() {
			return true
		}
	}
	return false
}

// RiskStatus flags an incident that is about to breach or has breached its
// resolution SLA.
type RiskStatus struct {
	TicketID       string    `json:"ticketId" yaml:"ticketId"`
	Category       string    `json:"category,omitempty" yaml:"category,omitempty"`
	Priority       Priority  `json:"priority" yaml:"priority"`
	State          RiskState `json:"state" yaml:"state"`
	Deadline       time.Time `json:"deadline" yaml:"deadline"`
	HoursRemaining *float64  `json:"hoursRemaining,omitempty" yaml:"hoursRemaining,omitempty"`
	Owner          Owner     `json:"owner" yaml:"owner"`
}
