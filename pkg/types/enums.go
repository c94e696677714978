package types

import (
	"fmt"
	"strings"
)

// Priority is the urgency of an incident. The set is closed.
type Priority string

// Priority values enumerate the supported incident priorities.
const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Priorities lists every Priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority resolves a priority name case-insensitively. Unknown values are
// rejected rather than defaulted.
func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Valid reports whether p is one of the declared priorities.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// RiskLevel is the assessed risk of a change. It shares the priority vocabulary.
type RiskLevel string

// RiskLevel values enumerate the supported change risk levels.
const (
	RiskCritical RiskLevel = "Critical"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
)

// RiskLevels lists every RiskLevel from highest to lowest.
var RiskLevels = []RiskLevel{RiskCritical, RiskHigh, RiskMedium, RiskLow}

// ParseRiskLevel resolves a risk level name case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for _, r := range RiskLevels {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

// Severity grades a violation.
type Severity string

// Severity values enumerate violation severities.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Rank orders severities; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ChangeType classifies a change request.
type ChangeType string

// ChangeType values enumerate the supported change types.
const (
	ChangeStandard  ChangeType = "Standard"
	ChangeNormal    ChangeType = "Normal"
	ChangeEmergency ChangeType = "Emergency"
)

// ChangeTypes lists every ChangeType.
var ChangeTypes = []ChangeType{ChangeStandard, ChangeNormal, ChangeEmergency}

// ParseChangeType resolves a change type name case-insensitively.
func ParseChangeType(s string) (ChangeType, error) {
	for _, c := range ChangeTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown change type %q", s)
}

// Satisfaction is the customer's rating of an incident resolution.
type Satisfaction string

// Satisfaction values enumerate the survey answers.
const (
	SatisfactionVerySatisfied Satisfaction = "Very Satisfied"
	SatisfactionSatisfied     Satisfaction = "Satisfied"
	SatisfactionNeutral       Satisfaction = "Neutral"
	SatisfactionDissatisfied  Satisfaction = "Dissatisfied"
)

// ParseSatisfaction resolves a satisfaction rating. An empty string means no
// survey answer and is accepted as the zero value.
func ParseSatisfaction(s string) (Satisfaction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, v := range []Satisfaction{SatisfactionVerySatisfied, SatisfactionSatisfied, SatisfactionNeutral, SatisfactionDissatisfied} {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown customer satisfaction %q", s)
}

// TicketType distinguishes incidents from change requests.
type TicketType string

// TicketType values enumerate the supported ticket types.
const (
	TicketIncident TicketType = "Incident"
	TicketChange   TicketType = "Change"
)

// ComplianceStatus is derived from the violation list of a result.
type ComplianceStatus string

// ComplianceStatus values.
const (
	Compliant    ComplianceStatus = "COMPLIANT"
	NonCompliant ComplianceStatus = "NON_COMPLIANT"
)

// ViolationKind identifies the policy a violation departs from.
type ViolationKind string

// ViolationKind values enumerate every check the evaluators perform.
const (
	KindSLAResponseBreach       ViolationKind = "SLA_RESPONSE_BREACH"
	KindSLAResolutionBreach     ViolationKind = "SLA_RESOLUTION_BREACH"
	KindMissingProcessSteps     ViolationKind = "MISSING_PROCESS_STEPS"
	KindExcessiveReassignments  ViolationKind = "EXCESSIVE_REASSIGNMENTS"
	KindMissingKnowledgeArticle ViolationKind = "MISSING_KNOWLEDGE_ARTICLE"
	KindPoorSatisfaction        ViolationKind = "POOR_CUSTOMER_SATISFACTION"
	KindMissingApprovals        ViolationKind = "MISSING_APPROVALS"
	KindMissingTestingEvidence  ViolationKind = "MISSING_TESTING_EVIDENCE"
	KindMissingRollbackPlan     ViolationKind = "MISSING_ROLLBACK_PLAN"
	KindBlackoutViolation       ViolationKind = "BLACKOUT_WINDOW_VIOLATION"
	KindMissingPIR              ViolationKind = "MISSING_PIR"
	KindKBNotUpdated            ViolationKind = "KB_NOT_UPDATED"
)

// IsSLA reports whether the kind is an SLA breach.
func (k ViolationKind) IsSLA() bool {
	return k == KindSLAResponseBreach || k == KindSLAResolutionBreach
}

// RiskState is the SLA-risk classification of a single incident.
type RiskState string

// RiskState values.
const (
	RiskAtRisk   RiskState = "AT_RISK"
	RiskBreached RiskState = "BREACHED"
)

// AlertType defines the notification sink type.
type AlertType string

// AlertType values enumerate the supported notification backends.
const (
	AlertConsole     AlertType = "console"
	AlertWebhook     AlertType = "webhook"
	AlertFile        AlertType = "file"
	AlertEmail       AlertType = "email"
	AlertSQS         AlertType = "sqs"
	AlertEventBridge AlertType = "eventbridge"
)

// AlertLevel grades an owner notification.
type AlertLevel string

// AlertLevel values.
const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelInfo    AlertLevel = "info"
)

// SourceType defines where tickets are read from.
type SourceType string

// SourceType values enumerate the supported ticket feeds.
const (
	SourceCSV        SourceType = "csv"
	SourceJira       SourceType = "jira"
	SourceServiceNow SourceType = "servicenow"
)
