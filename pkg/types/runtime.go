package types

import "time"

// CategoryStats counts violations for one ticket category.
type CategoryStats struct {
	Tickets        int     `json:"tickets" yaml:"tickets"`
	Violations     int     `json:"violations" yaml:"violations"`
	MeanViolations float64 `json:"meanViolations" yaml:"meanViolations"`
}

// OwnerGroup is the fan-out unit for per-owner reports.
type OwnerGroup struct {
	Key          string             `json:"key" yaml:"key"`
	Name         string             `json:"name,omitempty" yaml:"name,omitempty"`
	Email        string             `json:"email,omitempty" yaml:"email,omitempty"`
	TicketCount  int                `json:"ticketCount" yaml:"ticketCount"`
	NonCompliant int                `json:"nonCompliant" yaml:"nonCompliant"`
	Violations   int                `json:"violations" yaml:"violations"`
	Results      []EvaluationResult `json:"results" yaml:"results"`
}

// OwnerCount ranks a technician by violation count.
type OwnerCount struct {
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`
	Violations int    `json:"violations" yaml:"violations"`
}

// MalformedRecord is a ticket that was skipped at the intake boundary.
type MalformedRecord struct {
	Source   SourceType `json:"source" yaml:"source"`
	TicketID string     `json:"ticketId,omitempty" yaml:"ticketId,omitempty"`
	Line     int        `json:"line,omitempty" yaml:"line,omitempty"`
	Reason   string     `json:"reason" yaml:"reason"`
}

// Summary is the aggregate view over a batch of evaluation results.
type Summary struct {
	Total          int                      `json:"total" yaml:"total"`
	Incidents      int                      `json:"incidents" yaml:"incidents"`
	Changes        int                      `json:"changes" yaml:"changes"`
	NonCompliant   int                      `json:"nonCompliant" yaml:"nonCompliant"`
	DeviationRate  float64                  `json:"deviationRate" yaml:"deviationRate"`
	SLABreaches    int                      `json:"slaBreaches" yaml:"slaBreaches"`
	SLABreachRate  float64                  `json:"slaBreachRate" yaml:"slaBreachRate"`
	ByKind         map[ViolationKind]int    `json:"byKind" yaml:"byKind"`
	ByCategory     map[string]CategoryStats `json:"byCategory" yaml:"byCategory"`
	ByOwner        []OwnerGroup             `json:"byOwner" yaml:"byOwner"`
	TopOffenders   []OwnerCount             `json:"topOffenders,omitempty" yaml:"topOffenders,omitempty"`
	Unassigned     []string                 `json:"unassigned,omitempty" yaml:"unassigned,omitempty"`
	Malformed      []MalformedRecord        `json:"malformed,omitempty" yaml:"malformed,omitempty"`
	MalformedCount int                      `json:"malformedCount" yaml:"malformedCount"`
}

// Report is the output of one analysis run.
type Report struct {
	RunID       string             `json:"runId" yaml:"runId"`
	RulesName   string             `json:"rules,omitempty" yaml:"rules,omitempty"`
	Degraded    bool               `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt" yaml:"generatedAt"`
	Results     []EvaluationResult `json:"results" yaml:"results"`
	AtRisk      []RiskStatus       `json:"atRisk,omitempty" yaml:"atRisk,omitempty"`
	Summary     Summary            `json:"summary" yaml:"summary"`
}

// Alert is a per-owner notification to be dispatched.
type Alert struct {
	AlertID      string             `json:"alertId,omitempty" yaml:"alertId,omitempty"`
	RunID        string             `json:"runId,omitempty" yaml:"runId,omitempty"`
	Level        AlertLevel         `json:"level" yaml:"level"`
	OwnerKey     string             `json:"ownerKey" yaml:"ownerKey"`
	OwnerName    string             `json:"ownerName,omitempty" yaml:"ownerName,omitempty"`
	Recipient    string             `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	Message      string             `json:"message" yaml:"message"`
	NonCompliant []EvaluationResult `json:"nonCompliant,omitempty" yaml:"nonCompliant,omitempty"`
	AtRisk       []RiskStatus       `json:"atRisk,omitempty" yaml:"atRisk,omitempty"`
	TicketCount  int                `json:"ticketCount" yaml:"ticketCount"`
	Timestamp    time.Time          `json:"timestamp" yaml:"timestamp"`
}
