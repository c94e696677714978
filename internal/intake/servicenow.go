package intake

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dwsmith1983/guardian/internal/fetch"
	"github.com/dwsmith1983/guardian/pkg/types"
)

var snowPriorities = map[string]types.Priority{
	"1":            types.PriorityCritical,
	"2":            types.PriorityHigh,
	"3":            types.PriorityMedium,
	"4":            types.PriorityLow,
	"5":            types.PriorityLow,
	"1 - critical": types.PriorityCritical,
	"2 - high":     types.PriorityHigh,
	"3 - moderate": types.PriorityMedium,
	"4 - low":      types.PriorityLow,
	"5 - planning": types.PriorityLow,
}

var snowRisks = map[string]types.RiskLevel{
	"1":            types.RiskCritical,
	"2":            types.RiskHigh,
	"3":            types.RiskMedium,
	"4":            types.RiskLow,
	"1 - high":     types.RiskCritical,
	"2 - moderate": types.RiskHigh,
	"3 - low":      types.RiskMedium,
	"4 - very low": types.RiskLow,
	"very high":    types.RiskCritical,
	"moderate":     types.RiskMedium,
}

const (
	snowIncidentFields = "number,priority,category,opened_at,resolved_at,assigned_to,short_description,reassignment_count," +
		"u_response_at,u_completed_steps,u_knowledge_article,u_customer_satisfaction,u_technician_email,u_manager_name,u_manager_email"
	snowChangeFields = "number,type,risk,category,end_date,assigned_to,short_description,u_obtained_approvals,u_testing_required," +
		"u_testing_completed,u_rollback_plan,u_implemented_during_blackout,u_pir_completed,u_kb_updated,u_technician_email,u_manager_name,u_manager_email"
)

// ServiceNowSource reads incidents and change requests from the ServiceNow
// Table API. Values are requested as display values with reference links
// excluded, so every field arrives as a string.
type ServiceNowSource struct {
	name     string
	baseURL  string
	lookback time.Duration
	limit    int
	client   *fetch.Client
	logger   *slog.Logger
	now      func() time.Time
}

// Name returns the configured source name.
func (s *ServiceNowSource) Name() string { return s.name }

type snowResponse struct {
	Result []map[string]string `json:"result"`
}

// Fetch reads both tables inside the lookback window.
func (s *ServiceNowSource) Fetch(ctx context.Context) (Batch, error) {
	since := s.now().Add(-s.lookback).UTC().Format("2006-01-02 15:04:05")

	var b Batch
	err := s.scan(ctx, "incident", "opened_at>="+since, snowIncidentFields, func(row map[string]string) error {
		rec, err := snowIncident(row).toIncident(types.SourceServiceNow, 0)
		if err != nil {
			return b.skip(s.logger, err)
		}
		b.Incidents = append(b.Incidents, rec)
		return nil
	})
	if err != nil {
		return Batch{}, err
	}

	err = s.scan(ctx, "change_request", "sys_created_on>="+since, snowChangeFields, func(row map[string]string) error {
		rec, err := snowChange(row).toChange(types.SourceServiceNow, 0)
		if err != nil {
			return b.skip(s.logger, err)
		}
		b.Changes = append(b.Changes, rec)
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	s.logger.Debug("fetched servicenow records", "source", s.name,
		"incidents", len(b.Incidents), "changes", len(b.Changes), "malformed", len(b.Malformed))
	return b, nil
}

// scan pages through a table with sysparm_offset until a short page.
func (s *ServiceNowSource) scan(ctx context.Context, table, query, fields string, fn func(map[string]string) error) error {
	endpoint := strings.TrimRight(s.baseURL, "/") + "/api/now/table/" + table
	for offset := 0; ; offset += s.limit {
		q := url.Values{}
		q.Set("sysparm_query", query)
		q.Set("sysparm_fields", fields)
		q.Set("sysparm_display_value", "true")
		q.Set("sysparm_exclude_reference_link", "true")
		q.Set("sysparm_limit", strconv.Itoa(s.limit))
		q.Set("sysparm_offset", strconv.Itoa(offset))

		var page snowResponse
		if err := s.client.GetJSON(ctx, endpoint, q, &page); err != nil {
			return fmt.Errorf("reading servicenow table %s: %w", table, err)
		}
		for _, row := range page.Result {
			if err := fn(row); err != nil {
				return err
			}
		}
		if len(page.Result) < s.limit {
			return nil
		}
	}
}

func snowIncident(row map[string]string) incidentRow {
	r := incidentRow{
		ID:              row["number"],
		Category:        row["category"],
		Priority:        row["priority"],
		Created:         row["opened_at"],
		Response:        row["u_response_at"],
		Resolved:        row["resolved_at"],
		Steps:           splitList(row["u_completed_steps"]),
		Reassignments:   row["reassignment_count"],
		KBCreated:       row["u_knowledge_article"],
		Satisfaction:    row["u_customer_satisfaction"],
		TechnicianName:  row["assigned_to"],
		TechnicianEmail: row["u_technician_email"],
		ManagerName:     row["u_manager_name"],
		ManagerEmail:    row["u_manager_email"],
		Summary:         row["short_description"],
	}
	if p, ok := snowPriorities[strings.ToLower(strings.TrimSpace(r.Priority))]; ok {
		r.Priority = string(p)
	}
	return r
}

func snowChange(row map[string]string) changeRow {
	r := changeRow{
		ID:               row["number"],
		ChangeType:       row["type"],
		RiskLevel:        row["risk"],
		Category:         row["category"],
		Approvals:        splitList(row["u_obtained_approvals"]),
		TestingRequired:  row["u_testing_required"],
		TestingCompleted: row["u_testing_completed"],
		RollbackPlan:     row["u_rollback_plan"],
		DuringBlackout:   row["u_implemented_during_blackout"],
		ReviewCompleted:  row["u_pir_completed"],
		KBUpdated:        row["u_kb_updated"],
		Implemented:      row["end_date"],
		TechnicianName:   row["assigned_to"],
		TechnicianEmail:  row["u_technician_email"],
		ManagerName:      row["u_manager_name"],
		ManagerEmail:     row["u_manager_email"],
		Summary:          row["short_description"],
	}
	if risk, ok := snowRisks[strings.ToLower(strings.TrimSpace(r.RiskLevel))]; ok {
		r.RiskLevel = string(risk)
	}
	return r
}
