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

// jiraPriorities maps Jira priority names onto the closed priority set.
// Anything else is rejected at validation.
var jiraPriorities = map[string]types.Priority{
	"highest": types.PriorityCritical,
	"high":    types.PriorityHigh,
	"medium":  types.PriorityMedium,
	"low":     types.PriorityLow,
	"lowest":  types.PriorityLow,
}

const jiraFields = "summary,priority,created,resolutiondate,assignee,components,labels"

// JiraSource reads incidents from the Jira Cloud search API.
//
// Issue fields map as follows: the first component is the category, labels
// prefixed "step:" are completed steps (underscores read as spaces), a
// "kb-article" label marks a knowledge article, and assignee changes in the
// changelog count as reassignments.
type JiraSource struct {
	name       string
	baseURL    string
	project    string
	lookback   time.Duration
	maxResults int
	client     *fetch.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Name returns the configured source name.
func (s *JiraSource) Name() string { return s.name }

type jiraSearchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	Key       string         `json:"key"`
	Fields    jiraFieldSet   `json:"fields"`
	Changelog *jiraChangelog `json:"changelog,omitempty"`
}

type jiraFieldSet struct {
	Summary        string      `json:"summary"`
	Priority       *jiraNamed  `json:"priority"`
	Created        string      `json:"created"`
	ResolutionDate string      `json:"resolutiondate"`
	Assignee       *jiraUser   `json:"assignee"`
	Components     []jiraNamed `json:"components"`
	Labels         []string    `json:"labels"`
}

type jiraNamed struct {
	Name string `json:"name"`
}

type jiraUser struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type jiraChangelog struct {
	Histories []struct {
		Items []struct {
			Field      string `json:"field"`
			From       string `json:"from"`
			FromString string `json:"fromString"`
		} `json:"items"`
	} `json:"histories"`
}

// Fetch pages through the issues created inside the lookback window.
func (s *JiraSource) Fetch(ctx context.Context) (Batch, error) {
	since := s.now().Add(-s.lookback).Format("2006-01-02")
	jql := fmt.Sprintf(`project = %s AND created >= "%s" ORDER BY created ASC`, s.project, since)
	endpoint := strings.TrimRight(s.baseURL, "/") + "/rest/api/3/search"

	var b Batch
	for startAt := 0; ; {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("fields", jiraFields)
		q.Set("expand", "changelog")
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(s.maxResults))

		var page jiraSearchResponse
		if err := s.client.GetJSON(ctx, endpoint, q, &page); err != nil {
			return Batch{}, fmt.Errorf("searching jira project %s: %w", s.project, err)
		}
		for _, issue := range page.Issues {
			rec, err := issue.row().toIncident(types.SourceJira, 0)
			if err != nil {
				if err := b.skip(s.logger, err); err != nil {
					return Batch{}, err
				}
				continue
			}
			b.Incidents = append(b.Incidents, rec)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	s.logger.Debug("fetched jira issues", "source", s.name, "incidents", len(b.Incidents), "malformed", len(b.Malformed))
	return b, nil
}

func (i jiraIssue) row() incidentRow {
	f := i.Fields
	r := incidentRow{
		ID:       i.Key,
		Created:  f.Created,
		Resolved: f.ResolutionDate,
		Summary:  f.Summary,
	}
	if f.Priority != nil {
		r.Priority = f.Priority.Name
		if p, ok := jiraPriorities[strings.ToLower(f.Priority.Name)]; ok {
			r.Priority = string(p)
		}
	}
	if len(f.Components) > 0 {
		r.Category = f.Components[0].Name
	}
	for _, label := range f.Labels {
		switch {
		case strings.HasPrefix(label, "step:"):
			r.Steps = append(r.Steps, strings.ReplaceAll(strings.TrimPrefix(label, "step:"), "_", " "))
		case strings.EqualFold(label, "kb-article"):
			r.KBCreated = "Yes"
		}
	}
	if f.Assignee != nil {
		r.TechnicianName = f.Assignee.DisplayName
		r.TechnicianEmail = f.Assignee.EmailAddress
	}
	r.Reassignments = strconv.Itoa(i.reassignments())
	return r
}

// reassignments counts assignee changes away from an existing assignee; the
// first assignment is not a reassignment.
func (i jiraIssue) reassignments() int {
	if i.Changelog == nil {
		return 0
	}
	n := 0
	for _, h := range i.Changelog.Histories {
		for _, item := range h.Items {
			if item.Field == "assignee" && (item.From != "" || item.FromString != "") {
				n++
			}
		}
	}
	return n
}
