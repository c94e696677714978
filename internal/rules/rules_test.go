package rules

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/guardian/pkg/types"
)

func intPtr(v int) *int { return &v }

func minimalDoc() types.RuleDocument {
	return types.RuleDocument{
		Name: "minimal",
		SLA: map[types.Priority]types.SLATarget{
			types.PriorityCritical: {ResponseHours: 0.25, ResolutionHours: 4},
		},
		RequiredSteps: map[string][]string{
			"Network": {"A", "B", "C", "D"},
		},
		RequiredApprovals: map[types.ChangeType][]string{
			types.ChangeStandard:  {"Pre-Approved"},
			types.ChangeNormal:    {"Manager", "CAB"},
			types.ChangeEmergency: {"IT Director", "ECAB"},
		},
		MaxReassignments:          intPtr(2),
		KBRequiredPriorities:      []types.Priority{types.PriorityCritical},
		TestingRequiredRiskLevels: []types.RiskLevel{types.RiskHigh},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cat := Defaults()
	assert.Equal(t, "itsm-default", cat.Name())
	assert.Equal(t, EmbeddedSource, cat.Source())
	assert.False(t, cat.Degraded())

	sla, err := cat.SLA(types.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, 96.0, sla.ResolutionHours)
	assert.Equal(t, 8.0, sla.ResponseHours)

	steps, ok := cat.RequiredSteps("Network")
	require.True(t, ok)
	assert.Len(t, steps, 7)
	assert.Equal(t, "Initial Assessment", steps[0])
	assert.Equal(t, "Closure", steps[6])

	roles, err := cat.RequiredApprovals(types.ChangeEmergency)
	require.NoError(t, err)
	assert.Equal(t, []string{"IT Director", "ECAB"}, roles)

	assert.Equal(t, 2, cat.MaxReassignments())
	assert.True(t, cat.KBRequired(types.PriorityHigh))
	assert.False(t, cat.KBRequired(types.PriorityMedium))
	assert.True(t, cat.TestingRequired(types.RiskCritical))
	assert.False(t, cat.TestingRequired(types.RiskLow))
	assert.Equal(t, []string{"application", "database", "hardware", "network", "security"}, cat.Categories())
}

func TestCatalog_CategoryLookupIsCaseInsensitive(t *testing.T) {
	cat, err := New(minimalDoc())
	require.NoError(t, err)

	for _, name := range []string{"network", "NETWORK", " Network "} {
		steps, ok := cat.RequiredSteps(name)
		assert.True(t, ok, name)
		assert.Equal(t, []string{"A", "B", "C", "D"}, steps)
	}
	_, ok := cat.RequiredSteps("Facilities")
	assert.False(t, ok)
}

func TestCatalog_Immutable(t *testing.T) {
	doc := minimalDoc()
	cat, err := New(doc)
	require.NoError(t, err)

	doc.RequiredSteps["Network"][0] = "changed"
	*doc.MaxReassignments = 9

	steps, _ := cat.RequiredSteps("network")
	assert.Equal(t, "A", steps[0])
	assert.Equal(t, 2, cat.MaxReassignments())

	steps[1] = "mutated"
	again, _ := cat.RequiredSteps("network")
	assert.Equal(t, "B", again[1])
}

func TestCatalog_MissingSLAIsRuleSourceError(t *testing.T) {
	cat, err := New(minimalDoc())
	require.NoError(t, err)

	_, err = cat.SLA(types.PriorityLow)
	var rse *RuleSourceError
	require.True(t, errors.As(err, &rse))
	assert.Contains(t, rse.Error(), "Low")

	assert.NoError(t, cat.Require(types.PriorityCritical, types.PriorityCritical))
	err = cat.Require(types.PriorityCritical, types.PriorityMedium, types.PriorityLow)
	require.True(t, errors.As(err, &rse))
	assert.Contains(t, err.Error(), "Low, Medium")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.RuleDocument)
		wantErr string
	}{
		{"valid", func(*types.RuleDocument) {}, ""},
		{"no sla", func(d *types.RuleDocument) { d.SLA = nil }, "at least one priority"},
		{"unknown priority", func(d *types.RuleDocument) {
			d.SLA["Urgent"] = types.SLATarget{ResolutionHours: 1}
		}, `unknown priority "Urgent"`},
		{"zero resolution", func(d *types.RuleDocument) {
			d.SLA[types.PriorityCritical] = types.SLATarget{ResolutionHours: 0}
		}, "resolutionHours must be positive"},
		{"negative response", func(d *types.RuleDocument) {
			d.SLA[types.PriorityCritical] = types.SLATarget{ResponseHours: -1, ResolutionHours: 4}
		}, "responseHours must not be negative"},
		{"empty steps", func(d *types.RuleDocument) { d.RequiredSteps["Database"] = nil }, "at least one step"},
		{"duplicate step", func(d *types.RuleDocument) {
			d.RequiredSteps["Network"] = []string{"A", "A"}
		}, `duplicate step "A"`},
		{"duplicate category", func(d *types.RuleDocument) {
			d.RequiredSteps["network"] = []string{"X"}
		}, "declared twice"},
		{"missing change type", func(d *types.RuleDocument) {
			delete(d.RequiredApprovals, types.ChangeEmergency)
		}, `no entry for change type "Emergency"`},
		{"missing max reassignments", func(d *types.RuleDocument) { d.MaxReassignments = nil }, "maxReassignments is required"},
		{"negative max reassignments", func(d *types.RuleDocument) { d.MaxReassignments = intPtr(-1) }, "must not be negative"},
		{"bad kb priority", func(d *types.RuleDocument) {
			d.KBRequiredPriorities = []types.Priority{"Urgent"}
		}, "kbRequiredPriorities"},
		{"bad risk level", func(d *types.RuleDocument) {
			d.TestingRequiredRiskLevels = []types.RiskLevel{"Severe"}
		}, "testingRequiredRiskLevels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := minimalDoc()
			tt.mutate(&doc)
			err := Validate(doc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var rse *RuleSourceError
			assert.True(t, errors.As(err, &rse))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_NormalizesEnumKeys(t *testing.T) {
	doc := minimalDoc()
	doc.SLA = map[types.Priority]types.SLATarget{"critical": {ResolutionHours: 4}}
	doc.RequiredApprovals = map[types.ChangeType][]string{
		"standard":  {"Pre-Approved"},
		"NORMAL":    {"Manager", "CAB"},
		"emergency": {"ECAB"},
	}
	cat, err := New(doc)
	require.NoError(t, err)

	_, err = cat.SLA(types.PriorityCritical)
	assert.NoError(t, err)
	roles, err := cat.RequiredApprovals(types.ChangeNormal)
	require.NoError(t, err)
	assert.Equal(t, []string{"Manager", "CAB"}, roles)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `
name: local
sla:
  Critical: {responseHours: 0.5, resolutionHours: 6}
requiredSteps:
  network: [Initial Assessment, Closure]
requiredApprovals:
  Standard: [Pre-Approved]
  Normal: [Manager]
  Emergency: [ECAB]
maxReassignments: 3
`)

	cat, err := Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "local", cat.Name())
	assert.Equal(t, path, cat.Source())
	assert.Equal(t, 3, cat.MaxReassignments())
}

func TestLoad_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.json", `{
  "name": "json",
  "sla": {"High": {"responseHours": 1, "resolutionHours": 12}},
  "requiredSteps": {"network": ["A"]},
  "requiredApprovals": {"Standard": [], "Normal": ["Manager"], "Emergency": ["ECAB"]},
  "maxReassignments": 1
}`)

	cat, err := Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "json", cat.Name())
	roles, err := cat.RequiredApprovals(types.ChangeStandard)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestLoad_DirMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "00-base.yaml", string(DefaultDocument()))
	writeFile(t, dir, "10-override.yaml", `
sla:
  Low: {responseHours: 8, resolutionHours: 48}
requiredSteps:
  Network: [Initial Assessment, Closure]
maxReassignments: 1
`)
	writeFile(t, dir, "notes.txt", "ignored")

	cat, err := Load(context.Background(), Source{Path: dir})
	require.NoError(t, err)

	low, err := cat.SLA(types.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, 48.0, low.ResolutionHours)
	high, err := cat.SLA(types.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, 12.0, high.ResolutionHours)

	steps, ok := cat.RequiredSteps("network")
	require.True(t, ok)
	assert.Equal(t, []string{"Initial Assessment", "Closure"}, steps)
	_, ok = cat.RequiredSteps("database")
	assert.True(t, ok)
	assert.Equal(t, 1, cat.MaxReassignments())
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", "maxReassignmnets: 2\n")

	_, err := Load(context.Background(), Source{Path: path})
	var rse *RuleSourceError
	require.True(t, errors.As(err, &rse))
	assert.Equal(t, path, rse.Source)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), Source{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	var rse *RuleSourceError
	require.True(t, errors.As(err, &rse))
}

func TestLoad_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(DefaultDocument())
	}))
	defer srv.Close()

	cat, err := Load(context.Background(), Source{URL: srv.URL + "/rules.yaml"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/rules.yaml", cat.Source())
	assert.False(t, cat.Degraded())
}

func TestLoad_RemoteFailureWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{URL: srv.URL})
	var rse *RuleSourceError
	require.True(t, errors.As(err, &rse))
	assert.Equal(t, srv.URL, rse.Source)
}

func TestLoad_FallbackIsLoggedAndDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cat, err := Load(context.Background(), Source{URL: srv.URL, Fallback: true, Logger: logger})
	require.NoError(t, err)
	assert.True(t, cat.Degraded())
	assert.Equal(t, EmbeddedSource, cat.Source())
	assert.Contains(t, buf.String(), "degraded=true")
}

func TestLoad_EmbeddedWhenUnset(t *testing.T) {
	cat, err := Load(context.Background(), Source{})
	require.NoError(t, err)
	assert.Equal(t, EmbeddedSource, cat.Source())
}

func TestLoad_TextOverlay(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "incident_management_rules.txt", `
2. CATEGORY PROCESSES

NETWORK INCIDENTS (3 Required Steps):
1. Initial Assessment
2. Network Diagnostics
3. Closure

3. MANDATORY FIELDS
`)

	cat, err := Load(context.Background(), Source{TextPath: text})
	require.NoError(t, err)
	steps, ok := cat.RequiredSteps("Network")
	require.True(t, ok)
	assert.Equal(t, []string{"Initial Assessment", "Network Diagnostics", "Closure"}, steps)

	_, ok = cat.RequiredSteps("Security")
	assert.True(t, ok, "categories absent from the text keep their base steps")
}

func TestParseText(t *testing.T) {
	input := `INCIDENT MANAGEMENT STANDARDS

NETWORK INCIDENTS (4 Required Steps):
1. Initial Assessment
2. Network Diagnostics
3. Solution Implementation
4. Closure

USER SUPPORT INCIDENTS:
Description: desk requests
Required Steps: Ticket Logging, Troubleshooting , Closure

DATABASE INCIDENTS (2 Required Steps):
1) Query Analysis
2) Closure
`
	steps, err := ParseText(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"network":      {"Initial Assessment", "Network Diagnostics", "Solution Implementation", "Closure"},
		"user support": {"Ticket Logging", "Troubleshooting", "Closure"},
		"database":     {"Query Analysis", "Closure"},
	}, steps)
}

func TestParseText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"no sections", "nothing here\n", "no incident sections"},
		{"count mismatch", "NETWORK INCIDENTS (3 Required Steps):\n1. A\n2. B\n", "declares 3 steps, found 2"},
		{"empty section", "NETWORK INCIDENTS:\nDATABASE INCIDENTS:\n1. A\n", `section "network" has no steps`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseText(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	cat := Defaults()
	again, err := New(cat.Document())
	require.NoError(t, err)
	assert.Equal(t, cat.Document(), again.Document())
}
