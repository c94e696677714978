// Package rules loads, validates, and exposes the compliance rule catalog.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// Catalog is an immutable compliance policy. It is safe for concurrent use;
// accessors return copies.
type Catalog struct {
	name             string
	source           string
	degraded         bool
	sla              map[types.Priority]types.SLATarget
	steps            map[string][]string
	categoryNames    map[string]string
	approvals        map[types.ChangeType][]string
	maxReassignments int
	kbPriorities     map[types.Priority]bool
	testingRisk      map[types.RiskLevel]bool
}

// New validates doc and builds a Catalog from a deep copy of it.
func New(doc types.RuleDocument) (*Catalog, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		name:          doc.Name,
		sla:           make(map[types.Priority]types.SLATarget, len(doc.SLA)),
		steps:         make(map[string][]string, len(doc.RequiredSteps)),
		categoryNames: make(map[string]string, len(doc.RequiredSteps)),
		approvals:     make(map[types.ChangeType][]string, len(doc.RequiredApprovals)),
		kbPriorities:  make(map[types.Priority]bool),
		testingRisk:   make(map[types.RiskLevel]bool),
	}
	for k, v := range doc.SLA {
		p, _ := types.ParsePriority(string(k))
		c.sla[p] = v
	}
	for k, v := range doc.RequiredSteps {
		key := CategoryKey(k)
		c.steps[key] = trimAll(v)
		c.categoryNames[key] = strings.TrimSpace(k)
	}
	for k, v := range doc.RequiredApprovals {
		ct, _ := types.ParseChangeType(string(k))
		c.approvals[ct] = trimAll(v)
	}
	c.maxReassignments = *doc.MaxReassignments
	for _, p := range doc.KBRequiredPriorities {
		pp, _ := types.ParsePriority(string(p))
		c.kbPriorities[pp] = true
	}
	for _, r := range doc.TestingRequiredRiskLevels {
		rr, _ := types.ParseRiskLevel(string(r))
		c.testingRisk[rr] = true
	}
	return c, nil
}

// CategoryKey normalizes a category name for lookup. Matching is
// case-insensitive and treats underscores as spaces.
func CategoryKey(category string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(category), "_", " "))
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Source describes where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Degraded reports whether the catalog is the embedded default substituted
// for an unavailable source.
func (c *Catalog) Degraded() bool { return c.degraded }

// SLA returns the SLA target for a priority. A missing entry is a
// configuration error, never a silent default.
func (c *Catalog) SLA(p types.Priority) (types.SLATarget, error) {
	t, ok := c.sla[p]
	if !ok {
		return types.SLATarget{}, sourceErr(c.sourceName(), fmt.Errorf("no SLA entry for priority %q", p))
	}
	return t, nil
}

// RequiredSteps returns the ordered steps for a category. ok is false when
// the category has no configured process.
func (c *Catalog) RequiredSteps(category string) ([]string, bool) {
	steps, ok := c.steps[CategoryKey(category)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), steps...), true
}

// RequiredApprovals returns the approver roles for a change type.
func (c *Catalog) RequiredApprovals(ct types.ChangeType) ([]string, error) {
	roles, ok := c.approvals[ct]
	if !ok {
		return nil, sourceErr(c.sourceName(), fmt.Errorf("no approval entry for change type %q", ct))
	}
	return append([]string(nil), roles...), nil
}

// MaxReassignments returns the reassignment limit. Counts strictly above it
// are violations.
func (c *Catalog) MaxReassignments() int { return c.maxReassignments }

// KBRequired reports whether incidents of priority p must produce a knowledge article.
func (c *Catalog) KBRequired(p types.Priority) bool { return c.kbPriorities[p] }

// TestingRequired reports whether changes at risk level r must carry testing evidence.
func (c *Catalog) TestingRequired(r types.RiskLevel) bool { return c.testingRisk[r] }

// Categories returns the declared category names, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.categoryNames))
	for _, name := range c.categoryNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Require checks that every given priority has an SLA entry.
func (c *Catalog) Require(priorities ...types.Priority) error {
	var missing []string
	seen := make(map[types.Priority]bool)
	for _, p := range priorities {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, ok := c.sla[p]; !ok {
			missing = append(missing, string(p))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return sourceErr(c.sourceName(), fmt.Errorf("no SLA entry for priorities %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Document returns a serializable copy of the catalog.
func (c *Catalog) Document() types.RuleDocument {
	doc := types.RuleDocument{
		Name:              c.name,
		SLA:               make(map[types.Priority]types.SLATarget, len(c.sla)),
		RequiredSteps:     make(map[string][]string, len(c.steps)),
		RequiredApprovals: make(map[types.ChangeType][]string, len(c.approvals)),
	}
	for k, v := range c.sla {
		doc.SLA[k] = v
	}
	for k, v := range c.steps {
		doc.RequiredSteps[c.categoryNames[k]] = append([]string(nil), v...)
	}
	for k, v := range c.approvals {
		doc.RequiredApprovals[k] = append([]string(nil), v...)
	}
	limit := c.maxReassignments
	doc.MaxReassignments = &limit
	for _, p := range types.Priorities {
		if c.kbPriorities[p] {
			doc.KBRequiredPriorities = append(doc.KBRequiredPriorities, p)
		}
	}
	for _, r := range types.RiskLevels {
		if c.testingRisk[r] {
			doc.TestingRequiredRiskLevels = append(doc.TestingRequiredRiskLevels, r)
		}
	}
	return doc
}

func (c *Catalog) sourceName() string {
	if c.source != "" {
		return c.source
	}
	if c.name != "" {
		return c.name
	}
	return "catalog"
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
