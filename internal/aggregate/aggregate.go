// Package aggregate summarizes evaluation results for reporting and
// per-owner fan-out.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// UnassignedKey groups results that carry no owner information.
const UnassignedKey = "unassigned"

// TopOffenderLimit caps the technician ranking in a Summary.
const TopOffenderLimit = 5

// OwnerKey returns the stable fan-out key for an owner: the manager email,
// else the manager name, else the technician email, else the technician
// name. Emails are lower-cased. A zero owner yields UnassignedKey and
// types.ErrMissingOwner.
func OwnerKey(o types.Owner) (string, error) {
	switch {
	case strings.TrimSpace(o.ManagerEmail) != "":
		return strings.ToLower(strings.TrimSpace(o.ManagerEmail)), nil
	case strings.TrimSpace(o.ManagerName) != "":
		return strings.TrimSpace(o.ManagerName), nil
	case strings.TrimSpace(o.TechnicianEmail) != "":
		return strings.ToLower(strings.TrimSpace(o.TechnicianEmail)), nil
	case strings.TrimSpace(o.TechnicianName) != "":
		return strings.TrimSpace(o.TechnicianName), nil
	}
	return UnassignedKey, types.ErrMissingOwner
}

// ownerIdentity picks the display name and address that go with OwnerKey.
func ownerIdentity(o types.Owner) (name, email string) {
	if o.ManagerEmail != "" || o.ManagerName != "" {
		return o.ManagerName, o.ManagerEmail
	}
	return o.TechnicianName, o.TechnicianEmail
}

// Summarize computes the Summary for a batch. Every result lands in exactly
// one owner group; results with no owner go to UnassignedKey and their ticket
// ids are listed in Unassigned. Malformed records are carried through as-is.
func Summarize(results []types.EvaluationResult, malformed []types.MalformedRecord) types.Summary {
	s := types.Summary{
		Total:          len(results),
		ByKind:         make(map[types.ViolationKind]int),
		ByCategory:     make(map[string]types.CategoryStats),
		ByOwner:        []types.OwnerGroup{},
		Malformed:      malformed,
		MalformedCount: len(malformed),
	}

	groups := make(map[string]*types.OwnerGroup)
	technicians := make(map[string]*types.OwnerCount)

	for _, r := range results {
		switch r.TicketType {
		case types.TicketIncident:
			s.Incidents++
		case types.TicketChange:
			s.Changes++
		}
		if r.Status() == types.NonCompliant {
			s.NonCompliant++
		}
		if r.HasSLABreach() {
			s.SLABreaches++
		}
		for _, v := range r.Violations {
			s.ByKind[v.Kind]++
		}

		cat := categoryLabel(r.Category)
		stats := s.ByCategory[cat]
		stats.Tickets++
		stats.Violations += len(r.Violations)
		s.ByCategory[cat] = stats

		key, err := OwnerKey(r.Owner)
		if err != nil {
			s.Unassigned = append(s.Unassigned, r.TicketID)
		}
		g, ok := groups[key]
		if !ok {
			name, email := ownerIdentity(r.Owner)
			g = &types.OwnerGroup{Key: key, Name: name, Email: email}
			groups[key] = g
		}
		g.TicketCount++
		g.Violations += len(r.Violations)
		if r.Status() == types.NonCompliant {
			g.NonCompliant++
		}
		g.Results = append(g.Results, r)

		if len(r.Violations) > 0 {
			if tk, name, email := technicianKey(r.Owner); tk != "" {
				c, ok := technicians[tk]
				if !ok {
					c = &types.OwnerCount{Name: name, Email: email}
					technicians[tk] = c
				}
				c.Violations += len(r.Violations)
			}
		}
	}

	for cat, stats := range s.ByCategory {
		stats.MeanViolations = round(float64(stats.Violations)/float64(stats.Tickets), 2)
		s.ByCategory[cat] = stats
	}
	if s.Total > 0 {
		s.DeviationRate = round(float64(s.NonCompliant)/float64(s.Total)*100, 1)
		s.SLABreachRate = round(float64(s.SLABreaches)/float64(s.Total)*100, 1)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.ByOwner = append(s.ByOwner, *groups[k])
	}

	s.TopOffenders = rank(technicians)
	return s
}

// technicianKey identifies the person who worked the ticket.
func technicianKey(o types.Owner) (key, name, email string) {
	switch {
	case o.TechnicianEmail != "":
		key = strings.ToLower(strings.TrimSpace(o.TechnicianEmail))
	case o.TechnicianName != "":
		key = strings.TrimSpace(o.TechnicianName)
	}
	return key, o.TechnicianName, o.TechnicianEmail
}

func rank(counts map[string]*types.OwnerCount) []types.OwnerCount {
	out := make([]types.OwnerCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Violations != out[j].Violations {
			return out[i].Violations > out[j].Violations
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	if len(out) > TopOffenderLimit {
		out = out[:TopOffenderLimit]
	}
	return out
}

func categoryLabel(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "Uncategorized"
	}
	return c
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
