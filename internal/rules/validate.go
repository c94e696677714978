package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// Validate checks a rule document for structural errors. All problems are
// reported together.
func Validate(doc types.RuleDocument) error {
	var errs []error

	if len(doc.SLA) == 0 {
		errs = append(errs, errors.New("sla: at least one priority is required"))
	}
	seenPriority := make(map[types.Priority]string)
	for _, k := range sortedKeys(doc.SLA) {
		t := doc.SLA[types.Priority(k)]
		p, err := types.ParsePriority(k)
		if err != nil {
			errs = append(errs, fmt.Errorf("sla: %w", err))
			continue
		}
		if prev, dup := seenPriority[p]; dup {
			errs = append(errs, fmt.Errorf("sla: priority %q declared twice (%q, %q)", p, prev, k))
		}
		seenPriority[p] = k
		if t.ResolutionHours <= 0 {
			errs = append(errs, fmt.Errorf("sla.%s: resolutionHours must be positive", p))
		}
		if t.ResponseHours < 0 {
			errs = append(errs, fmt.Errorf("sla.%s: responseHours must not be negative", p))
		}
	}

	seenCategory := make(map[string]string)
	for _, k := range sortedKeys(doc.RequiredSteps) {
		steps := doc.RequiredSteps[k]
		key := CategoryKey(k)
		if key == "" {
			errs = append(errs, errors.New("requiredSteps: category name is empty"))
			continue
		}
		if prev, dup := seenCategory[key]; dup {
			errs = append(errs, fmt.Errorf("requiredSteps: category %q declared twice (%q)", k, prev))
		}
		seenCategory[key] = k
		if len(steps) == 0 {
			errs = append(errs, fmt.Errorf("requiredSteps.%s: at least one step is required", k))
		}
		seenStep := make(map[string]bool, len(steps))
		for i, s := range steps {
			s = strings.TrimSpace(s)
			if s == "" {
				errs = append(errs, fmt.Errorf("requiredSteps.%s[%d]: step name is empty", k, i))
				continue
			}
			if seenStep[s] {
				errs = append(errs, fmt.Errorf("requiredSteps.%s: duplicate step %q", k, s))
			}
			seenStep[s] = true
		}
	}

	declared := make(map[types.ChangeType]bool)
	for _, k := range sortedKeys(doc.RequiredApprovals) {
		ct, err := types.ParseChangeType(k)
		if err != nil {
			errs = append(errs, fmt.Errorf("requiredApprovals: %w", err))
			continue
		}
		declared[ct] = true
		for i, role := range doc.RequiredApprovals[types.ChangeType(k)] {
			if strings.TrimSpace(role) == "" {
				errs = append(errs, fmt.Errorf("requiredApprovals.%s[%d]: role is empty", k, i))
			}
		}
	}
	for _, ct := range types.ChangeTypes {
		if !declared[ct] {
			errs = append(errs, fmt.Errorf("requiredApprovals: no entry for change type %q", ct))
		}
	}

	if doc.MaxReassignments == nil {
		errs = append(errs, errors.New("maxReassignments is required"))
	} else if *doc.MaxReassignments < 0 {
		errs = append(errs, errors.New("maxReassignments must not be negative"))
	}

	for _, p := range doc.KBRequiredPriorities {
		if _, err := types.ParsePriority(string(p)); err != nil {
			errs = append(errs, fmt.Errorf("kbRequiredPriorities: %w", err))
		}
	}
	for _, r := range doc.TestingRequiredRiskLevels {
		if _, err := types.ParseRiskLevel(string(r)); err != nil {
			errs = append(errs, fmt.Errorf("testingRequiredRiskLevels: %w", err))
		}
	}

	if len(errs) > 0 {
		return sourceErr(docName(doc), errors.Join(errs...))
	}
	return nil
}

func docName(doc types.RuleDocument) string {
	if doc.Name != "" {
		return doc.Name
	}
	return "document"
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
