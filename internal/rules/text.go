package rules

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "NETWORK INCIDENTS (7 Required Steps):" or "USER SUPPORT INCIDENTS:"
	sectionHeader = regexp.MustCompile(`^([A-Z][A-Z0-9 /&_-]*?)\s+INCIDENTS\b[^:(]*(?:\((\d+)\s+Required Steps\))?\s*:\s*$`)
	numberedStep  = regexp.MustCompile(`^\d+[.)]\s+(.+?)\s*$`)
	inlineSteps   = regexp.MustCompile(`^Required Steps:\s*(.+?)\s*$`)
)

// ParseText extracts per-category step lists from a plain-text incident
// management rules document. Two section layouts are recognized:
//
//	NETWORK INCIDENTS (7 Required Steps):
//	1. Initial Assessment
//	2. Network Diagnostics
//
//	USER SUPPORT INCIDENTS:
//	Required Steps: Ticket Logging, Troubleshooting, Closure
//
// Category keys are lower-cased. A header that declares a step count must be
// followed by exactly that many steps.
func ParseText(r io.Reader) (map[string][]string, error) {
	out := make(map[string][]string)

	var (
		category string
		declared int
		steps    []string
		lineNo   int
	)
	flush := func() error {
		if category == "" {
			return nil
		}
		if len(steps) == 0 {
			return fmt.Errorf("section %q has no steps", category)
		}
		if declared > 0 && declared != len(steps) {
			return fmt.Errorf("section %q declares %d steps, found %d", category, declared, len(steps))
		}
		out[category] = steps
		category, declared, steps = "", 0, nil
		return nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return nil, err
			}
			category = strings.ToLower(strings.TrimSpace(m[1]))
			if m[2] != "" {
				n, err := strconv.Atoi(m[2])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad step count %q", lineNo, m[2])
				}
				declared = n
			}
			continue
		}
		if category == "" {
			continue
		}
		if line == "" {
			if len(steps) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			continue
		}
		if m := inlineSteps.FindStringSubmatch(line); m != nil {
			for _, s := range strings.Split(m[1], ",") {
				if s = strings.TrimSpace(s); s != "" {
					steps = append(steps, s)
				}
			}
			continue
		}
		if m := numberedStep.FindStringSubmatch(line); m != nil {
			steps = append(steps, m[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading rule text: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no incident sections found")
	}
	return out, nil
}
