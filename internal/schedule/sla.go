// Package schedule provides SLA deadline arithmetic and retry backoff.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var timeOfDayRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Deadline returns the instant a budget of hours after start runs out.
func Deadline(start time.Time, hours float64) time.Time {
	return start.Add(time.Duration(hours * float64(time.Hour)))
}

// HoursBetween returns the elapsed hours from a to b. Negative when b is before a.
func HoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}

// IsBreached checks if the current time has passed the deadline.
func IsBreached(deadline, now time.Time) bool {
	return now.After(deadline)
}

// IsAtRisk reports whether now falls inside the lead window before the
// deadline. A past deadline is breached, not at risk. A non-positive lead
// disables the check.
func IsAtRisk(deadline, now time.Time, lead time.Duration) bool {
	if lead <= 0 || IsBreached(deadline, now) {
		return false
	}
	return deadline.Sub(now) < lead
}

// ParseTimeOfDay parses "HH:MM" into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	m := timeOfDayRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time %q: must be HH:MM", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

// ParseWindow parses a Go duration, returning def for an empty string.
func ParseWindow(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}
