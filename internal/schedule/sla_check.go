package schedule

import "time"

// SLACheckResult contains the result of an SLA deadline check.
type SLACheckResult struct {
	// Breached is true if the work finished, or is still open, past the deadline.
	Breached bool
	// AtRisk is true if open work is within the lead window of the deadline.
	AtRisk bool
	// Deadline is the resolved absolute deadline time.
	Deadline time.Time
	// Remaining is the time left until the deadline; negative once passed.
	Remaining time.Duration
}

// CheckResolution evaluates a resolution budget of hours for work started at
// created. For finished work the completion time is compared with the
// deadline; for open work (completed nil) now is used and the lead window applies.
func CheckResolution(created time.Time, completed *time.Time, hours float64, now time.Time, lead time.Duration) SLACheckResult {
	deadline := Deadline(created, hours)
	result := SLACheckResult{Deadline: deadline}

	if completed != nil {
		result.Breached = IsBreached(deadline, *completed)
		return result
	}

	result.Remaining = deadline.Sub(now)
	result.Breached = IsBreached(deadline, now)
	result.AtRisk = IsAtRisk(deadline, now, lead)
	return result
}
