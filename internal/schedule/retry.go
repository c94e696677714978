package schedule

import (
	"time"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// MaxBackoff caps the wait between two source fetch attempts.
const MaxBackoff = time.Hour

const defaultMultiplier = 2.0

// DefaultRetryPolicy returns the default source fetch retry configuration.
func DefaultRetryPolicy() types.RetryPolicy {
	return types.RetryPolicy{
		MaxAttempts:       3,
		BackoffSeconds:    5,
		BackoffMultiplier: defaultMultiplier,
	}
}

// CalculateBackoff returns the wait before retrying after the given attempt:
// BackoffSeconds grown by BackoffMultiplier per earlier attempt, at most
// MaxBackoff. A non-positive multiplier means doubling.
func CalculateBackoff(policy types.RetryPolicy, attempt int) time.Duration {
	mult := policy.BackoffMultiplier
	if mult <= 0 {
		mult = defaultMultiplier
	}
	wait := float64(policy.BackoffSeconds)
	for i := 1; i < attempt; i++ {
		wait *= mult
		if wait >= MaxBackoff.Seconds() {
			return MaxBackoff
		}
	}
	return time.Duration(wait) * time.Second
}
