package aggregate

import "github.com/dwsmith1983/guardian/pkg/types"

// GroupRisk buckets risk statuses by OwnerKey, preserving input order within
// each bucket.
func GroupRisk(statuses []types.RiskStatus) map[string][]types.RiskStatus {
	out := make(map[string][]types.RiskStatus)
	for _, st := range statuses {
		key, _ := OwnerKey(st.Owner)
		out[key] = append(out[key], st)
	}
	return out
}

// CountByState tallies statuses per risk state.
func CountByState(statuses []types.RiskStatus) map[types.RiskState]int {
	out := make(map[types.RiskState]int, 2)
	for _, st := range statuses {
		out[st.State]++
	}
	return out
}
