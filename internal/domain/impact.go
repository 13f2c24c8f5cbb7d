package domain

// ImpactSummary sums impact metrics. All fields are zero when nothing was
// recorded.
type ImpactSummary struct {
	CarbonOffset      float64 `json:"carbon_offset"`
	TreesEquivalent   float64 `json:"trees_equivalent"`
	LandfillReduction float64 `json:"landfill_reduction"`
}
