package domain

import (
	"math"
	"time"
)

// Item condition constants.
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// KgCO2PerTree is the yearly CO2 absorption of one mature tree, used to
// express carbon offsets as trees.
const KgCO2PerTree = 21.77

// ValidConditions returns every accepted item condition.
func ValidConditions() []string {
	return []string{ConditionNew, ConditionUsed, ConditionRefurbished}
}

// IsValidCondition checks whether the given condition is accepted.
func IsValidCondition(c string) bool {
	for _, v := range ValidConditions() {
		if v == c {
			return true
		}
	}
	return false
}

// DropOff records items left at a facility by a user or a guest. Exactly one
// of UserID and GuestSessionID is set.
type DropOff struct {
	ID             string        `json:"id"`
	UserID         *string       `json:"user_id,omitempty"`
	GuestSessionID *string       `json:"guest_session_id,omitempty"`
	FacilityID     string        `json:"facility_id"`
	DropOffDate    time.Time     `json:"drop_off_date"`
	Notes          string        `json:"notes,omitempty"`
	Items          []DropOffItem `json:"items,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// OwnedBy reports whether id may see the drop-off.
func (d *DropOff) OwnedBy(id Identity) bool {
	switch id.Kind {
	case KindAuthenticated:
		return d.UserID != nil && *d.UserID == id.UserID
	case KindGuest:
		return d.GuestSessionID != nil && *d.GuestSessionID == id.UserID
	default:
		return false
	}
}

// DropOffItem is one line of a drop-off.
type DropOffItem struct {
	ID             string  `json:"id"`
	DropOffID      string  `json:"drop_off_id"`
	ItemID         string  `json:"item_id"`
	Quantity       int     `json:"quantity"`
	Condition      string  `json:"condition"`
	EstimatedValue float64 `json:"estimated_value"`
	CarbonOffset   float64 `json:"carbon_offset"`
}

// ImpactMetric is the environmental impact attributed to one drop-off.
type ImpactMetric struct {
	ID                string    `json:"id"`
	UserID            *string   `json:"user_id,omitempty"`
	DropOffID         string    `json:"drop_off_id"`
	CarbonOffset      float64   `json:"carbon_offset"`
	TreesEquivalent   float64   `json:"trees_equivalent"`
	LandfillReduction float64   `json:"landfill_reduction"`
	CreatedAt         time.Time `json:"created_at"`
}

// CalculateImpact fills each item's carbon offset from the per-unit offsets
// in perUnit (keyed by item id) and returns the aggregate impact. Landfill
// reduction is the total number of units.
func CalculateImpact(items []DropOffItem, perUnit map[string]float64) ImpactMetric {
	var carbon float64
	var units int
	for i := range items {
		items[i].CarbonOffset = round2(float64(items[i].Quantity) * perUnit[items[i].ItemID])
		carbon += items[i].CarbonOffset
		units += items[i].Quantity
	}
	return ImpactMetric{
		CarbonOffset:      round2(carbon),
		TreesEquivalent:   round2(carbon / KgCO2PerTree),
		LandfillReduction: float64(units),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ExportRow is one flattened drop-off item line in a history export.
type ExportRow struct {
	DropOffID         string    `json:"drop_off_id"`
	DropOffDate       time.Time `json:"drop_off_date"`
	FacilityName      string    `json:"facility_name"`
	ItemName          string    `json:"item_name"`
	Quantity          int       `json:"quantity"`
	Condition         string    `json:"condition"`
	EstimatedValue    float64   `json:"estimated_value"`
	CarbonOffset      float64   `json:"carbon_offset"`
	TreesEquivalent   float64   `json:"trees_equivalent"`
	LandfillReduction float64   `json:"landfill_reduction"`
}

// ExportFilter bounds a history export by drop-off date, inclusive.
type ExportFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}
