package domain

import "time"

// Category groups recyclable items.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Item is a kind of object that can be dropped off. AverageCarbonOffset is
// in kilograms of CO2 per unit.
type Item struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	CategoryID          string    `json:"category_id"`
	Description         string    `json:"description,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	AverageValue        float64   `json:"average_value"`
	AverageCarbonOffset float64   `json:"average_carbon_offset"`
	Category            *Category `json:"category,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CategoryWithItems is a category and every item in it.
type CategoryWithItems struct {
	Category
	Items []Item `json:"items"`
}

// PopularCategory is a category ranked by the number of drop-offs that
// included one of its items.
type PopularCategory struct {
	Category
	DropOffCount int `json:"drop_off_count"`
}

// CategoryStats aggregates activity for one category.
type CategoryStats struct {
	CategoryID    string  `json:"category_id"`
	TotalItems    int     `json:"total_items"`
	TotalDropOffs int     `json:"total_drop_offs"`
	TotalImpact   float64 `json:"total_impact"`
}
