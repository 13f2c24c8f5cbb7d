package domain

import "time"

// Facility is a recycling or donation location.
type Facility struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Address       string         `json:"address"`
	City          string         `json:"city"`
	State         string         `json:"state"`
	ZipCode       string         `json:"zip_code"`
	Phone         string         `json:"phone,omitempty"`
	Website       string         `json:"website,omitempty"`
	Email         string         `json:"email,omitempty"`
	ImageURL      string         `json:"image_url,omitempty"`
	IsVerified    bool           `json:"is_verified"`
	Types         []string       `json:"types"`
	AcceptedItems []string       `json:"accepted_items"`
	Hours         []FacilityHour `json:"hours,omitempty"`
	ItemIDs       []string       `json:"item_ids,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// FacilityHour is the opening window of a facility on one weekday
// (0 = Sunday).
type FacilityHour struct {
	ID         string `json:"id"`
	FacilityID string `json:"facility_id"`
	DayOfWeek  int    `json:"day_of_week"`
	OpenTime   string `json:"open_time,omitempty"`
	CloseTime  string `json:"close_time,omitempty"`
	IsClosed   bool   `json:"is_closed"`
}

// FacilityFilter holds the optional criteria for listing facilities.
// Radius is in miles and only applies when Lat and Lng are both set.
type FacilityFilter struct {
	Type    string
	City    string
	ZipCode string
	ItemIDs []string
	Lat     *float64
	Lng     *float64
	Radius  *float64
	Limit   int
	Offset  int
}

// FacilityList is a page of facilities and the total number of matches.
type FacilityList struct {
	Facilities []Facility `json:"facilities"`
	Total      int        `json:"total"`
}

// BestMatch is the facility accepting the most of the requested items.
type BestMatch struct {
	Facility        *Facility `json:"facility"`
	MatchCount      int       `json:"match_count"`
	MatchPercentage string    `json:"match_percentage"`
}
