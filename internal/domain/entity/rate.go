package entity

import "time"

// RoomRate is a base nightly price for a room type. A row with a seasonal
// window applies only inside it; a windowless row is the fallback rate.
type RoomRate struct {
	ID         uint
	TenantID   string
	PropertyID string
	RoomTypeID string

	NightlyRate float64
	Currency    string

	DateFrom *time.Time
	DateTo   *time.Time

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether the rate applies on the given date
func (r *RoomRate) Covers(date time.Time) bool {
	if r.DateFrom == nil && r.DateTo == nil {
		return true
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if r.DateFrom != nil && day.Before(time.Date(r.DateFrom.Year(), r.DateFrom.Month(), r.DateFrom.Day(), 0, 0, 0, 0, time.UTC)) {
		return false
	}
	if r.DateTo != nil && day.After(time.Date(r.DateTo.Year(), r.DateTo.Month(), r.DateTo.Day(), 0, 0, 0, 0, time.UTC)) {
		return false
	}
	return true
}

// Seasonal reports whether the rate is bound to a date window
func (r *RoomRate) Seasonal() bool {
	return r.DateFrom != nil || r.DateTo != nil
}
