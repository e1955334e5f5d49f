package entity

import (
	"fmt"
	"time"
)

// Reasons a single night refuses a stay
const (
	DayReasonReserved    = "reserved"
	DayReasonOutOfOrder  = "out_of_order"
	DayReasonMaintenance = "maintenance"
	DayReasonBlocked     = "blocked"
	DayReasonUnavailable = "not available"
)

// AvailabilityDay is one room-night of calendar state. The absence of a row
// means the night is open with no overrides; callers must treat a nil day
// as DefaultOpenDay.
type AvailabilityDay struct {
	ID         uint
	TenantID   string
	PropertyID string
	RoomID     string
	Date       time.Time

	IsAvailable   bool
	IsBlocked     bool
	IsOutOfOrder  bool
	IsMaintenance bool
	IsReserved    bool
	ReservationID *string

	ClosedToArrival   bool
	ClosedToDeparture bool

	RateOverride *float64
	MinStay      *int
	MaxStay      *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultOpenDay returns the implicit state of a night with no stored row
func DefaultOpenDay(tenantID, propertyID, roomID string, date time.Time) *AvailabilityDay {
	return &AvailabilityDay{
		TenantID:    tenantID,
		PropertyID:  propertyID,
		RoomID:      roomID,
		Date:        date,
		IsAvailable: true,
	}
}

// Validate enforces the per-day invariants before a row is stored
func (d *AvailabilityDay) Validate() error {
	if d.TenantID == "" {
		return ErrMissingTenant
	}
	if d.IsReserved && (d.ReservationID == nil || *d.ReservationID == "") {
		return fmt.Errorf("reserved day %s must carry a reservation id", d.Date.Format("2006-01-02"))
	}
	if d.IsAvailable && d.IsOutOfOrder {
		return fmt.Errorf("day %s cannot be both available and out of order", d.Date.Format("2006-01-02"))
	}
	return nil
}

// BlocksStay returns the reason this night refuses a stay, or "" when the
// night is open
func (d *AvailabilityDay) BlocksStay() string {
	switch {
	case d.IsReserved:
		return DayReasonReserved
	case d.IsOutOfOrder:
		return DayReasonOutOfOrder
	case d.IsMaintenance:
		return DayReasonMaintenance
	case d.IsBlocked:
		return DayReasonBlocked
	case !d.IsAvailable:
		return DayReasonUnavailable
	}
	return ""
}

// BlocksReservation reports whether MarkReserved must refuse this night
func (d *AvailabilityDay) BlocksReservation() bool {
	return d.IsReserved || d.IsOutOfOrder
}

// AvailabilityPatch is a partial update applied to a range of days; nil
// fields are left untouched
type AvailabilityPatch struct {
	IsAvailable       *bool
	IsBlocked         *bool
	IsOutOfOrder      *bool
	IsMaintenance     *bool
	ClosedToArrival   *bool
	ClosedToDeparture *bool
	RateOverride      *float64
	MinStay           *int
	MaxStay           *int
}

// IsZero reports whether the patch changes nothing
func (p AvailabilityPatch) IsZero() bool {
	return p.IsAvailable == nil && p.IsBlocked == nil && p.IsOutOfOrder == nil &&
		p.IsMaintenance == nil && p.ClosedToArrival == nil && p.ClosedToDeparture == nil &&
		p.RateOverride == nil && p.MinStay == nil && p.MaxStay == nil
}

// Apply writes the patch onto a day in place
func (p AvailabilityPatch) Apply(d *AvailabilityDay) {
	if p.IsAvailable != nil {
		d.IsAvailable = *p.IsAvailable
	}
	if p.IsBlocked != nil {
		d.IsBlocked = *p.IsBlocked
	}
	if p.IsOutOfOrder != nil {
		d.IsOutOfOrder = *p.IsOutOfOrder
	}
	if p.IsMaintenance != nil {
		d.IsMaintenance = *p.IsMaintenance
	}
	if p.ClosedToArrival != nil {
		d.ClosedToArrival = *p.ClosedToArrival
	}
	if p.ClosedToDeparture != nil {
		d.ClosedToDeparture = *p.ClosedToDeparture
	}
	if p.RateOverride != nil {
		d.RateOverride = p.RateOverride
	}
	if p.MinStay != nil {
		d.MinStay = p.MinStay
	}
	if p.MaxStay != nil {
		d.MaxStay = p.MaxStay
	}
}
