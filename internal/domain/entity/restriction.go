package entity

import (
	"fmt"
	"time"

	"roomsync-service/pkg/utils"
)

// Restriction kinds
const (
	KindMinStay           = "min_stay"
	KindMaxStay           = "max_stay"
	KindClosedToArrival   = "closed_to_arrival"
	KindClosedToDeparture = "closed_to_departure"
	KindStopSell          = "stop_sell"
	KindMinAdvanceBooking = "min_advance_booking"
	KindMaxAdvanceBooking = "max_advance_booking"
)

// Restriction sources
const (
	SourceManual          = "manual"
	SourceChannelManager  = "channel_manager"
	SourceYieldManagement = "yield_management"
	SourceBulkImport      = "bulk_import"
)

// Scope specificity ranks, higher is more specific
const (
	ScopeProperty = 0
	ScopeRoomType = 1
	ScopeRoom     = 2
)

// Restriction is a date-ranged booking rule scoped to a property, a room
// type or a single room. The narrowest non-nil scope applies.
type Restriction struct {
	ID         uint
	TenantID   string
	PropertyID string
	RoomTypeID *string
	RoomID     *string
	Kind       string
	Value      int  // magnitude for numeric kinds
	Flag       bool // state for binary kinds
	DateFrom   time.Time
	DateTo     time.Time // inclusive
	DaysOfWeek []int     // 0=Sunday..6=Saturday, empty = every day
	Priority   int
	Source     string
	IsActive   bool

	SyncPending bool
	LastSyncAt  *time.Time
	SyncError   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NumericKind reports whether a kind carries an integer magnitude rather
// than a boolean flag
func NumericKind(kind string) bool {
	switch kind {
	case KindMinStay, KindMaxStay, KindMinAdvanceBooking, KindMaxAdvanceBooking:
		return true
	}
	return false
}

// KnownKind reports whether kind is one of the recognized restriction kinds
func KnownKind(kind string) bool {
	switch kind {
	case KindMinStay, KindMaxStay, KindClosedToArrival, KindClosedToDeparture,
		KindStopSell, KindMinAdvanceBooking, KindMaxAdvanceBooking:
		return true
	}
	return false
}

// Scope returns the specificity rank of this restriction
func (r *Restriction) Scope() int {
	if r.RoomID != nil && *r.RoomID != "" {
		return ScopeRoom
	}
	if r.RoomTypeID != nil && *r.RoomTypeID != "" {
		return ScopeRoomType
	}
	return ScopeProperty
}

// AppliesOn reports whether the restriction covers the given calendar date.
// A weekday entry outside 0..6 never matches; such rows are rejected at
// write time and must not make the resolver crash at read time.
func (r *Restriction) AppliesOn(date time.Time) bool {
	day := utils.ToDay(date)
	if day.Before(utils.ToDay(r.DateFrom)) || day.After(utils.ToDay(r.DateTo)) {
		return false
	}
	if len(r.DaysOfWeek) == 0 {
		return true
	}
	weekday := utils.WeekdayIndex(day)
	for _, d := range r.DaysOfWeek {
		if d == weekday {
			return true
		}
	}
	return false
}

// Validate checks the restriction is well formed before it is stored
func (r *Restriction) Validate() error {
	if r.TenantID == "" {
		return ErrMissingTenant
	}
	if r.PropertyID == "" {
		return fmt.Errorf("property id is required")
	}
	if !KnownKind(r.Kind) {
		return fmt.Errorf("unknown restriction kind %q", r.Kind)
	}
	if r.DateTo.Before(r.DateFrom) {
		return fmt.Errorf("date_to %s is before date_from %s",
			r.DateTo.Format("2006-01-02"), r.DateFrom.Format("2006-01-02"))
	}
	if NumericKind(r.Kind) && r.Value < 0 {
		return fmt.Errorf("value must not be negative for kind %q", r.Kind)
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("day of week %d is out of range 0..6", d)
		}
	}
	return nil
}

// SameTuple reports whether two restrictions share the exact scope, period
// and kind. Overlapping-but-not-identical periods are deliberately allowed
// to coexist; only exact duplicates are rejected.
func (r *Restriction) SameTuple(other *Restriction) bool {
	return r.TenantID == other.TenantID &&
		r.PropertyID == other.PropertyID &&
		strPtrEq(r.RoomTypeID, other.RoomTypeID) &&
		strPtrEq(r.RoomID, other.RoomID) &&
		r.Kind == other.Kind &&
		r.DateFrom.Equal(other.DateFrom) &&
		r.DateTo.Equal(other.DateTo)
}

func strPtrEq(a, b *string) bool {
	if a == nil || *a == "" {
		return b == nil || *b == ""
	}
	if b == nil {
		return false
	}
	return *a == *b
}
