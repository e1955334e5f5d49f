package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
)

// AvailabilityRepository defines the interface for calendar storage. A nil
// day from GetDay means no row exists and the night is default open.
type AvailabilityRepository interface {
	GetDay(ctx context.Context, tenantID, roomID string, date time.Time) (*entity.AvailabilityDay, error)

	GetRange(ctx context.Context, tenantID, roomID string, from, to time.Time) ([]*entity.AvailabilityDay, error)

	// GetPropertyRange returns every stored day for the property in the range
	GetPropertyRange(ctx context.Context, tenantID, propertyID string, from, to time.Time) ([]*entity.AvailabilityDay, error)

	// SetRange applies a partial patch to every (room, date) in the range,
	// creating rows where none exist
	SetRange(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time, patch entity.AvailabilityPatch) error

	// MarkReserved reserves every night in [from, to) for one room as a
	// single atomic unit: either all nights transition or none does. A night
	// already reserved or out of order fails the whole call with a
	// DateUnavailableError naming the first conflicting date.
	MarkReserved(ctx context.Context, tenantID, propertyID, roomID string, from, to time.Time, reservationID string) error

	// ClearReservation releases the nights held by a reservation
	ClearReservation(ctx context.Context, tenantID, roomID string, from, to time.Time) error

	// UpsertDay writes one full day row, used by inbound sync application
	UpsertDay(ctx context.Context, day *entity.AvailabilityDay) error
}
