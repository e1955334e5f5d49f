package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
)

// RateRepository supplies base nightly prices; the availability checker only
// layers overrides and restrictions on top of them
type RateRepository interface {
	// BaseRate returns the applicable base rate for a room type on a date,
	// or nil when no rate is configured. Seasonal windows win over the
	// windowless fallback.
	BaseRate(ctx context.Context, tenantID, roomTypeID string, date time.Time) (*entity.RoomRate, error)
}
