package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
)

// ChannelClient talks to the external channel manager. Failures are
// entity.RemoteError values so the sync engine can tell transient from
// permanent without knowing the wire protocol.
type ChannelClient interface {
	FetchAvailability(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time, roomCodes []string) ([]entity.RemoteAvailability, error)

	// PushAvailability pushes a single room-night; the caller marks local
	// state clean only after this returns nil for that item
	PushAvailability(ctx context.Context, creds entity.ChannelCredentials, item entity.RemoteAvailability) error

	FetchRestrictions(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time) ([]entity.RemoteRestriction, error)

	PushRestriction(ctx context.Context, creds entity.ChannelCredentials, item entity.RemoteRestriction) error

	FetchRates(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time) ([]entity.RemoteRate, error)
}
