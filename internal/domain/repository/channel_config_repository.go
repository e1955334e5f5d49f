package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
)

// ChannelConfigRepository defines the interface for channel configuration storage
type ChannelConfigRepository interface {
	FindByID(ctx context.Context, id uint) (*entity.ChannelConfiguration, error)

	FindActive(ctx context.Context) ([]*entity.ChannelConfiguration, error)

	Save(ctx context.Context, cfg *entity.ChannelConfiguration) error

	// UpdateSyncResult records the outcome of the latest run on the
	// configuration itself, which is what UIs read instead of exceptions
	UpdateSyncResult(ctx context.Context, id uint, at time.Time, message string) error

	IncrementErrorCount(ctx context.Context, id uint) error

	UpdateConnectionStatus(ctx context.Context, id uint, status string) error
}
