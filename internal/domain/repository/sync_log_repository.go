package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
)

// SyncLogFilter narrows sync log listings
type SyncLogFilter struct {
	ConfigID      uint
	TenantID      string
	Status        string
	Kind          string
	StartedAfter  *time.Time
	StartedBefore *time.Time
	Limit         int
}

// SyncLogRepository defines the interface for the append-only sync audit
// trail. Updates to a log that already reached a terminal status fail with
// entity.ErrSyncLogFinalized.
type SyncLogRepository interface {
	Create(ctx context.Context, log *entity.SyncLog) error

	Update(ctx context.Context, log *entity.SyncLog) error

	FindByID(ctx context.Context, id string) (*entity.SyncLog, error)

	List(ctx context.Context, filter SyncLogFilter) ([]*entity.SyncLog, error)
}
