package repository

import (
	"context"
	"time"
)

// SyncLockRepository serializes sync runs per channel configuration. The
// lock lives in a shared store, not in process memory, because several
// service instances may run at once.
type SyncLockRepository interface {
	// Acquire takes the lock for a configuration and returns an owner token.
	// A held lock fails with entity.ErrSyncAlreadyRunning; requests are
	// rejected, never queued.
	Acquire(ctx context.Context, configID uint, ttl time.Duration) (string, error)

	// Release frees the lock if the token still owns it
	Release(ctx context.Context, configID uint, token string) error
}
