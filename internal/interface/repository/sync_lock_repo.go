package repository

import (
	"context"
	"fmt"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the lock only while the caller still owns it
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisSyncLockRepository implements SyncLockRepository on a shared Redis,
// so the one-run-per-configuration guard holds across service instances
type RedisSyncLockRepository struct {
	client *redis.Client
}

// NewRedisSyncLockRepository creates a new Redis sync lock repository
func NewRedisSyncLockRepository(client *redis.Client) repository.SyncLockRepository {
	return &RedisSyncLockRepository{
		client: client,
	}
}

func lockKey(configID uint) string {
	return fmt.Sprintf("roomsync:synclock:%d", configID)
}

// Acquire takes the per-configuration lock with a TTL so a crashed run
// cannot wedge the configuration forever
func (r *RedisSyncLockRepository) Acquire(ctx context.Context, configID uint, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey(configID), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return "", entity.ErrSyncAlreadyRunning
	}
	return token, nil
}

// Release frees the lock if the token still owns it
func (r *RedisSyncLockRepository) Release(ctx context.Context, configID uint, token string) error {
	return r.client.Eval(ctx, releaseScript, []string{lockKey(configID)}, token).Err()
}
