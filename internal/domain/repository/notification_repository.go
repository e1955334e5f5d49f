package repository

import (
	"context"

	"roomsync-service/internal/domain/entity"
)

// NotificationRepository hands events to the outbound notification sink.
// Delivery is fire-and-forget; callers log failures and move on.
type NotificationRepository interface {
	Publish(ctx context.Context, event entity.Event) error
}
