package repository

import (
	"context"
	"fmt"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"

	"github.com/go-resty/resty/v2"
)

// RestNotificationRepository posts events to the notification service.
// Delivery is fire-and-forget; failures are logged by the caller and never
// fail the operation that produced the event.
type RestNotificationRepository struct {
	client *resty.Client
	logger logger.Logger
}

// NewRestNotificationRepository creates a new notification repository
func NewRestNotificationRepository(endpoint, token string, log logger.Logger) repository.NotificationRepository {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &RestNotificationRepository{
		client: client,
		logger: log,
	}
}

// Publish sends one event to the sink
func (r *RestNotificationRepository) Publish(ctx context.Context, event entity.Event) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(event).
		Post("/api/v1/events")
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification sink returned status %d for event %s", resp.StatusCode(), event.Type)
	}

	r.logger.Debug("Event published", "type", event.Type, "eventId", event.ID)
	return nil
}

// NopNotificationRepository swallows events when no sink is configured
type NopNotificationRepository struct{}

// NewNopNotificationRepository creates a notification repository that drops
// every event
func NewNopNotificationRepository() repository.NotificationRepository {
	return &NopNotificationRepository{}
}

// Publish discards the event
func (r *NopNotificationRepository) Publish(ctx context.Context, event entity.Event) error {
	return nil
}
