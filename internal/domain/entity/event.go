package entity

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types
const (
	EventSyncCompleted      = "sync_completed"
	EventAvailabilityUpdate = "availability_updated"
	EventReservationUpdate  = "reservation_updated"
)

// Event is a fire-and-forget structured message handed to the notification
// sink; delivery mechanics live outside this service
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	TenantID   string                 `json:"tenantId"`
	OccurredAt time.Time              `json:"occurredAt"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id
func NewEvent(eventType, tenantID string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
