package usecase

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"
)

// CalendarManager performs bulk manual calendar operations and reservation
// holds, emitting notification events for each change
type CalendarManager struct {
	availabilityRepo repository.AvailabilityRepository
	notificationRepo repository.NotificationRepository
	logger           logger.Logger
}

// NewCalendarManager creates a new calendar manager
func NewCalendarManager(
	availabilityRepo repository.AvailabilityRepository,
	notificationRepo repository.NotificationRepository,
	log logger.Logger,
) *CalendarManager {
	return &CalendarManager{
		availabilityRepo: availabilityRepo,
		notificationRepo: notificationRepo,
		logger:           log,
	}
}

func boolPtr(b bool) *bool { return &b }

// BlockRooms marks a date range manually blocked for the given rooms
func (m *CalendarManager) BlockRooms(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time) error {
	patch := entity.AvailabilityPatch{
		IsBlocked:   boolPtr(true),
		IsAvailable: boolPtr(false),
	}
	return m.applyPatch(ctx, tenantID, propertyID, roomIDs, from, to, patch, "blocked")
}

// UnblockRooms reopens a manually blocked date range
func (m *CalendarManager) UnblockRooms(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time) error {
	patch := entity.AvailabilityPatch{
		IsBlocked:   boolPtr(false),
		IsAvailable: boolPtr(true),
	}
	return m.applyPatch(ctx, tenantID, propertyID, roomIDs, from, to, patch, "unblocked")
}

// SetMaintenance flags a date range as under maintenance
func (m *CalendarManager) SetMaintenance(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time, active bool) error {
	patch := entity.AvailabilityPatch{
		IsMaintenance: boolPtr(active),
	}
	if active {
		patch.IsAvailable = boolPtr(false)
	} else {
		patch.IsAvailable = boolPtr(true)
	}
	return m.applyPatch(ctx, tenantID, propertyID, roomIDs, from, to, patch, "maintenance")
}

// SetRange applies an arbitrary manual patch to a date range
func (m *CalendarManager) SetRange(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time, patch entity.AvailabilityPatch) error {
	return m.applyPatch(ctx, tenantID, propertyID, roomIDs, from, to, patch, "updated")
}

func (m *CalendarManager) applyPatch(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time, patch entity.AvailabilityPatch, change string) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	if err := m.availabilityRepo.SetRange(ctx, tenantID, propertyID, roomIDs, from, to, patch); err != nil {
		return err
	}

	event := entity.NewEvent(entity.EventAvailabilityUpdate, tenantID, map[string]interface{}{
		"propertyId": propertyID,
		"roomIds":    roomIDs,
		"dateFrom":   from.Format("2006-01-02"),
		"dateTo":     to.Format("2006-01-02"),
		"change":     change,
	})
	if err := m.notificationRepo.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish availability event", "error", err)
	}
	return nil
}

// RoomCalendar returns the stored days for one room in a date range.
// Days without a row are default open and are not materialized here; the
// caller renders them as open.
func (m *CalendarManager) RoomCalendar(ctx context.Context, tenantID, roomID string, from, to time.Time) ([]*entity.AvailabilityDay, error) {
	if tenantID == "" {
		return nil, entity.ErrMissingTenant
	}
	if to.Before(from) {
		return nil, entity.ErrInvalidDateRange
	}
	return m.availabilityRepo.GetRange(ctx, tenantID, roomID, from, to)
}

// Reserve holds every night of a stay for one room. The hold is atomic:
// a conflicting night fails the whole call and no night is taken.
func (m *CalendarManager) Reserve(ctx context.Context, tenantID, propertyID, roomID string, checkIn, checkOut time.Time, reservationID string) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	if err := m.availabilityRepo.MarkReserved(ctx, tenantID, propertyID, roomID, checkIn, checkOut, reservationID); err != nil {
		return err
	}

	event := entity.NewEvent(entity.EventReservationUpdate, tenantID, map[string]interface{}{
		"roomId":        roomID,
		"reservationId": reservationID,
		"checkIn":       checkIn.Format("2006-01-02"),
		"checkOut":      checkOut.Format("2006-01-02"),
		"action":        "reserved",
	})
	if err := m.notificationRepo.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish reservation event", "error", err)
	}

	m.logger.Info("Reservation held",
		"roomId", roomID,
		"reservationId", reservationID,
		"checkIn", checkIn.Format("2006-01-02"),
		"checkOut", checkOut.Format("2006-01-02"))
	return nil
}

// Release frees the nights held by a reservation
func (m *CalendarManager) Release(ctx context.Context, tenantID, roomID string, checkIn, checkOut time.Time, reservationID string) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	if err := m.availabilityRepo.ClearReservation(ctx, tenantID, roomID, checkIn, checkOut); err != nil {
		return err
	}

	event := entity.NewEvent(entity.EventReservationUpdate, tenantID, map[string]interface{}{
		"roomId":        roomID,
		"reservationId": reservationID,
		"checkIn":       checkIn.Format("2006-01-02"),
		"checkOut":      checkOut.Format("2006-01-02"),
		"action":        "released",
	})
	if err := m.notificationRepo.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish reservation event", "error", err)
	}
	return nil
}
