package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingTenant indicates a caller omitted the tenant id. This is a
	// programming error, not a runtime condition.
	ErrMissingTenant = errors.New("tenant id is required")

	// ErrInvalidDateRange indicates check-out is not after check-in
	ErrInvalidDateRange = errors.New("check-out must be after check-in")

	// ErrDuplicateRestriction indicates an active restriction already exists
	// for the exact same scope, period and kind
	ErrDuplicateRestriction = errors.New("an active restriction already exists for this scope, period and kind")

	// ErrSyncAlreadyRunning indicates another sync run holds the lock for
	// the same channel configuration
	ErrSyncAlreadyRunning = errors.New("a sync run is already in progress for this configuration")

	// ErrSyncLogFinalized indicates an attempt to mutate a sync log that
	// already reached a terminal status
	ErrSyncLogFinalized = errors.New("sync log has reached a terminal status")

	// ErrConfigurationNotReady indicates the channel configuration is not
	// usable for sync (inactive, disconnected or missing credentials)
	ErrConfigurationNotReady = errors.New("channel configuration is not ready for sync")
)

// DateUnavailableError reports the first date that blocks a reservation
type DateUnavailableError struct {
	RoomID string
	Date   time.Time
	Reason string
}

func (e *DateUnavailableError) Error() string {
	return fmt.Sprintf("room %s is unavailable on %s: %s", e.RoomID, e.Date.Format("2006-01-02"), e.Reason)
}

// IsDateUnavailable reports whether err wraps a DateUnavailableError
func IsDateUnavailable(err error) bool {
	var due *DateUnavailableError
	return errors.As(err, &due)
}
