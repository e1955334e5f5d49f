package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
)

// CandidateQuery narrows restriction candidates to a room and date. RoomTypeID
// and RoomID may be empty; property-wide rules always participate.
type CandidateQuery struct {
	TenantID   string
	PropertyID string
	RoomTypeID string
	RoomID     string
	Date       time.Time
	Kind       string
}

// RestrictionRepository defines the interface for restriction storage
type RestrictionRepository interface {
	// Upsert inserts or updates a restriction. Inserting an active duplicate
	// of an existing (scope, period, kind) tuple fails with
	// entity.ErrDuplicateRestriction; callers deactivate-then-insert to
	// replace a rule.
	Upsert(ctx context.Context, restriction *entity.Restriction) error

	// FindCandidates returns the active restrictions whose scope matches the
	// query's room (room, room-type or property wide) and whose period
	// contains the date.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*entity.Restriction, error)

	// FindActiveByTuple finds the active restriction with the exact same
	// scope, period and kind, or nil.
	FindActiveByTuple(ctx context.Context, r *entity.Restriction) (*entity.Restriction, error)

	// Deactivate soft-deletes a restriction; rows are never hard-deleted
	Deactivate(ctx context.Context, tenantID string, id uint) error

	// FindPendingSync returns active restrictions still waiting to be pushed
	FindPendingSync(ctx context.Context, tenantID, propertyID string, limit int) ([]*entity.Restriction, error)

	// MarkSynced clears sync_pending after the remote acknowledged the item
	MarkSynced(ctx context.Context, tenantID string, id uint, at time.Time) error

	// MarkSyncError records a push failure, leaving sync_pending set
	MarkSyncError(ctx context.Context, tenantID string, id uint, message string) error
}
