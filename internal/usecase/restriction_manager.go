package usecase

import (
	"context"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"
)

// RestrictionManager owns the write side of booking rules. Every local
// write flags the row sync_pending so the next outbound run distributes it.
type RestrictionManager struct {
	restrictionRepo repository.RestrictionRepository
	logger          logger.Logger
}

// NewRestrictionManager creates a new restriction manager
func NewRestrictionManager(restrictionRepo repository.RestrictionRepository, log logger.Logger) *RestrictionManager {
	return &RestrictionManager{
		restrictionRepo: restrictionRepo,
		logger:          log,
	}
}

// Create stores a new active restriction
func (m *RestrictionManager) Create(ctx context.Context, res *entity.Restriction) error {
	if res.Source == "" {
		res.Source = entity.SourceManual
	}
	res.ID = 0
	res.IsActive = true
	res.SyncPending = true

	if err := m.restrictionRepo.Upsert(ctx, res); err != nil {
		return err
	}
	m.logger.Info("Restriction created",
		"restrictionId", res.ID,
		"tenantId", res.TenantID,
		"kind", res.Kind,
		"scope", res.Scope())
	return nil
}

// Update rewrites an existing restriction and queues it for distribution
func (m *RestrictionManager) Update(ctx context.Context, res *entity.Restriction) error {
	res.SyncPending = true
	return m.restrictionRepo.Upsert(ctx, res)
}

// Deactivate soft-deletes a restriction. The row is kept so past sync logs
// and resolutions stay explainable.
func (m *RestrictionManager) Deactivate(ctx context.Context, tenantID string, id uint) error {
	if err := m.restrictionRepo.Deactivate(ctx, tenantID, id); err != nil {
		return err
	}
	m.logger.Info("Restriction deactivated", "restrictionId", id, "tenantId", tenantID)
	return nil
}
