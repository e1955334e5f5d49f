package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormRestrictionRepository implements the RestrictionRepository interface
type GormRestrictionRepository struct {
	db *gorm.DB
}

// NewGormRestrictionRepository creates a new GORM restriction repository
func NewGormRestrictionRepository(db *gorm.DB) repository.RestrictionRepository {
	return &GormRestrictionRepository{
		db: db,
	}
}

// Restrictions GORM model for database mapping
type Restrictions struct {
	ID          uint       `gorm:"primaryKey"`
	TenantID    string     `gorm:"column:tenant_id;index"`
	PropertyID  string     `gorm:"column:property_id;index"`
	RoomTypeID  *string    `gorm:"column:room_type_id"`
	RoomID      *string    `gorm:"column:room_id"`
	Kind        string     `gorm:"column:kind"`
	Value       int        `gorm:"column:value"`
	Flag        bool       `gorm:"column:flag"`
	DateFrom    time.Time  `gorm:"column:date_from"`
	DateTo      time.Time  `gorm:"column:date_to"`
	DaysOfWeek  string     `gorm:"column:days_of_week"` // comma separated, empty = every day
	Priority    int        `gorm:"column:priority"`
	Source      string     `gorm:"column:source"`
	IsActive    bool       `gorm:"column:is_active;index"`
	SyncPending bool       `gorm:"column:sync_pending;index"`
	LastSyncAt  *time.Time `gorm:"column:last_sync_at"`
	SyncError   string     `gorm:"column:sync_error"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the default table name
func (Restrictions) TableName() string {
	return "restrictions"
}

func toRestrictionModel(r *entity.Restriction) *Restrictions {
	return &Restrictions{
		ID:          r.ID,
		TenantID:    r.TenantID,
		PropertyID:  r.PropertyID,
		RoomTypeID:  r.RoomTypeID,
		RoomID:      r.RoomID,
		Kind:        r.Kind,
		Value:       r.Value,
		Flag:        r.Flag,
		DateFrom:    r.DateFrom,
		DateTo:      r.DateTo,
		DaysOfWeek:  encodeDaysOfWeek(r.DaysOfWeek),
		Priority:    r.Priority,
		Source:      r.Source,
		IsActive:    r.IsActive,
		SyncPending: r.SyncPending,
		LastSyncAt:  r.LastSyncAt,
		SyncError:   r.SyncError,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toRestrictionEntity(m *Restrictions) *entity.Restriction {
	return &entity.Restriction{
		ID:          m.ID,
		TenantID:    m.TenantID,
		PropertyID:  m.PropertyID,
		RoomTypeID:  m.RoomTypeID,
		RoomID:      m.RoomID,
		Kind:        m.Kind,
		Value:       m.Value,
		Flag:        m.Flag,
		DateFrom:    m.DateFrom,
		DateTo:      m.DateTo,
		DaysOfWeek:  decodeDaysOfWeek(m.DaysOfWeek),
		Priority:    m.Priority,
		Source:      m.Source,
		IsActive:    m.IsActive,
		SyncPending: m.SyncPending,
		LastSyncAt:  m.LastSyncAt,
		SyncError:   m.SyncError,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func encodeDaysOfWeek(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func decodeDaysOfWeek(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		if d, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			days = append(days, d)
		}
	}
	return days
}

// Upsert inserts a new restriction or updates an existing one
func (r *GormRestrictionRepository) Upsert(ctx context.Context, restriction *entity.Restriction) error {
	if restriction.TenantID == "" {
		return entity.ErrMissingTenant
	}
	if err := restriction.Validate(); err != nil {
		return err
	}

	model := toRestrictionModel(restriction)

	if restriction.ID == 0 {
		if restriction.IsActive {
			existing, err := r.FindActiveByTuple(ctx, restriction)
			if err != nil {
				return err
			}
			if existing != nil {
				return entity.ErrDuplicateRestriction
			}
		}

		result := r.db.WithContext(ctx).Create(model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return entity.ErrDuplicateRestriction
			}
			return result.Error
		}

		restriction.ID = model.ID
		restriction.CreatedAt = model.CreatedAt
		restriction.UpdatedAt = model.UpdatedAt
		return nil
	}

	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", restriction.TenantID).
		Save(model)
	if result.Error != nil {
		return result.Error
	}
	restriction.UpdatedAt = model.UpdatedAt
	return nil
}

// FindCandidates returns active restrictions matching the room's scope chain
func (r *GormRestrictionRepository) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]*entity.Restriction, error) {
	if q.TenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	day := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, time.UTC)

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND kind = ? AND is_active = ?",
			q.TenantID, q.PropertyID, q.Kind, true).
		Where("date_from <= ? AND date_to >= ?", day, day)

	// Property-wide rules, room-type rules for this room's type, and rules
	// for the room itself all participate; the resolver ranks them.
	query = query.Where(
		"(room_id IS NULL AND room_type_id IS NULL) OR (room_id IS NULL AND room_type_id = ?) OR room_id = ?",
		q.RoomTypeID, q.RoomID,
	)

	var models []Restrictions
	if result := query.Find(&models); result.Error != nil {
		return nil, result.Error
	}

	restrictions := make([]*entity.Restriction, len(models))
	for i := range models {
		restrictions[i] = toRestrictionEntity(&models[i])
	}
	return restrictions, nil
}

// FindActiveByTuple finds the active restriction with the exact same scope,
// period and kind
func (r *GormRestrictionRepository) FindActiveByTuple(ctx context.Context, res *entity.Restriction) (*entity.Restriction, error) {
	if res.TenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND kind = ? AND is_active = ?",
			res.TenantID, res.PropertyID, res.Kind, true).
		Where("date_from = ? AND date_to = ?", res.DateFrom, res.DateTo)

	if res.RoomTypeID != nil && *res.RoomTypeID != "" {
		query = query.Where("room_type_id = ?", *res.RoomTypeID)
	} else {
		query = query.Where("room_type_id IS NULL")
	}
	if res.RoomID != nil && *res.RoomID != "" {
		query = query.Where("room_id = ?", *res.RoomID)
	} else {
		query = query.Where("room_id IS NULL")
	}

	var model Restrictions
	result := query.First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toRestrictionEntity(&model), nil
}

// Deactivate soft-deletes a restriction, preserving the audit trail
func (r *GormRestrictionRepository) Deactivate(ctx context.Context, tenantID string, id uint) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	result := r.db.WithContext(ctx).
		Model(&Restrictions{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindPendingSync returns active restrictions waiting to be pushed
func (r *GormRestrictionRepository) FindPendingSync(ctx context.Context, tenantID, propertyID string, limit int) ([]*entity.Restriction, error) {
	if tenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	var models []Restrictions
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND is_active = ? AND sync_pending = ?",
			tenantID, propertyID, true, true).
		Order("id").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	restrictions := make([]*entity.Restriction, len(models))
	for i := range models {
		restrictions[i] = toRestrictionEntity(&models[i])
	}
	return restrictions, nil
}

// MarkSynced clears sync_pending after a remote acknowledgement
func (r *GormRestrictionRepository) MarkSynced(ctx context.Context, tenantID string, id uint, at time.Time) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	return r.db.WithContext(ctx).
		Model(&Restrictions{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"sync_pending": false,
			"last_sync_at": at,
			"sync_error":   "",
		}).Error
}

// MarkSyncError records a push failure; the row stays pending for retry on
// the next run
func (r *GormRestrictionRepository) MarkSyncError(ctx context.Context, tenantID string, id uint, message string) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	return r.db.WithContext(ctx).
		Model(&Restrictions{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("sync_error", message).Error
}
