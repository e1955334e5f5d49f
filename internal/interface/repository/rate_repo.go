package repository

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormRateRepository implements the RateRepository interface
type GormRateRepository struct {
	db *gorm.DB
}

// NewGormRateRepository creates a new GORM rate repository
func NewGormRateRepository(db *gorm.DB) repository.RateRepository {
	return &GormRateRepository{
		db: db,
	}
}

// RoomRates GORM model for database mapping
type RoomRates struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   string `gorm:"column:tenant_id;index"`
	PropertyID string `gorm:"column:property_id"`
	RoomTypeID string `gorm:"column:room_type_id;index"`

	NightlyRate float64 `gorm:"column:nightly_rate"`
	Currency    string  `gorm:"column:currency"`

	DateFrom *time.Time `gorm:"column:date_from"`
	DateTo   *time.Time `gorm:"column:date_to"`

	IsActive  bool `gorm:"column:is_active"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (RoomRates) TableName() string {
	return "room_rates"
}

func toRateEntity(m *RoomRates) *entity.RoomRate {
	return &entity.RoomRate{
		ID:          m.ID,
		TenantID:    m.TenantID,
		PropertyID:  m.PropertyID,
		RoomTypeID:  m.RoomTypeID,
		NightlyRate: m.NightlyRate,
		Currency:    m.Currency,
		DateFrom:    m.DateFrom,
		DateTo:      m.DateTo,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// BaseRate returns the applicable rate for a room type on a date, or nil.
// A seasonal window covering the date beats the windowless fallback row.
func (r *GormRateRepository) BaseRate(ctx context.Context, tenantID, roomTypeID string, date time.Time) (*entity.RoomRate, error) {
	if tenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	var models []RoomRates
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_type_id = ? AND is_active = ?", tenantID, roomTypeID, true).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	var fallback *entity.RoomRate
	for i := range models {
		rate := toRateEntity(&models[i])
		if !rate.Covers(date) {
			continue
		}
		if rate.Seasonal() {
			return rate, nil
		}
		if fallback == nil {
			fallback = rate
		}
	}
	return fallback, nil
}
