package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormChannelConfigRepository implements the ChannelConfigRepository interface
type GormChannelConfigRepository struct {
	db *gorm.DB
}

// NewGormChannelConfigRepository creates a new GORM channel configuration repository
func NewGormChannelConfigRepository(db *gorm.DB) repository.ChannelConfigRepository {
	return &GormChannelConfigRepository{
		db: db,
	}
}

// ChannelConfigurations GORM model for database mapping. The map-valued
// settings are persisted as JSONB with an enumerated set of recognized keys;
// Extra carries channel-specific passthrough only.
type ChannelConfigurations struct {
	ID          uint   `gorm:"primaryKey"`
	TenantID    string `gorm:"column:tenant_id;uniqueIndex:idx_tenant_property,priority:1"`
	PropertyID  string `gorm:"column:property_id;uniqueIndex:idx_tenant_property,priority:2"`
	ChannelCode string `gorm:"column:channel_code"`

	APIKey       string `gorm:"column:api_key"`
	PropertyCode string `gorm:"column:property_code"`

	ConnectionStatus string `gorm:"column:connection_status"`
	IsActive         bool   `gorm:"column:is_active;index"`

	SyncAvailability bool `gorm:"column:sync_availability"`
	SyncRates        bool `gorm:"column:sync_rates"`
	SyncRestrictions bool `gorm:"column:sync_restrictions"`
	SyncBookings     bool `gorm:"column:sync_bookings"`

	SyncIntervalMinutes int `gorm:"column:sync_interval_minutes"`

	RoomMappings     []byte `gorm:"column:room_mappings;type:jsonb"`
	ConflictPolicies []byte `gorm:"column:conflict_policies;type:jsonb"`
	Extra            []byte `gorm:"column:extra;type:jsonb"`

	LastSyncAt      *time.Time `gorm:"column:last_sync_at"`
	LastSyncMessage string     `gorm:"column:last_sync_message"`
	ErrorCount      int        `gorm:"column:error_count"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (ChannelConfigurations) TableName() string {
	return "channel_configurations"
}

func toConfigModel(c *entity.ChannelConfiguration) (*ChannelConfigurations, error) {
	mappings, err := json.Marshal(c.RoomMappings)
	if err != nil {
		return nil, err
	}
	policies, err := json.Marshal(c.ConflictPolicies)
	if err != nil {
		return nil, err
	}
	extra, err := json.Marshal(c.Extra)
	if err != nil {
		return nil, err
	}

	return &ChannelConfigurations{
		ID:                  c.ID,
		TenantID:            c.TenantID,
		PropertyID:          c.PropertyID,
		ChannelCode:         c.ChannelCode,
		APIKey:              c.APIKey,
		PropertyCode:        c.PropertyCode,
		ConnectionStatus:    c.ConnectionStatus,
		IsActive:            c.IsActive,
		SyncAvailability:    c.SyncAvailability,
		SyncRates:           c.SyncRates,
		SyncRestrictions:    c.SyncRestrictions,
		SyncBookings:        c.SyncBookings,
		SyncIntervalMinutes: c.SyncIntervalMinutes,
		RoomMappings:        mappings,
		ConflictPolicies:    policies,
		Extra:               extra,
		LastSyncAt:          c.LastSyncAt,
		LastSyncMessage:     c.LastSyncMessage,
		ErrorCount:          c.ErrorCount,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}, nil
}

func toConfigEntity(m *ChannelConfigurations) *entity.ChannelConfiguration {
	cfg := &entity.ChannelConfiguration{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		PropertyID:          m.PropertyID,
		ChannelCode:         m.ChannelCode,
		APIKey:              m.APIKey,
		PropertyCode:        m.PropertyCode,
		ConnectionStatus:    m.ConnectionStatus,
		IsActive:            m.IsActive,
		SyncAvailability:    m.SyncAvailability,
		SyncRates:           m.SyncRates,
		SyncRestrictions:    m.SyncRestrictions,
		SyncBookings:        m.SyncBookings,
		SyncIntervalMinutes: m.SyncIntervalMinutes,
		LastSyncAt:          m.LastSyncAt,
		LastSyncMessage:     m.LastSyncMessage,
		ErrorCount:          m.ErrorCount,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}

	if len(m.RoomMappings) > 0 {
		json.Unmarshal(m.RoomMappings, &cfg.RoomMappings)
	}
	if len(m.ConflictPolicies) > 0 {
		json.Unmarshal(m.ConflictPolicies, &cfg.ConflictPolicies)
	}
	if len(m.Extra) > 0 {
		json.Unmarshal(m.Extra, &cfg.Extra)
	}
	return cfg
}

// FindByID loads one configuration
func (r *GormChannelConfigRepository) FindByID(ctx context.Context, id uint) (*entity.ChannelConfiguration, error) {
	var model ChannelConfigurations
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toConfigEntity(&model), nil
}

// FindActive lists every active configuration across tenants, for the
// sync scheduler
func (r *GormChannelConfigRepository) FindActive(ctx context.Context) ([]*entity.ChannelConfiguration, error) {
	var models []ChannelConfigurations
	result := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	configs := make([]*entity.ChannelConfiguration, len(models))
	for i := range models {
		configs[i] = toConfigEntity(&models[i])
	}
	return configs, nil
}

// Save inserts or updates a configuration
func (r *GormChannelConfigRepository) Save(ctx context.Context, cfg *entity.ChannelConfiguration) error {
	if cfg.TenantID == "" {
		return entity.ErrMissingTenant
	}

	model, err := toConfigModel(cfg)
	if err != nil {
		return err
	}

	if cfg.ID == 0 {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return err
		}
		cfg.ID = model.ID
		cfg.CreatedAt = model.CreatedAt
		return nil
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// UpdateSyncResult records the latest run outcome on the configuration
func (r *GormChannelConfigRepository) UpdateSyncResult(ctx context.Context, id uint, at time.Time, message string) error {
	return r.db.WithContext(ctx).
		Model(&ChannelConfigurations{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at":      at,
			"last_sync_message": message,
		}).Error
}

// IncrementErrorCount bumps the rolling error counter
func (r *GormChannelConfigRepository) IncrementErrorCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&ChannelConfigurations{}).
		Where("id = ?", id).
		Update("error_count", gorm.Expr("error_count + 1")).Error
}

// UpdateConnectionStatus moves the configuration between connection states
func (r *GormChannelConfigRepository) UpdateConnectionStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&ChannelConfigurations{}).
		Where("id = ?", id).
		Update("connection_status", status).Error
}
