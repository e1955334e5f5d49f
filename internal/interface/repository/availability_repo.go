package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAvailabilityRepository implements the AvailabilityRepository interface
type GormAvailabilityRepository struct {
	db *gorm.DB
}

// NewGormAvailabilityRepository creates a new GORM availability repository
func NewGormAvailabilityRepository(db *gorm.DB) repository.AvailabilityRepository {
	return &GormAvailabilityRepository{
		db: db,
	}
}

// AvailabilityDays GORM model for database mapping. A unique index on
// (tenant_id, room_id, date) is what makes concurrent reservations of the
// same missing night collide instead of double-inserting.
type AvailabilityDays struct {
	ID         uint      `gorm:"primaryKey"`
	TenantID   string    `gorm:"column:tenant_id;uniqueIndex:idx_room_date,priority:1"`
	PropertyID string    `gorm:"column:property_id;index"`
	RoomID     string    `gorm:"column:room_id;uniqueIndex:idx_room_date,priority:2"`
	Date       time.Time `gorm:"column:date;uniqueIndex:idx_room_date,priority:3"`

	IsAvailable   bool    `gorm:"column:is_available;default:true"`
	IsBlocked     bool    `gorm:"column:is_blocked"`
	IsOutOfOrder  bool    `gorm:"column:is_out_of_order"`
	IsMaintenance bool    `gorm:"column:is_maintenance"`
	IsReserved    bool    `gorm:"column:is_reserved"`
	ReservationID *string `gorm:"column:reservation_id"`

	ClosedToArrival   bool `gorm:"column:closed_to_arrival"`
	ClosedToDeparture bool `gorm:"column:closed_to_departure"`

	RateOverride *float64 `gorm:"column:rate_override"`
	MinStay      *int     `gorm:"column:min_stay"`
	MaxStay      *int     `gorm:"column:max_stay"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (AvailabilityDays) TableName() string {
	return "availability_days"
}

func toDayModel(d *entity.AvailabilityDay) *AvailabilityDays {
	return &AvailabilityDays{
		ID:                d.ID,
		TenantID:          d.TenantID,
		PropertyID:        d.PropertyID,
		RoomID:            d.RoomID,
		Date:              d.Date,
		IsAvailable:       d.IsAvailable,
		IsBlocked:         d.IsBlocked,
		IsOutOfOrder:      d.IsOutOfOrder,
		IsMaintenance:     d.IsMaintenance,
		IsReserved:        d.IsReserved,
		ReservationID:     d.ReservationID,
		ClosedToArrival:   d.ClosedToArrival,
		ClosedToDeparture: d.ClosedToDeparture,
		RateOverride:      d.RateOverride,
		MinStay:           d.MinStay,
		MaxStay:           d.MaxStay,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func toDayEntity(m *AvailabilityDays) *entity.AvailabilityDay {
	return &entity.AvailabilityDay{
		ID:                m.ID,
		TenantID:          m.TenantID,
		PropertyID:        m.PropertyID,
		RoomID:            m.RoomID,
		Date:              m.Date,
		IsAvailable:       m.IsAvailable,
		IsBlocked:         m.IsBlocked,
		IsOutOfOrder:      m.IsOutOfOrder,
		IsMaintenance:     m.IsMaintenance,
		IsReserved:        m.IsReserved,
		ReservationID:     m.ReservationID,
		ClosedToArrival:   m.ClosedToArrival,
		ClosedToDeparture: m.ClosedToDeparture,
		RateOverride:      m.RateOverride,
		MinStay:           m.MinStay,
		MaxStay:           m.MaxStay,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetDay loads one room-night; a missing row returns (nil, nil) and means
// the night is default open
func (r *GormAvailabilityRepository) GetDay(ctx context.Context, tenantID, roomID string, date time.Time) (*entity.AvailabilityDay, error) {
	if tenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	var model AvailabilityDays
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_id = ? AND date = ?", tenantID, roomID, dayOf(date)).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toDayEntity(&model), nil
}

// GetRange loads the stored days for one room in [from, to]
func (r *GormAvailabilityRepository) GetRange(ctx context.Context, tenantID, roomID string, from, to time.Time) ([]*entity.AvailabilityDay, error) {
	if tenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	var models []AvailabilityDays
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_id = ? AND date >= ? AND date <= ?",
			tenantID, roomID, dayOf(from), dayOf(to)).
		Order("date").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	days := make([]*entity.AvailabilityDay, len(models))
	for i := range models {
		days[i] = toDayEntity(&models[i])
	}
	return days, nil
}

// GetPropertyRange loads every stored day for a property in [from, to]
func (r *GormAvailabilityRepository) GetPropertyRange(ctx context.Context, tenantID, propertyID string, from, to time.Time) ([]*entity.AvailabilityDay, error) {
	if tenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	var models []AvailabilityDays
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND date >= ? AND date <= ?",
			tenantID, propertyID, dayOf(from), dayOf(to)).
		Order("room_id, date").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	days := make([]*entity.AvailabilityDay, len(models))
	for i := range models {
		days[i] = toDayEntity(&models[i])
	}
	return days, nil
}

// SetRange applies a partial patch to every (room, date) pair in the range,
// creating default-open rows where none exist
func (r *GormAvailabilityRepository) SetRange(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time, patch entity.AvailabilityPatch) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}
	if patch.IsZero() {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, roomID := range roomIDs {
			var models []AvailabilityDays
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("tenant_id = ? AND room_id = ? AND date >= ? AND date <= ?",
					tenantID, roomID, dayOf(from), dayOf(to)).
				Find(&models).Error; err != nil {
				return err
			}

			existing := make(map[time.Time]*AvailabilityDays, len(models))
			for i := range models {
				existing[dayOf(models[i].Date)] = &models[i]
			}

			for d := dayOf(from); !d.After(dayOf(to)); d = d.AddDate(0, 0, 1) {
				model, ok := existing[d]
				if !ok {
					day := entity.DefaultOpenDay(tenantID, propertyID, roomID, d)
					patch.Apply(day)
					if err := day.Validate(); err != nil {
						return err
					}
					if err := tx.Create(toDayModel(day)).Error; err != nil {
						return err
					}
					continue
				}

				day := toDayEntity(model)
				patch.Apply(day)
				if err := day.Validate(); err != nil {
					return err
				}
				updated := toDayModel(day)
				updated.ID = model.ID
				if err := tx.Save(updated).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// MarkReserved reserves every night in [from, to) for a room atomically.
// Existing rows are locked for the duration of the transaction; the unique
// (tenant, room, date) index turns a concurrent insert race into a
// duplicate-key failure which surfaces as DateUnavailable.
func (r *GormAvailabilityRepository) MarkReserved(ctx context.Context, tenantID, propertyID, roomID string, from, to time.Time, reservationID string) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}
	if !dayOf(to).After(dayOf(from)) {
		return entity.ErrInvalidDateRange
	}

	lastNight := dayOf(to).AddDate(0, 0, -1)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []AvailabilityDays
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND room_id = ? AND date >= ? AND date <= ?",
				tenantID, roomID, dayOf(from), lastNight).
			Find(&models).Error; err != nil {
			return err
		}

		sort.Slice(models, func(i, j int) bool { return models[i].Date.Before(models[j].Date) })
		for i := range models {
			day := toDayEntity(&models[i])
			if day.BlocksReservation() {
				return &entity.DateUnavailableError{
					RoomID: roomID,
					Date:   dayOf(day.Date),
					Reason: day.BlocksStay(),
				}
			}
		}

		existing := make(map[time.Time]*AvailabilityDays, len(models))
		for i := range models {
			existing[dayOf(models[i].Date)] = &models[i]
		}

		resID := reservationID
		for d := dayOf(from); !d.After(lastNight); d = d.AddDate(0, 0, 1) {
			if model, ok := existing[d]; ok {
				if err := tx.Model(model).Updates(map[string]interface{}{
					"is_reserved":    true,
					"is_available":   false,
					"reservation_id": resID,
				}).Error; err != nil {
					return err
				}
				continue
			}

			day := entity.DefaultOpenDay(tenantID, propertyID, roomID, d)
			day.IsReserved = true
			day.IsAvailable = false
			day.ReservationID = &resID
			if err := tx.Create(toDayModel(day)).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race for a night that had no row yet
			return &entity.DateUnavailableError{
				RoomID: roomID,
				Date:   dayOf(from),
				Reason: entity.DayReasonReserved,
			}
		}
		return err
	}
	return nil
}

// ClearReservation releases the nights in [from, to) held by a reservation
func (r *GormAvailabilityRepository) ClearReservation(ctx context.Context, tenantID, roomID string, from, to time.Time) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}

	lastNight := dayOf(to).AddDate(0, 0, -1)
	return r.db.WithContext(ctx).
		Model(&AvailabilityDays{}).
		Where("tenant_id = ? AND room_id = ? AND date >= ? AND date <= ? AND is_reserved = ?",
			tenantID, roomID, dayOf(from), lastNight, true).
		Updates(map[string]interface{}{
			"is_reserved":    false,
			"is_available":   true,
			"reservation_id": nil,
		}).Error
}

// UpsertDay writes one full day row, keyed by (tenant, room, date)
func (r *GormAvailabilityRepository) UpsertDay(ctx context.Context, day *entity.AvailabilityDay) error {
	if day.TenantID == "" {
		return entity.ErrMissingTenant
	}
	if err := day.Validate(); err != nil {
		return err
	}

	day.Date = dayOf(day.Date)
	model := toDayModel(day)

	var existing AvailabilityDays
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_id = ? AND date = ?", day.TenantID, day.RoomID, day.Date).
		First(&existing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
				return err
			}
			day.ID = model.ID
			return nil
		}
		return result.Error
	}

	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(model).Error
}
