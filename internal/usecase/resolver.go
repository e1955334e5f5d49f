package usecase

import (
	"context"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"
)

// RestrictionResolver picks the single effective restriction for a
// (room, date, kind) out of the overlapping candidates in the store
type RestrictionResolver struct {
	restrictionRepo repository.RestrictionRepository
	logger          logger.Logger
}

// NewRestrictionResolver creates a new restriction resolver
func NewRestrictionResolver(restrictionRepo repository.RestrictionRepository, log logger.Logger) *RestrictionResolver {
	return &RestrictionResolver{
		restrictionRepo: restrictionRepo,
		logger:          log,
	}
}

// ResolveQuery identifies the room-night and restriction kind to resolve
type ResolveQuery struct {
	TenantID   string
	PropertyID string
	RoomTypeID string
	RoomID     string
	Date       time.Time
	Kind       string
}

// Resolve returns the effective restriction, or nil when the night is
// unrestricted for this kind. Candidates are ranked by scope specificity
// (room > room type > property); within a tier the highest priority wins,
// and equal priorities fall back to the highest id, i.e. the most recently
// created rule. The id fallback is a deliberate, documented tie-break.
func (r *RestrictionResolver) Resolve(ctx context.Context, q ResolveQuery) (*entity.Restriction, error) {
	if q.TenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	candidates, err := r.restrictionRepo.FindCandidates(ctx, repository.CandidateQuery{
		TenantID:   q.TenantID,
		PropertyID: q.PropertyID,
		RoomTypeID: q.RoomTypeID,
		RoomID:     q.RoomID,
		Date:       q.Date,
		Kind:       q.Kind,
	})
	if err != nil {
		return nil, err
	}

	var winner *entity.Restriction
	for _, c := range candidates {
		if !c.AppliesOn(q.Date) {
			continue
		}
		if winner == nil || beats(c, winner) {
			winner = c
		}
	}
	return winner, nil
}

// beats reports whether a outranks b for the same (room, date, kind)
func beats(a, b *entity.Restriction) bool {
	if a.Scope() != b.Scope() {
		return a.Scope() > b.Scope()
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID > b.ID
}

// ResolveAll resolves every known kind independently for one room-night.
// Used by admin views to explain why a date is blocked; a min-stay at the
// room-type tier and a stop-sell at the property tier can both be in force
// at once.
func (r *RestrictionResolver) ResolveAll(ctx context.Context, q ResolveQuery) (map[string]*entity.Restriction, error) {
	if q.TenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	kinds := []string{
		entity.KindMinStay,
		entity.KindMaxStay,
		entity.KindClosedToArrival,
		entity.KindClosedToDeparture,
		entity.KindStopSell,
		entity.KindMinAdvanceBooking,
		entity.KindMaxAdvanceBooking,
	}

	effective := make(map[string]*entity.Restriction, len(kinds))
	for _, kind := range kinds {
		kq := q
		kq.Kind = kind
		winner, err := r.Resolve(ctx, kq)
		if err != nil {
			return nil, err
		}
		if winner != nil {
			effective[kind] = winner
		}
	}
	return effective, nil
}
