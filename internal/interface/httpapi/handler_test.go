package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/internal/usecase"
	"roomsync-service/pkg/logger"

	"github.com/stretchr/testify/require"
)

// stubRestrictionRepo serves canned rows for the resolver routes
type stubRestrictionRepo struct {
	rows []*entity.Restriction
}

func (s *stubRestrictionRepo) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]*entity.Restriction, error) {
	var out []*entity.Restriction
	for _, r := range s.rows {
		if r.TenantID != q.TenantID || r.PropertyID != q.PropertyID || r.Kind != q.Kind {
			continue
		}
		if r.RoomID != nil && *r.RoomID != q.RoomID {
			continue
		}
		if r.RoomID == nil && r.RoomTypeID != nil && *r.RoomTypeID != q.RoomTypeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRestrictionRepo) Upsert(ctx context.Context, r *entity.Restriction) error {
	return nil
}

func (s *stubRestrictionRepo) FindActiveByTuple(ctx context.Context, r *entity.Restriction) (*entity.Restriction, error) {
	return nil, nil
}

func (s *stubRestrictionRepo) Deactivate(ctx context.Context, tenantID string, id uint) error {
	return nil
}

func (s *stubRestrictionRepo) FindPendingSync(ctx context.Context, tenantID, propertyID string, limit int) ([]*entity.Restriction, error) {
	return nil, nil
}

func (s *stubRestrictionRepo) MarkSynced(ctx context.Context, tenantID string, id uint, at time.Time) error {
	return nil
}

func (s *stubRestrictionRepo) MarkSyncError(ctx context.Context, tenantID string, id uint, message string) error {
	return nil
}

func resolveMux(repo repository.RestrictionRepository) *http.ServeMux {
	log := logger.NewNopLogger()
	resolver := usecase.NewRestrictionResolver(repo, log)
	h := NewHandler(nil, resolver, nil, nil, nil, nil, log)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func sp(s string) *string { return &s }

func TestResolveRestrictionsReturnsEffectiveRulePerKind(t *testing.T) {
	repo := &stubRestrictionRepo{rows: []*entity.Restriction{
		{
			ID: 1, TenantID: "t1", PropertyID: "p1",
			Kind: entity.KindMinStay, Value: 5,
			DateFrom: d(2026, 9, 1), DateTo: d(2026, 9, 30), IsActive: true,
		},
		{
			ID: 2, TenantID: "t1", PropertyID: "p1", RoomID: sp("r1"),
			Kind: entity.KindMinStay, Value: 2,
			DateFrom: d(2026, 9, 1), DateTo: d(2026, 9, 30), IsActive: true,
		},
		{
			ID: 3, TenantID: "t1", PropertyID: "p1",
			Kind: entity.KindStopSell, Flag: true,
			DateFrom: d(2026, 9, 1), DateTo: d(2026, 9, 30), IsActive: true,
		},
	}}
	mux := resolveMux(repo)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/restrictions/resolve?tenantId=t1&propertyId=p1&roomTypeId=rt1&roomId=r1&date=2026-09-10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date         string
		Restrictions map[string]struct {
			ID    uint
			Value int
			Flag  bool
		}
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2026-09-10", body.Date)

	// The room-scoped min stay outranks the property-wide one
	minStay, ok := body.Restrictions[entity.KindMinStay]
	require.True(t, ok)
	require.Equal(t, uint(2), minStay.ID)
	require.Equal(t, 2, minStay.Value)

	stopSell, ok := body.Restrictions[entity.KindStopSell]
	require.True(t, ok)
	require.True(t, stopSell.Flag)

	_, ok = body.Restrictions[entity.KindMaxStay]
	require.False(t, ok)
}

func TestResolveRestrictionsOutsidePeriodIsEmpty(t *testing.T) {
	repo := &stubRestrictionRepo{rows: []*entity.Restriction{
		{
			ID: 1, TenantID: "t1", PropertyID: "p1",
			Kind: entity.KindMinStay, Value: 5,
			DateFrom: d(2026, 9, 1), DateTo: d(2026, 9, 30), IsActive: true,
		},
	}}
	mux := resolveMux(repo)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/restrictions/resolve?tenantId=t1&propertyId=p1&roomId=r1&date=2026-10-10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Restrictions map[string]json.RawMessage
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Restrictions)
}

func TestResolveRestrictionsRejectsBadRequests(t *testing.T) {
	mux := resolveMux(&stubRestrictionRepo{})

	// Missing tenant
	req := httptest.NewRequest(http.MethodGet, "/api/v1/restrictions/resolve?date=2026-09-10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unparseable date
	req = httptest.NewRequest(http.MethodGet, "/api/v1/restrictions/resolve?tenantId=t1&date=soon", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Wrong method
	req = httptest.NewRequest(http.MethodPost, "/api/v1/restrictions/resolve?tenantId=t1&date=2026-09-10", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
