package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/utils"
)

// In-memory fakes shared by the usecase tests.

type fakeRestrictionRepo struct {
	mu     sync.Mutex
	rows   []*entity.Restriction
	nextID uint
}

func newFakeRestrictionRepo() *fakeRestrictionRepo {
	return &fakeRestrictionRepo{}
}

func (f *fakeRestrictionRepo) add(r *entity.Restriction) *entity.Restriction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		f.nextID++
		r.ID = f.nextID
	} else if r.ID > f.nextID {
		f.nextID = r.ID
	}
	f.rows = append(f.rows, r)
	return r
}

func (f *fakeRestrictionRepo) Upsert(ctx context.Context, r *entity.Restriction) error {
	if r.TenantID == "" {
		return entity.ErrMissingTenant
	}
	if err := r.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if r.ID == 0 {
		if r.IsActive {
			for _, row := range f.rows {
				if row.IsActive && row.SameTuple(r) && row.Kind == r.Kind {
					return entity.ErrDuplicateRestriction
				}
			}
		}
		f.nextID++
		r.ID = f.nextID
		cp := *r
		f.rows = append(f.rows, &cp)
		return nil
	}

	for i, row := range f.rows {
		if row.ID == r.ID && row.TenantID == r.TenantID {
			cp := *r
			cp.UpdatedAt = time.Now()
			f.rows[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("restriction %d not found", r.ID)
}

func (f *fakeRestrictionRepo) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]*entity.Restriction, error) {
	if q.TenantID == "" {
		return nil, entity.ErrMissingTenant
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	day := utils.ToDay(q.Date)
	var out []*entity.Restriction
	for _, r := range f.rows {
		if !r.IsActive || r.TenantID != q.TenantID || r.PropertyID != q.PropertyID || r.Kind != q.Kind {
			continue
		}
		if day.Before(utils.ToDay(r.DateFrom)) || day.After(utils.ToDay(r.DateTo)) {
			continue
		}
		switch r.Scope() {
		case entity.ScopeRoom:
			if *r.RoomID != q.RoomID {
				continue
			}
		case entity.ScopeRoomType:
			if *r.RoomTypeID != q.RoomTypeID {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRestrictionRepo) FindActiveByTuple(ctx context.Context, r *entity.Restriction) (*entity.Restriction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.IsActive && row.SameTuple(r) && row.Kind == r.Kind {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRestrictionRepo) Deactivate(ctx context.Context, tenantID string, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id && row.TenantID == tenantID {
			row.IsActive = false
			return nil
		}
	}
	return fmt.Errorf("restriction %d not found", id)
}

func (f *fakeRestrictionRepo) FindPendingSync(ctx context.Context, tenantID, propertyID string, limit int) ([]*entity.Restriction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Restriction
	for _, r := range f.rows {
		if r.IsActive && r.SyncPending && r.TenantID == tenantID && r.PropertyID == propertyID {
			cp := *r
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRestrictionRepo) MarkSynced(ctx context.Context, tenantID string, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id && r.TenantID == tenantID {
			r.SyncPending = false
			r.LastSyncAt = &at
			r.SyncError = ""
			return nil
		}
	}
	return fmt.Errorf("restriction %d not found", id)
}

func (f *fakeRestrictionRepo) MarkSyncError(ctx context.Context, tenantID string, id uint, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id && r.TenantID == tenantID {
			r.SyncError = message
			return nil
		}
	}
	return fmt.Errorf("restriction %d not found", id)
}

func (f *fakeRestrictionRepo) byID(id uint) *entity.Restriction {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			cp := *r
			return &cp
		}
	}
	return nil
}

type fakeAvailabilityRepo struct {
	mu   sync.Mutex
	days map[string]*entity.AvailabilityDay
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{days: make(map[string]*entity.AvailabilityDay)}
}

func dayKey(tenantID, roomID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, roomID, utils.ToDay(date).Format("2006-01-02"))
}

func (f *fakeAvailabilityRepo) put(d *entity.AvailabilityDay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.days[dayKey(d.TenantID, d.RoomID, d.Date)] = &cp
}

func (f *fakeAvailabilityRepo) GetDay(ctx context.Context, tenantID, roomID string, date time.Time) (*entity.AvailabilityDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.days[dayKey(tenantID, roomID, date)]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAvailabilityRepo) GetRange(ctx context.Context, tenantID, roomID string, from, to time.Time) ([]*entity.AvailabilityDay, error) {
	var out []*entity.AvailabilityDay
	for _, d := range utils.DaysBetween(from, to) {
		day, _ := f.GetDay(ctx, tenantID, roomID, d)
		if day != nil {
			out = append(out, day)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) GetPropertyRange(ctx context.Context, tenantID, propertyID string, from, to time.Time) ([]*entity.AvailabilityDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fromDay, toDay := utils.ToDay(from), utils.ToDay(to)
	var out []*entity.AvailabilityDay
	for _, d := range f.days {
		if d.TenantID != tenantID || d.PropertyID != propertyID {
			continue
		}
		day := utils.ToDay(d.Date)
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) SetRange(ctx context.Context, tenantID, propertyID string, roomIDs []string, from, to time.Time, patch entity.AvailabilityPatch) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, roomID := range roomIDs {
		for _, d := range utils.DaysBetween(from, to) {
			key := dayKey(tenantID, roomID, d)
			day, ok := f.days[key]
			if !ok {
				day = entity.DefaultOpenDay(tenantID, propertyID, roomID, d)
				f.days[key] = day
			}
			patch.Apply(day)
			day.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (f *fakeAvailabilityRepo) MarkReserved(ctx context.Context, tenantID, propertyID, roomID string, from, to time.Time, reservationID string) error {
	if tenantID == "" {
		return entity.ErrMissingTenant
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	nights := utils.Nights(from, to)
	for _, d := range nights {
		if day, ok := f.days[dayKey(tenantID, roomID, d)]; ok && day.BlocksReservation() {
			return &entity.DateUnavailableError{RoomID: roomID, Date: d, Reason: day.BlocksStay()}
		}
	}
	for _, d := range nights {
		key := dayKey(tenantID, roomID, d)
		day, ok := f.days[key]
		if !ok {
			day = entity.DefaultOpenDay(tenantID, propertyID, roomID, d)
			f.days[key] = day
		}
		rid := reservationID
		day.IsReserved = true
		day.IsAvailable = false
		day.ReservationID = &rid
		day.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeAvailabilityRepo) ClearReservation(ctx context.Context, tenantID, roomID string, from, to time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range utils.Nights(from, to) {
		if day, ok := f.days[dayKey(tenantID, roomID, d)]; ok {
			day.IsReserved = false
			day.IsAvailable = true
			day.ReservationID = nil
			day.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (f *fakeAvailabilityRepo) UpsertDay(ctx context.Context, day *entity.AvailabilityDay) error {
	if err := day.Validate(); err != nil {
		return err
	}
	f.put(day)
	return nil
}

type fakeRateRepo struct {
	mu    sync.Mutex
	rates []*entity.RoomRate
}

func newFakeRateRepo() *fakeRateRepo {
	return &fakeRateRepo{}
}

func (f *fakeRateRepo) add(r *entity.RoomRate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, r)
}

func (f *fakeRateRepo) BaseRate(ctx context.Context, tenantID, roomTypeID string, date time.Time) (*entity.RoomRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var fallback *entity.RoomRate
	for _, r := range f.rates {
		if !r.IsActive || r.TenantID != tenantID || r.RoomTypeID != roomTypeID || !r.Covers(date) {
			continue
		}
		if r.Seasonal() {
			cp := *r
			return &cp, nil
		}
		fallback = r
	}
	if fallback == nil {
		return nil, nil
	}
	cp := *fallback
	return &cp, nil
}

type fakeConfigRepo struct {
	mu   sync.Mutex
	cfgs map[uint]*entity.ChannelConfiguration
}

func newFakeConfigRepo(cfgs ...*entity.ChannelConfiguration) *fakeConfigRepo {
	f := &fakeConfigRepo{cfgs: make(map[uint]*entity.ChannelConfiguration)}
	for _, c := range cfgs {
		f.cfgs[c.ID] = c
	}
	return f
}

func (f *fakeConfigRepo) FindByID(ctx context.Context, id uint) (*entity.ChannelConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cfgs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeConfigRepo) FindActive(ctx context.Context) ([]*entity.ChannelConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ChannelConfiguration
	for _, c := range f.cfgs {
		if c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) Save(ctx context.Context, cfg *entity.ChannelConfiguration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cfg
	f.cfgs[cfg.ID] = &cp
	return nil
}

func (f *fakeConfigRepo) UpdateSyncResult(ctx context.Context, id uint, at time.Time, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cfgs[id]; ok {
		t := at
		c.LastSyncAt = &t
		c.LastSyncMessage = message
	}
	return nil
}

func (f *fakeConfigRepo) IncrementErrorCount(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cfgs[id]; ok {
		c.ErrorCount++
	}
	return nil
}

func (f *fakeConfigRepo) UpdateConnectionStatus(ctx context.Context, id uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cfgs[id]; ok {
		c.ConnectionStatus = status
	}
	return nil
}

func (f *fakeConfigRepo) get(id uint) *entity.ChannelConfiguration {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.cfgs[id]
	return &cp
}

type fakeSyncLogRepo struct {
	mu   sync.Mutex
	logs map[string]*entity.SyncLog
	seq  int
}

func newFakeSyncLogRepo() *fakeSyncLogRepo {
	return &fakeSyncLogRepo{logs: make(map[string]*entity.SyncLog)}
}

func (f *fakeSyncLogRepo) Create(ctx context.Context, log *entity.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if log.ID == "" {
		f.seq++
		log.ID = fmt.Sprintf("log-%d", f.seq)
	}
	cp := *log
	f.logs[log.ID] = &cp
	return nil
}

func (f *fakeSyncLogRepo) Update(ctx context.Context, log *entity.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.logs[log.ID]
	if !ok {
		return fmt.Errorf("sync log %s not found", log.ID)
	}
	if existing.IsTerminal() {
		return entity.ErrSyncLogFinalized
	}
	cp := *log
	f.logs[log.ID] = &cp
	return nil
}

func (f *fakeSyncLogRepo) FindByID(ctx context.Context, id string) (*entity.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.logs[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSyncLogRepo) List(ctx context.Context, filter repository.SyncLogFilter) ([]*entity.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.SyncLog
	for _, l := range f.logs {
		if filter.ConfigID != 0 && l.ConfigID != filter.ConfigID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

type fakeLockRepo struct {
	mu   sync.Mutex
	held map[uint]string
	seq  int
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: make(map[uint]string)}
}

func (f *fakeLockRepo) Acquire(ctx context.Context, configID uint, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[configID]; ok {
		return "", entity.ErrSyncAlreadyRunning
	}
	f.seq++
	token := fmt.Sprintf("token-%d", f.seq)
	f.held[configID] = token
	return token, nil
}

func (f *fakeLockRepo) Release(ctx context.Context, configID uint, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[configID] == token {
		delete(f.held, configID)
	}
	return nil
}

func (f *fakeLockRepo) isHeld(configID uint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.held[configID]
	return ok
}

type fakeChannelClient struct {
	mu sync.Mutex

	availability []entity.RemoteAvailability
	restrictions []entity.RemoteRestriction
	rates        []entity.RemoteRate

	fetchErr           error
	pushAvailabilityFn func(ctx context.Context, item entity.RemoteAvailability) error
	pushRestrictionFn  func(ctx context.Context, item entity.RemoteRestriction) error

	pushedAvailability []entity.RemoteAvailability
	pushedRestrictions []entity.RemoteRestriction
}

func newFakeChannelClient() *fakeChannelClient {
	return &fakeChannelClient{}
}

func (f *fakeChannelClient) FetchAvailability(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time, roomCodes []string) ([]entity.RemoteAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]entity.RemoteAvailability(nil), f.availability...), nil
}

func (f *fakeChannelClient) PushAvailability(ctx context.Context, creds entity.ChannelCredentials, item entity.RemoteAvailability) error {
	f.mu.Lock()
	fn := f.pushAvailabilityFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, item); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.pushedAvailability = append(f.pushedAvailability, item)
	f.mu.Unlock()
	return nil
}

func (f *fakeChannelClient) FetchRestrictions(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time) ([]entity.RemoteRestriction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]entity.RemoteRestriction(nil), f.restrictions...), nil
}

func (f *fakeChannelClient) PushRestriction(ctx context.Context, creds entity.ChannelCredentials, item entity.RemoteRestriction) error {
	f.mu.Lock()
	fn := f.pushRestrictionFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, item); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.pushedRestrictions = append(f.pushedRestrictions, item)
	f.mu.Unlock()
	return nil
}

func (f *fakeChannelClient) FetchRates(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time) ([]entity.RemoteRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]entity.RemoteRate(nil), f.rates...), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []entity.Event
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (f *fakeNotifier) Publish(ctx context.Context, event entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) byType(eventType string) []entity.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Event
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
