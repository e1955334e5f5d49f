package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"

	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	configRepo   *fakeConfigRepo
	syncLogRepo  *fakeSyncLogRepo
	restrictions *fakeRestrictionRepo
	availability *fakeAvailabilityRepo
	locks        *fakeLockRepo
	channel      *fakeChannelClient
	notifier     *fakeNotifier
	engine       *SyncEngine
}

func readyConfig() *entity.ChannelConfiguration {
	return &entity.ChannelConfiguration{
		ID:               1,
		TenantID:         "t1",
		PropertyID:       "p1",
		ChannelCode:      "wubook",
		APIKey:           "key",
		PropertyCode:     "prop",
		ConnectionStatus: entity.ConnectionConnected,
		IsActive:         true,
		SyncRestrictions: true,
		RoomMappings:     map[string]string{"R1": "r1", "R2": "r2"},
	}
}

func newEngineFixture(cfg *entity.ChannelConfiguration, opts SyncEngineOptions) *engineFixture {
	f := &engineFixture{
		configRepo:   newFakeConfigRepo(cfg),
		syncLogRepo:  newFakeSyncLogRepo(),
		restrictions: newFakeRestrictionRepo(),
		availability: newFakeAvailabilityRepo(),
		locks:        newFakeLockRepo(),
		channel:      newFakeChannelClient(),
		notifier:     newFakeNotifier(),
	}
	if opts.RunTimeout == 0 {
		opts.RunTimeout = 5 * time.Second
	}
	f.engine = NewSyncEngine(
		f.configRepo, f.syncLogRepo, f.restrictions, f.availability,
		f.locks, f.channel, f.notifier,
		nil, logger.NewNopLogger(), opts,
	)
	return f
}

func (f *engineFixture) waitTerminal(t *testing.T, logID string) *entity.SyncLog {
	t.Helper()
	var log *entity.SyncLog
	require.Eventually(t, func() bool {
		var err error
		log, err = f.syncLogRepo.FindByID(context.Background(), logID)
		require.NoError(t, err)
		return log != nil && log.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return log
}

// waitUnlocked waits for the run goroutine's deferred lock release
func (f *engineFixture) waitUnlocked(t *testing.T, configID uint) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.locks.isHeld(configID)
	}, 5*time.Second, 10*time.Millisecond)
}

func pendingRestriction(id uint, roomID string) *entity.Restriction {
	return &entity.Restriction{
		ID:          id,
		TenantID:    "t1",
		PropertyID:  "p1",
		RoomID:      strPtr(roomID),
		Kind:        entity.KindMinStay,
		Value:       2,
		DateFrom:    date(2026, 9, 1),
		DateTo:      date(2026, 9, 30),
		IsActive:    true,
		SyncPending: true,
	}
}

func TestTriggerSyncRejectsMissingConfiguration(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})

	_, err := f.engine.TriggerSync(context.Background(), TriggerRequest{ConfigID: 99, Force: true})
	require.Error(t, err)
}

func TestTriggerSyncRejectsUnreadyConfiguration(t *testing.T) {
	cfg := readyConfig()
	cfg.ConnectionStatus = entity.ConnectionPending
	f := newEngineFixture(cfg, SyncEngineOptions{})

	_, err := f.engine.TriggerSync(context.Background(), TriggerRequest{ConfigID: 1, Force: true})
	require.ErrorIs(t, err, entity.ErrConfigurationNotReady)
}

func TestTriggerSyncRejectsWhenNotDueWithoutForce(t *testing.T) {
	cfg := readyConfig()
	now := time.Now()
	cfg.LastSyncAt = &now
	cfg.SyncIntervalMinutes = 60
	f := newEngineFixture(cfg, SyncEngineOptions{})

	_, err := f.engine.TriggerSync(context.Background(), TriggerRequest{ConfigID: 1})
	require.Error(t, err)
	require.NotErrorIs(t, err, entity.ErrSyncAlreadyRunning)
}

func TestTriggerSyncRejectsConcurrentRuns(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})

	_, err := f.locks.Acquire(context.Background(), 1, time.Minute)
	require.NoError(t, err)

	_, err = f.engine.TriggerSync(context.Background(), TriggerRequest{ConfigID: 1, Force: true})
	require.ErrorIs(t, err, entity.ErrSyncAlreadyRunning)
}

func TestOutboundRestrictionsAllSucceed(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})
	for i := uint(1); i <= 5; i++ {
		f.restrictions.add(pendingRestriction(i, "r1"))
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionOutbound,
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusSuccess, log.Status)
	require.Equal(t, 5, log.ProcessedItems)
	require.Equal(t, 5, log.SuccessItems)
	require.Equal(t, 5, log.ChangesMade[entity.ChangePushed])
	require.NotNil(t, log.CompletedAt)

	for i := uint(1); i <= 5; i++ {
		require.False(t, f.restrictions.byID(i).SyncPending)
	}

	cfg := f.configRepo.get(1)
	require.NotNil(t, cfg.LastSyncAt)
	require.Zero(t, cfg.ErrorCount)

	f.waitUnlocked(t, 1)
	require.Len(t, f.notifier.byType(entity.EventSyncCompleted), 1)
}

func TestOutboundPartialSuccessKeepsFailedItemsPending(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{
		MaxItemRetries: 2,
		RetryBackoff:   time.Millisecond,
	})

	// 10 pending rules; pushes for rooms mapped to R2 always fail with a
	// transient error, even after retries
	for i := uint(1); i <= 7; i++ {
		f.restrictions.add(pendingRestriction(i, "r1"))
	}
	for i := uint(8); i <= 10; i++ {
		f.restrictions.add(pendingRestriction(i, "r2"))
	}
	var attempts int
	var mu sync.Mutex
	f.channel.pushRestrictionFn = func(ctx context.Context, item entity.RemoteRestriction) error {
		if item.RoomCode == "R2" {
			mu.Lock()
			attempts++
			mu.Unlock()
			return &entity.RemoteError{Code: entity.RemoteErrServer, Message: "boom", Transient: true}
		}
		return nil
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionOutbound,
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusPartialSuccess, log.Status)
	require.Equal(t, 10, log.ProcessedItems)
	require.Equal(t, 7, log.SuccessItems)
	require.Equal(t, 3, log.ErrorItems)

	// Each failing item is attempted once plus two retries
	mu.Lock()
	require.Equal(t, 9, attempts)
	mu.Unlock()
	require.Equal(t, 6, log.RetryCount)

	// Failed items stay flagged for the next run; succeeded ones do not
	for i := uint(1); i <= 7; i++ {
		require.False(t, f.restrictions.byID(i).SyncPending)
	}
	for i := uint(8); i <= 10; i++ {
		r := f.restrictions.byID(i)
		require.True(t, r.SyncPending)
		require.NotEmpty(t, r.SyncError)
	}

	f.waitUnlocked(t, 1)
}

func TestOutboundSecondRunPushesNothingNew(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})
	for i := uint(1); i <= 3; i++ {
		f.restrictions.add(pendingRestriction(i, "r1"))
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionOutbound, Force: true,
	})
	require.NoError(t, err)
	f.waitTerminal(t, logID)
	require.Len(t, f.channel.pushedRestrictions, 3)

	logID, err = f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionOutbound, Force: true,
	})
	require.NoError(t, err)
	log := f.waitTerminal(t, logID)

	require.Equal(t, entity.SyncStatusSuccess, log.Status)
	require.Zero(t, log.ProcessedItems)
	require.Len(t, f.channel.pushedRestrictions, 3)
}

func TestAuthFailureFailsRunAndBumpsErrorCount(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})
	for i := uint(1); i <= 4; i++ {
		f.restrictions.add(pendingRestriction(i, "r1"))
	}
	f.channel.pushRestrictionFn = func(ctx context.Context, item entity.RemoteRestriction) error {
		return &entity.RemoteError{Code: entity.RemoteErrAuth, Message: "bad key", Status: 401}
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionOutbound, Force: true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusError, log.Status)
	require.Equal(t, entity.RemoteErrAuth, log.ErrorCode)
	// The run stops at the first auth failure instead of burning the queue
	require.Equal(t, 1, log.ProcessedItems)

	cfg := f.configRepo.get(1)
	require.Equal(t, 1, cfg.ErrorCount)
	// Rejected credentials park the connection until someone fixes the keys
	require.Equal(t, entity.ConnectionError, cfg.ConnectionStatus)
	require.False(t, cfg.IsReady())
	f.waitUnlocked(t, 1)
}

func TestOutboundAvailabilitySkipsUnchangedDays(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncAvailability = true
	cfg.SyncRestrictions = false
	lastSync := time.Now().Add(-time.Hour)
	cfg.LastSyncAt = &lastSync

	f := newEngineFixture(cfg, SyncEngineOptions{})

	stale := entity.DefaultOpenDay("t1", "p1", "r1", date(2026, 9, 10))
	stale.IsAvailable = false
	stale.IsBlocked = true
	stale.UpdatedAt = lastSync.Add(-time.Hour)
	f.availability.put(stale)

	fresh := entity.DefaultOpenDay("t1", "p1", "r2", date(2026, 9, 11))
	fresh.IsAvailable = false
	fresh.IsBlocked = true
	fresh.UpdatedAt = time.Now()
	f.availability.put(fresh)

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionOutbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusSuccess, log.Status)
	// Only the day edited after the last run goes out
	require.Equal(t, 1, log.ProcessedItems)
	require.Len(t, f.channel.pushedAvailability, 1)
	require.Equal(t, "R2", f.channel.pushedAvailability[0].RoomCode)
	require.False(t, f.channel.pushedAvailability[0].Available)
	f.waitUnlocked(t, 1)
}

func TestOutboundAvailabilityFirstRunPushesEveryStoredDay(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncAvailability = true
	cfg.SyncRestrictions = false

	f := newEngineFixture(cfg, SyncEngineOptions{})
	for i, roomID := range []string{"r1", "r2"} {
		day := entity.DefaultOpenDay("t1", "p1", roomID, date(2026, 9, 10+i))
		day.IsAvailable = false
		day.IsBlocked = true
		f.availability.put(day)
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionOutbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusSuccess, log.Status)
	require.Equal(t, 2, log.ProcessedItems)
	require.Len(t, f.channel.pushedAvailability, 2)
	f.waitUnlocked(t, 1)
}

func TestRunTimeoutFinishesWithTimeoutStatus(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{
		RunTimeout: 50 * time.Millisecond,
	})
	for i := uint(1); i <= 3; i++ {
		f.restrictions.add(pendingRestriction(i, "r1"))
	}
	f.channel.pushRestrictionFn = func(ctx context.Context, item entity.RemoteRestriction) error {
		<-ctx.Done()
		return ctx.Err()
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionOutbound, Force: true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusTimeout, log.Status)
	f.waitUnlocked(t, 1)
}

func TestCancelSyncFinishesWithCancelledStatus(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})
	for i := uint(1); i <= 3; i++ {
		f.restrictions.add(pendingRestriction(i, "r1"))
	}

	started := make(chan struct{})
	var once sync.Once
	f.channel.pushRestrictionFn = func(ctx context.Context, item entity.RemoteRestriction) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionOutbound, Force: true,
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, f.engine.CancelSync(logID))

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusCancelled, log.Status)
	f.waitUnlocked(t, 1)

	// A finished run can no longer be cancelled
	require.Eventually(t, func() bool {
		return f.engine.CancelSync(logID) != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTerminalLogRejectsFurtherUpdates(t *testing.T) {
	f := newEngineFixture(readyConfig(), SyncEngineOptions{})

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionOutbound, Force: true,
	})
	require.NoError(t, err)
	log := f.waitTerminal(t, logID)

	log.Status = entity.SyncStatusInProgress
	err = f.syncLogRepo.Update(context.Background(), log)
	require.ErrorIs(t, err, entity.ErrSyncLogFinalized)
}

func TestInboundAvailabilityAppliesRemoteChanges(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncAvailability = true
	cfg.SyncRestrictions = false
	f := newEngineFixture(cfg, SyncEngineOptions{})

	f.channel.availability = []entity.RemoteAvailability{
		{RoomCode: "R1", Date: date(2026, 9, 10), Available: false},
		{RoomCode: "UNMAPPED", Date: date(2026, 9, 10), Available: false},
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionInbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusSuccess, log.Status)
	require.Equal(t, 1, log.SuccessItems)
	require.Equal(t, 1, log.SkippedItems)
	require.Equal(t, 1, log.ChangesMade[entity.ChangeUpdated])

	day, err := f.availability.GetDay(context.Background(), "t1", "r1", date(2026, 9, 10))
	require.NoError(t, err)
	require.NotNil(t, day)
	require.False(t, day.IsAvailable)
}

func TestInboundConflictWithManualReviewLeavesLocalState(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncAvailability = true
	cfg.SyncRestrictions = false
	lastSync := time.Now().Add(-time.Hour)
	cfg.LastSyncAt = &lastSync
	f := newEngineFixture(cfg, SyncEngineOptions{})

	// Local side blocked the night after the last sync
	f.availability.put(&entity.AvailabilityDay{
		TenantID: "t1", PropertyID: "p1", RoomID: "r1",
		Date: date(2026, 9, 10), IsBlocked: true,
		UpdatedAt: time.Now(),
	})
	// Remote side reopened it after the last sync too
	f.channel.availability = []entity.RemoteAvailability{
		{RoomCode: "R1", Date: date(2026, 9, 10), Available: true, UpdatedAt: time.Now()},
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionInbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Len(t, log.Conflicts, 1)
	require.Equal(t, entity.PolicyManualReview, log.Conflicts[0].Resolution)
	require.Equal(t, "false", log.Conflicts[0].LocalValue)
	require.Equal(t, "true", log.Conflicts[0].RemoteValue)
	require.Equal(t, 1, log.SkippedItems)

	// Manual review means neither side is overwritten
	day, err := f.availability.GetDay(context.Background(), "t1", "r1", date(2026, 9, 10))
	require.NoError(t, err)
	require.True(t, day.IsBlocked)
}

func TestInboundConflictWithRemoteWinsAppliesRemote(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncAvailability = true
	cfg.SyncRestrictions = false
	cfg.ConflictPolicies = map[string]string{
		entity.SyncKindAvailability: entity.PolicyRemoteWins,
	}
	lastSync := time.Now().Add(-time.Hour)
	cfg.LastSyncAt = &lastSync
	f := newEngineFixture(cfg, SyncEngineOptions{})

	f.availability.put(&entity.AvailabilityDay{
		TenantID: "t1", PropertyID: "p1", RoomID: "r1",
		Date: date(2026, 9, 10), IsBlocked: true,
		UpdatedAt: time.Now(),
	})
	f.channel.availability = []entity.RemoteAvailability{
		{RoomCode: "R1", Date: date(2026, 9, 10), Available: true, UpdatedAt: time.Now()},
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionInbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Len(t, log.Conflicts, 1)
	require.Equal(t, 1, log.ChangesMade[entity.ChangeResolved])

	day, err := f.availability.GetDay(context.Background(), "t1", "r1", date(2026, 9, 10))
	require.NoError(t, err)
	require.True(t, day.IsAvailable)
	require.False(t, day.IsBlocked)
}

func TestInboundRatesDefaultToRemoteWins(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncRates = true
	cfg.SyncRestrictions = false
	f := newEngineFixture(cfg, SyncEngineOptions{})

	f.channel.rates = []entity.RemoteRate{
		{RoomCode: "R1", Date: date(2026, 9, 10), Rate: 125.5},
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionInbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusSuccess, log.Status)

	day, err := f.availability.GetDay(context.Background(), "t1", "r1", date(2026, 9, 10))
	require.NoError(t, err)
	require.NotNil(t, day.RateOverride)
	require.Equal(t, 125.5, *day.RateOverride)
}

func TestInboundRestrictionsCreateChannelSourcedRules(t *testing.T) {
	cfg := readyConfig()
	f := newEngineFixture(cfg, SyncEngineOptions{})

	f.channel.restrictions = []entity.RemoteRestriction{
		{RoomCode: "R1", Kind: entity.KindMinStay, Value: 3, DateFrom: date(2026, 9, 1), DateTo: date(2026, 9, 30)},
		{RoomCode: "R1", Kind: "weird_kind", Value: 1, DateFrom: date(2026, 9, 1), DateTo: date(2026, 9, 30)},
	}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID:  1,
		Direction: entity.DirectionInbound,
		DateFrom:  date(2026, 9, 1),
		DateTo:    date(2026, 9, 30),
		Force:     true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusSuccess, log.Status)
	require.Equal(t, 1, log.ChangesMade[entity.ChangeCreated])
	require.Equal(t, 1, log.SkippedItems)

	stored, err := f.restrictions.FindActiveByTuple(context.Background(), &entity.Restriction{
		TenantID:   "t1",
		PropertyID: "p1",
		RoomID:     strPtr("r1"),
		Kind:       entity.KindMinStay,
		DateFrom:   date(2026, 9, 1),
		DateTo:     date(2026, 9, 30),
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, entity.SourceChannelManager, stored.Source)
	require.Equal(t, 3, stored.Value)
	require.False(t, stored.SyncPending)
}

func TestFetchFailureWithNoProgressFailsRun(t *testing.T) {
	cfg := readyConfig()
	cfg.SyncAvailability = true
	cfg.SyncRestrictions = false
	f := newEngineFixture(cfg, SyncEngineOptions{
		MaxItemRetries: 1,
		RetryBackoff:   time.Millisecond,
	})
	f.channel.fetchErr = &entity.RemoteError{Code: entity.RemoteErrServer, Message: "down", Transient: true}

	logID, err := f.engine.TriggerSync(context.Background(), TriggerRequest{
		ConfigID: 1, Direction: entity.DirectionInbound, Force: true,
	})
	require.NoError(t, err)

	log := f.waitTerminal(t, logID)
	require.Equal(t, entity.SyncStatusError, log.Status)
	require.NotEmpty(t, log.ErrorMessage)
	f.waitUnlocked(t, 1)
}

func TestSchedulerTriggersDueConfigurations(t *testing.T) {
	cfg := readyConfig()
	f := newEngineFixture(cfg, SyncEngineOptions{})
	f.restrictions.add(pendingRestriction(1, "r1"))

	scheduler := NewSyncScheduler(f.engine, f.configRepo, logger.NewNopLogger(), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.StartPolling(ctx)

	require.Eventually(t, func() bool {
		logs, err := f.syncLogRepo.List(context.Background(), repository.SyncLogFilter{
			Status: entity.SyncStatusSuccess,
		})
		require.NoError(t, err)
		return len(logs) > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NotNil(t, f.configRepo.get(1).LastSyncAt)
}
