package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"
	"roomsync-service/pkg/metrics"
	"roomsync-service/pkg/utils"
)

// SyncEngineOptions bound the behavior of every run
type SyncEngineOptions struct {
	RunTimeout          time.Duration
	MaxItemRetries      int
	RetryBackoff        time.Duration
	ErrorRatioThreshold float64
	DefaultHorizonDays  int
	PendingBatchSize    int
}

// DefaultSyncEngineOptions returns sane defaults
func DefaultSyncEngineOptions() SyncEngineOptions {
	return SyncEngineOptions{
		RunTimeout:          10 * time.Minute,
		MaxItemRetries:      3,
		RetryBackoff:        500 * time.Millisecond,
		ErrorRatioThreshold: 0.5,
		DefaultHorizonDays:  30,
		PendingBatchSize:    500,
	}
}

// SyncEngine drives bidirectional synchronization between local calendar
// and restriction state and the external channel manager. Each run is
// recorded as one SyncLog; a failed run is retried by starting a new run,
// never by reopening the old log.
type SyncEngine struct {
	configRepo       repository.ChannelConfigRepository
	syncLogRepo      repository.SyncLogRepository
	restrictionRepo  repository.RestrictionRepository
	availabilityRepo repository.AvailabilityRepository
	lockRepo         repository.SyncLockRepository
	channel          repository.ChannelClient
	notificationRepo repository.NotificationRepository
	metrics          *metrics.Metrics
	logger           logger.Logger
	opts             SyncEngineOptions

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewSyncEngine creates a new channel sync engine
func NewSyncEngine(
	configRepo repository.ChannelConfigRepository,
	syncLogRepo repository.SyncLogRepository,
	restrictionRepo repository.RestrictionRepository,
	availabilityRepo repository.AvailabilityRepository,
	lockRepo repository.SyncLockRepository,
	channel repository.ChannelClient,
	notificationRepo repository.NotificationRepository,
	m *metrics.Metrics,
	log logger.Logger,
	opts SyncEngineOptions,
) *SyncEngine {
	defaults := DefaultSyncEngineOptions()
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaults.RunTimeout
	}
	if opts.ErrorRatioThreshold <= 0 {
		opts.ErrorRatioThreshold = defaults.ErrorRatioThreshold
	}
	if opts.DefaultHorizonDays <= 0 {
		opts.DefaultHorizonDays = defaults.DefaultHorizonDays
	}
	if opts.PendingBatchSize <= 0 {
		opts.PendingBatchSize = defaults.PendingBatchSize
	}
	return &SyncEngine{
		configRepo:       configRepo,
		syncLogRepo:      syncLogRepo,
		restrictionRepo:  restrictionRepo,
		availabilityRepo: availabilityRepo,
		lockRepo:         lockRepo,
		channel:          channel,
		notificationRepo: notificationRepo,
		metrics:          m,
		logger:           log,
		opts:             opts,
		running:          make(map[string]context.CancelFunc),
	}
}

// TriggerRequest describes the sync run to start
type TriggerRequest struct {
	ConfigID    uint
	Kind        string // empty = every enabled kind
	Direction   string // defaults to bidirectional
	DateFrom    time.Time
	DateTo      time.Time
	Force       bool
	TriggeredBy string
}

// TriggerSync starts a run and returns its log id immediately; the run
// itself executes in the background. A run already in flight for the same
// configuration is rejected, not queued.
func (e *SyncEngine) TriggerSync(ctx context.Context, req TriggerRequest) (string, error) {
	cfg, err := e.configRepo.FindByID(ctx, req.ConfigID)
	if err != nil {
		return "", fmt.Errorf("failed to load channel configuration %d: %w", req.ConfigID, err)
	}
	if cfg == nil {
		return "", fmt.Errorf("channel configuration %d not found", req.ConfigID)
	}
	if !cfg.IsReady() {
		return "", entity.ErrConfigurationNotReady
	}

	now := time.Now()
	if !req.Force && !cfg.NeedsSync(now) {
		return "", fmt.Errorf("sync is not due for configuration %d", cfg.ID)
	}
	if req.Kind != "" && !cfg.KindEnabled(req.Kind) {
		return "", fmt.Errorf("sync kind %q is disabled for configuration %d", req.Kind, cfg.ID)
	}

	direction := req.Direction
	if direction == "" {
		direction = entity.DirectionBidirectional
	}
	switch direction {
	case entity.DirectionInbound, entity.DirectionOutbound, entity.DirectionBidirectional:
	default:
		return "", fmt.Errorf("unknown sync direction %q", direction)
	}

	dateFrom := req.DateFrom
	dateTo := req.DateTo
	if dateFrom.IsZero() {
		dateFrom = utils.ToDay(now)
	}
	if dateTo.IsZero() {
		dateTo = dateFrom.AddDate(0, 0, e.opts.DefaultHorizonDays)
	}
	if dateTo.Before(dateFrom) {
		return "", entity.ErrInvalidDateRange
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = entity.TriggeredManual
	}

	// The lock outlives the run timeout slightly so a hung run cannot be
	// doubled up on before it is reaped
	token, err := e.lockRepo.Acquire(ctx, cfg.ID, e.opts.RunTimeout+30*time.Second)
	if err != nil {
		return "", err
	}

	log := entity.NewSyncLog(cfg, req.Kind, direction, triggeredBy, dateFrom, dateTo, now)
	if err := e.syncLogRepo.Create(ctx, log); err != nil {
		e.releaseLock(cfg.ID, token)
		return "", fmt.Errorf("failed to create sync log: %w", err)
	}

	runCtx, cancel := context.WithTimeout(context.Background(), e.opts.RunTimeout)
	e.mu.Lock()
	e.running[log.ID] = cancel
	e.mu.Unlock()

	go e.run(runCtx, cancel, cfg, log, token)

	e.logger.Info("Sync run started",
		"logId", log.ID,
		"configId", cfg.ID,
		"kind", req.Kind,
		"direction", direction,
		"triggeredBy", triggeredBy)
	return log.ID, nil
}

// CancelSync cancels an in-flight run. Item-level work already committed
// stays committed; the run stops issuing remote calls and finishes with the
// cancelled status.
func (e *SyncEngine) CancelSync(logID string) error {
	e.mu.Lock()
	cancel, ok := e.running[logID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("no running sync with log id %s", logID)
	}
	cancel()
	return nil
}

// run executes one sync run to a terminal status. Outcomes are always
// captured in the SyncLog, never thrown across the async boundary: the
// caller is a scheduler with no way to handle an error meaningfully.
func (e *SyncEngine) run(ctx context.Context, cancel context.CancelFunc, cfg *entity.ChannelConfiguration, log *entity.SyncLog, token string) {
	defer cancel()
	defer func() {
		e.mu.Lock()
		delete(e.running, log.ID)
		e.mu.Unlock()
		e.releaseLock(cfg.ID, token)
	}()

	log.Status = entity.SyncStatusInProgress
	e.saveLog(log)

	kinds := []string{log.Kind}
	if log.Kind == "" {
		kinds = cfg.EnabledKinds()
	}

	var systemic error
	failedKinds := 0

	for _, kind := range kinds {
		if ctx.Err() != nil {
			break
		}
		// Booking intake arrives through the reservation flow, not here
		if kind == entity.SyncKindBookings {
			continue
		}

		var err error
		switch log.Direction {
		case entity.DirectionInbound:
			err = e.pull(ctx, cfg, log, kind)
		case entity.DirectionOutbound:
			err = e.push(ctx, cfg, log, kind)
		case entity.DirectionBidirectional:
			if err = e.pull(ctx, cfg, log, kind); err == nil {
				err = e.push(ctx, cfg, log, kind)
			}
		}

		if err != nil {
			if entity.IsAuthFailure(err) {
				systemic = err
				break
			}
			if ctx.Err() != nil {
				break
			}
			failedKinds++
			log.ErrorMessage = err.Error()
			e.logger.Error("Sync kind failed", "logId", log.ID, "kind", kind, "error", err)
		}
		e.saveLog(log)
	}

	e.finalize(ctx, cfg, log, systemic, failedKinds)
}

func (e *SyncEngine) finalize(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog, systemic error, failedKinds int) {
	now := time.Now()

	var status string
	switch {
	case systemic != nil:
		status = entity.SyncStatusError
		var re *entity.RemoteError
		if errors.As(systemic, &re) {
			log.ErrorCode = re.Code
		}
		log.ErrorMessage = systemic.Error()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = entity.SyncStatusTimeout
		log.ErrorCode = "timeout"
		log.ErrorMessage = "run exceeded its time budget"
	case errors.Is(ctx.Err(), context.Canceled):
		status = entity.SyncStatusCancelled
	case failedKinds > 0 && log.SuccessItems == 0:
		status = entity.SyncStatusError
	case log.ProcessedItems > 0 && log.ErrorRatio() > e.opts.ErrorRatioThreshold:
		status = entity.SyncStatusError
	case log.ErrorItems > 0 || failedKinds > 0:
		status = entity.SyncStatusPartialSuccess
	default:
		status = entity.SyncStatusSuccess
	}

	log.Finish(status, now)

	message := fmt.Sprintf("%s: %d/%d items ok, %d errors, %d skipped",
		status, log.SuccessItems, log.ProcessedItems, log.ErrorItems, log.SkippedItems)

	bg, cancelBg := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelBg()

	if err := e.configRepo.UpdateSyncResult(bg, cfg.ID, now, message); err != nil {
		e.logger.Error("Failed to record sync result on configuration", "configId", cfg.ID, "error", err)
	}
	if status == entity.SyncStatusError {
		if err := e.configRepo.IncrementErrorCount(bg, cfg.ID); err != nil {
			e.logger.Error("Failed to bump configuration error count", "configId", cfg.ID, "error", err)
		}
	}
	// Rejected credentials flag the whole connection, not just this run;
	// the configuration stops being ready until someone fixes the keys
	if systemic != nil && entity.IsAuthFailure(systemic) {
		if err := e.configRepo.UpdateConnectionStatus(bg, cfg.ID, entity.ConnectionError); err != nil {
			e.logger.Error("Failed to flag configuration connection", "configId", cfg.ID, "error", err)
		}
	}

	if e.metrics != nil {
		e.metrics.SyncRuns.WithLabelValues(status).Inc()
		e.metrics.SyncItems.WithLabelValues("success").Add(float64(log.SuccessItems))
		e.metrics.SyncItems.WithLabelValues("error").Add(float64(log.ErrorItems))
		e.metrics.SyncItems.WithLabelValues("skipped").Add(float64(log.SkippedItems))
		e.metrics.SyncRunDuration.Observe(float64(log.DurationMs) / 1000)
	}

	event := entity.NewEvent(entity.EventSyncCompleted, cfg.TenantID, map[string]interface{}{
		"logId":      log.ID,
		"configId":   cfg.ID,
		"status":     status,
		"success":    log.SuccessItems,
		"errors":     log.ErrorItems,
		"skipped":    log.SkippedItems,
		"conflicts":  len(log.Conflicts),
		"durationMs": log.DurationMs,
	})
	if err := e.notificationRepo.Publish(bg, event); err != nil {
		e.logger.Warn("Failed to publish sync event", "error", err)
	}

	// The terminal status goes out last so anyone polling the log sees the
	// config result and event once the run reads as finished
	e.saveLog(log)

	e.logger.Info("Sync run finished",
		"logId", log.ID,
		"configId", cfg.ID,
		"status", status,
		"processed", log.ProcessedItems,
		"errors", log.ErrorItems,
		"durationMs", log.DurationMs)
}

func (e *SyncEngine) push(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog, kind string) error {
	switch kind {
	case entity.SyncKindAvailability:
		return e.pushAvailability(ctx, cfg, log)
	case entity.SyncKindRestrictions:
		return e.pushRestrictions(ctx, cfg, log)
	}
	// Rates are distributed by the channel; there is no outbound rate push
	return nil
}

func (e *SyncEngine) pull(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog, kind string) error {
	switch kind {
	case entity.SyncKindAvailability:
		return e.pullAvailability(ctx, cfg, log)
	case entity.SyncKindRates:
		return e.pullRates(ctx, cfg, log)
	case entity.SyncKindRestrictions:
		return e.pullRestrictions(ctx, cfg, log)
	}
	return nil
}

// callRemote wraps a channel call with bounded retries for transient
// failures. Every attempt counts as an API call; every retry is recorded.
func (e *SyncEngine) callRemote(ctx context.Context, log *entity.SyncLog, call func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.APICallCount++
		if e.metrics != nil {
			e.metrics.ChannelAPICalls.Inc()
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		if entity.IsAuthFailure(err) {
			return err
		}
		if entity.IsTransientRemote(err) && attempt < e.opts.MaxItemRetries {
			log.RetryCount++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.opts.RetryBackoff):
			}
			continue
		}
		return err
	}
}

// bg returns a short-lived background context for local bookkeeping writes,
// so a timed-out or cancelled run can still record what it already did
func (e *SyncEngine) bg() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (e *SyncEngine) saveLog(log *entity.SyncLog) {
	ctx, cancel := e.bg()
	defer cancel()
	if err := e.syncLogRepo.Update(ctx, log); err != nil {
		e.logger.Error("Failed to update sync log", "logId", log.ID, "error", err)
	}
}

func (e *SyncEngine) releaseLock(configID uint, token string) {
	ctx, cancel := e.bg()
	defer cancel()
	if err := e.lockRepo.Release(ctx, configID, token); err != nil {
		e.logger.Error("Failed to release sync lock", "configId", configID, "error", err)
	}
}

// pushAvailability pushes the stored room-nights that changed since the last
// successful run. With no prior run every stored night goes out; stored rows
// are already only the deviations from default-open.
func (e *SyncEngine) pushAvailability(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog) error {
	bgCtx, cancel := e.bg()
	stored, err := e.availabilityRepo.GetPropertyRange(bgCtx, cfg.TenantID, cfg.PropertyID, log.DateFrom, log.DateTo)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load local availability: %w", err)
	}

	var days []*entity.AvailabilityDay
	for _, day := range stored {
		if changedSince(cfg.LastSyncAt, day.UpdatedAt) {
			days = append(days, day)
		}
	}

	log.TotalItems += len(days)
	creds := cfg.Credentials()

	for _, day := range days {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		roomCode, ok := cfg.RoomCodeFor(day.RoomID)
		if !ok {
			log.RecordItem("skipped")
			continue
		}

		item := entity.RemoteAvailability{
			RoomCode:  roomCode,
			Date:      day.Date,
			Available: day.BlocksStay() == "",
			Rate:      day.RateOverride,
		}

		err := e.callRemote(ctx, log, func(c context.Context) error {
			return e.channel.PushAvailability(c, creds, item)
		})
		if err != nil {
			if entity.IsAuthFailure(err) {
				log.RecordItem("error")
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.RecordItem("error")
			continue
		}
		log.RecordItem("success")
		log.RecordChange(entity.ChangePushed)
	}
	return nil
}

// pushRestrictions pushes the rows still flagged sync_pending. A row loses
// the flag only once the remote acknowledged that specific item; rows that
// exhaust retries keep it and are retried by the next run.
func (e *SyncEngine) pushRestrictions(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog) error {
	bgCtx, cancel := e.bg()
	pending, err := e.restrictionRepo.FindPendingSync(bgCtx, cfg.TenantID, cfg.PropertyID, e.opts.PendingBatchSize)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load pending restrictions: %w", err)
	}

	log.TotalItems += len(pending)
	creds := cfg.Credentials()

	for _, res := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		roomCode := ""
		if res.RoomID != nil && *res.RoomID != "" {
			code, ok := cfg.RoomCodeFor(*res.RoomID)
			if !ok {
				log.RecordItem("skipped")
				continue
			}
			roomCode = code
		}

		item := entity.RemoteRestriction{
			RoomCode: roomCode,
			Kind:     res.Kind,
			Value:    res.Value,
			Flag:     res.Flag,
			DateFrom: res.DateFrom,
			DateTo:   res.DateTo,
		}

		pushErr := e.callRemote(ctx, log, func(c context.Context) error {
			return e.channel.PushRestriction(c, creds, item)
		})

		markCtx, markCancel := e.bg()
		if pushErr != nil {
			if ctx.Err() != nil {
				markCancel()
				return ctx.Err()
			}
			log.RecordItem("error")
			if err := e.restrictionRepo.MarkSyncError(markCtx, cfg.TenantID, res.ID, pushErr.Error()); err != nil {
				e.logger.Error("Failed to record restriction sync error", "restrictionId", res.ID, "error", err)
			}
			markCancel()
			if entity.IsAuthFailure(pushErr) {
				return pushErr
			}
			continue
		}

		if err := e.restrictionRepo.MarkSynced(markCtx, cfg.TenantID, res.ID, time.Now()); err != nil {
			e.logger.Error("Failed to mark restriction synced", "restrictionId", res.ID, "error", err)
		}
		markCancel()
		log.RecordItem("success")
		log.RecordChange(entity.ChangePushed)
	}
	return nil
}

// changed reports whether a timestamp falls after the last successful sync;
// with no prior sync everything counts as changed except absence
func changedSince(lastSync *time.Time, modified time.Time) bool {
	if lastSync == nil {
		return true
	}
	if modified.IsZero() {
		// The remote did not report a timestamp; assume changed
		return true
	}
	return modified.After(*lastSync)
}

func (e *SyncEngine) recordConflict(log *entity.SyncLog, c entity.SyncConflict) {
	log.AddConflict(c)
	if e.metrics != nil {
		e.metrics.ConflictsRecorded.Inc()
	}
}

// pullAvailability applies remote room-night state locally, recording a
// conflict instead of silently overwriting when both sides changed
func (e *SyncEngine) pullAvailability(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog) error {
	var items []entity.RemoteAvailability
	err := e.callRemote(ctx, log, func(c context.Context) error {
		var ferr error
		items, ferr = e.channel.FetchAvailability(c, cfg.Credentials(), log.DateFrom, log.DateTo, nil)
		return ferr
	})
	if err != nil {
		return err
	}

	log.TotalItems += len(items)
	policy := cfg.ConflictPolicyFor(entity.SyncKindAvailability)

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		roomID, ok := cfg.RoomIDFor(item.RoomCode)
		if !ok {
			log.RecordItem("skipped")
			continue
		}

		bgCtx, cancel := e.bg()
		local, err := e.availabilityRepo.GetDay(bgCtx, cfg.TenantID, roomID, item.Date)
		cancel()
		if err != nil {
			log.RecordItem("error")
			continue
		}

		localAvailable := true
		if local != nil {
			localAvailable = local.BlocksStay() == ""
		}

		if localAvailable == item.Available {
			log.RecordItem("success")
			continue
		}

		localChanged := local != nil && changedSince(cfg.LastSyncAt, local.UpdatedAt)
		remoteChanged := changedSince(cfg.LastSyncAt, item.UpdatedAt)

		if localChanged && remoteChanged {
			e.recordConflict(log, entity.SyncConflict{
				ItemType:    entity.SyncKindAvailability,
				ItemKey:     fmt.Sprintf("%s:%s", roomID, item.Date.Format("2006-01-02")),
				Field:       "available",
				LocalValue:  fmt.Sprintf("%t", localAvailable),
				RemoteValue: fmt.Sprintf("%t", item.Available),
				Resolution:  policy,
				DetectedAt:  time.Now(),
			})
			switch policy {
			case entity.PolicyRemoteWins:
				if err := e.applyRemoteAvailability(cfg, roomID, local, item); err != nil {
					log.RecordItem("error")
					continue
				}
				log.RecordItem("success")
				log.RecordChange(entity.ChangeResolved)
			case entity.PolicyLocalWins:
				// Local state stands and goes out on the outbound leg
				log.RecordItem("success")
				log.RecordChange(entity.ChangeResolved)
			default:
				log.RecordItem("skipped")
			}
			continue
		}

		if remoteChanged {
			if err := e.applyRemoteAvailability(cfg, roomID, local, item); err != nil {
				log.RecordItem("error")
				continue
			}
			log.RecordItem("success")
			log.RecordChange(entity.ChangeUpdated)
			continue
		}

		// Only the local side moved; nothing to apply inbound
		log.RecordItem("success")
	}
	return nil
}

func (e *SyncEngine) applyRemoteAvailability(cfg *entity.ChannelConfiguration, roomID string, local *entity.AvailabilityDay, item entity.RemoteAvailability) error {
	day := local
	if day == nil {
		day = entity.DefaultOpenDay(cfg.TenantID, cfg.PropertyID, roomID, item.Date)
	}
	day.IsAvailable = item.Available
	if item.Available {
		day.IsBlocked = false
	}
	if item.Rate != nil {
		day.RateOverride = item.Rate
	}

	ctx, cancel := e.bg()
	defer cancel()
	return e.availabilityRepo.UpsertDay(ctx, day)
}

// pullRates applies remote nightly prices as rate overrides on the calendar
func (e *SyncEngine) pullRates(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog) error {
	var items []entity.RemoteRate
	err := e.callRemote(ctx, log, func(c context.Context) error {
		var ferr error
		items, ferr = e.channel.FetchRates(c, cfg.Credentials(), log.DateFrom, log.DateTo)
		return ferr
	})
	if err != nil {
		return err
	}

	log.TotalItems += len(items)
	policy := cfg.ConflictPolicyFor(entity.SyncKindRates)

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		roomID, ok := cfg.RoomIDFor(item.RoomCode)
		if !ok {
			log.RecordItem("skipped")
			continue
		}

		bgCtx, cancel := e.bg()
		local, err := e.availabilityRepo.GetDay(bgCtx, cfg.TenantID, roomID, item.Date)
		cancel()
		if err != nil {
			log.RecordItem("error")
			continue
		}

		if local != nil && local.RateOverride != nil && *local.RateOverride == item.Rate {
			log.RecordItem("success")
			continue
		}

		localChanged := local != nil && local.RateOverride != nil && changedSince(cfg.LastSyncAt, local.UpdatedAt)
		remoteChanged := changedSince(cfg.LastSyncAt, item.UpdatedAt)

		apply := remoteChanged
		if localChanged && remoteChanged {
			localValue := "unset"
			if local.RateOverride != nil {
				localValue = fmt.Sprintf("%.2f", *local.RateOverride)
			}
			e.recordConflict(log, entity.SyncConflict{
				ItemType:    entity.SyncKindRates,
				ItemKey:     fmt.Sprintf("%s:%s", roomID, item.Date.Format("2006-01-02")),
				Field:       "rate",
				LocalValue:  localValue,
				RemoteValue: fmt.Sprintf("%.2f", item.Rate),
				Resolution:  policy,
				DetectedAt:  time.Now(),
			})
			switch policy {
			case entity.PolicyRemoteWins:
				apply = true
			case entity.PolicyLocalWins:
				log.RecordItem("success")
				log.RecordChange(entity.ChangeResolved)
				continue
			default:
				log.RecordItem("skipped")
				continue
			}
		}

		if !apply {
			log.RecordItem("success")
			continue
		}

		day := local
		if day == nil {
			day = entity.DefaultOpenDay(cfg.TenantID, cfg.PropertyID, roomID, item.Date)
		}
		rate := item.Rate
		day.RateOverride = &rate

		upCtx, upCancel := e.bg()
		upErr := e.availabilityRepo.UpsertDay(upCtx, day)
		upCancel()
		if upErr != nil {
			log.RecordItem("error")
			continue
		}
		log.RecordItem("success")
		log.RecordChange(entity.ChangeUpdated)
	}
	return nil
}

// pullRestrictions imports remote booking rules as channel-sourced
// restrictions, recording conflicts when both sides edited the same rule
func (e *SyncEngine) pullRestrictions(ctx context.Context, cfg *entity.ChannelConfiguration, log *entity.SyncLog) error {
	var items []entity.RemoteRestriction
	err := e.callRemote(ctx, log, func(c context.Context) error {
		var ferr error
		items, ferr = e.channel.FetchRestrictions(c, cfg.Credentials(), log.DateFrom, log.DateTo)
		return ferr
	})
	if err != nil {
		return err
	}

	log.TotalItems += len(items)
	policy := cfg.ConflictPolicyFor(entity.SyncKindRestrictions)

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !entity.KnownKind(item.Kind) {
			log.RecordItem("skipped")
			continue
		}

		var roomID *string
		if item.RoomCode != "" {
			id, ok := cfg.RoomIDFor(item.RoomCode)
			if !ok {
				log.RecordItem("skipped")
				continue
			}
			roomID = &id
		}

		candidate := &entity.Restriction{
			TenantID:   cfg.TenantID,
			PropertyID: cfg.PropertyID,
			RoomID:     roomID,
			Kind:       item.Kind,
			Value:      item.Value,
			Flag:       item.Flag,
			DateFrom:   item.DateFrom,
			DateTo:     item.DateTo,
			Source:     entity.SourceChannelManager,
			IsActive:   true,
		}

		bgCtx, cancel := e.bg()
		existing, err := e.restrictionRepo.FindActiveByTuple(bgCtx, candidate)
		cancel()
		if err != nil {
			log.RecordItem("error")
			continue
		}

		if existing == nil {
			upCtx, upCancel := e.bg()
			upErr := e.restrictionRepo.Upsert(upCtx, candidate)
			upCancel()
			if upErr != nil {
				if errors.Is(upErr, entity.ErrDuplicateRestriction) {
					log.RecordItem("skipped")
				} else {
					log.RecordItem("error")
				}
				continue
			}
			log.RecordItem("success")
			log.RecordChange(entity.ChangeCreated)
			continue
		}

		if existing.Value == item.Value && existing.Flag == item.Flag {
			log.RecordItem("success")
			continue
		}

		localChanged := changedSince(cfg.LastSyncAt, existing.UpdatedAt)
		remoteChanged := changedSince(cfg.LastSyncAt, item.UpdatedAt)

		if localChanged && remoteChanged {
			e.recordConflict(log, entity.SyncConflict{
				ItemType:    entity.SyncKindRestrictions,
				ItemKey:     fmt.Sprintf("%d", existing.ID),
				Field:       "value",
				LocalValue:  fmt.Sprintf("value=%d flag=%t", existing.Value, existing.Flag),
				RemoteValue: fmt.Sprintf("value=%d flag=%t", item.Value, item.Flag),
				Resolution:  policy,
				DetectedAt:  time.Now(),
			})
			switch policy {
			case entity.PolicyRemoteWins:
				// fall through to apply below
			case entity.PolicyLocalWins:
				existing.SyncPending = true
				upCtx, upCancel := e.bg()
				upErr := e.restrictionRepo.Upsert(upCtx, existing)
				upCancel()
				if upErr != nil {
					log.RecordItem("error")
					continue
				}
				log.RecordItem("success")
				log.RecordChange(entity.ChangeResolved)
				continue
			default:
				log.RecordItem("skipped")
				continue
			}
		} else if !remoteChanged {
			// Only the local side moved; the outbound leg will push it
			log.RecordItem("success")
			continue
		}

		existing.Value = item.Value
		existing.Flag = item.Flag
		existing.SyncPending = false
		upCtx, upCancel := e.bg()
		upErr := e.restrictionRepo.Upsert(upCtx, existing)
		upCancel()
		if upErr != nil {
			log.RecordItem("error")
			continue
		}
		log.RecordItem("success")
		log.RecordChange(entity.ChangeUpdated)
	}
	return nil
}
