package usecase

import (
	"context"
	"errors"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"
)

// SyncScheduler periodically walks the active channel configurations and
// triggers a run for each one that is due
type SyncScheduler struct {
	engine       *SyncEngine
	configRepo   repository.ChannelConfigRepository
	logger       logger.Logger
	pollInterval time.Duration
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(engine *SyncEngine, configRepo repository.ChannelConfigRepository, log logger.Logger, pollInterval time.Duration) *SyncScheduler {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &SyncScheduler{
		engine:       engine,
		configRepo:   configRepo,
		logger:       log,
		pollInterval: pollInterval,
	}
}

// StartPolling runs the scheduling loop until the context is cancelled
func (s *SyncScheduler) StartPolling(ctx context.Context) {
	s.logger.Info("Starting sync scheduler", "pollInterval", s.pollInterval)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sync scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	configs, err := s.configRepo.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load active channel configurations", "error", err)
		return
	}

	now := time.Now()
	for _, cfg := range configs {
		if !cfg.IsReady() || !cfg.NeedsSync(now) {
			continue
		}

		_, err := s.engine.TriggerSync(ctx, TriggerRequest{
			ConfigID:    cfg.ID,
			TriggeredBy: entity.TriggeredScheduler,
		})
		if err != nil {
			if errors.Is(err, entity.ErrSyncAlreadyRunning) {
				s.logger.Debug("Sync already running", "configId", cfg.ID)
				continue
			}
			s.logger.Error("Failed to trigger scheduled sync", "configId", cfg.ID, "error", err)
		}
	}
}
