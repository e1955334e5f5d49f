package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomsync-service/internal/infrastructure/config"
	"roomsync-service/internal/infrastructure/persistence"
	"roomsync-service/internal/interface/httpapi"
	"roomsync-service/internal/interface/repository"
	"roomsync-service/internal/interface/wubook"
	"roomsync-service/internal/usecase"
	"roomsync-service/pkg/logger"
	"roomsync-service/pkg/metrics"

	domainRepo "roomsync-service/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting RoomSync Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up PostgreSQL connection
	gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword, cfg.MongoTimeout)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	db := persistence.GetDatabase(mongoClient, cfg.MongoDB)

	// Set up Redis connection
	redisClient, err := persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}

	// Set up metrics
	m := metrics.NewMetrics("roomsync")

	// Set up repositories
	restrictionRepo := repository.NewGormRestrictionRepository(gormDB)
	availabilityRepo := repository.NewGormAvailabilityRepository(gormDB)
	configRepo := repository.NewGormChannelConfigRepository(gormDB)
	rateRepo := repository.NewGormRateRepository(gormDB)
	syncLogRepo := repository.NewMongoSyncLogRepository(db)
	lockRepo := repository.NewRedisSyncLockRepository(redisClient)

	var notificationRepo domainRepo.NotificationRepository
	if cfg.NotificationEndpoint != "" {
		notificationRepo = repository.NewRestNotificationRepository(cfg.NotificationEndpoint, cfg.NotificationToken, log)
	} else {
		notificationRepo = repository.NewNopNotificationRepository()
	}

	// Set up channel manager client
	channelClient := wubook.NewClient(cfg.WuBookBaseURL, cfg.WuBookTimeout, log)

	// Set up usecases
	resolver := usecase.NewRestrictionResolver(restrictionRepo, log)
	checker := usecase.NewAvailabilityChecker(availabilityRepo, rateRepo, resolver, m, log)
	restrictionManager := usecase.NewRestrictionManager(restrictionRepo, log)
	calendarManager := usecase.NewCalendarManager(availabilityRepo, notificationRepo, log)

	engine := usecase.NewSyncEngine(
		configRepo,
		syncLogRepo,
		restrictionRepo,
		availabilityRepo,
		lockRepo,
		channelClient,
		notificationRepo,
		m,
		log,
		usecase.SyncEngineOptions{
			RunTimeout:          cfg.SyncRunTimeout,
			MaxItemRetries:      cfg.SyncMaxItemRetries,
			RetryBackoff:        cfg.SyncRetryBackoff,
			ErrorRatioThreshold: cfg.SyncErrorRatio,
			DefaultHorizonDays:  cfg.SyncDefaultHorizonDays,
		},
	)

	// Start the sync scheduler in a goroutine
	scheduler := usecase.NewSyncScheduler(engine, configRepo, log, cfg.SyncPollInterval)
	go scheduler.StartPolling(ctx)

	// Set up HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	apiHandler := httpapi.NewHandler(checker, resolver, engine, restrictionManager, calendarManager, syncLogRepo, log)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel()

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Redis close error", "error", err)
	}

	log.Info("Service stopped")
}
