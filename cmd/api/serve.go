package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"priyom/internal/api"
	"priyom/internal/config"
	"priyom/internal/database"
	"priyom/internal/domain"
	"priyom/internal/events"
	"priyom/internal/logging"
	"priyom/internal/metrics"
	"priyom/internal/notify"
	"priyom/internal/postgres"
	"priyom/internal/repository"
	"priyom/internal/service"
	"priyom/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const limiterSweepInterval = time.Minute

func runServe(configPath string) error {
	cfg, baseLogger, closer, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "api-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, sqliteDB, err := openRepository(ctx, cfg, baseLogger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init storage")
		return err
	}
	defer repo.Close()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}
	limiter := initAttemptLimiter(ctx, redisClient, baseLogger)

	bus := events.NewEventBus()
	notificationWorker := worker.NewNotificationWorker(
		initNotifiers(cfg, loc, baseLogger),
		redisClient,
		worker.RetryPolicyFromConfig(cfg.Notifications.Retry),
		logging.Component(baseLogger, "notification-worker"),
	)
	notificationWorker.Subscribe(bus)
	go notificationWorker.Start(ctx)

	services := buildServices(cfg, repo, bus, limiter, loc, baseLogger)
	httpServer := api.NewHTTPServer(cfg.API, services, logging.Component(baseLogger, "http"))

	if sqliteDB != nil {
		backups := database.NewBackupService(sqliteDB, cfg.Backup, logging.Component(baseLogger, "backup"))
		go backups.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	return startServers(ctx, httpServer, cfg, logger)
}

// openRepository returns the configured backend. The second value is set
// only for SQLite, which is the one that can be backed up.
func openRepository(ctx context.Context, cfg *config.Config, baseLogger *zerolog.Logger) (domain.Repository, *database.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg := cfg.Database.Postgres
		store, err := postgres.New(ctx, pg.DSN(), int32(pg.MaxConnections), logging.Component(baseLogger, "postgres"))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		db, err := database.Open(cfg.Database.Path, cfg.Database.BusyTimeoutMS, logging.Component(baseLogger, "sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initAttemptLimiter prefers Redis and keeps an in-memory limiter as the
// fallback; without Redis the memory limiter is used directly.
func initAttemptLimiter(ctx context.Context, redisClient *redis.Client, baseLogger *zerolog.Logger) domain.AttemptLimiter {
	memory := repository.NewMemoryAttemptLimiter()
	go sweepLimiter(ctx, memory, logging.Component(baseLogger, "attempt-limiter"))

	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverAttemptLimiter(
		repository.NewRedisAttemptLimiter(redisClient),
		memory,
		logging.Component(baseLogger, "attempt-limiter"),
	)
}

func sweepLimiter(ctx context.Context, memory *repository.MemoryAttemptLimiter, logger *zerolog.Logger) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := memory.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("expired attempt counters swept")
			}
		}
	}
}

func initNotifiers(cfg *config.Config, loc *time.Location, baseLogger *zerolog.Logger) []domain.Notifier {
	notifiers := []domain.Notifier{notify.NewLogNotifier(logging.Component(baseLogger, "notify-email"))}

	tg := cfg.Notifications.Telegram
	if tg.BotToken == "" || tg.ChatID == 0 {
		return notifiers
	}
	bot, err := notify.NewTelegramBot(tg.BotToken, tg.Debug)
	if err != nil {
		baseLogger.Warn().Err(err).Msg("telegram init failed, continuing without telegram")
		return notifiers
	}
	baseLogger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", tg.ChatID).Msg("telegram notifier enabled")
	return append(notifiers, notify.NewTelegramNotifier(bot, tg.ChatID, loc))
}

func buildServices(
	cfg *config.Config,
	repo domain.Repository,
	bus *events.EventBus,
	limiter domain.AttemptLimiter,
	loc *time.Location,
	baseLogger *zerolog.Logger,
) api.Services {
	serviceLogger := logging.Component(baseLogger, "service")
	clock := service.SystemClock{}

	slots := service.NewSlotService(repo, repo, cfg.Booking.SlotDuration(), loc, serviceLogger)
	booking := service.NewBookingService(repo, repo, repo, slots, service.NewCancellationSecretGenerator(), bus, serviceLogger).
		WithClock(clock).
		WithAttemptLimiter(limiter, service.AttemptPolicy{
			Limit:  cfg.Booking.AttemptLimit,
			Window: cfg.Booking.AttemptWindow(),
		})

	return api.Services{
		Owners:       service.NewOwnerService(repo, repo, service.NewManagementTokenGenerator(), cfg.Booking.DefaultWindows, serviceLogger).WithClock(clock),
		Slots:        slots,
		Booking:      booking,
		Status:       service.NewStatusService(repo, repo, clock, bus, serviceLogger),
		Availability: service.NewAvailabilityService(repo, repo, serviceLogger).WithClock(clock),
		Health:       repo,
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled || cfg.Monitoring.PrometheusPort == cfg.API.HTTP.Port {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("db_driver", cfg.Database.Driver).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
