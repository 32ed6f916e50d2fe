package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interviewsched/internal/api"
	"interviewsched/internal/clock"
	"interviewsched/internal/config"
	"interviewsched/internal/database"
	"interviewsched/internal/directory"
	"interviewsched/internal/events"
	"interviewsched/internal/health"
	"interviewsched/internal/metrics"
	"interviewsched/internal/report"
	"interviewsched/internal/service"
	"interviewsched/internal/slots"
	"interviewsched/internal/sweeper"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("SCHEDULER_CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	cfg, err := config.Load(configPath)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg)
	zerolog.SetGlobalLevel(cfg.LogLevel())

	db, err := database.NewDB(database.Options{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LockTimeout:  cfg.TransactionTimeout(),
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	dir := directory.New(db, rdb, cfg.CacheTTL(), &logger)

	bus := events.NewEventBus()
	bus.OnError(func(event events.Event, err error) {
		logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
	})
	service.SubscribeAudit(bus, db, &logger)

	clk := clock.NewSystem()
	loc := cfg.Location()
	bookings := service.NewBookingService(db, dir, clk, bus, service.Options{
		Retry:           cfg.RetryPolicy(),
		DuplicateWindow: cfg.DuplicateWindow(),
		TxTimeout:       cfg.TransactionTimeout(),
	}, &logger)
	slotService := service.NewSlotService(db, dir, slots.NewGenerator(clk, loc), clk, bus, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(sweeper.Config{Interval: cfg.SweepInterval(), RunOnStart: cfg.Sweeper.RunOnStart}, slotService, &logger)
	go sw.Start(ctx)

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, database.BackupConfig{
			Enabled:       true,
			Interval:      cfg.BackupInterval(),
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backups.Start(ctx)
	}

	if err := config.Watch(ctx, configPath, 30*time.Second, func(prev, next config.Runtime) {
		if next.LogLevel != prev.LogLevel {
			zerolog.SetGlobalLevel(next.LogLevel)
		}
		if next.SweepInterval != prev.SweepInterval {
			sw.SetInterval(next.SweepInterval)
		}
		logger.Info().
			Str("level", next.LogLevel.String()).
			Dur("sweep_interval", next.SweepInterval).
			Msg("config reloaded")
	}); err != nil {
		logger.Error().Err(err).Msg("config watch failed")
	}

	checker := health.NewChecker(db, rdb, &logger)
	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go func() {
		if err := checker.ServeHTTP(ctx, cfg.Monitoring.HealthCheckPort); err != nil {
			logger.Error().Err(err).Msg("health server error")
		}
	}()
	if cfg.Monitoring.GRPCHealthPort > 0 {
		go checker.Watch(ctx, 10*time.Second)
		go func() {
			if err := checker.ServeGRPC(ctx, cfg.Monitoring.GRPCHealthPort); err != nil {
				logger.Error().Err(err).Msg("grpc health server error")
			}
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(api.Deps{
		Bookings:     bookings,
		Slots:        slotService,
		Directory:    dir,
		Sweeper:      sw,
		Reports:      report.NewWeekly(db, loc, &logger),
		DefaultWeeks: cfg.Scheduling.DefaultWeeks,
	}, api.Options{
		Port:           cfg.API.Port,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
	}, &logger)

	logger.Info().Str("driver", db.Driver()).Str("timezone", loc.String()).Msg("interview scheduler started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	sw.Stop()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.Logging.Format == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
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
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
