// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/promptcraft/internal/auth"
	"github.com/carterperez-dev/promptcraft/internal/cache"
	"github.com/carterperez-dev/promptcraft/internal/config"
	"github.com/carterperez-dev/promptcraft/internal/contact"
	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/entitlement"
	"github.com/carterperez-dev/promptcraft/internal/health"
	"github.com/carterperez-dev/promptcraft/internal/metrics"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
	"github.com/carterperez-dev/promptcraft/internal/payment"
	"github.com/carterperez-dev/promptcraft/internal/server"
	"github.com/carterperez-dev/promptcraft/internal/transform"
	"github.com/carterperez-dev/promptcraft/internal/usage"
	"github.com/carterperez-dev/promptcraft/internal/user"
)

const (
	drainDelay        = 5 * time.Second
	tokenPurgeEvery   = time.Hour
	tokenPurgeTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	usageCache := cache.NewUsageCache(redis.Client, cfg.Cache.UsageTTL)
	ledger := entitlement.NewLedger(
		entitlement.NewRepository(db.DB),
		usageCache,
		logger,
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)

	tokens := auth.NewTokenManager(cfg.JWT)
	authSvc := auth.NewService(
		tokens,
		auth.NewRepository(db.DB),
		userSvc,
		ledger,
		logger,
	)
	authHandler := auth.NewHandler(authSvc)

	recorder := usage.NewRecorder(usage.NewRepository(db.DB), logger)

	if !cfg.Payment.Configured() {
		logger.Warn("payment provider keys missing, payment routes will return 503")
	}
	paymentRepo := payment.NewRepository(db.DB)
	paymentSvc := payment.NewService(
		paymentRepo,
		payment.NewRazorpayClient(cfg.Payment),
		ledger,
		cfg.Payment.KeyID,
		cfg.Payment.KeySecret,
		logger,
	)
	paymentHandler := payment.NewHandler(paymentSvc)

	transformSvc := transform.NewService(
		transform.NewOpenAIClient(cfg.OpenAI),
		recorder,
		ledger,
		logger,
	)
	transformHandler := transform.NewHandler(transformSvc)
	logger.Info("completion provider configured", "model", cfg.OpenAI.Model)

	summarizer := user.NewSummarizer(
		userRepo,
		ledger,
		recorder,
		paymentRepo,
		usageCache,
		logger,
	)
	userHandler := user.NewHandler(userSvc, summarizer)

	contactHandler := contact.NewHandler(
		contact.NewService(contact.NewRepository(db.DB), userSvc, logger),
	)

	healthHandler := health.NewHandler(health.Config{
		DB:          db,
		Redis:       redis,
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	if cfg.Metrics.Enabled {
		router.Use(metrics.Middleware)
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	healthHandler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	policies := middleware.NewPolicies(redis.Client, cfg.RateLimit)
	authenticator := middleware.Authenticator(tokens, userSvc)
	gate := middleware.Gate(ledger)

	router.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r, policies.Auth, policies.API)
		transformHandler.RegisterRoutes(r, authenticator, policies.API, gate)
		paymentHandler.RegisterRoutes(r, authenticator, policies.Payment, policies.ReadOnly)
		userHandler.RegisterRoutes(r, authenticator, policies.ReadOnly)
		contactHandler.RegisterRoutes(r, authenticator, policies.Contact, policies.ReadOnly)
	})

	go purgeExpiredTokens(ctx, authSvc, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// purgeExpiredTokens runs until ctx is cancelled.
func purgeExpiredTokens(
	ctx context.Context,
	svc *auth.Service,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(tokenPurgeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(ctx, tokenPurgeTimeout)
			if _, err := svc.PurgeExpiredTokens(purgeCtx); err != nil {
				logger.Warn("token audit purge failed", "error", err)
			}
			cancel()
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
