package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mockbank/config"
	httpHandler "mockbank/internal/adapter/http/handler"
	"mockbank/internal/adapter/http/middleware"
	"mockbank/internal/adapter/storage/memory"
	pgStorage "mockbank/internal/adapter/storage/postgres"
	redisStorage "mockbank/internal/adapter/storage/redis"
	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/internal/service"
	"mockbank/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("MBK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting mockbank")

	ctx := context.Background()
	var checkers []ports.HealthChecker

	// Storage
	var store ports.Store
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool, log); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply schema")
			}
		}
		store = pgStorage.NewStore(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	default:
		store = memory.NewStore()
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
	}

	// Redis is optional: subscribers fall back to process memory and the
	// idempotency cache and rate limiter are switched off.
	var (
		subscribers    ports.SubscriberStore = memory.NewSubscriberSet()
		idemCache      ports.IdempotencyCache
		rateLimitStore *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		subscribers = redisStorage.NewSubscriberStore(rdb)
		idemCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	// Services
	webhookSvc := service.NewWebhookService(service.WebhookOptions{
		Enabled:       cfg.Webhook.Enabled,
		RetryAttempts: cfg.Webhook.RetryAttempts,
		RetryDelay:    cfg.Webhook.RetryDelay,
		Timeout:       cfg.Webhook.Timeout,
		Source:        cfg.Webhook.Source,
		Secret:        cfg.Webhook.Secret,
		Workers:       cfg.Webhook.Workers,
		QueueSize:     cfg.Webhook.QueueSize,
	}, subscribers, store.Deliveries(), service.NewHMACSignatureService(), &http.Client{}, logger.Component(log, "webhook"))
	seedSubscribers(ctx, webhookSvc, cfg.Webhook.URLs, log)

	accountSvc := service.NewAccountService(
		store,
		domain.NewRefGenerator(cfg.Ledger.RefCountryCode, cfg.Ledger.RefBankCode),
		walletIDFunc(cfg.Ledger),
		cfg.Ledger.RefAttempts,
		logger.Component(log, "accounts"),
	)
	ledgerSvc := service.NewLedgerService(store, accountSvc, webhookSvc, logger.Component(log, "ledger"))
	querySvc := service.NewQueryService(store)
	auditSvc := service.NewAuditService(store.Audit(), log)

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()
	webhookSvc.Start(dispatchCtx)

	deps := httpHandler.RouterDeps{
		AccountSvc:       accountSvc,
		LedgerSvc:        ledgerSvc,
		QuerySvc:         querySvc,
		WebhookSvc:       webhookSvc,
		IdempotencyCache: idemCache,
		HealthCheckers:   checkers,
		AuditSvc:         auditSvc,
		EnableOperator:   !cfg.Server.IsProduction(),
		Logger:           log,
	}
	if cfg.RateLimit.Enabled && rateLimitStore != nil {
		deps.RateLimitStore = rateLimitStore
		deps.RateLimitRules = middleware.DefaultRateLimitRules(int64(cfg.RateLimit.Requests), cfg.RateLimit.Window)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: httpHandler.SetupRouter(deps),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := webhookSvc.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Webhook queue not drained")
	}

	log.Info().Msg("Server exited")
}

func walletIDFunc(cfg config.LedgerConfig) service.WalletIDFunc {
	if cfg.WalletIDMode == config.WalletIDModeRandom {
		return service.RandomWalletIDs()
	}
	return service.URIWalletIDs(cfg.WalletBaseURL)
}

func seedSubscribers(ctx context.Context, svc *service.WebhookServiceImpl, urls []string, log zerolog.Logger) {
	for _, u := range urls {
		if _, err := svc.AddSubscriberURL(ctx, u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Skipping webhook subscriber")
		}
	}
}
