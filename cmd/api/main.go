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

	"wallet-custody/config"
	"wallet-custody/internal/adapter/chain/ethereum"
	httpHandler "wallet-custody/internal/adapter/http/handler"
	"wallet-custody/internal/adapter/metrics"
	pgStorage "wallet-custody/internal/adapter/storage/postgres"
	redisStorage "wallet-custody/internal/adapter/storage/redis"
	"wallet-custody/internal/core/ports"
	"wallet-custody/internal/service"
	"wallet-custody/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set (WCS_JWT_SECRET)")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("kdf", cfg.KDF.Algorithm).
		Str("lock_backend", cfg.Lock.Backend).
		Msg("Starting Wallet Custody Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}
	log.Info().Msg("PostgreSQL connected")

	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	// Redis backs the distributed lock and the rate limiter; skip it when neither is on.
	var rdb *goredis.Client
	if cfg.Lock.Backend == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis") {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	}

	// Initialize chain client
	chain, err := ethereum.Dial(ctx, cfg.Chain, logger.Component(log, "ethereum"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Ethereum node")
	}
	defer chain.Close()
	healthCheckers = append(healthCheckers, chain)

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)

	// Initialize core services
	kdf, err := newKeyDeriver(cfg.KDF)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize key derivation")
	}
	locker := newUserLocker(cfg.Lock, rdb, log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	var custodySvc ports.CustodyService = service.NewCustodyService(
		walletRepo,
		txRepo,
		chain,
		kdf,
		service.NewAESGCMCipher(),
		locker,
		auditSvc,
		service.CustodyConfig{
			GasLimit: cfg.Chain.GasLimit,
			LockWait: cfg.Lock.WaitTimeout,
		},
		logger.Component(log, "custody"),
	)

	// Metrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to register metrics")
		}
		custodySvc = collector.Instrument(custodySvc)
		metricsHandler = metrics.Handler(reg)
	}

	// Initialize rate limiter
	var rateLimiter ports.RateLimiter
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Backend == "memory" {
			rateLimiter = service.NewLocalRateLimiter()
		} else {
			rateLimiter = redisStorage.NewRateLimitStore(rdb)
		}
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CustodySvc:     custodySvc,
		TokenSvc:       tokenSvc,
		RateLimiter:    rateLimiter,
		HealthCheckers: healthCheckers,
		MetricsHandler: metricsHandler,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// In-flight withdrawals may be between broadcast and ledger write; give them time.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := auditSvc.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Audit writes still pending at shutdown")
	}

	log.Info().Msg("Server exited")
}

func newKeyDeriver(cfg config.KDFConfig) (ports.KeyDeriver, error) {
	switch cfg.Algorithm {
	case "argon2id":
		return service.NewArgon2KeyDeriver(), nil
	case "pbkdf2":
		return service.NewPBKDF2KeyDeriver(cfg.Iterations)
	default:
		return nil, fmt.Errorf("unsupported kdf algorithm %q", cfg.Algorithm)
	}
}

func newUserLocker(cfg config.LockConfig, rdb *goredis.Client, log zerolog.Logger) ports.UserLocker {
	if cfg.Backend == "redis" {
		return redisStorage.NewUserLock(rdb, cfg.TTL, cfg.RetryInterval, logger.Component(log, "user_lock"))
	}
	return service.NewKeyedMutex()
}
