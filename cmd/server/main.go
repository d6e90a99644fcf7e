package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/chama-ledger/ledger/internal/api/http"
	appRatelimit "github.com/chama-ledger/ledger/internal/application/ratelimit"
	"github.com/chama-ledger/ledger/internal/application/review"
	"github.com/chama-ledger/ledger/internal/application/transaction"
	"github.com/chama-ledger/ledger/internal/config"
	"github.com/chama-ledger/ledger/internal/domain/event"
	domainRatelimit "github.com/chama-ledger/ledger/internal/domain/ratelimit"
	"github.com/chama-ledger/ledger/internal/infrastructure/memory"
	"github.com/chama-ledger/ledger/internal/infrastructure/metrics"
	"github.com/chama-ledger/ledger/internal/infrastructure/postgres"
	"github.com/chama-ledger/ledger/internal/infrastructure/rabbitmq"
	"github.com/chama-ledger/ledger/internal/infrastructure/redis"
	"github.com/chama-ledger/ledger/internal/migrations"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	recorder := metrics.NewRecorder()

	// rate limiter: shared redis store when configured, local store always
	shared, closeShared := sharedStore(ctx, cfg.RedisURL, logger)
	defer closeShared()
	limiter := appRatelimit.NewLimiter(shared, memory.NewRateLimitStore(), appRatelimit.Config{
		StoreTimeout:     cfg.RateLimit.StoreTimeout,
		RecoveryInterval: cfg.RateLimit.RecoveryInterval,
		SweepInterval:    cfg.RateLimit.SweepInterval,
		HashIdentifiers:  cfg.RateLimit.HashIdentifiers,
	}, logger, appRatelimit.WithMetrics(recorder))
	go limiter.Run(ctx)

	// events
	var publisher event.Publisher = rabbitmq.NewLogPublisher(logger)
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.EventsExchange, "ledger")
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq unavailable, events are logged only")
		} else {
			defer conn.Close()
			publisher = rabbitmq.NewPublisher(conn.Channel(), cfg.EventsExchange, logger)
		}
	}

	// repositories
	walletRepo := postgres.NewWalletRepository(pool)
	chamaRepo := postgres.NewChamaRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)

	// services
	engine := review.NewEngine(recorder, logger)
	walletSvc := transaction.NewWalletService(walletRepo, publisher, recorder, logger)
	chamaSvc := transaction.NewChamaService(chamaRepo, membershipRepo, engine, publisher, recorder, logger)

	// API server
	apiServer := httpapi.NewServer(httpapi.Deps{
		Wallets:  walletSvc,
		Chamas:   chamaSvc,
		Members:  membershipRepo,
		Limiter:  limiter,
		Policies: policies(cfg.RateLimit),
		Metrics:  recorder.Handler(),
		Health: func(ctx context.Context) map[string]string {
			checks := map[string]string{"postgres": "ok", "ratelimit": "ok"}
			if err := pool.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
			}
			if limiter.Degraded() {
				checks["ratelimit"] = "degraded"
			}
			return checks
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

// sharedStore builds the redis-backed store whenever a URL is configured.
// An unreachable server only logs a hint; per-call failures are handled by
// the limiter's fallback and recovery.
func sharedStore(ctx context.Context, url string, logger zerolog.Logger) (domainRatelimit.Store, func()) {
	if url == "" {
		return nil, func() {}
	}
	client, err := redis.NewClient(url)
	if err != nil {
		logger.Error().Err(err).Msg("invalid redis url, rate limits are enforced per process")
		return nil, func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redis.Ping(pingCtx, client); err != nil {
		logger.Info().Err(err).Msg("redis not reachable at startup, limiter will retry")
	}
	return redis.NewRateLimitStore(client), func() { _ = client.Close() }
}

func policies(rl config.RateLimit) map[string]domainRatelimit.Options {
	return map[string]domainRatelimit.Options{
		httpapi.ActionWalletCreate: rl.Transactions,
		httpapi.ActionWalletUpdate: rl.Transactions,
		httpapi.ActionChamaCreate:  rl.Transactions,
		httpapi.ActionChamaUpdate:  rl.Transactions,
		httpapi.ActionChamaReview:  rl.Reviews,
	}
}
