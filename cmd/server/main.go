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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/infrastructure/seed"
	"github.com/iho/bankledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// backend is one storage driver's implementation of the use case ports.
type backend struct {
	txm        usecase.TransactionManager
	snapshots  usecase.SnapshotReader
	accounts   usecase.AccountRepository
	entries    usecase.EntryRepository
	ledger     usecase.LedgerRepository
	outbox     usecase.OutboxRepository
	writer     usecase.DirectoryWriter
	identities usecase.IdentityResolver
	customers  usecase.CustomerDirectory
	idGen      usecase.IDGenerator
	retrier    usecase.Retrier
	checks     []handler.HealthCheck
	close      func()
}

func newMemoryBackend() *backend {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	directory := memory.NewDirectory(store)

	return &backend{
		txm:        txm,
		snapshots:  txm,
		accounts:   memory.NewAccountRepository(store),
		entries:    memory.NewEntryRepository(store),
		ledger:     memory.NewLedgerRepository(store),
		outbox:     memory.NewOutboxRepository(store),
		writer:     directory,
		identities: directory,
		customers:  directory,
		idGen:      postgresRepo.NewULIDGenerator(),
		close:      func() {},
	}
}

func newPostgresBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	txm := postgresRepo.NewTxManager(pool)
	directory := postgresRepo.NewDirectoryRepository(pool)

	return &backend{
		txm:        txm,
		snapshots:  txm,
		accounts:   postgresRepo.NewAccountRepository(pool),
		entries:    postgresRepo.NewEntryRepository(pool),
		ledger:     postgresRepo.NewLedgerRepository(pool),
		outbox:     postgresRepo.NewOutboxRepository(pool),
		writer:     directory,
		identities: directory,
		customers:  directory,
		idGen:      postgresRepo.NewULIDGenerator(),
		retrier:    postgresRepo.NewRetrier(log),
		checks:     []handler.HealthCheck{{Name: "postgres", Check: pool.Ping}},
		close:      pool.Close,
	}, nil
}

func newBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		return newPostgresBackend(ctx, cfg, log)
	default:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return newMemoryBackend(), nil
	}
}

func newEventPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		return eventpublisher.NewLogPublisher(log), func() {}, nil
	}

	pub, err := eventpublisher.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("exchange", cfg.AMQPExchange).Msg("connected to amqp broker")

	return pub, func() { _ = pub.Close() }, nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	b, err := newBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var idempotencyStore usecase.IdempotencyStore
	identities := b.identities
	checks := b.checks

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		identities = redisRepo.NewCachedIdentityResolver(b.identities, redisRepo.NewCache(redisClient), cfg.IdentityCacheTTL, log)
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: redis.HealthCheck(redisClient)})
	}

	accountUC := usecase.NewAccountUseCase(b.txm, b.accounts, b.outbox, b.customers, b.idGen, log)

	transferOpts := []usecase.TransferOption{usecase.WithTransferMetrics(m)}
	if b.retrier != nil {
		transferOpts = append(transferOpts, usecase.WithRetrier(b.retrier))
	}
	transferUC := usecase.NewTransferUseCase(b.txm, b.accounts, b.entries, b.outbox, identities, b.idGen, log, transferOpts...)

	entryUC := usecase.NewEntryUseCase(b.snapshots, b.accounts, b.entries)
	dashboardUC := usecase.NewDashboardUseCase(b.snapshots, b.accounts, b.entries, identities, b.customers)
	reconciler := usecase.NewReconciliationUseCase(b.accounts, b.ledger)
	directoryUC := usecase.NewDirectoryUseCase(b.writer, b.identities, b.customers, b.idGen)

	if cfg.SeedFile != "" {
		res, err := seed.NewSeeder(directoryUC, accountUC, log).LoadFile(ctx, cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
		log.Info().
			Int("users", res.Users).
			Int("customers", res.Customers).
			Int("accounts", res.Accounts).
			Int("skipped", res.Skipped).
			Msg("seed data loaded")
	}

	var limiter *middleware.RateLimiter
	if cfg.TransferRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.TransferRateLimit, cfg.TransferRateBurst)
		limiter.OnLimit(m.RateLimitHits.Inc)
		go cleanupLimiters(ctx, limiter, log)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(accountUC, m),
		TransferHandler:  handler.NewTransferHandler(transferUC),
		EntryHandler:     handler.NewEntryHandler(entryUC),
		DashboardHandler: handler.NewDashboardHandler(dashboardUC),
		LedgerHandler:    handler.NewLedgerHandler(reconciler),
		DirectoryHandler: handler.NewDirectoryHandler(directoryUC),
		HealthHandler:    handler.NewHealthHandler(checks...),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      limiter,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:           log,
	})

	publisher, closePublisher, err := newEventPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("connect to amqp: %w", err)
	}
	defer closePublisher()

	outboxCtx, stopOutbox := context.WithCancel(ctx)
	defer stopOutbox()

	outboxDone := make(chan struct{})
	go func() {
		defer close(outboxDone)
		err := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: b.outbox,
			Publisher:  publisher,
			Metrics:    m,
			Logger:     log,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
		}).Start(outboxCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	stopOutbox()
	<-outboxDone

	log.Info().Msg("server stopped")
	return nil
}

func cleanupLimiters(ctx context.Context, limiter *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.CleanupLimiters(limiterIdleTimeout); n > 0 {
				log.Debug().Int("removed", n).Msg("pruned idle rate limiters")
			}
		}
	}
}
