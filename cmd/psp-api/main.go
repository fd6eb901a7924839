package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PedroCamargo-dev/psp-transactions-service/internal/config"
	impl_authorizer "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/authorizer"
	impl_memory "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/memory"
	impl_notifier "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/notifier"
	impl_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/platform"
	impl_postgres "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/postgres"
	impl_publisher "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/publisher"
	impl_redislock "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/redislock"
	impl_http "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/http"
	impl_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/usecase/transaction"
	"github.com/PedroCamargo-dev/psp-transactions-service/internal/logger"
	"github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/messaging"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	port_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/platform"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "psp-transactions-service"
	shutdownTimeout = 15 * time.Second
)

// store is everything the use cases and the relay need from persistence.
type store interface {
	port_persistence.UnitOfWork
	port_persistence.AccountRepository
	port_persistence.TransactionRepository
	port_persistence.OutboxRepository
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Environment: cfg.Env, Level: cfg.LogLevel, Service: serviceName})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]impl_http.HealthCheck{}

	st, closeStore, err := openStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var locker port_platform.AccountLocker = impl_memory.NewLocker()
	if cfg.LockDriver == config.LockRedis {
		locker = impl_redislock.NewLocker(rdb, impl_redislock.Options{
			Expiry: cfg.LockTTL,
			Tries:  cfg.LockTries,
		}, log.Named("lock"))
	}

	var publisher messaging.Publisher
	switch cfg.NotifierDriver {
	case config.NotifierRedis:
		publisher = impl_publisher.NewRedisStreamPublisher(rdb, cfg.NotifierStream, 100_000)
	default:
		publisher = impl_publisher.NewWebhookPublisher(cfg.NotifierWebhookURL, cfg.NotifierTimeout)
	}

	clock := impl_platform.SystemClock{}
	ids := impl_platform.UUIDGenerator{}

	authorizer := impl_authorizer.NewHTTPAuthorizer(impl_authorizer.Config{
		URL:         cfg.AuthorizerURL,
		Timeout:     cfg.AuthorizerTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, impl_authorizer.WithLogger(log.Named("authorizer")))

	createTx := impl_transaction.NewCreateTransactionUsecaseImpl(
		st, st, st,
		locker,
		authorizer,
		impl_notifier.NewOutboxNotifier(st, clock, ids),
		clock,
		ids,
		impl_transaction.WithLogger(log.Named("transaction")),
		impl_transaction.WithPersistAttempts(cfg.PersistAttempts),
	)

	handler := impl_http.NewTransactionHandler(
		createTx,
		impl_transaction.NewGetTransactionUsecaseImpl(st),
		impl_transaction.NewListAccountTransactionsUsecaseImpl(st, st),
		log.Named("http"),
	)

	server := impl_http.NewServer(":"+cfg.Port, impl_http.NewRouter(handler, log.Named("http"), checks))
	server.BaseContext = func(net.Listener) context.Context { return ctx }

	relay := impl_notifier.NewRelay(st, publisher, impl_notifier.RelayConfig{
		Interval:    cfg.RelayInterval,
		BatchSize:   cfg.RelayBatchSize,
		Workers:     cfg.RelayWorkers,
		MaxAttempts: cfg.RelayMaxAttempts,
	}, log.Named("relay"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return relay.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger, checks map[string]impl_http.HealthCheck) (store, func(), error) {
	if cfg.StoreDriver == config.StorePostgres {
		if cfg.RunMigrations {
			if err := impl_postgres.Migrate(cfg.DatabaseURL, log.Named("migrate")); err != nil {
				return nil, nil, err
			}
		}

		pool, err := impl_postgres.Connect(ctx, impl_postgres.PoolConfig{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, err
		}
		checks["postgres"] = pool.Ping

		return impl_postgres.NewStore(pool), pool.Close, nil
	}

	mem := impl_memory.NewStore()
	if cfg.MemorySeedFile != "" {
		individuals, shops, err := mem.LoadSeedFile(cfg.MemorySeedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load seed: %w", err)
		}
		log.Info("memory store seeded", zap.Int("individuals", individuals), zap.Int("shops", shops))
	}
	log.Warn("using in-memory store, data is lost on restart")

	return mem, func() {}, nil
}
