// Package impl_redislock provides an AccountLocker backed by Redis, so that
// several service replicas serialize transfers on the same accounts.
package impl_redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	port_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/platform"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ port_platform.AccountLocker = (*Locker)(nil)

const keyPrefix = "psp:lock:account:"

type Options struct {
	// Expiry must outlive the slowest transfer, authorization call included.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
	}
}

type Locker struct {
	rs     *redsync.Redsync
	opts   Options
	logger *zap.Logger
}

func NewLocker(client redis.UniversalClient, opts Options, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}

	def := DefaultOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries < 1 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = def.RetryDelay
	}

	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

func (l *Locker) WithAccountLocks(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context) error) error {
	ordered := port_platform.LockOrder(accountIDs)

	held := make([]*redsync.Mutex, 0, len(ordered))
	defer func() {
		// Release must happen even when the caller's context is gone.
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(releaseCtx); err != nil || !ok {
				l.logger.Warn("account lock release failed",
					zap.String("key", held[i].Name()),
					zap.Bool("released", ok),
					zap.Error(err),
				)
			}
		}
	}()

	for _, id := range ordered {
		mutex := l.rs.NewMutex(
			keyPrefix+id.String(),
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)

		if err := mutex.LockContext(ctx); err != nil {
			if errors.Is(err, redsync.ErrFailed) || ctx.Err() != nil {
				return fmt.Errorf("%w: account %s", port_platform.ErrLockNotAcquired, id)
			}

			return fmt.Errorf("%w: account %s: %v", port_platform.ErrLockNotAcquired, id, err)
		}

		held = append(held, mutex)
	}

	return fn(ctx)
}
