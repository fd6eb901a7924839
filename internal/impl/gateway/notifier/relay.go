package impl_notifier

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/messaging"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("psp-transactions-service/notifier")

type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
	Workers   int
	// MaxAttempts is the number of dispatch rounds a message gets before it
	// is parked as failed.
	MaxAttempts int
	// PublishAttempts and PublishBackoff bound the retries within one round.
	PublishAttempts int
	PublishBackoff  time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Interval:        time.Second,
		BatchSize:       50,
		Workers:         4,
		MaxAttempts:     5,
		PublishAttempts: 3,
		PublishBackoff:  200 * time.Millisecond,
	}
}

// Relay drains the outbox into a publisher.
type Relay struct {
	outbox    port_persistence.OutboxRepository
	publisher messaging.Publisher
	cfg       RelayConfig
	logger    *zap.Logger
}

func NewRelay(outbox port_persistence.OutboxRepository, publisher messaging.Publisher, cfg RelayConfig, logger *zap.Logger) *Relay {
	def := DefaultRelayConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.PublishAttempts <= 0 {
		cfg.PublishAttempts = def.PublishAttempts
	}
	if cfg.PublishBackoff < 0 {
		cfg.PublishBackoff = def.PublishBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Relay{outbox: outbox, publisher: publisher, cfg: cfg, logger: logger}
}

// Run dispatches once immediately and then on every tick until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
	defer r.logger.Info("outbox relay stopped")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.DispatchOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce claims one batch and delivers it. It returns the number of
// messages claimed.
func (r *Relay) DispatchOnce(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "outbox.relay.dispatch")
	defer span.End()

	batch, err := r.outbox.DequeueBatch(ctx, r.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dequeue failed")
		r.logger.Error("outbox dequeue failed", zap.Error(err))
		return 0
	}

	if len(batch) == 0 {
		return 0
	}

	var published, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, msg := range batch {
		g.Go(func() error {
			if r.deliver(gctx, msg) {
				published.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("outbox.batch_size", len(batch)),
		attribute.Int64("outbox.published", published.Load()),
		attribute.Int64("outbox.failed", failed.Load()),
	)

	return len(batch)
}

func (r *Relay) deliver(ctx context.Context, msg port_persistence.OutboxMessage) bool {
	log := r.logger.With(
		zap.String("message_id", msg.MessageID),
		zap.String("event_type", msg.EventType),
		zap.String("aggregate_id", msg.AggregateID),
		zap.String("correlation_id", msg.CorrelationID),
	)

	// State updates outlive shutdown so a claimed message is never left
	// in flight.
	markCtx := context.WithoutCancel(ctx)

	err := r.publishWithRetry(ctx, msg)
	if err == nil {
		if markErr := r.outbox.MarkPublished(markCtx, msg.MessageID); markErr != nil {
			log.Error("failed to mark outbox message published", zap.Error(markErr))
		}
		return true
	}

	log.Warn("outbox message delivery failed",
		zap.Int("attempts", msg.Attempts+1),
		zap.Int("max_attempts", r.cfg.MaxAttempts),
		zap.Error(err),
	)

	if markErr := r.outbox.MarkFailed(markCtx, msg.MessageID, err.Error(), r.cfg.MaxAttempts); markErr != nil {
		log.Error("failed to mark outbox message failed", zap.Error(markErr))
	}

	return false
}

func (r *Relay) publishWithRetry(ctx context.Context, msg port_persistence.OutboxMessage) error {
	headers := map[string]string{
		"Message-Id":     msg.MessageID,
		"Aggregate-Id":   msg.AggregateID,
		"Correlation-Id": msg.CorrelationID,
	}

	var lastErr error
	for attempt := range r.cfg.PublishAttempts {
		err := r.publisher.Publish(ctx, msg.EventType, msg.Payload, headers)
		if err == nil {
			return nil
		}

		lastErr = fmt.Errorf("publish attempt %d/%d failed: %w", attempt+1, r.cfg.PublishAttempts, err)
		if attempt == r.cfg.PublishAttempts-1 {
			break
		}

		delay := r.cfg.PublishBackoff << attempt
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish retry interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}
