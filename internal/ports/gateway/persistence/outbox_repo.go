package port_persistence

import (
	"context"
	"time"
)

type OutboxMessage struct {
	MessageID     string
	EventType     string
	AggregateType string
	AggregateID   string
	CorrelationID string
	Payload       []byte
	Attempts      int
	CreatedAt     time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) error
	// DequeueBatch claims up to limit pending messages so that concurrent
	// relays never receive the same message.
	DequeueBatch(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkPublished(ctx context.Context, messageID string) error
	// MarkFailed returns the message to the queue, or parks it as failed once
	// maxAttempts is reached.
	MarkFailed(ctx context.Context, messageID string, reason string, maxAttempts int) error
}
