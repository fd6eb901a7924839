package impl_postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/jackc/pgx/v5"
)

// ProcessingTimeout is how long a claimed message may stay in flight before
// another relay is allowed to claim it again.
const ProcessingTimeout = 5 * time.Minute

const insertOutbox = `
	INSERT INTO outbox_messages
		(message_id, event_type, aggregate_type, aggregate_id, correlation_id, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Enqueue runs under a savepoint when called inside a unit of work, so a
// failed insert leaves the surrounding transaction usable.
func (s *Store) Enqueue(ctx context.Context, msg port_persistence.OutboxMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	args := []any{msg.MessageID, msg.EventType, msg.AggregateType, msg.AggregateID, msg.CorrelationID, msg.Payload, msg.CreatedAt}

	tx, ok := txFrom(ctx)
	if !ok {
		if _, err := s.pool.Exec(ctx, insertOutbox, args...); err != nil {
			return fmt.Errorf("insert outbox message: %w", err)
		}
		return nil
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("outbox savepoint: %w", err)
	}

	if _, err := sp.Exec(ctx, insertOutbox, args...); err != nil {
		_ = sp.Rollback(ctx)
		return fmt.Errorf("insert outbox message: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release outbox savepoint: %w", err)
	}

	return nil
}

func (s *Store) DequeueBatch(ctx context.Context, limit int) ([]port_persistence.OutboxMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.q(ctx).Query(ctx, `
		UPDATE outbox_messages
		SET status = 'PROCESSING', claimed_at = now(), updated_at = now()
		WHERE message_id IN (
			SELECT message_id FROM outbox_messages
			WHERE status = 'PENDING'
			   OR (status = 'PROCESSING' AND claimed_at < now() - make_interval(secs => $2))
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING message_id, event_type, aggregate_type, aggregate_id, correlation_id, payload, attempts, created_at`,
		limit, ProcessingTimeout.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (port_persistence.OutboxMessage, error) {
		var m port_persistence.OutboxMessage
		err := row.Scan(&m.MessageID, &m.EventType, &m.AggregateType, &m.AggregateID, &m.CorrelationID, &m.Payload, &m.Attempts, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox batch: %w", err)
	}

	slices.SortFunc(msgs, func(a, b port_persistence.OutboxMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return msgs, nil
}

func (s *Store) MarkPublished(ctx context.Context, messageID string) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE outbox_messages
		SET status = 'PUBLISHED', last_error = NULL, updated_at = now()
		WHERE message_id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: outbox message %s", port_persistence.ErrNotFound, messageID)
	}

	return nil
}

func (s *Store) MarkFailed(ctx context.Context, messageID string, reason string, maxAttempts int) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE outbox_messages
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN 'FAILED' ELSE 'PENDING' END,
		    updated_at = now()
		WHERE message_id = $1`, messageID, reason, maxAttempts)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: outbox message %s", port_persistence.ErrNotFound, messageID)
	}

	return nil
}

// OutboxStatus reports the delivery status of a message.
func (s *Store) OutboxStatus(ctx context.Context, messageID string) (status string, attempts int, err error) {
	err = s.q(ctx).QueryRow(ctx, `SELECT status, attempts FROM outbox_messages WHERE message_id = $1`, messageID).
		Scan(&status, &attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, port_persistence.ErrNotFound
	}

	return status, attempts, err
}
