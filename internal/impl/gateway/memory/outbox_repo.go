package impl_memory

import (
	"context"
	"fmt"
	"time"

	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
)

type outboxStatus string

const (
	outboxPending    outboxStatus = "PENDING"
	outboxProcessing outboxStatus = "PROCESSING"
	outboxPublished  outboxStatus = "PUBLISHED"
	outboxFailed     outboxStatus = "FAILED"
)

type outboxRow struct {
	msg       port_persistence.OutboxMessage
	status    outboxStatus
	claimedAt time.Time
	lastError string
}

func (s *Store) Enqueue(ctx context.Context, msg port_persistence.OutboxMessage) error {
	if buf, ok := bufferFrom(ctx); ok {
		buf.outbox = append(buf.outbox, msg)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertOutboxLocked(msg)
	return nil
}

// DequeueBatch claims pending messages, plus processing ones whose claim
// went stale because a relay died mid-flight.
func (s *Store) DequeueBatch(_ context.Context, limit int) ([]port_persistence.OutboxMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]port_persistence.OutboxMessage, 0, limit)

	for _, row := range s.outbox {
		if len(out) == limit {
			break
		}

		stale := row.status == outboxProcessing && now.Sub(row.claimedAt) > s.processingTimeout
		if row.status != outboxPending && !stale {
			continue
		}

		row.status = outboxProcessing
		row.claimedAt = now
		out = append(out, row.msg)
	}

	return out, nil
}

func (s *Store) MarkPublished(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.outboxRowLocked(messageID)
	if err != nil {
		return err
	}

	row.status = outboxPublished
	row.lastError = ""
	return nil
}

func (s *Store) MarkFailed(_ context.Context, messageID string, reason string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.outboxRowLocked(messageID)
	if err != nil {
		return err
	}

	row.msg.Attempts++
	row.lastError = reason
	row.status = outboxPending
	if row.msg.Attempts >= maxAttempts {
		row.status = outboxFailed
	}

	return nil
}

// OutboxStatus reports the delivery status of a message. It exists for
// diagnostics and tests.
func (s *Store) OutboxStatus(messageID string) (status string, attempts int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, err := s.outboxRowLocked(messageID)
	if err != nil {
		return "", 0, false
	}

	return string(row.status), row.msg.Attempts, true
}

func (s *Store) insertOutboxLocked(msg port_persistence.OutboxMessage) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.outbox = append(s.outbox, &outboxRow{msg: msg, status: outboxPending})
}

func (s *Store) outboxRowLocked(messageID string) (*outboxRow, error) {
	for _, row := range s.outbox {
		if row.msg.MessageID == messageID {
			return row, nil
		}
	}

	return nil, fmt.Errorf("%w: outbox message %s", port_persistence.ErrNotFound, messageID)
}
