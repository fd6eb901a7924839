// Package impl_notifier records payee notifications in the outbox and relays
// them to a publisher in the background. Transfers never wait on delivery.
package impl_notifier

import (
	"context"
	"encoding/json"
	"fmt"

	port_notification "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/notification"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	port_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/platform"
)

var _ port_notification.Notifier = (*OutboxNotifier)(nil)

const (
	EventPayeeNotification  = "payee.notification"
	aggregateTypeTransaction = "transaction"
)

type payeeNotificationPayload struct {
	TransactionID string `json:"transaction_id"`
	PayeeID       string `json:"payee_id"`
	PayeeKind     string `json:"payee_kind"`
	PayeeName     string `json:"payee_name"`
	PayeeEmail    string `json:"payee_email"`
	Amount        string `json:"amount"`
	OccurredAt    string `json:"occurred_at"`
}

type OutboxNotifier struct {
	outbox port_persistence.OutboxRepository
	clock  port_platform.Clock
	ids    port_platform.IDGenerator
}

func NewOutboxNotifier(
	outbox port_persistence.OutboxRepository,
	clock port_platform.Clock,
	ids port_platform.IDGenerator,
) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox, clock: clock, ids: ids}
}

// Notify queues the notification. Called inside a unit of work, the message
// becomes visible to the relay only if the surrounding transfer commits.
func (n *OutboxNotifier) Notify(ctx context.Context, note port_notification.Notification) error {
	payload, err := json.Marshal(payeeNotificationPayload{
		TransactionID: note.TransactionID,
		PayeeID:       note.PayeeID,
		PayeeKind:     note.PayeeKind,
		PayeeName:     note.PayeeName,
		PayeeEmail:    note.PayeeEmail,
		Amount:        note.Amount.String(),
		OccurredAt:    note.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshal payee notification: %w", err)
	}

	msg := port_persistence.OutboxMessage{
		MessageID:     n.ids.NewUUID().String(),
		EventType:     EventPayeeNotification,
		AggregateType: aggregateTypeTransaction,
		AggregateID:   note.TransactionID,
		CorrelationID: note.CorrelationID,
		Payload:       payload,
		CreatedAt:     n.clock.Now(),
	}

	if err := n.outbox.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue payee notification: %w", err)
	}

	return nil
}
