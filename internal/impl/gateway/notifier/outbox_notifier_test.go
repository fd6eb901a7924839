package impl_notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	impl_notifier "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/notifier"
	"github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/mocks"
	port_notification "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/notification"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

func TestOutboxNotifier_Notify(t *testing.T) {
	ctrl := gomock.NewController(t)

	outbox := mocks.NewMockOutboxRepository(ctrl)
	clock := mocks.NewMockClock(ctrl)
	ids := mocks.NewMockIDGenerator(ctrl)

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msgID := uuid.New()

	clock.EXPECT().Now().Return(now)
	ids.EXPECT().NewUUID().Return(msgID)

	var got port_persistence.OutboxMessage
	outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg port_persistence.OutboxMessage) error {
			got = msg
			return nil
		},
	)

	n := impl_notifier.NewOutboxNotifier(outbox, clock, ids)

	err := n.Notify(context.Background(), port_notification.Notification{
		TransactionID: "tx-1",
		PayeeID:       "payee-1",
		PayeeKind:     "SHOP",
		PayeeName:     "Padaria Central",
		PayeeEmail:    "contato@padaria.com",
		Amount:        decimal.RequireFromString("10.50"),
		CorrelationID: "corr-1",
		OccurredAt:    now,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got.MessageID != msgID.String() {
		t.Errorf("expected message id %s, got %s", msgID, got.MessageID)
	}

	if got.EventType != impl_notifier.EventPayeeNotification {
		t.Errorf("expected event type %s, got %s", impl_notifier.EventPayeeNotification, got.EventType)
	}

	if got.AggregateID != "tx-1" || got.CorrelationID != "corr-1" {
		t.Errorf("unexpected routing fields: %+v", got)
	}

	var payload map[string]string
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("expected json payload, got %v", err)
	}

	if payload["amount"] != "10.5" {
		t.Errorf("expected amount 10.5, got %s", payload["amount"])
	}

	if payload["payee_email"] != "contato@padaria.com" {
		t.Errorf("expected payee email, got %s", payload["payee_email"])
	}
}

func TestOutboxNotifier_EnqueueError(t *testing.T) {
	ctrl := gomock.NewController(t)

	outbox := mocks.NewMockOutboxRepository(ctrl)
	clock := mocks.NewMockClock(ctrl)
	ids := mocks.NewMockIDGenerator(ctrl)

	boom := errors.New("boom")
	clock.EXPECT().Now().Return(time.Now())
	ids.EXPECT().NewUUID().Return(uuid.New())
	outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(boom)

	n := impl_notifier.NewOutboxNotifier(outbox, clock, ids)

	err := n.Notify(context.Background(), port_notification.Notification{TransactionID: "tx-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
