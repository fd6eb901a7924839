package port_notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Notification struct {
	TransactionID string
	PayeeID       string
	PayeeKind     string
	PayeeName     string
	PayeeEmail    string
	Amount        decimal.Decimal
	CorrelationID string
	OccurredAt    time.Time
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
