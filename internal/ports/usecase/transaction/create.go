package port_transaction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CreateTransactionInput struct {
	PayerID        string
	PayeeID        string
	Amount         decimal.Decimal
	IdempotencyKey string
	CorrelationID  string
}

type TransactionOutput struct {
	TransactionID string
	PayerID       string
	PayeeID       string
	PayeeKind     string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

type CreateTransactionUseCase interface {
	Execute(ctx context.Context, input CreateTransactionInput) (TransactionOutput, error)
}
