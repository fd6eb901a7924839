package port_persistence

import (
	"context"

	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	"github.com/google/uuid"
)

type StoredTransaction struct {
	Transaction *domain_transaction.Transaction
	RequestHash string
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return p.Number * p.Size }

type TransactionRepository interface {
	Create(ctx context.Context, t *domain_transaction.Transaction, requestHash string) error
	GetByID(ctx context.Context, id uuid.UUID) (*StoredTransaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*StoredTransaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, page Page) ([]*domain_transaction.Transaction, error)
}
