package port_persistence

import (
	"context"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	"github.com/google/uuid"
)

// AccountRepository reads accounts and writes balances. Reads issued inside a
// unit of work lock the row until commit.
type AccountRepository interface {
	FindIndividual(ctx context.Context, id uuid.UUID) (*domain_account.Individual, error)
	FindShop(ctx context.Context, id uuid.UUID) (*domain_account.Shop, error)
	SaveBalance(ctx context.Context, account domain_account.Account) error
}
