package impl_transaction

import (
	"context"
	"errors"
	"fmt"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
)

type payeeProbe func(ctx context.Context, id uuid.UUID) (domain_account.Payee, error)

// accountLookup resolves ids into capability-typed accounts. Payee resolution
// walks every payee-capable kind in order and stops at the first hit.
type accountLookup struct {
	accounts    port_persistence.AccountRepository
	payeeProbes []payeeProbe
}

func newAccountLookup(accounts port_persistence.AccountRepository) *accountLookup {
	l := &accountLookup{accounts: accounts}
	l.payeeProbes = []payeeProbe{l.individualPayee, l.shopPayee}
	return l
}

func (l *accountLookup) payer(ctx context.Context, id uuid.UUID) (domain_account.Payer, error) {
	ind, err := l.accounts.FindIndividual(ctx, id)
	if errors.Is(err, port_persistence.ErrNotFound) {
		return nil, fmt.Errorf("%w: payer %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("find payer: %w", err)
	}

	return ind, nil
}

func (l *accountLookup) payee(ctx context.Context, id uuid.UUID) (domain_account.Payee, error) {
	for _, probe := range l.payeeProbes {
		acc, err := probe(ctx, id)
		if errors.Is(err, port_persistence.ErrNotFound) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("find payee: %w", err)
		}

		return acc, nil
	}

	return nil, fmt.Errorf("%w: payee %s", ErrNotFound, id)
}

func (l *accountLookup) individualPayee(ctx context.Context, id uuid.UUID) (domain_account.Payee, error) {
	ind, err := l.accounts.FindIndividual(ctx, id)
	if err != nil {
		return nil, err
	}

	return ind, nil
}

func (l *accountLookup) shopPayee(ctx context.Context, id uuid.UUID) (domain_account.Payee, error) {
	shop, err := l.accounts.FindShop(ctx, id)
	if err != nil {
		return nil, err
	}

	return shop, nil
}
