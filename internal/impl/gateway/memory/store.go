// Package impl_memory is an in-process implementation of the persistence and
// locking ports. Writes made inside WithinTx are buffered and applied
// atomically on commit, so it honours the same all-or-nothing contract as
// the Postgres store.
package impl_memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	_ port_persistence.UnitOfWork            = (*Store)(nil)
	_ port_persistence.AccountRepository     = (*Store)(nil)
	_ port_persistence.TransactionRepository = (*Store)(nil)
	_ port_persistence.OutboxRepository      = (*Store)(nil)
)

type transactionRow struct {
	tx          *domain_transaction.Transaction
	requestHash string
}

type Store struct {
	mu sync.RWMutex

	individuals map[uuid.UUID]domain_account.ProfileParams
	shops       map[uuid.UUID]domain_account.ShopParams

	transactions map[uuid.UUID]transactionRow
	byKey        map[string]uuid.UUID

	outbox            []*outboxRow
	processingTimeout time.Duration
	now               func() time.Time
}

func NewStore() *Store {
	return &Store{
		individuals:       make(map[uuid.UUID]domain_account.ProfileParams),
		shops:             make(map[uuid.UUID]domain_account.ShopParams),
		transactions:      make(map[uuid.UUID]transactionRow),
		byKey:             make(map[string]uuid.UUID),
		processingTimeout: 5 * time.Minute,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

type balanceWrite struct {
	kind    domain_account.Kind
	balance decimal.Decimal
}

type txBuffer struct {
	balances     map[uuid.UUID]balanceWrite
	transactions []transactionRow
	outbox       []port_persistence.OutboxMessage
}

func bufferFrom(ctx context.Context) (*txBuffer, bool) {
	buf, ok := ctx.Value(txKey{}).(*txBuffer)
	return buf, ok
}

// WithinTx joins an enclosing unit of work when there is one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := bufferFrom(ctx); ok {
		return fn(ctx)
	}

	buf := &txBuffer{balances: make(map[uuid.UUID]balanceWrite)}
	if err := fn(context.WithValue(ctx, txKey{}, buf)); err != nil {
		return err
	}

	return s.commit(buf)
}

func (s *Store) commit(buf *txBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range buf.balances {
		if err := s.checkBalanceLocked(id, w); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(buf.transactions))
	for _, row := range buf.transactions {
		if err := s.checkTransactionLocked(row); err != nil {
			return err
		}

		if key := row.tx.IdempotencyKey(); key != "" {
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%w: idempotency key %q", port_persistence.ErrConflict, key)
			}
			seen[key] = struct{}{}
		}
	}

	for id, w := range buf.balances {
		s.applyBalanceLocked(id, w)
	}

	for _, row := range buf.transactions {
		s.insertTransactionLocked(row)
	}

	for _, msg := range buf.outbox {
		s.insertOutboxLocked(msg)
	}

	return nil
}

// PutIndividual registers or replaces an individual. Tax id and e-mail must
// stay unique among individuals.
func (s *Store) PutIndividual(ind *domain_account.Individual) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.individuals {
		if id != ind.ID() && (p.TaxID == ind.TaxID() || p.Email == ind.Email()) {
			return fmt.Errorf("%w: individual tax id or email already registered", port_persistence.ErrConflict)
		}
	}

	s.individuals[ind.ID()] = domain_account.ProfileParams{
		ID:       ind.ID(),
		FullName: ind.FullName(),
		TaxID:    ind.TaxID(),
		Email:    ind.Email(),
		Secret:   ind.Secret(),
		Balance:  ind.Balance(),
	}

	return nil
}

// PutShop registers or replaces a shop. Owners must already be registered.
func (s *Store) PutShop(shop *domain_account.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.shops {
		if id != shop.ID() && (p.TaxID == shop.TaxID() || p.Email == shop.Email()) {
			return fmt.Errorf("%w: shop tax id or email already registered", port_persistence.ErrConflict)
		}
	}

	for _, owner := range shop.Owners() {
		if _, ok := s.individuals[owner]; !ok {
			return fmt.Errorf("%w: owner %s", port_persistence.ErrNotFound, owner)
		}
	}

	s.shops[shop.ID()] = domain_account.ShopParams{
		ProfileParams: domain_account.ProfileParams{
			ID:       shop.ID(),
			FullName: shop.FullName(),
			TaxID:    shop.TaxID(),
			Email:    shop.Email(),
			Secret:   shop.Secret(),
			Balance:  shop.Balance(),
		},
		OwnerIDs: shop.Owners(),
	}

	return nil
}
