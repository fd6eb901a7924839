package impl_memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
)

func (s *Store) Create(ctx context.Context, t *domain_transaction.Transaction, requestHash string) error {
	row := transactionRow{tx: t, requestHash: requestHash}

	if buf, ok := bufferFrom(ctx); ok {
		buf.transactions = append(buf.transactions, row)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransactionLocked(row); err != nil {
		return err
	}

	s.insertTransactionLocked(row)
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*port_persistence.StoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.transactions[id]
	if !ok {
		return nil, port_persistence.ErrNotFound
	}

	return &port_persistence.StoredTransaction{Transaction: row.tx, RequestHash: row.requestHash}, nil
}

func (s *Store) GetByIdempotencyKey(_ context.Context, key string) (*port_persistence.StoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, port_persistence.ErrNotFound
	}

	row := s.transactions[id]
	return &port_persistence.StoredTransaction{Transaction: row.tx, RequestHash: row.requestHash}, nil
}

func (s *Store) ListByAccount(_ context.Context, accountID uuid.UUID, page port_persistence.Page) ([]*domain_transaction.Transaction, error) {
	s.mu.RLock()
	matches := make([]*domain_transaction.Transaction, 0)
	for _, row := range s.transactions {
		if row.tx.PayerID() == accountID || row.tx.PayeeID() == accountID {
			matches = append(matches, row.tx)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matches, func(a, b *domain_transaction.Transaction) int {
		if c := b.CreatedAt().Compare(a.CreatedAt()); c != 0 {
			return c
		}
		return strings.Compare(b.ID().String(), a.ID().String())
	})

	start := min(page.Offset(), len(matches))
	end := min(start+page.Size, len(matches))

	return matches[start:end], nil
}

func (s *Store) checkTransactionLocked(row transactionRow) error {
	if _, exists := s.transactions[row.tx.ID()]; exists {
		return fmt.Errorf("%w: transaction %s", port_persistence.ErrConflict, row.tx.ID())
	}

	if key := row.tx.IdempotencyKey(); key != "" {
		if _, exists := s.byKey[key]; exists {
			return fmt.Errorf("%w: idempotency key %q", port_persistence.ErrConflict, key)
		}
	}

	return nil
}

func (s *Store) insertTransactionLocked(row transactionRow) {
	s.transactions[row.tx.ID()] = row
	if key := row.tx.IdempotencyKey(); key != "" {
		s.byKey[key] = row.tx.ID()
	}
}
