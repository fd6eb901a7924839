package impl_memory

import (
	"context"
	"fmt"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
)

func (s *Store) FindIndividual(ctx context.Context, id uuid.UUID) (*domain_account.Individual, error) {
	s.mu.RLock()
	p, ok := s.individuals[id]
	s.mu.RUnlock()

	if !ok {
		return nil, port_persistence.ErrNotFound
	}

	if buf, ok := bufferFrom(ctx); ok {
		if w, ok := buf.balances[id]; ok {
			p.Balance = w.balance
		}
	}

	return domain_account.NewIndividual(p)
}

func (s *Store) FindShop(ctx context.Context, id uuid.UUID) (*domain_account.Shop, error) {
	s.mu.RLock()
	p, ok := s.shops[id]
	s.mu.RUnlock()

	if !ok {
		return nil, port_persistence.ErrNotFound
	}

	if buf, ok := bufferFrom(ctx); ok {
		if w, ok := buf.balances[id]; ok {
			p.Balance = w.balance
		}
	}

	return domain_account.NewShop(p)
}

func (s *Store) SaveBalance(ctx context.Context, account domain_account.Account) error {
	w := balanceWrite{kind: account.Kind(), balance: account.Balance()}

	if buf, ok := bufferFrom(ctx); ok {
		buf.balances[account.ID()] = w
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBalanceLocked(account.ID(), w); err != nil {
		return err
	}

	s.applyBalanceLocked(account.ID(), w)
	return nil
}

func (s *Store) checkBalanceLocked(id uuid.UUID, w balanceWrite) error {
	if w.balance.IsNegative() {
		return fmt.Errorf("account %s: %w", id, domain_account.ErrNegativeBalance)
	}

	switch w.kind {
	case domain_account.KindIndividual:
		if _, ok := s.individuals[id]; ok {
			return nil
		}
	case domain_account.KindShop:
		if _, ok := s.shops[id]; ok {
			return nil
		}
	}

	return fmt.Errorf("%w: %s %s", port_persistence.ErrNotFound, w.kind, id)
}

func (s *Store) applyBalanceLocked(id uuid.UUID, w balanceWrite) {
	switch w.kind {
	case domain_account.KindIndividual:
		p := s.individuals[id]
		p.Balance = w.balance
		s.individuals[id] = p
	case domain_account.KindShop:
		p := s.shops[id]
		p.Balance = w.balance
		s.shops[id] = p
	}
}
