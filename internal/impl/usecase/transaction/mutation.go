package impl_transaction

import (
	"fmt"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	"github.com/shopspring/decimal"
)

// balanceMutation is the in-memory half of a transfer. It remembers the
// balances it started from so it can be compensated or re-validated.
type balanceMutation struct {
	payer  domain_account.Payer
	payee  domain_account.Payee
	amount decimal.Decimal

	payerBefore decimal.Decimal
	payeeBefore decimal.Decimal
	reverted    bool
}

func applyMutation(payer domain_account.Payer, payee domain_account.Payee, amount decimal.Decimal) (*balanceMutation, error) {
	m := &balanceMutation{
		payer:       payer,
		payee:       payee,
		amount:      amount,
		payerBefore: payer.Balance(),
		payeeBefore: payee.Balance(),
	}

	if err := payee.Deposit(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := payer.Withdraw(amount); err != nil {
		_ = payee.RevertDeposit(amount)
		return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}

	return m, nil
}

func (m *balanceMutation) revert() error {
	if m.reverted {
		return nil
	}

	if err := m.payer.RevertWithdraw(m.amount); err != nil {
		return fmt.Errorf("revert payer: %w", err)
	}

	if err := m.payee.RevertDeposit(m.amount); err != nil {
		return fmt.Errorf("revert payee: %w", err)
	}

	m.reverted = true
	return nil
}

// matchesSnapshot reports whether freshly loaded accounts still hold the
// balances this mutation started from.
func (m *balanceMutation) matchesSnapshot(payer, payee domain_account.Account) bool {
	return payer.Balance().Equal(m.payerBefore) && payee.Balance().Equal(m.payeeBefore)
}
