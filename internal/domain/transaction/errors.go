package domain_transaction

import "errors"

var (
	ErrInvalidTransactionID = errors.New("transaction: invalid transaction_id")
	ErrInvalidAccountID     = errors.New("transaction: invalid account_id")
	ErrSameAccount          = errors.New("transaction: payer_id equals payee_id")
	ErrInvalidAmount        = errors.New("transaction: amount must be > 0")
	ErrInvalidPayeeKind     = errors.New("transaction: unknown payee kind")
	ErrAmountOutOfRange     = errors.New("transaction: amount exceeds supported precision")
)
