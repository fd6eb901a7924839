package domain_transaction

import (
	"strings"
	"time"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is the durable record of one transfer. It has no mutators.
type Transaction struct {
	id uuid.UUID

	payerID   uuid.UUID
	payeeID   uuid.UUID
	payeeKind domain_account.Kind
	amount    decimal.Decimal

	idempotencyKey string
	correlationID  string

	createdAt time.Time
}

type NewParams struct {
	TransactionID  uuid.UUID
	PayerID        uuid.UUID
	PayeeID        uuid.UUID
	PayeeKind      domain_account.Kind
	Amount         decimal.Decimal
	IdempotencyKey string
	CorrelationID  string
	Now            time.Time
}

func New(p NewParams) (*Transaction, error) {
	if p.TransactionID == uuid.Nil {
		return nil, ErrInvalidTransactionID
	}

	if p.PayerID == uuid.Nil || p.PayeeID == uuid.Nil {
		return nil, ErrInvalidAccountID
	}

	if p.PayerID == p.PayeeID {
		return nil, ErrSameAccount
	}

	if err := ValidateAmount(p.Amount); err != nil {
		return nil, err
	}

	if !p.PayeeKind.IsValid() {
		return nil, ErrInvalidPayeeKind
	}

	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}

	return &Transaction{
		id:             p.TransactionID,
		payerID:        p.PayerID,
		payeeID:        p.PayeeID,
		payeeKind:      p.PayeeKind,
		amount:         p.Amount,
		idempotencyKey: strings.TrimSpace(p.IdempotencyKey),
		correlationID:  strings.TrimSpace(p.CorrelationID),
		createdAt:      p.Now,
	}, nil
}

func (t *Transaction) ID() uuid.UUID { return t.id }

func (t *Transaction) PayerID() uuid.UUID { return t.payerID }

func (t *Transaction) PayeeID() uuid.UUID { return t.payeeID }

func (t *Transaction) PayeeKind() domain_account.Kind { return t.payeeKind }

func (t *Transaction) Amount() decimal.Decimal { return t.amount }

func (t *Transaction) IdempotencyKey() string { return t.idempotencyKey }

func (t *Transaction) CorrelationID() string { return t.correlationID }

func (t *Transaction) CreatedAt() time.Time { return t.createdAt }
