package impl_transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	port_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/usecase/transaction"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type GetTransactionUsecaseImpl struct {
	txs port_persistence.TransactionRepository
}

func NewGetTransactionUsecaseImpl(txs port_persistence.TransactionRepository) *GetTransactionUsecaseImpl {
	return &GetTransactionUsecaseImpl{txs: txs}
}

func (u *GetTransactionUsecaseImpl) Execute(ctx context.Context, transactionID string) (out port_transaction.TransactionOutput, err error) {
	ctx, span := tracer.Start(ctx, "transaction.get")
	defer func() { endSpan(span, err) }()

	id, err := uuid.Parse(strings.TrimSpace(transactionID))
	if err != nil {
		return port_transaction.TransactionOutput{}, fmt.Errorf("%w: malformed transaction id", ErrInvalidRequest)
	}

	stored, err := u.txs.GetByID(ctx, id)
	if errors.Is(err, port_persistence.ErrNotFound) {
		return port_transaction.TransactionOutput{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}

	if err != nil {
		return port_transaction.TransactionOutput{}, fmt.Errorf("get transaction: %w", err)
	}

	return toOutput(stored.Transaction), nil
}

// ListAccountTransactionsUsecaseImpl pages through the transactions an
// account took part in, either as payer or as payee, newest first.
type ListAccountTransactionsUsecaseImpl struct {
	txs    port_persistence.TransactionRepository
	lookup *accountLookup
}

func NewListAccountTransactionsUsecaseImpl(
	accounts port_persistence.AccountRepository,
	txs port_persistence.TransactionRepository,
) *ListAccountTransactionsUsecaseImpl {
	return &ListAccountTransactionsUsecaseImpl{
		txs:    txs,
		lookup: newAccountLookup(accounts),
	}
}

func (u *ListAccountTransactionsUsecaseImpl) Execute(ctx context.Context, in port_transaction.ListAccountTransactionsInput) (out port_transaction.ListAccountTransactionsOutput, err error) {
	ctx, span := tracer.Start(ctx, "transaction.list_by_account")
	defer func() { endSpan(span, err) }()

	accountID, err := uuid.Parse(strings.TrimSpace(in.AccountID))
	if err != nil {
		return port_transaction.ListAccountTransactionsOutput{}, fmt.Errorf("%w: malformed account id", ErrInvalidRequest)
	}

	page, err := normalizePage(in.Page, in.Size)
	if err != nil {
		return port_transaction.ListAccountTransactionsOutput{}, err
	}

	// Every account kind can receive, so the payee probe covers all of them.
	if _, err := u.lookup.payee(ctx, accountID); err != nil {
		return port_transaction.ListAccountTransactionsOutput{}, err
	}

	items, err := u.txs.ListByAccount(ctx, accountID, page)
	if err != nil {
		return port_transaction.ListAccountTransactionsOutput{}, fmt.Errorf("list transactions: %w", err)
	}

	out = port_transaction.ListAccountTransactionsOutput{
		Items: make([]port_transaction.TransactionOutput, 0, len(items)),
		Page:  page.Number,
		Size:  page.Size,
	}
	for _, t := range items {
		out.Items = append(out.Items, toOutput(t))
	}

	return out, nil
}

func normalizePage(number, size int) (port_persistence.Page, error) {
	if number < 0 {
		return port_persistence.Page{}, fmt.Errorf("%w: page must be >= 0", ErrInvalidRequest)
	}

	switch {
	case size == 0:
		size = defaultPageSize
	case size < 0 || size > maxPageSize:
		return port_persistence.Page{}, fmt.Errorf("%w: size must be between 1 and %d", ErrInvalidRequest, maxPageSize)
	}

	return port_persistence.Page{Number: number, Size: size}, nil
}

func toOutput(t *domain_transaction.Transaction) port_transaction.TransactionOutput {
	return port_transaction.TransactionOutput{
		TransactionID: t.ID().String(),
		PayerID:       t.PayerID().String(),
		PayeeID:       t.PayeeID().String(),
		PayeeKind:     string(t.PayeeKind()),
		Amount:        t.Amount(),
		CreatedAt:     t.CreatedAt(),
	}
}
