package port_transaction

import "context"

type GetTransactionUseCase interface {
	Execute(ctx context.Context, transactionID string) (TransactionOutput, error)
}

type ListAccountTransactionsInput struct {
	AccountID string
	Page      int
	Size      int
}

type ListAccountTransactionsOutput struct {
	Items []TransactionOutput
	Page  int
	Size  int
}

type ListAccountTransactionsUseCase interface {
	Execute(ctx context.Context, input ListAccountTransactionsInput) (ListAccountTransactionsOutput, error)
}
