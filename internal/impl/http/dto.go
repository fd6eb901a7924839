package impl_http

import (
	"encoding/json"
	"time"

	port_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/usecase/transaction"
)

type createTransactionRequest struct {
	Payer string      `json:"payer" validate:"required,uuid"`
	Payee string      `json:"payee" validate:"required,uuid"`
	Value json.Number `json:"value" validate:"required,positive_amount"`
}

type transactionResponse struct {
	ID        string      `json:"id"`
	Payer     string      `json:"payer"`
	Payee     string      `json:"payee"`
	PayeeKind string      `json:"payee_kind"`
	Value     json.Number `json:"value"`
	Timestamp string      `json:"timestamp"`
}

type transactionListResponse struct {
	Items []transactionResponse `json:"items"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
}

type errorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func toTransactionResponse(out port_transaction.TransactionOutput) transactionResponse {
	return transactionResponse{
		ID:        out.TransactionID,
		Payer:     out.PayerID,
		Payee:     out.PayeeID,
		PayeeKind: out.PayeeKind,
		Value:     json.Number(out.Amount.String()),
		Timestamp: out.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
