package impl_http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	port_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/usecase/transaction"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxBodyBytes         = 1 << 20
	idempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

type TransactionHandler struct {
	create port_transaction.CreateTransactionUseCase
	get    port_transaction.GetTransactionUseCase
	list   port_transaction.ListAccountTransactionsUseCase
	logger *zap.Logger
}

func NewTransactionHandler(
	create port_transaction.CreateTransactionUseCase,
	get port_transaction.GetTransactionUseCase,
	list port_transaction.ListAccountTransactionsUseCase,
	logger *zap.Logger,
) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TransactionHandler{create: create, get: get, list: list, logger: logger}
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		msg := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: msg})
		return
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "unexpected data after JSON body"})
		return
	}

	details, err := validateStruct(req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		writeValidationError(w, []FieldError{{Field: idempotencyKeyHeader, Message: "must be at most 255 characters"}})
		return
	}

	amount, err := decimal.NewFromString(req.Value.String())
	if err != nil {
		writeValidationError(w, []FieldError{{Field: "value", Message: "must be a decimal greater than zero"}})
		return
	}

	out, err := h.create.Execute(r.Context(), port_transaction.CreateTransactionInput{
		PayerID:        req.Payer,
		PayeeID:        req.Payee,
		Amount:         amount,
		IdempotencyKey: key,
		CorrelationID:  middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/transactions/"+out.TransactionID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(out))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.get.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(out))
}

func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	var details []FieldError

	page, ok := queryInt(r, "page")
	if !ok {
		details = append(details, FieldError{Field: "page", Message: "must be an integer"})
	}

	size, ok := queryInt(r, "size")
	if !ok {
		details = append(details, FieldError{Field: "size", Message: "must be an integer"})
	}

	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	out, err := h.list.Execute(r.Context(), port_transaction.ListAccountTransactionsInput{
		AccountID: chi.URLParam(r, "id"),
		Page:      page,
		Size:      size,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := transactionListResponse{
		Items: make([]transactionResponse, 0, len(out.Items)),
		Page:  out.Page,
		Size:  out.Size,
	}
	for _, item := range out.Items {
		resp.Items = append(resp.Items, toTransactionResponse(item))
	}

	writeJSON(w, http.StatusOK, resp)
}

// queryInt returns 0 for an absent parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}

	v, err := strconv.Atoi(raw)
	return v, err == nil
}
