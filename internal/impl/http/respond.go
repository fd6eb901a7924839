package impl_http

import (
	"encoding/json"
	"errors"
	"net/http"

	impl_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/usecase/transaction"
	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{impl_transaction.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{impl_transaction.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{impl_transaction.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
	{impl_transaction.ErrAuthorizationRejected, http.StatusForbidden, "AUTHORIZATION_REJECTED"},
	{impl_transaction.ErrGatewayUnavailable, http.StatusBadGateway, "GATEWAY_UNAVAILABLE"},
	{impl_transaction.ErrIdempotencyConflict, http.StatusConflict, "IDEMPOTENCY_CONFLICT"},
	{impl_transaction.ErrAccountBusy, http.StatusConflict, "ACCOUNT_BUSY"},
	{impl_transaction.ErrPersistenceFailure, http.StatusInternalServerError, "PERSISTENCE_FAILURE"},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps use case errors to HTTP statuses. Unknown errors are
// logged and reported without their details.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
			writeJSON(w, m.status, errorResponse{Code: m.code, Message: err.Error()})
			return
		}
	}

	logger.Error("unexpected error", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal server error"})
}

func writeValidationError(w http.ResponseWriter, details []FieldError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Code:    "VALIDATION_FAILED",
		Message: "invalid request data",
		Details: details,
	})
}
