package impl_transaction

import "errors"

var (
	ErrNotFound              = errors.New("object cannot be found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrAuthorizationRejected = errors.New("transaction rejected")
	ErrGatewayUnavailable    = errors.New("external authorizer service currently unavailable")
	ErrPersistenceFailure    = errors.New("approved transaction could not be recorded")
	ErrIdempotencyConflict   = errors.New("idempotency key conflict: different payload for same key")
	ErrAccountBusy           = errors.New("account busy: concurrent transaction in progress")
)
