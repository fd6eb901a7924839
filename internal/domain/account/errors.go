package domain_account

import "errors"

var (
	ErrInvalidAccountID = errors.New("account: invalid account_id")
	ErrMissingFullName  = errors.New("account: full_name is required")
	ErrInvalidTaxID     = errors.New("account: tax_id has an invalid length")
	ErrInvalidEmail     = errors.New("account: email is invalid")
	ErrMissingSecret    = errors.New("account: secret is required")
	ErrNegativeBalance  = errors.New("account: balance must be >= 0")
	ErrInvalidOwnerID   = errors.New("account: invalid owner_id")

	ErrInvalidAmount       = errors.New("account: amount must be > 0")
	ErrInsufficientBalance = errors.New("account: insufficient balance")
)
