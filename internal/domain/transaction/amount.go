package domain_transaction

import "github.com/shopspring/decimal"

const (
	// MaxAmountScale is the number of fractional digits an amount may carry.
	MaxAmountScale = 18
	// MaxAmountIntegerDigits bounds the digits left of the decimal point.
	MaxAmountIntegerDigits = 30
)

// ValidateAmount accepts positive amounts inside the supported precision.
// Only the coefficient length and exponent are inspected, so a value such as
// 1e2000000000 is refused without ever being rescaled.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	exp := int64(amount.Exponent())
	if exp < -MaxAmountScale {
		return ErrAmountOutOfRange
	}

	if int64(amount.NumDigits())+exp > MaxAmountIntegerDigits {
		return ErrAmountOutOfRange
	}

	return nil
}
