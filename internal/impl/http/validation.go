package impl_http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		vld := validator.New(validator.WithRequiredStructEnabled())

		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		errValidate = vld.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
			str := fl.Field().String()
			if str == "" {
				return true
			}

			d, err := decimal.NewFromString(str)
			if err != nil {
				return false
			}

			return domain_transaction.ValidateAmount(d) == nil
		})
		validate = vld
	})

	return validate, errValidate
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateStruct returns nil when payload is valid, and the offending fields
// otherwise.
func validateStruct(payload any) ([]FieldError, error) {
	vld, err := getValidator()
	if err != nil {
		return nil, fmt.Errorf("validator init: %w", err)
	}

	err = vld.Struct(payload)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}

	return out, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "must be a valid UUID"
	case "positive_amount":
		return fmt.Sprintf("must be a decimal greater than zero with at most %d integer and %d fractional digits",
			domain_transaction.MaxAmountIntegerDigits, domain_transaction.MaxAmountScale)
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "invalid value"
	}
}
