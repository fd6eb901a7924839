package domain_account

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindIndividual Kind = "INDIVIDUAL"
	KindShop       Kind = "SHOP"
)

func (k Kind) IsValid() bool {
	return k == KindIndividual || k == KindShop
}

// Account is the read-only view shared by every account kind.
type Account interface {
	ID() uuid.UUID
	Kind() Kind
	FullName() string
	TaxID() string
	Email() string
	Balance() decimal.Decimal
}

// Payer is an account that can have value removed.
type Payer interface {
	Account
	Withdraw(amount decimal.Decimal) error
	RevertWithdraw(amount decimal.Decimal) error
}

// Payee is an account that can receive value.
type Payee interface {
	Account
	Deposit(amount decimal.Decimal) error
	RevertDeposit(amount decimal.Decimal) error
}

type ProfileParams struct {
	ID       uuid.UUID
	FullName string
	TaxID    string
	Email    string
	Secret   string
	Balance  decimal.Decimal
}

type profile struct {
	id       uuid.UUID
	fullName string
	taxID    string
	email    string
	secret   string
	balance  decimal.Decimal
}

func newProfile(p ProfileParams, taxIDLen int) (profile, error) {
	if p.ID == uuid.Nil {
		return profile{}, ErrInvalidAccountID
	}

	name := strings.TrimSpace(p.FullName)
	if name == "" {
		return profile{}, ErrMissingFullName
	}

	taxID := strings.TrimSpace(p.TaxID)
	if len(taxID) != taxIDLen {
		return profile{}, ErrInvalidTaxID
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if !strings.Contains(email, "@") {
		return profile{}, ErrInvalidEmail
	}

	if strings.TrimSpace(p.Secret) == "" {
		return profile{}, ErrMissingSecret
	}

	if p.Balance.IsNegative() {
		return profile{}, ErrNegativeBalance
	}

	return profile{
		id:       p.ID,
		fullName: name,
		taxID:    taxID,
		email:    email,
		secret:   p.Secret,
		balance:  p.Balance,
	}, nil
}

func (p *profile) ID() uuid.UUID { return p.id }

func (p *profile) FullName() string { return p.fullName }

func (p *profile) TaxID() string { return p.taxID }

func (p *profile) Email() string { return p.email }

// Secret is the stored credential. It must never leave the service boundary.
func (p *profile) Secret() string { return p.secret }

func (p *profile) Balance() decimal.Decimal { return p.balance }

func (p *profile) credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	p.balance = p.balance.Add(amount)
	return nil
}

func (p *profile) debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	if p.balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	p.balance = p.balance.Sub(amount)
	return nil
}
