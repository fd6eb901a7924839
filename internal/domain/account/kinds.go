package domain_account

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	cpfLength  = len("000.000.000-00")
	cnpjLength = len("00.000.000/0000-00")
)

var (
	_ Payer = (*Individual)(nil)
	_ Payee = (*Individual)(nil)
	_ Payee = (*Shop)(nil)
)

// Individual is a natural person. It can both pay and receive.
type Individual struct {
	profile
}

func NewIndividual(p ProfileParams) (*Individual, error) {
	prof, err := newProfile(p, cpfLength)
	if err != nil {
		return nil, err
	}

	return &Individual{profile: prof}, nil
}

func (i *Individual) Kind() Kind { return KindIndividual }

func (i *Individual) Withdraw(amount decimal.Decimal) error { return i.debit(amount) }

func (i *Individual) RevertWithdraw(amount decimal.Decimal) error { return i.credit(amount) }

func (i *Individual) Deposit(amount decimal.Decimal) error { return i.credit(amount) }

func (i *Individual) RevertDeposit(amount decimal.Decimal) error { return i.debit(amount) }

type ShopParams struct {
	ProfileParams
	OwnerIDs []uuid.UUID
}

// Shop is a merchant account. It only receives funds and may be owned by
// several individuals; ownership never moves balance.
type Shop struct {
	profile
	owners []uuid.UUID
}

func NewShop(p ShopParams) (*Shop, error) {
	prof, err := newProfile(p.ProfileParams, cnpjLength)
	if err != nil {
		return nil, err
	}

	s := &Shop{profile: prof}
	for _, id := range p.OwnerIDs {
		if err := s.AddOwner(id); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Shop) Kind() Kind { return KindShop }

func (s *Shop) Deposit(amount decimal.Decimal) error { return s.credit(amount) }

func (s *Shop) RevertDeposit(amount decimal.Decimal) error { return s.debit(amount) }

// AddOwner is idempotent for an owner already present.
func (s *Shop) AddOwner(individualID uuid.UUID) error {
	if individualID == uuid.Nil {
		return ErrInvalidOwnerID
	}

	if slices.Contains(s.owners, individualID) {
		return nil
	}

	s.owners = append(s.owners, individualID)
	return nil
}

func (s *Shop) Owners() []uuid.UUID {
	return slices.Clone(s.owners)
}
