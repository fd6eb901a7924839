package impl_memory

import (
	"encoding/json"
	"fmt"
	"os"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type seedProfile struct {
	ID       uuid.UUID       `json:"id"`
	FullName string          `json:"full_name"`
	TaxID    string          `json:"tax_id"`
	Email    string          `json:"email"`
	Secret   string          `json:"secret"`
	Balance  decimal.Decimal `json:"balance"`
}

type seedShop struct {
	seedProfile
	OwnerIDs []uuid.UUID `json:"owner_ids"`
}

type seedFile struct {
	Individuals []seedProfile `json:"individuals"`
	Shops       []seedShop    `json:"shops"`
}

func (p seedProfile) params() domain_account.ProfileParams {
	return domain_account.ProfileParams{
		ID:       p.ID,
		FullName: p.FullName,
		TaxID:    p.TaxID,
		Email:    p.Email,
		Secret:   p.Secret,
		Balance:  p.Balance,
	}
}

// LoadSeedFile registers the accounts described in a JSON seed file.
// Individuals are loaded first so shops can reference them as owners.
func (s *Store) LoadSeedFile(path string) (individuals, shops int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read seed file: %w", err)
	}

	return s.LoadSeed(raw)
}

func (s *Store) LoadSeed(raw []byte) (individuals, shops int, err error) {
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, 0, fmt.Errorf("decode seed: %w", err)
	}

	for i, p := range seed.Individuals {
		ind, err := domain_account.NewIndividual(p.params())
		if err != nil {
			return individuals, shops, fmt.Errorf("seed individual #%d: %w", i, err)
		}

		if err := s.PutIndividual(ind); err != nil {
			return individuals, shops, fmt.Errorf("seed individual #%d: %w", i, err)
		}
		individuals++
	}

	for i, p := range seed.Shops {
		shop, err := domain_account.NewShop(domain_account.ShopParams{
			ProfileParams: p.params(),
			OwnerIDs:      p.OwnerIDs,
		})
		if err != nil {
			return individuals, shops, fmt.Errorf("seed shop #%d: %w", i, err)
		}

		if err := s.PutShop(shop); err != nil {
			return individuals, shops, fmt.Errorf("seed shop #%d: %w", i, err)
		}
		shops++
	}

	return individuals, shops, nil
}
