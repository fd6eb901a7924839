package impl_postgres

import (
	"context"
	"errors"
	"fmt"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Inside a unit of work account rows are read FOR UPDATE, so the balance
// checked is the balance later written.
func lockClause(ctx context.Context) string {
	if _, ok := txFrom(ctx); ok {
		return " FOR UPDATE"
	}

	return ""
}

func (s *Store) FindIndividual(ctx context.Context, id uuid.UUID) (*domain_account.Individual, error) {
	p, err := s.findProfile(ctx, `SELECT id, full_name, cpf, email, secret, balance::text FROM individuals WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	return domain_account.NewIndividual(p)
}

func (s *Store) FindShop(ctx context.Context, id uuid.UUID) (*domain_account.Shop, error) {
	p, err := s.findProfile(ctx, `SELECT id, full_name, cnpj, email, secret, balance::text FROM shops WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.q(ctx).Query(ctx, `SELECT individual_id FROM shop_owners WHERE shop_id = $1 ORDER BY individual_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query shop owners: %w", err)
	}

	owners, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan shop owners: %w", err)
	}

	return domain_account.NewShop(domain_account.ShopParams{ProfileParams: p, OwnerIDs: owners})
}

func (s *Store) findProfile(ctx context.Context, query string, id uuid.UUID) (domain_account.ProfileParams, error) {
	var (
		p       domain_account.ProfileParams
		balance string
	)

	err := s.q(ctx).QueryRow(ctx, query+lockClause(ctx), id).
		Scan(&p.ID, &p.FullName, &p.TaxID, &p.Email, &p.Secret, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, port_persistence.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("query account %s: %w", id, err)
	}

	p.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return p, fmt.Errorf("parse balance of %s: %w", id, err)
	}

	return p, nil
}

func (s *Store) SaveBalance(ctx context.Context, account domain_account.Account) error {
	var query string
	switch account.Kind() {
	case domain_account.KindIndividual:
		query = `UPDATE individuals SET balance = $2::numeric, updated_at = now() WHERE id = $1`
	case domain_account.KindShop:
		query = `UPDATE shops SET balance = $2::numeric, updated_at = now() WHERE id = $1`
	default:
		return fmt.Errorf("save balance: unknown account kind %q", account.Kind())
	}

	tag, err := s.q(ctx).Exec(ctx, query, account.ID(), account.Balance().String())
	if err != nil {
		if pgErrorCode(err) == pgCheckViolation {
			return fmt.Errorf("account %s: %w", account.ID(), domain_account.ErrNegativeBalance)
		}
		return fmt.Errorf("update balance of %s: %w", account.ID(), err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", port_persistence.ErrNotFound, account.Kind(), account.ID())
	}

	return nil
}

// PutIndividual inserts or replaces an individual.
func (s *Store) PutIndividual(ctx context.Context, ind *domain_account.Individual) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO individuals (id, full_name, cpf, email, secret, balance)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name, cpf = EXCLUDED.cpf, email = EXCLUDED.email,
			secret = EXCLUDED.secret, balance = EXCLUDED.balance, updated_at = now()`,
		ind.ID(), ind.FullName(), ind.TaxID(), ind.Email(), ind.Secret(), ind.Balance().String(),
	)
	if pgErrorCode(err) == pgUniqueViolation {
		return fmt.Errorf("%w: individual tax id or email already registered", port_persistence.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert individual: %w", err)
	}

	return nil
}

// PutShop inserts or replaces a shop together with its owners.
func (s *Store) PutShop(ctx context.Context, shop *domain_account.Shop) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).Exec(ctx, `
			INSERT INTO shops (id, full_name, cnpj, email, secret, balance)
			VALUES ($1, $2, $3, $4, $5, $6::numeric)
			ON CONFLICT (id) DO UPDATE SET
				full_name = EXCLUDED.full_name, cnpj = EXCLUDED.cnpj, email = EXCLUDED.email,
				secret = EXCLUDED.secret, balance = EXCLUDED.balance, updated_at = now()`,
			shop.ID(), shop.FullName(), shop.TaxID(), shop.Email(), shop.Secret(), shop.Balance().String(),
		)
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: shop tax id or email already registered", port_persistence.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert shop: %w", err)
		}

		if _, err := s.q(ctx).Exec(ctx, `DELETE FROM shop_owners WHERE shop_id = $1`, shop.ID()); err != nil {
			return fmt.Errorf("reset shop owners: %w", err)
		}

		for _, owner := range shop.Owners() {
			_, err := s.q(ctx).Exec(ctx, `INSERT INTO shop_owners (shop_id, individual_id) VALUES ($1, $2)`, shop.ID(), owner)
			if pgErrorCode(err) == pgForeignKeyViolation {
				return fmt.Errorf("%w: owner %s", port_persistence.ErrNotFound, owner)
			}
			if err != nil {
				return fmt.Errorf("insert shop owner %s: %w", owner, err)
			}
		}

		return nil
	})
}
