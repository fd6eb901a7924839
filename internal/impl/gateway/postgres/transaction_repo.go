package impl_postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, payer_id, payee_id, payee_kind, amount::text,
	COALESCE(idempotency_key, ''), request_hash, correlation_id, created_at`

func (s *Store) Create(ctx context.Context, t *domain_transaction.Transaction, requestHash string) error {
	var key *string
	if k := t.IdempotencyKey(); k != "" {
		key = &k
	}

	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO transactions
			(id, payer_id, payee_id, payee_kind, amount, idempotency_key, request_hash, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
		t.ID(), t.PayerID(), t.PayeeID(), string(t.PayeeKind()), t.Amount().String(),
		key, requestHash, t.CorrelationID(), t.CreatedAt(),
	)
	if pgErrorCode(err) == pgUniqueViolation {
		return fmt.Errorf("%w: transaction %s", port_persistence.ErrConflict, t.ID())
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*port_persistence.StoredTransaction, error) {
	row := s.q(ctx).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanStored(row)
}

func (s *Store) GetByIdempotencyKey(ctx context.Context, key string) (*port_persistence.StoredTransaction, error) {
	row := s.q(ctx).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key)
	return scanStored(row)
}

func (s *Store) ListByAccount(ctx context.Context, accountID uuid.UUID, page port_persistence.Page) ([]*domain_transaction.Transaction, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	stored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*port_persistence.StoredTransaction, error) {
		return scanStored(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}

	out := make([]*domain_transaction.Transaction, 0, len(stored))
	for _, st := range stored {
		out = append(out, st.Transaction)
	}

	return out, nil
}

func scanStored(row pgx.Row) (*port_persistence.StoredTransaction, error) {
	var (
		id, payerID, payeeID uuid.UUID
		payeeKind, amount    string
		key, hash, corrID    string
		createdAt            time.Time
	)

	err := row.Scan(&id, &payerID, &payeeID, &payeeKind, &amount, &key, &hash, &corrID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port_persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount of %s: %w", id, err)
	}

	t, err := domain_transaction.New(domain_transaction.NewParams{
		TransactionID:  id,
		PayerID:        payerID,
		PayeeID:        payeeID,
		PayeeKind:      domain_account.Kind(payeeKind),
		Amount:         value,
		IdempotencyKey: key,
		CorrelationID:  corrID,
		Now:            createdAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild transaction %s: %w", id, err)
	}

	return &port_persistence.StoredTransaction{Transaction: t, RequestHash: hash}, nil
}
