package impl_memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	impl_memory "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/memory"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndividual(t *testing.T, taxID, email, balance string) *domain_account.Individual {
	t.Helper()

	ind, err := domain_account.NewIndividual(domain_account.ProfileParams{
		ID:       uuid.New(),
		FullName: "Maria Silva",
		TaxID:    taxID,
		Email:    email,
		Secret:   "secret",
		Balance:  decimal.RequireFromString(balance),
	})
	require.NoError(t, err)

	return ind
}

func newShop(t *testing.T, balance string, owners ...uuid.UUID) *domain_account.Shop {
	t.Helper()

	shop, err := domain_account.NewShop(domain_account.ShopParams{
		ProfileParams: domain_account.ProfileParams{
			ID:       uuid.New(),
			FullName: "Padaria Central",
			TaxID:    "12.345.678/0001-90",
			Email:    "contato@padaria.com",
			Secret:   "secret",
			Balance:  decimal.RequireFromString(balance),
		},
		OwnerIDs: owners,
	})
	require.NoError(t, err)

	return shop
}

func newTransaction(t *testing.T, payer, payee uuid.UUID, at time.Time, key string) *domain_transaction.Transaction {
	t.Helper()

	tx, err := domain_transaction.New(domain_transaction.NewParams{
		TransactionID:  uuid.New(),
		PayerID:        payer,
		PayeeID:        payee,
		PayeeKind:      domain_account.KindIndividual,
		Amount:         decimal.RequireFromString("10"),
		IdempotencyKey: key,
		Now:            at,
	})
	require.NoError(t, err)

	return tx
}

func TestStore_PutAccounts(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	owner := newIndividual(t, "123.456.789-00", "maria@example.com", "100")
	require.NoError(t, store.PutIndividual(owner))

	dup := newIndividual(t, "123.456.789-00", "other@example.com", "0")
	err := store.PutIndividual(dup)
	assert.ErrorIs(t, err, port_persistence.ErrConflict)

	orphan := newShop(t, "0", uuid.New())
	err = store.PutShop(orphan)
	assert.ErrorIs(t, err, port_persistence.ErrNotFound)

	shop := newShop(t, "0", owner.ID())
	require.NoError(t, store.PutShop(shop))

	found, err := store.FindShop(ctx, shop.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner.ID()}, found.Owners())

	_, err = store.FindIndividual(ctx, shop.ID())
	assert.ErrorIs(t, err, port_persistence.ErrNotFound)
}

func TestStore_WithinTxCommitsAtomically(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	payer := newIndividual(t, "123.456.789-00", "payer@example.com", "100")
	payee := newIndividual(t, "987.654.321-00", "payee@example.com", "100")
	require.NoError(t, store.PutIndividual(payer))
	require.NoError(t, store.PutIndividual(payee))

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, payer.Withdraw(decimal.RequireFromString("10")))
		require.NoError(t, payee.Deposit(decimal.RequireFromString("10")))
		require.NoError(t, store.SaveBalance(ctx, payer))
		require.NoError(t, store.SaveBalance(ctx, payee))

		inTx, err := store.FindIndividual(ctx, payer.ID())
		require.NoError(t, err)
		assert.True(t, inTx.Balance().Equal(decimal.RequireFromString("90")), "tx sees its own writes")

		outside, err := store.FindIndividual(context.Background(), payer.ID())
		require.NoError(t, err)
		assert.True(t, outside.Balance().Equal(decimal.RequireFromString("100")), "writes stay invisible before commit")

		return store.Create(ctx, newTransaction(t, payer.ID(), payee.ID(), time.Now(), ""), "")
	})
	require.NoError(t, err)

	got, err := store.FindIndividual(ctx, payer.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("90")))

	got, err = store.FindIndividual(ctx, payee.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("110")))

	list, err := store.ListByAccount(ctx, payer.ID(), port_persistence.Page{Size: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_WithinTxDiscardsOnError(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	payer := newIndividual(t, "123.456.789-00", "payer@example.com", "100")
	payee := newIndividual(t, "987.654.321-00", "payee@example.com", "100")
	require.NoError(t, store.PutIndividual(payer))
	require.NoError(t, store.PutIndividual(payee))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, payer.Withdraw(decimal.RequireFromString("10")))
		require.NoError(t, store.SaveBalance(ctx, payer))
		require.NoError(t, store.Create(ctx, newTransaction(t, payer.ID(), payee.ID(), time.Now(), ""), ""))
		require.NoError(t, store.Enqueue(ctx, port_persistence.OutboxMessage{MessageID: "m-1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.FindIndividual(ctx, payer.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("100")))

	list, err := store.ListByAccount(ctx, payer.ID(), port_persistence.Page{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, list)

	batch, err := store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestStore_CommitRejectsDuplicateIdempotencyKey(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	payer := newIndividual(t, "123.456.789-00", "payer@example.com", "100")
	payee := newIndividual(t, "987.654.321-00", "payee@example.com", "100")
	require.NoError(t, store.PutIndividual(payer))
	require.NoError(t, store.PutIndividual(payee))

	require.NoError(t, store.Create(ctx, newTransaction(t, payer.ID(), payee.ID(), time.Now(), "key-1"), "hash"))

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, payer.Withdraw(decimal.RequireFromString("10")))
		require.NoError(t, store.SaveBalance(ctx, payer))
		return store.Create(ctx, newTransaction(t, payer.ID(), payee.ID(), time.Now(), "key-1"), "hash")
	})
	assert.ErrorIs(t, err, port_persistence.ErrConflict)

	got, err := store.FindIndividual(ctx, payer.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("100")), "a rejected commit applies nothing")

	stored, err := store.GetByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "hash", stored.RequestHash)
}

func TestStore_ListByAccountPagesNewestFirst(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := newTransaction(t, a, b, base, "")
	second := newTransaction(t, b, a, base.Add(time.Minute), "")
	third := newTransaction(t, a, c, base.Add(2*time.Minute), "")
	unrelated := newTransaction(t, b, c, base.Add(3*time.Minute), "")

	for _, tx := range []*domain_transaction.Transaction{first, second, third, unrelated} {
		require.NoError(t, store.Create(ctx, tx, ""))
	}

	page0, err := store.ListByAccount(ctx, a, port_persistence.Page{Number: 0, Size: 2})
	require.NoError(t, err)
	require.Len(t, page0, 2)
	assert.Equal(t, third.ID(), page0[0].ID())
	assert.Equal(t, second.ID(), page0[1].ID())

	page1, err := store.ListByAccount(ctx, a, port_persistence.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page1, 1)
	assert.Equal(t, first.ID(), page1[0].ID())

	page5, err := store.ListByAccount(ctx, a, port_persistence.Page{Number: 5, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page5)
}

func TestStore_GetByID(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, port_persistence.ErrNotFound)

	tx := newTransaction(t, uuid.New(), uuid.New(), time.Now(), "")
	require.NoError(t, store.Create(ctx, tx, "h"))

	err = store.Create(ctx, tx, "h")
	assert.ErrorIs(t, err, port_persistence.ErrConflict)

	got, err := store.GetByID(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), got.Transaction.ID())
}

func TestStore_Outbox(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, port_persistence.OutboxMessage{MessageID: "m-1"}))
	require.NoError(t, store.Enqueue(ctx, port_persistence.OutboxMessage{MessageID: "m-2"}))

	batch, err := store.DequeueBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "m-1", batch[0].MessageID)

	batch, err = store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1, "claimed messages are not handed out twice")
	assert.Equal(t, "m-2", batch[0].MessageID)

	require.NoError(t, store.MarkPublished(ctx, "m-1"))
	status, _, ok := store.OutboxStatus("m-1")
	require.True(t, ok)
	assert.Equal(t, "PUBLISHED", status)

	require.NoError(t, store.MarkFailed(ctx, "m-2", "timeout", 2))
	status, attempts, _ := store.OutboxStatus("m-2")
	assert.Equal(t, "PENDING", status)
	assert.Equal(t, 1, attempts)

	batch, err = store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].Attempts)

	require.NoError(t, store.MarkFailed(ctx, "m-2", "timeout", 2))
	status, attempts, _ = store.OutboxStatus("m-2")
	assert.Equal(t, "FAILED", status)
	assert.Equal(t, 2, attempts)

	err = store.MarkPublished(ctx, "missing")
	assert.ErrorIs(t, err, port_persistence.ErrNotFound)
}

func TestStore_LoadSeed(t *testing.T) {
	store := impl_memory.NewStore()
	ctx := context.Background()

	raw := []byte(`{
		"individuals": [
			{"id": "6f1f8f3e-2a55-4d4b-9d7e-3c1f0d0a0001", "full_name": "Maria Silva", "tax_id": "123.456.789-00",
			 "email": "maria@example.com", "secret": "s", "balance": "100.00"}
		],
		"shops": [
			{"id": "6f1f8f3e-2a55-4d4b-9d7e-3c1f0d0a0002", "full_name": "Padaria Central", "tax_id": "12.345.678/0001-90",
			 "email": "contato@padaria.com", "secret": "s", "balance": 0,
			 "owner_ids": ["6f1f8f3e-2a55-4d4b-9d7e-3c1f0d0a0001"]}
		]
	}`)

	individuals, shops, err := store.LoadSeed(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, individuals)
	assert.Equal(t, 1, shops)

	ind, err := store.FindIndividual(ctx, uuid.MustParse("6f1f8f3e-2a55-4d4b-9d7e-3c1f0d0a0001"))
	require.NoError(t, err)
	assert.True(t, ind.Balance().Equal(decimal.RequireFromString("100")))

	_, _, err = store.LoadSeed([]byte(`{"individuals":[{"id":"6f1f8f3e-2a55-4d4b-9d7e-3c1f0d0a0009","full_name":"x","tax_id":"1","email":"x@y","secret":"s","balance":"1"}]}`))
	assert.ErrorIs(t, err, domain_account.ErrInvalidTaxID)
}
