//go:build integration

package impl_postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	impl_postgres "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/postgres"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setupStore(t *testing.T) *impl_postgres.Store {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("psp"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, impl_postgres.Migrate(dsn, zap.New(core)))

	migrated := logs.FilterMessage("database migrated").All()
	require.Len(t, migrated, 1)
	assert.Equal(t, uint64(1), migrated[0].ContextMap()["version"])
	assert.Equal(t, false, migrated[0].ContextMap()["dirty"])

	require.NoError(t, impl_postgres.Migrate(dsn, zap.NewNop()), "second run is a no-op")

	pool, err := impl_postgres.Connect(ctx, impl_postgres.PoolConfig{URL: dsn, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return impl_postgres.NewStore(pool)
}

func seedAccounts(t *testing.T, store *impl_postgres.Store) (*domain_account.Individual, *domain_account.Individual, *domain_account.Shop) {
	t.Helper()
	ctx := context.Background()

	payer, err := domain_account.NewIndividual(domain_account.ProfileParams{
		ID: uuid.New(), FullName: "Maria Silva", TaxID: "123.456.789-00",
		Email: "maria@example.com", Secret: "s", Balance: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	payee, err := domain_account.NewIndividual(domain_account.ProfileParams{
		ID: uuid.New(), FullName: "Joao Souza", TaxID: "987.654.321-00",
		Email: "joao@example.com", Secret: "s", Balance: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	shop, err := domain_account.NewShop(domain_account.ShopParams{
		ProfileParams: domain_account.ProfileParams{
			ID: uuid.New(), FullName: "Padaria Central", TaxID: "12.345.678/0001-90",
			Email: "contato@padaria.com", Secret: "s", Balance: decimal.Zero,
		},
		OwnerIDs: []uuid.UUID{payer.ID()},
	})
	require.NoError(t, err)

	require.NoError(t, store.PutIndividual(ctx, payer))
	require.NoError(t, store.PutIndividual(ctx, payee))
	require.NoError(t, store.PutShop(ctx, shop))

	return payer, payee, shop
}

func TestIntegration_Store_AccountsAndTransactions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	payer, payee, shop := seedAccounts(t, store)

	gotShop, err := store.FindShop(ctx, shop.ID())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{payer.ID()}, gotShop.Owners())

	_, err = store.FindIndividual(ctx, shop.ID())
	assert.ErrorIs(t, err, port_persistence.ErrNotFound)

	tx, err := domain_transaction.New(domain_transaction.NewParams{
		TransactionID:  uuid.New(),
		PayerID:        payer.ID(),
		PayeeID:        payee.ID(),
		PayeeKind:      domain_account.KindIndividual,
		Amount:         decimal.RequireFromString("10.25"),
		IdempotencyKey: "key-1",
		Now:            time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(ctx context.Context) error {
		p, err := store.FindIndividual(ctx, payer.ID())
		if err != nil {
			return err
		}
		q, err := store.FindIndividual(ctx, payee.ID())
		if err != nil {
			return err
		}

		if err := q.Deposit(tx.Amount()); err != nil {
			return err
		}
		if err := p.Withdraw(tx.Amount()); err != nil {
			return err
		}
		if err := store.SaveBalance(ctx, p); err != nil {
			return err
		}
		if err := store.SaveBalance(ctx, q); err != nil {
			return err
		}
		if err := store.Enqueue(ctx, port_persistence.OutboxMessage{
			MessageID: uuid.NewString(), EventType: "payee.notification",
			AggregateType: "transaction", AggregateID: tx.ID().String(), Payload: []byte(`{"a":1}`),
		}); err != nil {
			return err
		}
		return store.Create(ctx, tx, "hash-1")
	})
	require.NoError(t, err)

	gotPayer, err := store.FindIndividual(ctx, payer.ID())
	require.NoError(t, err)
	assert.True(t, gotPayer.Balance().Equal(decimal.RequireFromString("89.75")), "got %s", gotPayer.Balance())

	gotPayee, err := store.FindIndividual(ctx, payee.ID())
	require.NoError(t, err)
	assert.True(t, gotPayee.Balance().Equal(decimal.RequireFromString("110.25")), "got %s", gotPayee.Balance())

	stored, err := store.GetByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), stored.Transaction.ID())
	assert.Equal(t, "hash-1", stored.RequestHash)
	assert.True(t, stored.Transaction.Amount().Equal(tx.Amount()))

	err = store.Create(ctx, tx, "hash-1")
	assert.ErrorIs(t, err, port_persistence.ErrConflict)

	list, err := store.ListByAccount(ctx, payee.ID(), port_persistence.Page{Size: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)

	batch, err := store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.JSONEq(t, `{"a":1}`, string(batch[0].Payload))

	again, err := store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, store.MarkFailed(ctx, batch[0].MessageID, "down", 1))
	status, attempts, err := store.OutboxStatus(ctx, batch[0].MessageID)
	require.NoError(t, err)
	assert.Equal(t, "FAILED", status)
	assert.Equal(t, 1, attempts)
}

func TestIntegration_Store_RollbackDiscardsEverything(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	payer, payee, _ := seedAccounts(t, store)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		p, err := store.FindIndividual(ctx, payer.ID())
		require.NoError(t, err)
		require.NoError(t, p.Withdraw(decimal.RequireFromString("50")))
		require.NoError(t, store.SaveBalance(ctx, p))
		require.NoError(t, store.Enqueue(ctx, port_persistence.OutboxMessage{
			MessageID: uuid.NewString(), EventType: "e", AggregateType: "transaction",
			AggregateID: payee.ID().String(), Payload: []byte(`{}`),
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.FindIndividual(ctx, payer.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("100")))

	batch, err := store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestIntegration_Store_FailedEnqueueKeepsTxUsable(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	payer, _, _ := seedAccounts(t, store)
	dupID := uuid.NewString()
	require.NoError(t, store.Enqueue(ctx, port_persistence.OutboxMessage{
		MessageID: dupID, EventType: "e", AggregateType: "t", AggregateID: "a", Payload: []byte(`{}`),
	}))

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		p, err := store.FindIndividual(ctx, payer.ID())
		require.NoError(t, err)
		require.NoError(t, p.Withdraw(decimal.RequireFromString("1")))

		enqueueErr := store.Enqueue(ctx, port_persistence.OutboxMessage{
			MessageID: dupID, EventType: "e", AggregateType: "t", AggregateID: "a", Payload: []byte(`{}`),
		})
		assert.Error(t, enqueueErr)

		return store.SaveBalance(ctx, p)
	})
	require.NoError(t, err)

	got, err := store.FindIndividual(ctx, payer.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("99")))
}
