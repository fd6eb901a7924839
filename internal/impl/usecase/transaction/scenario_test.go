package impl_transaction_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	impl_authorizer "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/authorizer"
	impl_memory "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/memory"
	impl_notifier "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/notifier"
	impl_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/platform"
	impl_publisher "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/gateway/publisher"
	impl_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/impl/usecase/transaction"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	port_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/usecase/transaction"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type scenario struct {
	store  *impl_memory.Store
	svc    *impl_transaction.CreateTransactionUsecaseImpl
	payer  uuid.UUID
	payee  uuid.UUID
	shopID uuid.UUID
}

func newScenario(t *testing.T, authorizerStatus int) *scenario {
	t.Helper()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(authorizerStatus)
	}))
	t.Cleanup(gateway.Close)

	store := impl_memory.NewStore()

	payer, err := domain_account.NewIndividual(domain_account.ProfileParams{
		ID: uuid.New(), FullName: "Maria Silva", TaxID: "123.456.789-00",
		Email: "maria@example.com", Secret: "s", Balance: decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	payee, err := domain_account.NewIndividual(domain_account.ProfileParams{
		ID: uuid.New(), FullName: "Joao Souza", TaxID: "987.654.321-00",
		Email: "joao@example.com", Secret: "s", Balance: decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	shop, err := domain_account.NewShop(domain_account.ShopParams{
		ProfileParams: domain_account.ProfileParams{
			ID: uuid.New(), FullName: "Padaria Central", TaxID: "12.345.678/0001-90",
			Email: "contato@padaria.com", Secret: "s", Balance: decimal.Zero,
		},
		OwnerIDs: []uuid.UUID{payee.ID()},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, put := range []func() error{
		func() error { return store.PutIndividual(payer) },
		func() error { return store.PutIndividual(payee) },
		func() error { return store.PutShop(shop) },
	} {
		if err := put(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	clock := impl_platform.SystemClock{}
	ids := impl_platform.UUIDGenerator{}

	svc := impl_transaction.NewCreateTransactionUsecaseImpl(
		store, store, store,
		impl_memory.NewLocker(),
		impl_authorizer.NewHTTPAuthorizer(impl_authorizer.Config{URL: gateway.URL, Timeout: time.Second}),
		impl_notifier.NewOutboxNotifier(store, clock, ids),
		clock, ids,
		impl_transaction.WithLogger(zap.NewNop()),
	)

	return &scenario{store: store, svc: svc, payer: payer.ID(), payee: payee.ID(), shopID: shop.ID()}
}

func (s *scenario) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()

	if ind, err := s.store.FindIndividual(context.Background(), id); err == nil {
		return ind.Balance()
	}

	shop, err := s.store.FindShop(context.Background(), id)
	if err != nil {
		t.Fatalf("expected account %s, got %v", id, err)
	}

	return shop.Balance()
}

func (s *scenario) records(t *testing.T, id uuid.UUID) int {
	t.Helper()

	list, err := s.store.ListByAccount(context.Background(), id, port_persistence.Page{Size: 100})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	return len(list)
}

func assertBalance(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("expected balance %s, got %s", want, got)
	}
}

func TestScenario_ApprovedTransfer(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	out, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
		PayerID: s.payer.String(),
		PayeeID: s.payee.String(),
		Amount:  decimal.RequireFromString("10"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	assertBalance(t, s.balance(t, s.payer), "90")
	assertBalance(t, s.balance(t, s.payee), "110")

	if n := s.records(t, s.payer); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}

	if out.PayeeKind != string(domain_account.KindIndividual) {
		t.Errorf("expected payee kind INDIVIDUAL, got %s", out.PayeeKind)
	}

	batch, err := s.store.DequeueBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(batch) != 1 || batch[0].AggregateID != out.TransactionID {
		t.Fatalf("expected one notification for %s, got %+v", out.TransactionID, batch)
	}
}

func TestScenario_TransferToShop(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	out, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
		PayerID: s.payer.String(),
		PayeeID: s.shopID.String(),
		Amount:  decimal.RequireFromString("25.50"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out.PayeeKind != string(domain_account.KindShop) {
		t.Errorf("expected payee kind SHOP, got %s", out.PayeeKind)
	}

	assertBalance(t, s.balance(t, s.payer), "74.50")
	assertBalance(t, s.balance(t, s.shopID), "25.50")
}

func TestScenario_ShopCannotPay(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	_, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
		PayerID: s.shopID.String(),
		PayeeID: s.payee.String(),
		Amount:  decimal.RequireFromString("1"),
	})
	if !errors.Is(err, impl_transaction.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScenario_InsufficientFunds(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	for _, amount := range []string{"500", "100"} {
		_, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
			PayerID: s.payer.String(),
			PayeeID: s.payee.String(),
			Amount:  decimal.RequireFromString(amount),
		})
		if !errors.Is(err, impl_transaction.ErrInsufficientFunds) {
			t.Fatalf("amount %s: expected ErrInsufficientFunds, got %v", amount, err)
		}
	}

	assertBalance(t, s.balance(t, s.payer), "100")
	assertBalance(t, s.balance(t, s.payee), "100")

	if n := s.records(t, s.payer); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}
}

func TestScenario_AuthorizationRejected(t *testing.T) {
	s := newScenario(t, http.StatusBadRequest)

	_, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
		PayerID: s.payer.String(),
		PayeeID: s.payee.String(),
		Amount:  decimal.RequireFromString("10"),
	})
	if !errors.Is(err, impl_transaction.ErrAuthorizationRejected) {
		t.Fatalf("expected ErrAuthorizationRejected, got %v", err)
	}

	assertBalance(t, s.balance(t, s.payer), "100")
	assertBalance(t, s.balance(t, s.payee), "100")

	if n := s.records(t, s.payer); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}

	batch, _ := s.store.DequeueBatch(context.Background(), 10)
	if len(batch) != 0 {
		t.Fatalf("expected no notification, got %d", len(batch))
	}
}

func TestScenario_GatewayUnavailable(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := down.URL
	down.Close()

	clock := impl_platform.SystemClock{}
	ids := impl_platform.UUIDGenerator{}
	svc := impl_transaction.NewCreateTransactionUsecaseImpl(
		s.store, s.store, s.store,
		impl_memory.NewLocker(),
		impl_authorizer.NewHTTPAuthorizer(impl_authorizer.Config{URL: url, Timeout: time.Second}),
		impl_notifier.NewOutboxNotifier(s.store, clock, ids),
		clock, ids,
	)

	_, err := svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
		PayerID: s.payer.String(),
		PayeeID: s.payee.String(),
		Amount:  decimal.RequireFromString("10"),
	})
	if !errors.Is(err, impl_transaction.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	assertBalance(t, s.balance(t, s.payer), "100")
}

func TestScenario_ConcurrentTransfersConserveBalance(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers*2)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			from, to := s.payer, s.payee
			if i%2 == 1 {
				from, to = s.payee, s.payer
			}

			_, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
				PayerID: from.String(),
				PayeeID: to.String(),
				Amount:  decimal.RequireFromString("1"),
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	total := s.balance(t, s.payer).Add(s.balance(t, s.payee))
	assertBalance(t, total, "200")
	assertBalance(t, s.balance(t, s.payer), "100")

	if n := s.records(t, s.payer); n != workers {
		t.Fatalf("expected %d records, got %d", workers, n)
	}
}

func TestScenario_NotificationReachesWebhook(t *testing.T) {
	s := newScenario(t, http.StatusOK)

	received := make(chan map[string]string, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		_ = json.Unmarshal(raw, &body)
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	out, err := s.svc.Execute(context.Background(), port_transaction.CreateTransactionInput{
		PayerID: s.payer.String(),
		PayeeID: s.payee.String(),
		Amount:  decimal.RequireFromString("10"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	relay := impl_notifier.NewRelay(s.store, impl_publisher.NewWebhookPublisher(hook.URL, time.Second), impl_notifier.RelayConfig{}, zap.NewNop())
	if n := relay.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1 message dispatched, got %d", n)
	}

	select {
	case body := <-received:
		if body["transaction_id"] != out.TransactionID {
			t.Errorf("expected transaction %s, got %s", out.TransactionID, body["transaction_id"])
		}
		if body["payee_email"] != "joao@example.com" {
			t.Errorf("expected payee email, got %s", body["payee_email"])
		}
	case <-time.After(time.Second):
		t.Fatal("webhook was not called")
	}
}
