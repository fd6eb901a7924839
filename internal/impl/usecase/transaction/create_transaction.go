package impl_transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain_account "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/account"
	domain_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/domain/transaction"
	port_authorization "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/authorization"
	port_notification "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/notification"
	port_persistence "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence"
	port_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/platform"
	port_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/usecase/transaction"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultPersistAttempts = 3

var errBalanceDrift = errors.New("balances changed since authorization")

type CreateTransactionUsecaseImpl struct {
	uow        port_persistence.UnitOfWork
	accounts   port_persistence.AccountRepository
	txs        port_persistence.TransactionRepository
	locker     port_platform.AccountLocker
	authorizer port_authorization.Authorizer
	notifier   port_notification.Notifier
	clock      port_platform.Clock
	ids        port_platform.IDGenerator

	lookup          *accountLookup
	logger          *zap.Logger
	persistAttempts int
}

type Option func(*CreateTransactionUsecaseImpl)

func WithLogger(logger *zap.Logger) Option {
	return func(u *CreateTransactionUsecaseImpl) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithPersistAttempts bounds how many times an authorized transfer is written
// before it is reported as ErrPersistenceFailure.
func WithPersistAttempts(n int) Option {
	return func(u *CreateTransactionUsecaseImpl) {
		if n > 0 {
			u.persistAttempts = n
		}
	}
}

func NewCreateTransactionUsecaseImpl(
	uow port_persistence.UnitOfWork,
	accounts port_persistence.AccountRepository,
	txs port_persistence.TransactionRepository,
	locker port_platform.AccountLocker,
	authorizer port_authorization.Authorizer,
	notifier port_notification.Notifier,
	clock port_platform.Clock,
	ids port_platform.IDGenerator,
	opts ...Option,
) *CreateTransactionUsecaseImpl {
	u := &CreateTransactionUsecaseImpl{
		uow:             uow,
		accounts:        accounts,
		txs:             txs,
		locker:          locker,
		authorizer:      authorizer,
		notifier:        notifier,
		clock:           clock,
		ids:             ids,
		lookup:          newAccountLookup(accounts),
		logger:          zap.NewNop(),
		persistAttempts: defaultPersistAttempts,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

type createRequest struct {
	in          port_transaction.CreateTransactionInput
	payerID     uuid.UUID
	payeeID     uuid.UUID
	requestHash string
}

func (u *CreateTransactionUsecaseImpl) Execute(ctx context.Context, in port_transaction.CreateTransactionInput) (out port_transaction.TransactionOutput, err error) {
	ctx, span := tracer.Start(ctx, "transaction.create")
	defer func() { endSpan(span, err) }()

	req, err := parseCreateInput(in)
	if err != nil {
		return port_transaction.TransactionOutput{}, err
	}

	span.SetAttributes(
		attribute.String("transaction.payer_id", req.payerID.String()),
		attribute.String("transaction.payee_id", req.payeeID.String()),
	)

	var created *domain_transaction.Transaction

	err = u.locker.WithAccountLocks(ctx, []uuid.UUID{req.payerID, req.payeeID}, func(ctx context.Context) error {
		var runErr error
		created, runErr = u.run(ctx, req)
		return runErr
	})
	if errors.Is(err, port_platform.ErrLockNotAcquired) {
		return port_transaction.TransactionOutput{}, fmt.Errorf("%w: %v", ErrAccountBusy, err)
	}

	if err != nil {
		return port_transaction.TransactionOutput{}, err
	}

	return toOutput(created), nil
}

func parseCreateInput(in port_transaction.CreateTransactionInput) (createRequest, error) {
	payerID, err := uuid.Parse(strings.TrimSpace(in.PayerID))
	if err != nil {
		return createRequest{}, fmt.Errorf("%w: malformed payer id", ErrInvalidRequest)
	}

	payeeID, err := uuid.Parse(strings.TrimSpace(in.PayeeID))
	if err != nil {
		return createRequest{}, fmt.Errorf("%w: malformed payee id", ErrInvalidRequest)
	}

	if err := domain_transaction.ValidateAmount(in.Amount); err != nil {
		return createRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req := createRequest{in: in, payerID: payerID, payeeID: payeeID}
	if strings.TrimSpace(in.IdempotencyKey) != "" {
		req.requestHash = HashCreateTransactionInput(in)
	}

	return req, nil
}

// run executes one orchestration while the account locks are held.
func (u *CreateTransactionUsecaseImpl) run(ctx context.Context, req createRequest) (*domain_transaction.Transaction, error) {
	if req.requestHash != "" {
		replayed, err := u.replay(ctx, req)
		if err != nil || replayed != nil {
			return replayed, err
		}
	}

	var (
		record   *domain_transaction.Transaction
		mutation *balanceMutation
		approved bool
	)

	err := u.uow.WithinTx(ctx, func(ctx context.Context) error {
		payer, err := u.lookup.payer(ctx, req.payerID)
		if err != nil {
			return err
		}

		if req.payerID == req.payeeID {
			return fmt.Errorf("%w: same account", ErrInvalidRequest)
		}

		if !req.in.Amount.LessThan(payer.Balance()) {
			return fmt.Errorf("%w: payer %s", ErrInsufficientFunds, req.payerID)
		}

		payee, err := u.lookup.payee(ctx, req.payeeID)
		if err != nil {
			return err
		}

		record, err = domain_transaction.New(domain_transaction.NewParams{
			TransactionID:  u.ids.NewUUID(),
			PayerID:        payer.ID(),
			PayeeID:        payee.ID(),
			PayeeKind:      payee.Kind(),
			Amount:         req.in.Amount,
			IdempotencyKey: req.in.IdempotencyKey,
			CorrelationID:  req.in.CorrelationID,
			Now:            u.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}

		mutation, err = applyMutation(payer, payee, req.in.Amount)
		if err != nil {
			return err
		}

		if err := u.authorize(ctx); err != nil {
			u.compensate(mutation, record)
			return err
		}
		approved = true

		u.notify(ctx, record, payee)

		return u.persist(ctx, payer, payee, record, req.requestHash)
	})

	if err == nil {
		return record, nil
	}

	if !approved || errors.Is(err, ErrIdempotencyConflict) {
		return nil, err
	}

	// Authorization has been spent. Cancellation no longer applies.
	u.compensate(mutation, record)
	if err := u.retryPersist(context.WithoutCancel(ctx), mutation, record, req.requestHash, err); err != nil {
		return nil, err
	}

	return record, nil
}

func (u *CreateTransactionUsecaseImpl) replay(ctx context.Context, req createRequest) (*domain_transaction.Transaction, error) {
	existing, err := u.txs.GetByIdempotencyKey(ctx, strings.TrimSpace(req.in.IdempotencyKey))
	if errors.Is(err, port_persistence.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	if existing.RequestHash != req.requestHash {
		return nil, ErrIdempotencyConflict
	}

	return existing.Transaction, nil
}

func (u *CreateTransactionUsecaseImpl) authorize(ctx context.Context) error {
	verdict, err := u.authorizer.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch verdict {
	case port_authorization.VerdictApproved:
		return nil
	case port_authorization.VerdictRejected:
		return ErrAuthorizationRejected
	default:
		return ErrGatewayUnavailable
	}
}

// notify never fails the transfer.
func (u *CreateTransactionUsecaseImpl) notify(ctx context.Context, record *domain_transaction.Transaction, payee domain_account.Payee) {
	err := u.notifier.Notify(ctx, port_notification.Notification{
		TransactionID: record.ID().String(),
		PayeeID:       payee.ID().String(),
		PayeeKind:     string(payee.Kind()),
		PayeeName:     payee.FullName(),
		PayeeEmail:    payee.Email(),
		Amount:        record.Amount(),
		CorrelationID: record.CorrelationID(),
		OccurredAt:    record.CreatedAt(),
	})
	if err != nil {
		u.logger.Warn("payee notification failed",
			append(recordFields(record), zap.Error(err))...,
		)
	}
}

func (u *CreateTransactionUsecaseImpl) persist(
	ctx context.Context,
	payer domain_account.Payer,
	payee domain_account.Payee,
	record *domain_transaction.Transaction,
	requestHash string,
) error {
	if err := u.accounts.SaveBalance(ctx, payer); err != nil {
		return fmt.Errorf("save payer balance: %w", err)
	}

	if err := u.accounts.SaveBalance(ctx, payee); err != nil {
		return fmt.Errorf("save payee balance: %w", err)
	}

	if err := u.txs.Create(ctx, record, requestHash); err != nil {
		if errors.Is(err, port_persistence.ErrConflict) {
			return fmt.Errorf("%w: %v", ErrIdempotencyConflict, err)
		}

		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

// retryPersist writes an already authorized transfer again. Each attempt
// reloads both accounts and only proceeds if their balances are exactly the
// ones the transfer was authorized against.
func (u *CreateTransactionUsecaseImpl) retryPersist(
	ctx context.Context,
	mutation *balanceMutation,
	record *domain_transaction.Transaction,
	requestHash string,
	cause error,
) error {
	for attempt := 2; attempt <= u.persistAttempts; attempt++ {
		u.logger.Warn("retrying transaction persistence",
			append(recordFields(record), zap.Int("attempt", attempt), zap.Error(cause))...,
		)

		err := u.uow.WithinTx(ctx, func(ctx context.Context) error {
			payer, err := u.lookup.payer(ctx, record.PayerID())
			if err != nil {
				return err
			}

			payee, err := u.lookup.payee(ctx, record.PayeeID())
			if err != nil {
				return err
			}

			if !mutation.matchesSnapshot(payer, payee) {
				return errBalanceDrift
			}

			if _, err := applyMutation(payer, payee, record.Amount()); err != nil {
				return err
			}

			u.notify(ctx, record, payee)

			return u.persist(ctx, payer, payee, record, requestHash)
		})
		if err == nil {
			return nil
		}

		cause = err
		if errors.Is(err, errBalanceDrift) || errors.Is(err, ErrIdempotencyConflict) {
			// A commit whose reply was lost leaves the debit applied and the
			// record stored, which looks exactly like drift from here.
			if u.alreadyRecorded(ctx, record) {
				u.logger.Info("transaction found recorded by an earlier attempt", recordFields(record)...)
				return nil
			}
			break
		}
	}

	u.logger.Error("approved transaction could not be recorded",
		append(recordFields(record),
			zap.Bool("requires_attention", true),
			zap.Error(cause),
		)...,
	)

	return fmt.Errorf("%w: %v", ErrPersistenceFailure, cause)
}

func (u *CreateTransactionUsecaseImpl) alreadyRecorded(ctx context.Context, record *domain_transaction.Transaction) bool {
	stored, err := u.txs.GetByID(ctx, record.ID())
	if err != nil {
		if !errors.Is(err, port_persistence.ErrNotFound) {
			u.logger.Warn("could not check for an earlier commit",
				append(recordFields(record), zap.Error(err))...,
			)
		}
		return false
	}

	return stored != nil && stored.Transaction != nil && stored.Transaction.ID() == record.ID()
}

func (u *CreateTransactionUsecaseImpl) compensate(mutation *balanceMutation, record *domain_transaction.Transaction) {
	if err := mutation.revert(); err != nil {
		u.logger.Error("in-memory balance compensation failed",
			append(recordFields(record), zap.Error(err))...,
		)
	}
}

func recordFields(record *domain_transaction.Transaction) []zap.Field {
	return []zap.Field{
		zap.String("transaction_id", record.ID().String()),
		zap.String("payer_id", record.PayerID().String()),
		zap.String("payee_id", record.PayeeID().String()),
		zap.String("payee_kind", string(record.PayeeKind())),
		zap.String("amount", record.Amount().String()),
		zap.String("correlation_id", record.CorrelationID()),
	}
}
