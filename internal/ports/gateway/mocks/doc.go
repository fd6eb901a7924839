// Package mocks provides mock implementations for testing purposes.
package mocks

//go:generate mockgen -destination=mock_persistence.go -package=mocks github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/persistence AccountRepository,TransactionRepository,OutboxRepository,UnitOfWork
//go:generate mockgen -destination=mock_messaging.go -package=mocks github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/messaging Publisher
//go:generate mockgen -destination=mock_platform.go -package=mocks github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/platform Clock,IDGenerator,AccountLocker
//go:generate mockgen -destination=mock_authorization.go -package=mocks github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/authorization Authorizer
//go:generate mockgen -destination=mock_notification.go -package=mocks github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/notification Notifier
