package port_platform

import "github.com/google/uuid"

// IDGenerator mints identifiers for transactions and outbox messages.
type IDGenerator interface {
	NewUUID() uuid.UUID
}
