package port_platform

import (
	"bytes"
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("platform: lock not acquired")

// AccountLocker serializes work touching the same accounts. Implementations
// lock in a stable order so that overlapping sets cannot deadlock.
type AccountLocker interface {
	WithAccountLocks(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context) error) error
}

// LockOrder returns ids deduplicated and sorted, the order every
// AccountLocker acquires them in.
func LockOrder(ids []uuid.UUID) []uuid.UUID {
	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	return slices.Compact(ordered)
}
