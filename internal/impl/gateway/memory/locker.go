package impl_memory

import (
	"context"
	"fmt"
	"sync"

	port_platform "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/platform"
	"github.com/google/uuid"
)

var _ port_platform.AccountLocker = (*Locker)(nil)

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// Locker is a process-local AccountLocker. Slots are created on demand and
// dropped once nobody holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[uuid.UUID]*lockSlot)}
}

func (l *Locker) WithAccountLocks(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context) error) error {
	ordered := port_platform.LockOrder(accountIDs)

	held := make([]uuid.UUID, 0, len(ordered))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}()

	for _, id := range ordered {
		if err := l.acquire(ctx, id); err != nil {
			return fmt.Errorf("%w: account %s: %v", port_platform.ErrLockNotAcquired, id, err)
		}
		held = append(held, id)
	}

	return fn(ctx)
}

func (l *Locker) acquire(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(id, slot)
		return ctx.Err()
	}
}

func (l *Locker) release(id uuid.UUID) {
	l.mu.Lock()
	slot := l.slots[id]
	l.mu.Unlock()

	<-slot.ch
	l.unref(id, slot)
}

func (l *Locker) unref(id uuid.UUID, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}
