package registration

import (
	"context"
	"sync"

	id "eventreg/pkg/domain"
)

// Locker serializes submissions per occurrence. The capacity and duplicate
// checks followed by a write are a classic check-then-act race; two
// concurrent submissions against the same occurrence must not both pass a
// check that only one should pass. Acquire blocks until the occurrence scope
// is held or ctx is done; the returned release function must be called once.
type Locker interface {
	Acquire(ctx context.Context, occurrenceID id.OccurrenceID) (release func(), err error)
}

// MutexLocker is the single-process Locker: one single-slot channel per
// occurrence, lazily created and never evicted (occurrence counts are small).
// A waiter gives up as soon as its context is done.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[id.OccurrenceID]chan struct{}
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[id.OccurrenceID]chan struct{})}
}

func (l *MutexLocker) Acquire(ctx context.Context, occurrenceID id.OccurrenceID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	slot, ok := l.locks[occurrenceID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.locks[occurrenceID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
