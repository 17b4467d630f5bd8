package server

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout bounds how long a request waits for the server lock
const DefaultLockTimeout = 350 * time.Second

// Lock is an exclusive lock whose acquisition gives up after a timeout.
// The zero value is not usable; create one with NewLock.
type Lock struct {
	sem *semaphore.Weighted
}

// NewLock creates an unlocked Lock
func NewLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// TryLock waits up to timeout for the lock. It returns false when the
// timeout elapses or ctx is done first.
func (l *Lock) TryLock(ctx context.Context, timeout time.Duration) bool {
	if l.sem.TryAcquire(1) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.sem.Acquire(ctx, 1) == nil
}

// Unlock releases the lock. Unlocking an unlocked Lock panics.
func (l *Lock) Unlock() {
	l.sem.Release(1)
}
