package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one session across replicas that share
// a SessionStore. The session manager takes it around every load-modify-save
// cycle, on top of its in-process lock.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The lock
	// lapses on its own after ttl so a crashed holder cannot wedge a session.
	// The returned UnlockFunc must be called once the cycle is over.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
