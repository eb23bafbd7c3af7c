package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned by TryLock when another holder has the lock.
var ErrLockHeld = errors.New("lock is held by another holder")

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes transactions on one session across server
// replicas sharing a store. session.Manager takes it after its local lock.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The lock
	// expires after ttl if the holder never calls the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)

	// TryLock makes a single attempt and returns ErrLockHeld when the lock
	// is taken.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
