// internal/pkg/lock/lock.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired means another holder has the lock.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out Redis-backed mutexes shared by every process using the same Redis.
type Locker struct {
	rs *redsync.Redsync
}

func NewLocker(rdb *redis.Client) *Locker {
	pool := goredis.NewPool(rdb)
	return &Locker{rs: redsync.New(pool)}
}

// TryLock makes a single attempt at name. On success the returned func releases it.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if heldElsewhere(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, name, err)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", name, err)
	}

	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("failed to unlock %s: %w", name, err)
		}
		return nil
	}, nil
}

func heldElsewhere(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}
