package cache

import (
	"context"
	"time"
)

// editLockPrefix is the Redis key prefix for in-flight edit locks.
const editLockPrefix = "editlock:"

// AcquireEditLock marks a user as having an edit in flight. Returns false if
// another edit already holds the lock. The TTL bounds lock lifetime if the
// process dies before release.
//
// This is a best-effort duplicate-submission guard, not a correctness
// mechanism: on Redis errors it reports the lock as acquired (fail open) and
// the ledger decrement remains the sole authority over spending.
func (c *Cache) AcquireEditLock(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, editLockPrefix+userID, 1, ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// ReleaseEditLock clears the in-flight marker for a user.
func (c *Cache) ReleaseEditLock(ctx context.Context, userID string) {
	// Best effort; an unreleased lock expires via TTL.
	_ = c.client.Del(ctx, editLockPrefix+userID).Err()
}
