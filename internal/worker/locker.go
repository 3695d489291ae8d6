package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockReleaseScript deletes the lock key only if it still holds the token
// this process set — without it, a lock whose TTL expired mid-job could be
// released out from under whichever process acquired it next.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker implements the per-entity distributed lock every worker
// processor takes before touching a target, so multiple scheduler
// replicas don't duplicate work. SET NX PX under the hood.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// DefaultTTL is the lock lifetime used everywhere in this package unless a
// processor has a reason to hold longer.
const DefaultTTL = 60 * time.Second

// TryLock attempts to acquire key for ttl. ok is false when another
// replica already holds it — callers skip the item, they don't wait.
// The returned release func is always safe to call (including when ok is
// false, in which case it's a no-op); call it via defer.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	token := uuid.NewString()
	acquired, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("worker: acquire lock %s: %w", key, err)
	}
	if !acquired {
		return func() {}, false, nil
	}
	release = func() {
		l.rdb.Eval(context.Background(), lockReleaseScript, []string{key}, token)
	}
	return release, true, nil
}
