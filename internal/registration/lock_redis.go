package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "eventreg/pkg/domain"
	"eventreg/pkg/platform/sentinel"
)

const (
	redisLockPrefix     = "eventreg:occurrence-lock:"
	redisLockTTL        = 10 * time.Second
	redisLockRetryDelay = 25 * time.Millisecond
	redisLockWait       = 3 * time.Second
)

// RedisLocker serializes submissions across processes with a SET NX PX lease
// per occurrence. When the lease cannot be obtained within the wait window it
// reports sentinel.ErrConflict so the service can surface a retryable error
// instead of blocking indefinitely.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, occurrenceID id.OccurrenceID) (func(), error) {
	key := redisLockPrefix + occurrenceID.String()
	owner := uuid.NewString()
	deadline := time.Now().Add(redisLockWait)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, redisLockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, owner) }, nil
		}
		if time.Now().After(deadline) {
			return nil, sentinel.ErrConflict
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisLockRetryDelay):
		}
	}
}

// release deletes the lease only if this locker still owns it, so an expired
// lease taken over by another process is never removed from under it.
func (l *RedisLocker) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`
	_ = l.client.Eval(ctx, script, []string{key}, owner).Err()
}
