// Package lock provides a Redis-backed mutual exclusion primitive for workers.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock: held by another worker")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker acquires short-lived exclusive leases in Redis.
type Locker struct {
	R      redis.UniversalClient
	Prefix string
}

// TryLock takes the lease for key without waiting. The returned release func only
// deletes the key while it still carries this holder's token.
func (l Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.R == nil {
		return nil, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	full := l.Prefix + key
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return func() {
		_ = releaseScript.Run(context.Background(), l.R, []string{full}, token).Err()
	}, nil
}
