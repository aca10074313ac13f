package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL   = 60 * time.Second
	defaultLockRetry = 50 * time.Millisecond
	lockKeyPrefix    = "accessmap:lock:"
	unlockTimeout    = 2 * time.Second
)

// Deletes the key only while it still holds our token, so an expired lock
// re-acquired by another process is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a per-key mutual exclusion lock shared by every process talking to
// the same Redis. A holder that dies keeps the key until its TTL expires.
type Locker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
	log   *zap.Logger
}

func NewLocker(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Locker{rdb: rdb, ttl: ttl, retry: defaultLockRetry, log: log}
}

// Locker returns a lock backed by this client.
func (c *Client) Locker(ttl time.Duration, log *zap.Logger) *Locker {
	return NewLocker(c.rdb, ttl, log)
}

// Lock blocks until key is acquired or ctx is done. The returned unlock func
// may be called more than once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()
			if err := unlockScript.Run(ctx, l.rdb, []string{k}, token).Err(); err != nil {
				l.log.Warn("release redis lock failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
