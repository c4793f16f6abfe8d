package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	releaseTimeout = 5 * time.Second
	defaultLockTTL = 90 * time.Second
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired holder cannot free a lock someone else has since taken.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLock implements ports.UserLocker across API instances using SET NX PX.
type UserLock struct {
	client        *goredis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	log           zerolog.Logger
}

// NewUserLock creates a Redis-backed per-user lock. ttl bounds how long a
// crashed holder can block a user; it must exceed the longest withdrawal.
// A non-positive ttl falls back to defaultLockTTL, never to a lock without expiry.
func NewUserLock(client *goredis.Client, ttl, retryInterval time.Duration, log zerolog.Logger) *UserLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if retryInterval <= 0 {
		retryInterval = 50 * time.Millisecond
	}
	return &UserLock{
		client:        client,
		prefix:        "lock:",
		ttl:           ttl,
		retryInterval: retryInterval,
		log:           log,
	}
}

// Acquire polls until the lock is taken or ctx is done.
func (l *UserLock) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.tryLock(ctx, redisKey, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %q: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *UserLock) tryLock(ctx context.Context, redisKey, token string) (bool, error) {
	result, err := l.client.SetArgs(ctx, redisKey, token, goredis.SetArgs{
		Mode: "NX",
		TTL:  l.ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lock: %w", err)
	}
	return result == "OK", nil
}

func (l *UserLock) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(redisKey, token) })
	}
}

func (l *UserLock) release(redisKey, token string) {
	// The caller's context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		l.log.Warn().Err(err).Str("key", redisKey).Msg("failed to release lock, it will expire")
		return
	}
	if n == 0 {
		l.log.Warn().Str("key", redisKey).Msg("lock expired before release")
	}
}
