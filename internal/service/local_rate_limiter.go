package service

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"wallet-custody/internal/core/ports"

	"golang.org/x/time/rate"
)

// sweepThreshold is the number of tracked keys above which idle limiters
// are dropped on the next call.
const sweepThreshold = 10_000

// LocalRateLimiter implements ports.RateLimiter with one token bucket per key
// held in process memory. A bucket refills at limit/window and holds at most
// limit tokens, so it admits the same sustained rate as the Redis fixed
// window without the burst at window boundaries.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localBucket
	now      func() time.Time
}

type localBucket struct {
	lim      *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// NewLocalRateLimiter creates an empty LocalRateLimiter.
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*localBucket),
		now:      time.Now,
	}
}

// Allow takes one token from the bucket for key.
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}

	now := l.now()
	b := l.bucket(key, limit, window, now)

	allowed := b.lim.AllowN(now, 1)
	tokens := b.lim.TokensAt(now)

	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	// Time until the bucket holds one whole token again.
	perToken := window / time.Duration(limit)
	resetAt := now
	if tokens < 1 {
		resetAt = now.Add(time.Duration((1 - tokens) * float64(perToken)))
	}

	return &ports.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   int64(math.Ceil(float64(resetAt.UnixNano()) / float64(time.Second))),
	}, nil
}

func (l *LocalRateLimiter) bucket(key string, limit int64, window time.Duration, now time.Time) *localBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) > sweepThreshold {
		l.sweep(now)
	}

	// Rules may differ per call site; keep one bucket per key and rule.
	id := key + "|" + strconv.FormatInt(limit, 10) + "|" + window.String()
	b, ok := l.limiters[id]
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		b = &localBucket{
			lim:    rate.NewLimiter(every, int(limit)),
			window: window,
		}
		l.limiters[id] = b
	}
	b.lastSeen = now
	return b
}

// sweep drops buckets idle for longer than their window; a fresh bucket
// starts full, the same state an idle one has refilled to.
func (l *LocalRateLimiter) sweep(now time.Time) {
	for id, b := range l.limiters {
		if now.Sub(b.lastSeen) > b.window {
			delete(l.limiters, id)
		}
	}
}

func (l *LocalRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
