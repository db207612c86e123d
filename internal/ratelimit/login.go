// Package ratelimit throttles repeated logins per email.
//
// Both backends count attempts in a fixed window that opens at the first
// attempt: Redis for multi-instance deployments, an in-process map otherwise.
// An attempt is counted before the credentials are checked, so concurrent
// requests cannot all slip under the limit.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type LoginLimiter interface {
	// Acquire counts one attempt for key and reports whether it is within
	// the limit.
	Acquire(ctx context.Context, key string) (bool, error)
	// Reset forgets previous attempts for key.
	Reset(ctx context.Context, key string) error
}

const keyPrefix = "reservations:login:attempts:"

// INCR and the first PEXPIRE run as one script so a window can never be
// left without a TTL.
const fixedWindowLua = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

type RedisLoginLimiter struct {
	rdb         *redis.Client
	maxAttempts int64
	window      time.Duration
	script      *redis.Script
}

func NewRedisLoginLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{
		rdb:         rdb,
		maxAttempts: int64(maxAttempts),
		window:      window,
		script:      redis.NewScript(fixedWindowLua),
	}
}

func (l *RedisLoginLimiter) Acquire(ctx context.Context, key string) (bool, error) {
	if l.maxAttempts <= 0 || l.window <= 0 {
		return true, nil
	}
	n, err := l.script.Run(ctx, l.rdb, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("login limiter acquire: %w", err)
	}
	return n <= l.maxAttempts, nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("login limiter del: %w", err)
	}
	return nil
}

// maxTrackedKeys bounds the in-process map; expired windows are dropped past it.
const maxTrackedKeys = 10000

type window struct {
	count   int
	expires time.Time
}

type MemoryLoginLimiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewMemoryLoginLimiter(maxAttempts int, windowLen time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		windows:     make(map[string]*window),
		maxAttempts: maxAttempts,
		window:      windowLen,
		now:         time.Now,
	}
}

func (l *MemoryLoginLimiter) Acquire(_ context.Context, key string) (bool, error) {
	if l.maxAttempts <= 0 || l.window <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expires) {
		if !ok && len(l.windows) >= maxTrackedKeys {
			l.sweepLocked(now)
		}
		w = &window{expires: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.maxAttempts, nil
}

func (l *MemoryLoginLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLoginLimiter) sweepLocked(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.expires) {
			delete(l.windows, k)
		}
	}
}
