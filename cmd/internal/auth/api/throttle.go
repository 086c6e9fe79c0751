package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule bounds failed login attempts per key within a fixed window.
// A non-positive Max disables the rule.
type Rule struct {
	Max    int
	Window time.Duration
}

// Limiter tracks failed login attempts.
//
// Blocked reports whether key already reached rule.Max failures in the current window and,
// if so, how long until the window closes. RecordFailure counts one failure; the first
// failure opens the window. Reset forgets the key (used after a successful login).
type Limiter interface {
	Blocked(ctx context.Context, key string, rule Rule) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, key string, rule Rule) error
	Reset(ctx context.Context, key string) error
}

// ---- redis ----

// RedisLimiter keeps fixed-window counters in Redis so every instance shares them.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
}

// RedisLimiterOption configures a RedisLimiter.
type RedisLimiterOption func(*RedisLimiter)

// WithKeyPrefix sets the key namespace (default "pedeai:login").
func WithKeyPrefix(prefix string) RedisLimiterOption {
	return func(l *RedisLimiter) {
		l.prefix = prefix
	}
}

// NewRedisLimiter wraps an existing client. The caller owns the client.
func NewRedisLimiter(client redis.Cmdable, opts ...RedisLimiterOption) *RedisLimiter {
	l := &RedisLimiter{client: client, prefix: "pedeai:login"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLimiter) key(k string) string {
	if l.prefix == "" {
		return k
	}
	return l.prefix + ":" + k
}

func (l *RedisLimiter) Blocked(ctx context.Context, key string, rule Rule) (bool, time.Duration, error) {
	if rule.Max <= 0 {
		return false, 0, nil
	}
	full := l.key(key)

	n, err := l.client.Get(ctx, full).Int()
	if errors.Is(err, redis.Nil) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("throttle get: %w", err)
	}
	if n < rule.Max {
		return false, 0, nil
	}

	ttl, err := l.client.TTL(ctx, full).Result()
	if err != nil {
		return false, 0, fmt.Errorf("throttle ttl: %w", err)
	}
	if ttl <= 0 {
		// A counter left without expiry would block forever; give it one window.
		if err := l.client.Expire(ctx, full, rule.Window).Err(); err != nil {
			return false, 0, fmt.Errorf("throttle expire: %w", err)
		}
		ttl = rule.Window
	}
	return true, ttl, nil
}

// RecordFailure counts one failure. The counter is created with its TTL and
// incremented in one MULTI/EXEC, so it never exists without an expiry, and later
// failures do not extend the window.
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string, rule Rule) error {
	if rule.Max <= 0 {
		return nil
	}
	full := l.key(key)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, full, 0, rule.Window)
		pipe.Incr(ctx, full)
		return nil
	})
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("throttle del: %w", err)
	}
	return nil
}

// ---- memory ----

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a single-process Limiter for development and tests.
type MemoryLimiter struct {
	mu       sync.Mutex
	now      func() time.Time
	counters map[string]windowCounter
}

// NewMemoryLimiter returns an empty limiter. A nil clock uses time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, counters: make(map[string]windowCounter)}
}

func (l *MemoryLimiter) Blocked(_ context.Context, key string, rule Rule) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok {
		return false, 0, nil
	}
	now := l.now()
	if !c.resetAt.After(now) {
		delete(l.counters, key)
		return false, 0, nil
	}
	blocked, retry := evaluateWindow(now, c, rule)
	return blocked, retry, nil
}

func (l *MemoryLimiter) RecordFailure(_ context.Context, key string, rule Rule) error {
	if rule.Max <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.counters[key]
	if !c.resetAt.After(now) {
		c = windowCounter{resetAt: now.Add(rule.Window)}
	}
	c.count++
	l.counters[key] = c
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
	return nil
}

// evaluateWindow is the pure decision shared by tests: blocked while the window is open
// and the count reached Max; retry is the time left in the window.
func evaluateWindow(now time.Time, c windowCounter, rule Rule) (bool, time.Duration) {
	if rule.Max <= 0 || !c.resetAt.After(now) {
		return false, 0
	}
	if c.count < rule.Max {
		return false, 0
	}
	return true, c.resetAt.Sub(now)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*MemoryLimiter)(nil)
)
