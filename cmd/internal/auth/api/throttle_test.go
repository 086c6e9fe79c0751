package authapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateWindow(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	rule := Rule{Max: 3, Window: 5 * time.Minute}

	blocked, retry := evaluateWindow(now, windowCounter{count: 3, resetAt: now.Add(2 * time.Minute)}, rule)
	assert.True(t, blocked)
	assert.Equal(t, 2*time.Minute, retry)

	blocked, retry = evaluateWindow(now, windowCounter{count: 2, resetAt: now.Add(2 * time.Minute)}, rule)
	assert.False(t, blocked)
	assert.Zero(t, retry)

	blocked, _ = evaluateWindow(now, windowCounter{count: 9, resetAt: now}, rule)
	assert.False(t, blocked, "closed window never blocks")

	blocked, _ = evaluateWindow(now, windowCounter{count: 9, resetAt: now.Add(time.Minute)}, Rule{})
	assert.False(t, blocked, "disabled rule never blocks")
}

func TestMemoryLimiter_WindowLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := NewMemoryLimiter(clock)
	rule := Rule{Max: 2, Window: time.Minute}

	for i := 0; i < 2; i++ {
		blocked, _, err := l.Blocked(ctx, "email:a@example.com", rule)
		require.NoError(t, err)
		require.False(t, blocked)
		require.NoError(t, l.RecordFailure(ctx, "email:a@example.com", rule))
	}

	blocked, retry, err := l.Blocked(ctx, "email:a@example.com", rule)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, time.Minute, retry)

	now = now.Add(time.Minute)
	blocked, _, err = l.Blocked(ctx, "email:a@example.com", rule)
	require.NoError(t, err)
	assert.False(t, blocked, "window elapsed")

	require.NoError(t, l.RecordFailure(ctx, "email:a@example.com", rule))
	require.NoError(t, l.Reset(ctx, "email:a@example.com"))
	blocked, _, err = l.Blocked(ctx, "email:a@example.com", rule)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, WithKeyPrefix("test:login")), mr
}

func TestRedisLimiter_BlocksAfterMax(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	rule := Rule{Max: 3, Window: 10 * time.Minute}

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordFailure(ctx, "ip:10.0.0.1", rule))
	}

	assert.True(t, mr.Exists("test:login:ip:10.0.0.1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("test:login:ip:10.0.0.1"))

	blocked, retry, err := l.Blocked(ctx, "ip:10.0.0.1", rule)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 10*time.Minute, retry)

	mr.FastForward(10 * time.Minute)

	blocked, _, err = l.Blocked(ctx, "ip:10.0.0.1", rule)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRedisLimiter_WindowNotExtendedByLaterFailures(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	rule := Rule{Max: 5, Window: time.Minute}

	require.NoError(t, l.RecordFailure(ctx, "k", rule))
	mr.FastForward(40 * time.Second)
	require.NoError(t, l.RecordFailure(ctx, "k", rule))

	assert.Equal(t, 20*time.Second, mr.TTL("test:login:k"))
}

func TestRedisLimiter_FirstFailureCarriesTTL(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	rule := Rule{Max: 2, Window: time.Minute}

	require.NoError(t, l.RecordFailure(ctx, "email:a@example.com", rule))

	got, err := mr.Get("test:login:email:a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, time.Minute, mr.TTL("test:login:email:a@example.com"))
}

func TestRedisLimiter_CounterWithoutTTLExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)
	rule := Rule{Max: 3, Window: time.Minute}

	// A counter that lost its expiry, e.g. written by an older release.
	require.NoError(t, mr.Set("test:login:ip:10.0.0.9", "7"))
	require.Zero(t, mr.TTL("test:login:ip:10.0.0.9"))

	blocked, retry, err := l.Blocked(ctx, "ip:10.0.0.9", rule)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, time.Minute, retry)
	assert.Equal(t, time.Minute, mr.TTL("test:login:ip:10.0.0.9"))

	mr.FastForward(time.Minute)

	blocked, _, err = l.Blocked(ctx, "ip:10.0.0.9", rule)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRedisLimiter_RecordFailureServerDown(t *testing.T) {
	l, mr := newRedisLimiter(t)
	mr.Close()

	err := l.RecordFailure(context.Background(), "k", Rule{Max: 1, Window: time.Minute})
	require.Error(t, err)
}

func TestRedisLimiter_ResetAndDisabledRule(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	require.NoError(t, l.RecordFailure(ctx, "k", Rule{}))
	assert.False(t, mr.Exists("test:login:k"), "disabled rule records nothing")

	require.NoError(t, l.RecordFailure(ctx, "k", Rule{Max: 1, Window: time.Minute}))
	require.NoError(t, l.Reset(ctx, "k"))
	assert.False(t, mr.Exists("test:login:k"))
}

func TestRedisLimiter_ServerDown(t *testing.T) {
	l, mr := newRedisLimiter(t)
	mr.Close()

	_, _, err := l.Blocked(context.Background(), "k", Rule{Max: 1, Window: time.Minute})
	require.Error(t, err)
}

func TestWriteRateLimited_RoundsUpRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeRateLimited(rec, 1500*time.Millisecond)

	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"rate_limited"`)
}
