package httpx

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiterSharesWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter, err := NewRedisRateLimiter(mr.Addr(), "", 0, logger)
	require.NoError(t, err)
	defer limiter.Close()

	first := limiter.Allow("ip:1", 2, time.Minute)
	assert.True(t, first.allowed)
	assert.Equal(t, 1, first.count)
	assert.True(t, mr.TTL("cybervault:ratelimit:ip:1") > 0)

	assert.True(t, limiter.Allow("ip:1", 2, time.Minute).allowed)
	third := limiter.Allow("ip:1", 2, time.Minute)
	assert.False(t, third.allowed)
	assert.Equal(t, 3, third.count)

	assert.True(t, limiter.Allow("ip:2", 2, time.Minute).allowed, "keys are independent")

	mr.FastForward(2 * time.Minute)
	assert.True(t, limiter.Allow("ip:1", 2, time.Minute).allowed, "window expired")
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter, err := NewRedisRateLimiter(mr.Addr(), "", 0, logger)
	require.NoError(t, err)
	defer limiter.Close()

	mr.Close()
	assert.True(t, limiter.Allow("ip:1", 1, time.Minute).allowed)
	assert.True(t, limiter.Allow("ip:1", 1, time.Minute).allowed)
}

func TestRedisRateLimiterRequiresServer(t *testing.T) {
	_, err := NewRedisRateLimiter("127.0.0.1:1", "", 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := &memoryRateLimiter{
		entries: make(map[string]rateState),
		stopCh:  make(chan struct{}),
		now:     func() time.Time { return now },
	}

	assert.True(t, rl.Allow("k", 2, time.Minute).allowed)
	assert.True(t, rl.Allow("k", 2, time.Minute).allowed)
	assert.False(t, rl.Allow("k", 2, time.Minute).allowed)

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("k", 2, time.Minute).allowed)

	now = now.Add(10 * time.Minute)
	rl.cleanup(now)
	assert.Empty(t, rl.entries)
}
