package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, limit, window), mr
}

func TestLimiter_BlocksAfterLimit(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
		require.NoError(t, err)
		assert.False(t, exceeded)
		require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	}

	exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.True(t, exceeded)

	// other purposes and other IPs have their own counters
	exceeded, err = limiter.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "register")
	require.NoError(t, err)
	assert.False(t, exceeded)

	exceeded, err = limiter.CheckIPRateLimitWithPurpose(ctx, "10.0.0.2", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, 1, time.Minute)

	require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	assert.Equal(t, time.Minute, mr.TTL(ipKey("10.0.0.1", "login")))

	// a second hit must not extend the window
	mr.FastForward(30 * time.Second)
	require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	assert.Equal(t, 30*time.Second, mr.TTL(ipKey("10.0.0.1", "login")))

	mr.FastForward(31 * time.Second)
	exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestLimiter_Disabled(t *testing.T) {
	var limiter *Limiter
	exceeded, err := limiter.CheckIPRateLimitWithPurpose(context.Background(), "ip", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.NoError(t, limiter.RecordIPRequestWithPurpose(context.Background(), "ip", "login"))
}

func TestLimiter_RedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	_, err := limiter.CheckIPRateLimitWithPurpose(context.Background(), "ip", "login")
	assert.Error(t, err)
}
