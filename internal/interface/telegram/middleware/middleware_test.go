package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         3,
		IdleTTL:           time.Minute,
		Now:               clock.Now,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Check(1).Allowed, "request %d", i)
	}
	res := rl.Check(1)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.Contains(t, res.Message(), "Too many requests")

	// Other users have their own bucket.
	assert.True(t, rl.Check(2).Allowed)

	clock.Advance(time.Second)
	assert.True(t, rl.Check(1).Allowed)
}

func TestRateLimiter_BanAndWhitelist(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 1,
		BurstSize:         1,
		BanThreshold:      2,
		BanDuration:       time.Minute,
		Whitelisted:       map[int64]bool{99: true},
		Now:               clock.Now,
	})

	require.True(t, rl.Check(1).Allowed)
	assert.False(t, rl.Check(1).IsBanned)
	assert.True(t, rl.Check(1).IsBanned)

	clock.Advance(30 * time.Second)
	assert.True(t, rl.Check(1).IsBanned)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Check(99).Allowed)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 5, IdleTTL: time.Minute, Now: clock.Now})

	rl.Check(1)
	clock.Advance(30 * time.Second)
	rl.Check(2)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Len())
}

func TestRecovery(t *testing.T) {
	var seen *PanicInfo
	m := NewRecoveryMiddleware(RecoveryConfig{
		UserErrorMessage: "oops",
		OnPanic:          func(_ context.Context, info *PanicInfo) { seen = info },
	})
	ctx, reqID := ContextWithRequestID(context.Background())

	res := m.Run(ctx, 7, "search:next", func() error { panic("boom") })
	assert.True(t, res.Recovered)
	assert.Equal(t, "oops", res.UserMessage)
	require.NotNil(t, seen)
	assert.Equal(t, reqID, seen.RequestID)
	assert.Equal(t, int64(7), seen.TelegramID)
	assert.EqualError(t, seen.Error, "boom")

	want := errors.New("handler failed")
	res = m.Run(ctx, 7, "start", func() error { return want })
	assert.False(t, res.Recovered)
	assert.ErrorIs(t, res.Err, want)
}

func TestMetrics(t *testing.T) {
	m := NewMetricsMiddleware(DefaultMetricsConfig())

	m.Start("start", 1)(nil)
	m.Start("start", 2)(errors.New("x"))
	done := m.Start("search:next", 1)
	m.RecordRateLimited()

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(1), s.TotalErrors)
	assert.Equal(t, int64(1), s.ActiveRequests)
	assert.Equal(t, int64(1), s.RateLimited)
	require.Len(t, s.Routes, 1)
	assert.Equal(t, int64(2), s.Routes[0].Count)
	assert.Equal(t, int64(1), s.Routes[0].Errors)

	done(nil)
	assert.Len(t, m.Snapshot().Routes, 2)
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithTelegramID(context.Background(), 42)
	assert.Equal(t, int64(42), TelegramIDFromContext(ctx))
	assert.Empty(t, RequestIDFrom(ctx))

	ctx, id := ContextWithRequestID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, RequestIDFrom(ctx))
}
