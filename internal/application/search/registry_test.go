package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(n int) (*Registry, *fakeLoader, *fakeClock) {
	loader, bodies := seed(n)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(loader, bodies, RegistryConfig{ChunkLimit: 3, Now: clock.Now})
	return r, loader, clock
}

func TestRegistry_OpenAndDo(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(5)

	require.NoError(t, r.Open(ctx, 42))
	assert.Equal(t, 1, r.Len())

	err := r.Do(42, func(s *Session) error {
		assert.Equal(t, SessionID(42), s.ID())
		assert.Equal(t, 3, s.Cursor().Limit())
		assert.True(t, s.Filter().IsEmpty())
		require.True(t, s.Cursor().Jump(ctx, Forward).OK())
		return nil
	})
	require.NoError(t, err)

	// State persists across calls.
	err = r.Do(42, func(s *Session) error {
		assert.Equal(t, 1, s.Cursor().Index())
		return nil
	})
	require.NoError(t, err)
}

func TestRegistry_DoUnknownSession(t *testing.T) {
	r, _, _ := newTestRegistry(1)

	err := r.Do(7, func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRegistry_DoPropagatesCallbackError(t *testing.T) {
	r, _, _ := newTestRegistry(1)
	require.NoError(t, r.Open(context.Background(), 1))

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Do(1, func(*Session) error { return boom }), boom)
}

func TestRegistry_OpenReplacesCursorAndFilter(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(5)
	require.NoError(t, r.Open(ctx, 1))

	require.NoError(t, r.Do(1, func(s *Session) error {
		s.SetFilter(vacancy.NewFilter(s.Filter().Salary, "go"))
		s.Cursor().Jump(ctx, Forward)
		return nil
	}))

	require.NoError(t, r.Open(ctx, 1))

	require.NoError(t, r.Do(1, func(s *Session) error {
		assert.Equal(t, 0, s.Cursor().Index())
		assert.True(t, s.Filter().IsEmpty())
		return nil
	}))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_OpenFailureLeavesNoSession(t *testing.T) {
	r, loader, _ := newTestRegistry(5)
	loader.err = errors.New("db down")

	assert.Error(t, r.Open(context.Background(), 1))
	assert.Zero(t, r.Len())
}

func TestRegistry_Close(t *testing.T) {
	r, _, _ := newTestRegistry(2)
	require.NoError(t, r.Open(context.Background(), 1))

	assert.True(t, r.Close(1))
	assert.False(t, r.Close(1))
	assert.ErrorIs(t, r.Do(1, func(*Session) error { return nil }), ErrNoSession)
}

func TestRegistry_SweepRemovesIdleSessions(t *testing.T) {
	ctx := context.Background()
	r, _, clock := newTestRegistry(2)

	require.NoError(t, r.Open(ctx, 1))
	require.NoError(t, r.Open(ctx, 2))

	clock.Advance(20 * time.Minute)
	require.NoError(t, r.Do(2, func(*Session) error { return nil }))
	clock.Advance(15 * time.Minute)

	removed := r.Sweep(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Len())
	assert.ErrorIs(t, r.Do(1, func(*Session) error { return nil }), ErrNoSession)
	assert.NoError(t, r.Do(2, func(*Session) error { return nil }))
}

func TestRegistry_ConcurrentSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(30)

	var wg sync.WaitGroup
	for id := SessionID(1); id <= 8; id++ {
		require.NoError(t, r.Open(ctx, id))
		wg.Add(1)
		go func(id SessionID) {
			defer wg.Done()
			for i := 0; i < int(id); i++ {
				_ = r.Do(id, func(s *Session) error {
					s.Cursor().Jump(ctx, Forward)
					return nil
				})
			}
		}(id)
	}
	wg.Wait()

	for id := SessionID(1); id <= 8; id++ {
		require.NoError(t, r.Do(id, func(s *Session) error {
			assert.Equal(t, int(id), s.Cursor().Index())
			return nil
		}))
	}
}
