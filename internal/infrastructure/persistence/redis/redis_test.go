package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
)

var testCache *Cache

func TestMain(m *testing.M) {
	os.Exit(runWithRedis(m))
}

func runWithRedis(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		return m.Run()
	}
	pool.MaxWait = 60 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis container unavailable: %v\n", err)
		return m.Run()
	}
	defer func() { _ = pool.Purge(resource) }()
	_ = resource.Expire(120)

	cfg := DefaultConfig()
	cfg.URL = "redis://localhost:" + resource.GetPort("6379/tcp") + "/0"

	err = pool.Retry(func() error {
		c, err := NewCache(context.Background(), cfg)
		if err != nil {
			return err
		}
		testCache = c
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis did not become ready: %v\n", err)
		return m.Run()
	}
	defer func() { _ = testCache.Close() }()

	return m.Run()
}

func requireRedis(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if testCache == nil {
		t.Skip("docker is not available")
	}
	require.NoError(t, testCache.FlushDB(context.Background()))
	return testCache
}

// ──────────────────────────────────────────────────────────────────────────────

func TestKeys(t *testing.T) {
	assert.Equal(t, "company:7:employees", CompanyEmployeesKey(7))
	assert.Equal(t, "company:7:vacancies", CompanyVacanciesKey(7))
	assert.Equal(t, "profile:42", ProfileKey(42))
	assert.Equal(t, "conversation:42", ConversationKey(42))
}

func TestConfig_Options(t *testing.T) {
	opts, err := Config{URL: "redis://:secret@cache:6380/2"}.options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = DefaultConfig().options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	_, err = Config{URL: "http://nope"}.options()
	assert.Error(t, err)
}

func TestCompanyMetrics_Counters(t *testing.T) {
	c := requireRedis(t)
	ctx := context.Background()
	m := NewCompanyMetrics(c)

	metrics, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, metrics.Employees.IsAbsent())
	assert.True(t, metrics.OpenVacancies.IsAbsent())

	require.NoError(t, m.AddEmployees(ctx, 1, 2))
	require.NoError(t, m.AddVacancies(ctx, 1, 1))
	require.NoError(t, m.AddVacancies(ctx, 1, -5))

	metrics, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, mo.Some[int64](2), metrics.Employees)
	assert.Equal(t, mo.Some[int64](0), metrics.OpenVacancies)

	require.NoError(t, m.Set(ctx, 1, 10, 4))
	metrics, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, mo.Some[int64](10), metrics.Employees)
	assert.Equal(t, mo.Some[int64](4), metrics.OpenVacancies)
}

func TestProfileCache_RoundTrip(t *testing.T) {
	c := requireRedis(t)
	ctx := context.Background()
	pc := NewProfileCache(c)

	got, err := pc.Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())

	p := profile.Profile{
		User:   profile.User{ID: 5, FirstName: "Ada", LastName: "Lovelace"},
		Seeker: mo.Some(profile.Seeker{UserID: 5, PortfolioRef: "abc"}),
	}
	require.NoError(t, pc.Set(ctx, p))

	got, err = pc.Get(ctx, 5)
	require.NoError(t, err)
	cached, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, "Ada", cached.User.FirstName)
	assert.True(t, cached.IsSeeker())
	assert.False(t, cached.IsRecruiter())
	assert.Equal(t, "abc", cached.Seeker.MustGet().PortfolioRef)

	require.NoError(t, pc.Invalidate(ctx, 5))
	got, err = pc.Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestConversationStore_Lifecycle(t *testing.T) {
	c := requireRedis(t)
	ctx := context.Background()
	s := NewConversationStore(c, time.Minute)

	state, err := s.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, state.IsIdle())

	next := conversation.State{Step: conversation.StepLastName, Draft: conversation.Draft{FirstName: "Grace"}}
	require.NoError(t, s.Save(ctx, 9, next))

	state, err = s.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, conversation.StepLastName, state.Step)
	assert.Equal(t, "Grace", state.Draft.FirstName)
	assert.False(t, state.UpdatedAt.IsZero())

	ttl, err := c.Client().TTL(ctx, ConversationKey(9)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Clear(ctx, 9))
	state, err = s.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, state.IsIdle())
}
