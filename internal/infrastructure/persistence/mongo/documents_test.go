package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
	"github.com/sweethome/vacancies-bot/pkg/circuitbreaker"
)

var testConn *Connection

func TestMain(m *testing.M) {
	os.Exit(runWithMongo(m))
}

func runWithMongo(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		return m.Run()
	}
	pool.MaxWait = 90 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mongo container unavailable: %v\n", err)
		return m.Run()
	}
	defer func() { _ = pool.Purge(resource) }()
	_ = resource.Expire(180)

	cfg := DefaultConfig()
	cfg.URI = "mongodb://localhost:" + resource.GetPort("27017/tcp")
	cfg.Database = "sweethome_test"
	cfg.ConnectTimeout = 3 * time.Second

	err = pool.Retry(func() error {
		conn, err := Connect(context.Background(), cfg)
		if err != nil {
			return err
		}
		testConn = conn
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mongo did not become ready: %v\n", err)
		return m.Run()
	}
	defer func() { _ = testConn.Close(context.Background()) }()

	return m.Run()
}

func requireMongo(t *testing.T) *DocumentStore {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if testConn == nil {
		t.Skip("docker is not available")
	}
	require.NoError(t, testConn.Drop(context.Background()))
	return NewDocumentStore(testConn, circuitbreaker.DocumentStoreBreaker(nil))
}

func TestDocumentStore_MalformedRefIsMissing(t *testing.T) {
	// No connection is needed: malformed references never reach the server.
	store := NewDocumentStore(&Connection{queryTimeout: time.Second}, nil)

	body, err := store.GetBody(context.Background(), "not-an-object-id")
	require.NoError(t, err)
	assert.True(t, body.IsAbsent())

	portfolio, err := store.GetPortfolio(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, portfolio.IsAbsent())

	assert.NoError(t, store.DeleteBody(context.Background(), "xyz"))
	assert.True(t, shared.IsNotFound(store.ReplacePortfolio(context.Background(), "xyz", profile.Portfolio{})))
}

func TestDocumentStore_VacancyBodyLifecycle(t *testing.T) {
	store := requireMongo(t)
	ctx := context.Background()

	body, err := vacancy.NewBody("Go developer", "services", 5000)
	require.NoError(t, err)

	ref, err := store.InsertBody(ctx, body)
	require.NoError(t, err)
	assert.Len(t, ref, 24)

	got, err := store.GetBody(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, body, got.MustGet())

	require.NoError(t, store.DeleteBody(ctx, ref))
	require.NoError(t, store.DeleteBody(ctx, ref))

	got, err = store.GetBody(ctx, ref)
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestDocumentStore_PortfolioReplaceKeepsRef(t *testing.T) {
	store := requireMongo(t)
	ctx := context.Background()

	ref, err := store.InsertPortfolio(ctx, profile.Portfolio{Position: "QA"})
	require.NoError(t, err)

	updated := profile.Portfolio{
		Position:    "Backend",
		Experiences: []profile.Experience{{Title: "Go", Description: "bots", Timeline: "2y"}},
	}
	require.NoError(t, store.ReplacePortfolio(ctx, ref, updated))

	got, err := store.GetPortfolio(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, updated, got.MustGet())
}
