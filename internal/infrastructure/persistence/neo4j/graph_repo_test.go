package neo4j

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

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

var testConn *Connection

func TestMain(m *testing.M) {
	os.Exit(runWithNeo4j(m))
}

func runWithNeo4j(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		return m.Run()
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "neo4j",
		Tag:        "5",
		Env:        []string{"NEO4J_AUTH=neo4j/testpassword"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "neo4j container unavailable: %v\n", err)
		return m.Run()
	}
	defer func() { _ = pool.Purge(resource) }()
	_ = resource.Expire(240)

	cfg := DefaultConfig()
	cfg.URI = "neo4j://localhost:" + resource.GetPort("7687/tcp")
	cfg.Password = "testpassword"

	err = pool.Retry(func() error {
		conn, err := Connect(context.Background(), cfg)
		if err != nil {
			return err
		}
		testConn = conn
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "neo4j did not become ready: %v\n", err)
		return m.Run()
	}
	defer func() { _ = testConn.Close(context.Background()) }()

	if err := testConn.EnsureSchema(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		return 1
	}

	return m.Run()
}

func requireGraph(t *testing.T) *GraphRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if testConn == nil {
		t.Skip("docker is not available")
	}
	repo := NewGraphRepository(testConn)
	require.NoError(t, repo.exec(context.Background(), "MATCH (n) DETACH DELETE n", nil))
	return repo
}

func TestGraph_NodesAreIdempotent(t *testing.T) {
	g := requireGraph(t)
	ctx := context.Background()

	first, err := g.AddSeeker(ctx, 1)
	require.NoError(t, err)
	again, err := g.AddSeeker(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, again)

	rec, err := g.AddRecruiter(ctx, 2, 10)
	require.NoError(t, err)
	assert.NotEqual(t, first, rec)
}

func TestGraph_ApplyFlow(t *testing.T) {
	g := requireGraph(t)
	ctx := context.Background()

	_, err := g.AddRecruiter(ctx, 100, 1)
	require.NoError(t, err)
	_, err = g.AddSeeker(ctx, 1)
	require.NoError(t, err)
	_, err = g.AddSeeker(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, g.AddVacancy(ctx, 55, 100))

	created, err := g.Apply(ctx, 1, 55)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = g.Apply(ctx, 1, 55)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = g.Apply(ctx, 2, 55)
	require.NoError(t, err)

	applicants, err := g.Applicants(ctx, 55)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, applicants)

	apps, err := g.Applications(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{55}, apps)

	_, err = g.Apply(ctx, 1, 999)
	assert.True(t, shared.IsNotFound(err))

	require.NoError(t, g.RemoveVacancy(ctx, 55))
	apps, err = g.Applications(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, apps)
}
