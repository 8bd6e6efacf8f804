package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/config"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/pkg/logger"
)

func TestOpen_MemoryBackend(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageMemory}

	st, err := Open(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer st.Close(context.Background())

	assert.Nil(t, st.Postgres)
	require.Contains(t, st.Checks, "memory")
	assert.NoError(t, st.Checks["memory"].Ping(context.Background()))

	// Every port is served by the same in-memory store, so writes through
	// one are visible through the others.
	ctx := context.Background()
	require.NoError(t, st.Users.Create(ctx, &profile.User{ID: 7, FirstName: "Ann", LastName: "Lee"}))
	u, err := st.Users.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)

	ref, err := st.Graph.AddSeeker(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}
