package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_ToKeepsDraft(t *testing.T) {
	s := State{Draft: Draft{VacancyPosition: "Go developer"}}
	assert.True(t, s.IsIdle())

	next := s.To(StepVacancyDescription)
	assert.False(t, next.IsIdle())
	assert.Equal(t, "Go developer", next.Draft.VacancyPosition)
	assert.True(t, s.IsIdle(), "the receiver is a copy")
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsIdle())

	require.NoError(t, store.Save(ctx, 1, State{Step: StepFilterSalary}))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepFilterSalary, got.Step)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Clear(ctx, 1))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsIdle())
}
