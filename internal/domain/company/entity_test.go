package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

func TestNewCompany(t *testing.T) {
	c, err := NewCompany("  Acme  ", "acme.io")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, "https://acme.io", c.Website)

	c, err = NewCompany("Acme", "-")
	require.NoError(t, err)
	assert.Empty(t, c.Website)

	_, err = NewCompany(" ", "")
	assert.ErrorIs(t, err, shared.ErrEmptyCompanyName)
	assert.True(t, shared.IsValidation(err))
}

func TestNewPage(t *testing.T) {
	rows := make([]Company, PageSize+1)
	for i := range rows {
		rows[i].ID = int64(i + 1)
	}

	p := NewPage(rows, 0)
	assert.Len(t, p.Companies, PageSize)
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)

	p = NewPage(rows[:2], 3)
	assert.Len(t, p.Companies, 2)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)
}
