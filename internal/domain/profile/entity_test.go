package profile

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser(10, " Ada ", "Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.FullName())

	_, err = NewUser(0, "Ada", "Lovelace")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = NewUser(10, "Ada", "  ")
	assert.ErrorIs(t, err, shared.ErrEmptyName)
}

func TestUser_RenameKeepsOldNamesOnError(t *testing.T) {
	u, err := NewUser(1, "Ada", "Lovelace")
	require.NoError(t, err)

	assert.Error(t, u.Rename("", "Byron"))
	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, "Lovelace", u.LastName)
}

func TestNewPortfolio(t *testing.T) {
	p, err := NewPortfolio(" Backend developer ", []Experience{
		{Title: " Go dev ", Description: " services ", Timeline: "2020-2023"},
		{Title: "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Backend developer", p.Position)
	require.Len(t, p.Experiences, 1)
	assert.Equal(t, Experience{Title: "Go dev", Description: "services", Timeline: "2020-2023"}, p.Experiences[0])

	p, err = NewPortfolio("QA", nil)
	require.NoError(t, err)
	assert.Empty(t, p.Experiences)

	_, err = NewPortfolio("", nil)
	assert.ErrorIs(t, err, shared.ErrEmptyPosition)
}

func TestProfile_Roles(t *testing.T) {
	p := Profile{User: User{ID: 1}}
	assert.False(t, p.IsSeeker())
	assert.False(t, p.IsRecruiter())

	p.Recruiter = mo.Some(Recruiter{UserID: 1, CompanyID: 2})
	assert.True(t, p.IsRecruiter())
}
