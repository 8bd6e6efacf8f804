package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

func TestVacancies_PagingFollowsIDOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Vacancies()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &vacancy.Vacancy{OwnerID: 1}))
	}
	require.NoError(t, repo.Delete(ctx, 2))
	assert.ErrorIs(t, repo.Delete(ctx, 2), shared.ErrVacancyNotFound)

	page, err := repo.LoadPage(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []int64{1, 3}, []int64{page[0].ID, page[1].ID})

	page, err = repo.LoadPage(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(5), page[0].ID)

	page, err = repo.LoadPage(ctx, 2, 10)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCompanies_PrefixSearchIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := New().Companies()

	for _, name := range []string{"Beta", "alpha", "Alphabet"} {
		require.NoError(t, repo.Create(ctx, &company.Company{Name: name}))
	}
	assert.ErrorIs(t, repo.Create(ctx, &company.Company{Name: "BETA"}), shared.ErrCompanyAlreadyExists)

	found, err := repo.SearchByPrefix(ctx, "ALP", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Alphabet", found[0].Name)
	assert.Equal(t, "alpha", found[1].Name)
}

func TestMetrics_NeverNegative(t *testing.T) {
	ctx := context.Background()
	m := New().Metrics()

	got, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Employees.IsAbsent())

	require.NoError(t, m.AddVacancies(ctx, 1, 2))
	require.NoError(t, m.AddVacancies(ctx, 1, -5))
	got, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.OpenVacancies.MustGet())
}

func TestGraph_ApplyOnce(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Apply(ctx, 7, 1)
	assert.ErrorIs(t, err, shared.ErrVacancyNotFound)

	require.NoError(t, s.AddVacancy(ctx, 1, 100))
	require.NoError(t, s.AddVacancy(ctx, 2, 100))

	created, err := s.Apply(ctx, 7, 2)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.Apply(ctx, 7, 2)
	require.NoError(t, err)
	assert.False(t, created)
	_, err = s.Apply(ctx, 7, 1)
	require.NoError(t, err)

	apps, err := s.Applications(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, apps)

	require.NoError(t, s.RemoveVacancy(ctx, 2))
	apps, err = s.Applications(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, apps)
}

func TestCountByCompany_JoinsRecruiters(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Recruiters().Create(ctx, &profile.Recruiter{UserID: 10, CompanyID: 3}))
	require.NoError(t, s.Vacancies().Create(ctx, &vacancy.Vacancy{OwnerID: 10}))
	require.NoError(t, s.Vacancies().Create(ctx, &vacancy.Vacancy{OwnerID: 10}))
	require.NoError(t, s.Vacancies().Create(ctx, &vacancy.Vacancy{OwnerID: 99}))

	counts, err := s.Vacancies().CountByCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{3: 2}, counts)
}

func TestDocuments_MissingIsNone(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.InsertBody(ctx, vacancy.Body{Position: "Go", Salary: 1})
	require.NoError(t, err)
	body, err := s.GetBody(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "Go", body.MustGet().Position)

	require.NoError(t, s.DeleteBody(ctx, ref))
	require.NoError(t, s.DeleteBody(ctx, ref))
	body, err = s.GetBody(ctx, ref)
	require.NoError(t, err)
	assert.True(t, body.IsAbsent())

	assert.ErrorIs(t, s.ReplacePortfolio(ctx, "nope", profile.Portfolio{}), shared.ErrNotFound)
}
