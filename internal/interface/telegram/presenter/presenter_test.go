package presenter

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

func TestVacancyCardKeyboard_Arrows(t *testing.T) {
	kb := NewKeyboardBuilder()

	first := kb.VacancyCard(CardState{CanForward: true, CanApply: true})
	_, hasPrev := first.Find(CbSearchPrev)
	_, hasNext := first.Find(CbSearchNext)
	_, hasReset := first.Find(CbSearchReset)
	assert.False(t, hasPrev)
	assert.True(t, hasNext)
	assert.False(t, hasReset)

	last := kb.VacancyCard(CardState{CanBackward: true, Filtered: true})
	_, hasPrev = last.Find(CbSearchPrev)
	_, hasNext = last.Find(CbSearchNext)
	_, hasApply := last.Find(CbSearchApply)
	_, hasReset = last.Find(CbSearchReset)
	assert.True(t, hasPrev)
	assert.False(t, hasNext)
	assert.False(t, hasApply)
	assert.True(t, hasReset)

	for _, row := range last.Rows {
		assert.NotEmpty(t, row)
	}
}

func TestCompanyPageKeyboard(t *testing.T) {
	p := company.Page{
		Companies: []company.Company{{ID: 3, Name: "Acme"}, {ID: 9, Name: "Acme Labs"}},
		Page:      1,
		HasPrev:   true,
		HasNext:   true,
	}
	k := NewKeyboardBuilder().CompanyPage(p, false)

	pick, ok := k.Find("company:pick:9")
	require.True(t, ok)
	assert.Equal(t, "🏢 Acme Labs", pick.Text)

	_, ok = k.Find("company:page:0")
	assert.True(t, ok)
	_, ok = k.Find("company:page:2")
	assert.True(t, ok)
	_, ok = k.Find(CbCompanyNew)
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	id, err := ParseID(WithID(CbDeleteVacancy, 42), CbDeleteVacancy)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseID("vac:del:x", CbDeleteVacancy)
	assert.Error(t, err)
	_, err = ParseID("search:next", CbDeleteVacancy)
	assert.Error(t, err)
}

func TestVacancyCard_EscapesAndShowsFilter(t *testing.T) {
	l := vacancy.Listing{
		Vacancy: vacancy.Vacancy{ID: 1, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		Body:    vacancy.Body{Position: "Go <dev>", Description: "remote", Salary: 150000},
	}
	text := VacancyCard(l, 3, vacancy.Filter{})
	assert.Contains(t, text, "Go &lt;dev&gt;")
	assert.Contains(t, text, "150 000")
	assert.Contains(t, text, "#3")
	assert.NotContains(t, text, "Filter")

	r, err := vacancy.NewSalaryRange(1000, 2000)
	require.NoError(t, err)
	text = VacancyCard(l, 3, vacancy.NewFilter(mo.Some(r), "go"))
	assert.Contains(t, text, "🎛 Filter:")
}

func TestSalary(t *testing.T) {
	assert.Equal(t, "not specified", Salary(0))
	assert.Equal(t, "999", Salary(999))
	assert.Equal(t, "1 000", Salary(1000))
	assert.Equal(t, "1 234 567", Salary(1234567))
}

func TestCompanyCard_UnknownCounters(t *testing.T) {
	text := CompanyCard(query.CompanyCardDTO{
		Company: company.Company{Name: "Acme"},
		Metrics: company.Metrics{Employees: mo.Some[int64](4)},
	})
	assert.Contains(t, text, "Employees: 4")
	assert.Contains(t, text, "Open vacancies: unknown")
}
