package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/application/search"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/memory"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type discardEvents struct{}

func (discardEvents) Publish(shared.Event) error { return nil }

type fixture struct {
	store    *memory.Store
	states   *conversation.MemoryStore
	sessions *search.Registry
	set      *Set
	features Features
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, Features{})
}

func newFixtureWith(t *testing.T, features Features) *fixture {
	t.Helper()

	s := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := discardEvents{}
	cache := s.ProfileCache()

	f := &fixture{
		store:    s,
		states:   conversation.NewMemoryStore(),
		sessions: search.NewRegistry(s.Vacancies(), s, search.RegistryConfig{ChunkLimit: 2}),
		features: features,
	}
	f.set = New(Deps{
		Commands: Commands{
			RegisterUser:      command.NewRegisterUserHandler(s.Users()),
			UpdateUser:        command.NewUpdateUserHandler(s.Users(), cache),
			RegisterSeeker:    command.NewRegisterSeekerHandler(s.Users(), s.Seekers(), s, s, cache, logger),
			UpdatePortfolio:   command.NewUpdatePortfolioHandler(s.Seekers(), s),
			RegisterRecruiter: command.NewRegisterRecruiterHandler(s.Users(), s.Recruiters(), s.Companies(), s, events, cache, logger),
			RegisterCompany:   command.NewRegisterCompanyHandler(s.Companies(), s.Metrics(), logger),
			PublishVacancy:    command.NewPublishVacancyHandler(s.Recruiters(), s.Vacancies(), s, s, events, logger),
			DeleteVacancy:     command.NewDeleteVacancyHandler(s.Recruiters(), s.Vacancies(), s, s, events, logger),
			ApplyToVacancy:    command.NewApplyToVacancyHandler(s.Users(), s.Seekers(), s.Vacancies(), s, s, events, logger),
		},
		Queries: Queries{
			Profile:     query.NewGetProfileHandler(s.Users(), s.Seekers(), s.Recruiters(), cache, logger),
			Portfolio:   query.NewGetPortfolioHandler(s.Seekers(), s),
			Companies:   query.NewSearchCompaniesHandler(s.Companies()),
			CompanyCard: query.NewGetCompanyMetricsHandler(s.Companies(), s.Metrics()),
			Vacancies:   query.NewVacanciesHandler(s.Vacancies(), s, s, s.Users(), s.Seekers(), s),
		},
		Sessions: f.sessions,
		States:   f.states,
		Features: features,
		Logger:   logger,
	})
	return f
}

func text(userID int64, body string) Request {
	return Request{UserID: userID, ChatID: userID, Text: body}
}

func press(userID int64, data string) Request {
	return Request{UserID: userID, ChatID: userID, MessageID: 10, Data: data}
}

func (f *fixture) say(t *testing.T, userID int64, body string) *Response {
	t.Helper()
	resp, err := f.set.Dialog.Text(context.Background(), text(userID, body))
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func (f *fixture) user(t *testing.T, id int64) {
	t.Helper()
	_, err := f.set.Start.deps.Commands.RegisterUser.Handle(context.Background(), command.RegisterUserCommand{
		UserID: id, FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
}

func (f *fixture) seeker(t *testing.T, id int64) {
	t.Helper()
	f.user(t, id)
	_, err := f.set.Start.deps.Commands.RegisterSeeker.Handle(context.Background(), command.RegisterSeekerCommand{
		UserID: id, Position: "Go developer",
	})
	require.NoError(t, err)
}

func (f *fixture) recruiter(t *testing.T, id int64, companyName string) int64 {
	t.Helper()
	f.user(t, id)
	c, err := f.set.Start.deps.Commands.RegisterCompany.Handle(context.Background(), command.RegisterCompanyCommand{Name: companyName})
	require.NoError(t, err)
	_, err = f.set.Start.deps.Commands.RegisterRecruiter.Handle(context.Background(), command.RegisterRecruiterCommand{
		UserID: id, CompanyID: c.ID,
	})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) vacancy(t *testing.T, owner int64, position string, salary int64) int64 {
	t.Helper()
	res, err := f.set.Start.deps.Commands.PublishVacancy.Handle(context.Background(), command.PublishVacancyCommand{
		RecruiterID: owner, Position: position, Description: "Remote", Salary: salary,
	})
	require.NoError(t, err)
	return res.Vacancy.ID
}

func reply(t *testing.T, r *Response) Reply {
	t.Helper()
	require.NotNil(t, r)
	require.NotEmpty(t, r.Replies)
	return r.Replies[0]
}

func hasButton(r Reply, data string) bool {
	if r.Keyboard == nil {
		return false
	}
	_, ok := r.Keyboard.Find(data)
	return ok
}

// ══════════════════════════════════════════════════════════════════════════════
// START
// ══════════════════════════════════════════════════════════════════════════════

func TestStart_RegistersNewUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.set.Start.Start(ctx, text(1, ""))
	require.NoError(t, err)
	assert.Contains(t, reply(t, resp).Text, "first name")

	assert.Contains(t, reply(t, f.say(t, 1, "Ada")).Text, "last name")

	done := reply(t, f.say(t, 1, "Lovelace"))
	assert.Contains(t, done.Text, "registered")
	assert.True(t, hasButton(done, presenter.CbSeekerMenu))

	s, err := f.states.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, s.IsIdle())

	u, err := f.store.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.FullName())
}

func TestStart_EditProfileRenames(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1)
	ctx := context.Background()

	_, err := f.set.Start.EditProfile(ctx, press(1, presenter.CbEditProfile))
	require.NoError(t, err)
	f.say(t, 1, "Grace")
	assert.Contains(t, reply(t, f.say(t, 1, "Hopper")).Text, "updated")

	u, err := f.store.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", u.FullName())
}

func TestDialog_IdleText(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, msgNeedStart, reply(t, f.say(t, 1, "hello")).Text)

	f.user(t, 1)
	assert.True(t, hasButton(reply(t, f.say(t, 1, "hello")), presenter.CbRecruiterMenu))
}

func TestCancel_ClearsStateAndSession(t *testing.T) {
	f := newFixture(t)
	f.seeker(t, 1)
	ctx := context.Background()

	_, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	_, err = f.set.Search.Filter(ctx, press(1, presenter.CbSearchFilter))
	require.NoError(t, err)
	require.Equal(t, 1, f.sessions.Len())

	_, err = f.set.Start.Cancel(ctx, text(1, ""))
	require.NoError(t, err)

	s, err := f.states.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, s.IsIdle())
	assert.Equal(t, 0, f.sessions.Len())
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEKER
// ══════════════════════════════════════════════════════════════════════════════

func TestSeeker_Questionnaire(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1)
	ctx := context.Background()

	resp, err := f.set.Seeker.Menu(ctx, press(1, presenter.CbSeekerMenu))
	require.NoError(t, err)
	assert.Contains(t, reply(t, resp).Text, "position")

	assert.True(t, hasButton(reply(t, f.say(t, 1, "Go developer")), presenter.CbNoExperience))
	f.say(t, 1, "Backend at Acme")
	f.say(t, 1, "Payments API")
	assert.True(t, hasButton(reply(t, f.say(t, 1, "2021–2023")), presenter.CbConfirmExp))

	resp, err = f.set.Seeker.ConfirmExperience(ctx, press(1, presenter.CbConfirmExp))
	require.NoError(t, err)
	assert.True(t, resp.Edit)
	assert.Contains(t, reply(t, resp).Text, "Portfolio saved")

	p, err := f.set.Seeker.deps.Queries.Portfolio.Handle(ctx, 1)
	require.NoError(t, err)
	pf, ok := p.Get()
	require.True(t, ok)
	assert.Equal(t, "Go developer", pf.Position)
	require.Len(t, pf.Experiences, 1)
	assert.Equal(t, "Backend at Acme", pf.Experiences[0].Title)
	assert.Equal(t, "2021–2023", pf.Experiences[0].Timeline)
}

func TestSeeker_StaleButtonExpires(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1)

	resp, err := f.set.Seeker.ConfirmExperience(context.Background(), press(1, presenter.CbConfirmExp))
	require.NoError(t, err)
	assert.Equal(t, msgExpired, resp.Toast)
}

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH
// ══════════════════════════════════════════════════════════════════════════════

func TestSearch_BrowseAndApply(t *testing.T) {
	f := newFixture(t)
	f.recruiter(t, 100, "Acme")
	f.vacancy(t, 100, "Junior Go", 1000)
	f.vacancy(t, 100, "Middle Go", 5000)
	f.vacancy(t, 100, "Senior Go", 9000)
	f.seeker(t, 1)
	ctx := context.Background()

	resp, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	card := reply(t, resp)
	assert.Contains(t, card.Text, "Junior Go")
	assert.True(t, hasButton(card, presenter.CbSearchNext))
	assert.False(t, hasButton(card, presenter.CbSearchPrev))
	assert.True(t, hasButton(card, presenter.CbSearchApply))

	// Crosses into the second chunk.
	for _, want := range []string{"Middle Go", "Senior Go"} {
		resp, err = f.set.Search.Next(ctx, press(1, presenter.CbSearchNext))
		require.NoError(t, err)
		assert.Contains(t, reply(t, resp).Text, want)
	}
	last := reply(t, resp)
	assert.False(t, hasButton(last, presenter.CbSearchNext))
	assert.True(t, hasButton(last, presenter.CbSearchPrev))

	resp, err = f.set.Search.Next(ctx, press(1, presenter.CbSearchNext))
	require.NoError(t, err)
	assert.Equal(t, msgEndReached, resp.Toast)
	assert.Contains(t, reply(t, resp).Text, "Senior Go")

	resp, err = f.set.Search.Apply(ctx, press(1, presenter.CbSearchApply))
	require.NoError(t, err)
	assert.Contains(t, resp.Toast, "Application sent")

	resp, err = f.set.Search.Apply(ctx, press(1, presenter.CbSearchApply))
	require.NoError(t, err)
	assert.Contains(t, resp.Toast, "already applied")

	resp, err = f.set.Seeker.MyApplications(ctx, press(1, presenter.CbMyApplications))
	require.NoError(t, err)
	assert.Contains(t, reply(t, resp).Text, "Senior Go")
}

func TestSearch_FilterJumpsToFirstMatch(t *testing.T) {
	f := newFixture(t)
	f.recruiter(t, 100, "Acme")
	f.vacancy(t, 100, "Junior Go", 1000)
	f.vacancy(t, 100, "Middle Go", 5000)
	f.vacancy(t, 100, "Senior Go", 9000)
	f.seeker(t, 1)
	ctx := context.Background()

	_, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	_, err = f.set.Search.Filter(ctx, press(1, presenter.CbSearchFilter))
	require.NoError(t, err)

	f.say(t, 1, "4000-9500")
	card := reply(t, f.say(t, 1, "-"))
	assert.Contains(t, card.Text, "Middle Go")
	assert.Contains(t, card.Text, "#2")
	assert.True(t, hasButton(card, presenter.CbSearchReset))

	resp, err := f.set.Search.Next(ctx, press(1, presenter.CbSearchNext))
	require.NoError(t, err)
	assert.Contains(t, reply(t, resp).Text, "Senior Go")

	resp, err = f.set.Search.Reset(ctx, press(1, presenter.CbSearchReset))
	require.NoError(t, err)
	assert.False(t, hasButton(reply(t, resp), presenter.CbSearchReset))
}

func TestSearch_FilterWrapsBackward(t *testing.T) {
	f := newFixture(t)
	f.recruiter(t, 100, "Acme")
	f.vacancy(t, 100, "Designer", 1000)
	f.vacancy(t, 100, "Go developer", 5000)
	f.vacancy(t, 100, "Designer", 9000)
	f.seeker(t, 1)
	ctx := context.Background()

	_, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	_, err = f.set.Search.Next(ctx, press(1, presenter.CbSearchNext))
	require.NoError(t, err)
	_, err = f.set.Search.Next(ctx, press(1, presenter.CbSearchNext))
	require.NoError(t, err)

	_, err = f.set.Search.Filter(ctx, press(1, presenter.CbSearchFilter))
	require.NoError(t, err)
	f.say(t, 1, "-")
	assert.Contains(t, reply(t, f.say(t, 1, "go dev")).Text, "Go developer")
}

func TestSearch_FilterWithoutMatches(t *testing.T) {
	f := newFixture(t)
	f.recruiter(t, 100, "Acme")
	f.vacancy(t, 100, "Junior Go", 1000)
	f.seeker(t, 1)
	ctx := context.Background()

	_, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	_, err = f.set.Search.Filter(ctx, press(1, presenter.CbSearchFilter))
	require.NoError(t, err)

	f.say(t, 1, "20000-")
	r := reply(t, f.say(t, 1, "-"))
	assert.Contains(t, r.Text, msgNoMatches)
	assert.True(t, hasButton(r, presenter.CbSearchReset))
}

func TestSearch_InvalidSalaryKeepsStep(t *testing.T) {
	f := newFixture(t)
	f.seeker(t, 1)
	ctx := context.Background()

	_, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	_, err = f.set.Search.Filter(ctx, press(1, presenter.CbSearchFilter))
	require.NoError(t, err)

	assert.Contains(t, reply(t, f.say(t, 1, "lots")).Text, "⚠️")

	s, err := f.states.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, conversation.StepFilterSalary, s.Step)
}

func TestSearch_EmptyBoard(t *testing.T) {
	f := newFixture(t)
	f.seeker(t, 1)

	resp, err := f.set.Search.Open(context.Background(), press(1, presenter.CbSearch))
	require.NoError(t, err)
	assert.Equal(t, msgNoVacancies, reply(t, resp).Text)
}

func TestSearch_ExpiredSession(t *testing.T) {
	f := newFixture(t)
	f.seeker(t, 1)

	resp, err := f.set.Search.Next(context.Background(), press(1, presenter.CbSearchNext))
	require.NoError(t, err)
	assert.Equal(t, msgSessionExpired, reply(t, resp).Text)
}

func TestSearch_ApplicationsGate(t *testing.T) {
	f := newFixtureWith(t, Features{Applications: func(int64) bool { return false }})
	f.recruiter(t, 100, "Acme")
	f.vacancy(t, 100, "Junior Go", 1000)
	f.seeker(t, 1)
	ctx := context.Background()

	resp, err := f.set.Search.Open(ctx, press(1, presenter.CbSearch))
	require.NoError(t, err)
	assert.False(t, hasButton(reply(t, resp), presenter.CbSearchApply))

	resp, err = f.set.Search.Apply(ctx, press(1, presenter.CbSearchApply))
	require.NoError(t, err)
	assert.True(t, resp.Alert)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECRUITER
// ══════════════════════════════════════════════════════════════════════════════

func TestRecruiter_RegisterCompanyAndPublish(t *testing.T) {
	f := newFixture(t)
	f.user(t, 7)
	ctx := context.Background()

	resp, err := f.set.Recruiter.Menu(ctx, press(7, presenter.CbRecruiterMenu))
	require.NoError(t, err)
	assert.Equal(t, msgAskCompany, reply(t, resp).Text)

	results := reply(t, f.say(t, 7, "Ac"))
	assert.True(t, hasButton(results, presenter.CbCompanyNew))

	_, err = f.set.Recruiter.CompanyNew(ctx, press(7, presenter.CbCompanyNew))
	require.NoError(t, err)
	f.say(t, 7, "Acme")
	assert.True(t, hasButton(reply(t, f.say(t, 7, "-")), presenter.CbPublish))

	_, err = f.set.Recruiter.Publish(ctx, press(7, presenter.CbPublish))
	require.NoError(t, err)
	f.say(t, 7, "Go developer")
	f.say(t, 7, "Build <fast> services")
	assert.Contains(t, reply(t, f.say(t, 7, "abc")).Text, "whole number")
	preview := reply(t, f.say(t, 7, "150 000"))
	assert.Contains(t, preview.Text, "150 000")
	assert.Contains(t, preview.Text, "&lt;fast&gt;")

	resp, err = f.set.Recruiter.ConfirmVacancy(ctx, press(7, presenter.CbConfirmVacancy))
	require.NoError(t, err)
	assert.Contains(t, reply(t, resp).Text, "published")

	resp, err = f.set.Recruiter.MyVacancies(ctx, press(7, presenter.CbMyVacancies))
	require.NoError(t, err)
	require.Len(t, resp.Replies, 2)
	assert.Contains(t, resp.Replies[1].Text, "Go developer")
}

func TestRecruiter_PickExistingCompany(t *testing.T) {
	f := newFixture(t)
	companyID := f.recruiter(t, 100, "Acme")
	f.user(t, 7)
	ctx := context.Background()

	_, err := f.set.Recruiter.Menu(ctx, press(7, presenter.CbRecruiterMenu))
	require.NoError(t, err)
	results := reply(t, f.say(t, 7, "acm"))
	pick := presenter.WithID(presenter.CbCompanyPick, companyID)
	require.True(t, hasButton(results, pick))

	resp, err := f.set.Recruiter.CompanyPick(ctx, press(7, pick))
	require.NoError(t, err)
	assert.True(t, hasButton(reply(t, resp), presenter.CbCompanyStats))

	rec, err := f.store.Recruiters().GetByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, companyID, rec.CompanyID)
}

func TestRecruiter_CompanyPagination(t *testing.T) {
	f := newFixture(t)
	// One more than fits on a page.
	for _, name := range []string{"Acme 1", "Acme 2", "Acme 3", "Acme 4", "Acme 5", "Acme 6"} {
		_, err := f.set.Start.deps.Commands.RegisterCompany.Handle(context.Background(), command.RegisterCompanyCommand{Name: name})
		require.NoError(t, err)
	}
	f.user(t, 7)
	ctx := context.Background()

	_, err := f.set.Recruiter.Menu(ctx, press(7, presenter.CbRecruiterMenu))
	require.NoError(t, err)
	first := reply(t, f.say(t, 7, "acme"))
	next := presenter.WithID(presenter.CbCompanyPage, 1)
	require.True(t, hasButton(first, next))

	resp, err := f.set.Recruiter.CompanyPage(ctx, press(7, next))
	require.NoError(t, err)
	second := reply(t, resp)
	assert.Contains(t, second.Text, "page 2")
	assert.False(t, hasButton(second, presenter.WithID(presenter.CbCompanyPage, 2)))
	assert.Len(t, second.Keyboard.Rows, 1+1+1, "one company, nav row, tail row")
}

func TestRecruiter_DeleteAndApplicants(t *testing.T) {
	f := newFixture(t)
	f.recruiter(t, 100, "Acme")
	f.recruiter(t, 200, "Globex")
	id := f.vacancy(t, 100, "Go developer", 5000)
	f.seeker(t, 1)
	ctx := context.Background()

	_, err := f.set.Start.deps.Commands.ApplyToVacancy.Handle(ctx, command.ApplyToVacancyCommand{SeekerID: 1, VacancyID: id})
	require.NoError(t, err)

	resp, err := f.set.Recruiter.Applicants(ctx, press(100, presenter.WithID(presenter.CbVacancyApplicants, id)))
	require.NoError(t, err)
	assert.Contains(t, reply(t, resp).Text, "Ada Lovelace")

	resp, err = f.set.Recruiter.DeleteVacancy(ctx, press(200, presenter.WithID(presenter.CbDeleteVacancy, id)))
	require.NoError(t, err)
	assert.True(t, resp.Alert)

	resp, err = f.set.Recruiter.DeleteVacancy(ctx, press(100, presenter.WithID(presenter.CbDeleteVacancy, id)))
	require.NoError(t, err)
	assert.True(t, resp.Edit)

	_, err = f.store.Vacancies().GetByID(ctx, id)
	assert.ErrorIs(t, err, shared.ErrVacancyNotFound)
}
