package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECRUITER HANDLER
// Company lookup and registration, publishing, own vacancies and applicants.
// ══════════════════════════════════════════════════════════════════════════════

const msgAskCompany = "🏢 Which company do you work for? Send the first letters of its name."

// RecruiterHandler handles the recruiter side of the bot.
type RecruiterHandler struct {
	*base
}

// Menu shows the recruiter menu, or starts the company search for users
// without a recruiter profile.
func (h *RecruiterHandler) Menu(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	prof, ok := p.Get()
	if !ok {
		return toast(msgNeedStart, true), nil
	}

	rec, ok := prof.Recruiter.Get()
	if !ok {
		return h.ask(ctx, req, conversation.State{}, conversation.StepCompanyQuery, msgAskCompany, nil)
	}

	title := "🏢 Recruiter menu"
	if card, err := h.deps.Queries.CompanyCard.Handle(ctx, rec.CompanyID); err == nil {
		title = presenter.CompanyCard(*card)
	}
	return edit(req, title, h.keyboards.RecruiterMenu()), nil
}

// recruiter resolves the caller's recruiter profile. A nil profile comes
// with the reply to send instead.
func (h *RecruiterHandler) recruiter(ctx context.Context, req Request) (*profile.Recruiter, *Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, nil, err
	}
	prof, ok := p.Get()
	if !ok {
		return nil, h.respond(req, msgNeedStart), nil
	}
	rec, ok := prof.Recruiter.Get()
	if !ok {
		return nil, h.respond(req, "Open the recruiter menu to pick your company first."), nil
	}
	return &rec, nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Company selection
// ─────────────────────────────────────────────────────────────────────────────

// CompanyPage flips the company search results.
func (h *RecruiterHandler) CompanyPage(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	page, err := presenter.ParseID(req.Data, presenter.CbCompanyPage)
	if err != nil || s.Step != conversation.StepCompanyPick {
		return toast(msgExpired, false), nil
	}
	return h.showCompanies(ctx, req, s, int(page))
}

// CompanyPick registers the caller as a recruiter of the chosen company.
func (h *RecruiterHandler) CompanyPick(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	id, err := presenter.ParseID(req.Data, presenter.CbCompanyPick)
	if err != nil || s.Step != conversation.StepCompanyPick {
		return toast(msgExpired, false), nil
	}
	return h.becomeRecruiter(ctx, req, id)
}

// CompanyNew starts registering a company that was not found.
func (h *RecruiterHandler) CompanyNew(ctx context.Context, req Request) (*Response, error) {
	if !enabled(h.deps.Features.CompanyRegistration, req.UserID) {
		return toast("Registering new companies is currently disabled.", true), nil
	}
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.Step != conversation.StepCompanyPick {
		return toast(msgExpired, false), nil
	}
	return h.ask(ctx, req, s, conversation.StepCompanyName, "🆕 What is the company name?", nil)
}

// CompanyAgain restarts the company search.
func (h *RecruiterHandler) CompanyAgain(ctx context.Context, req Request) (*Response, error) {
	return h.ask(ctx, req, conversation.State{}, conversation.StepCompanyQuery, msgAskCompany, nil)
}

func (h *RecruiterHandler) onCompanyQuery(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	s.Draft.CompanyQuery = strings.TrimSpace(req.Text)
	return h.showCompanies(ctx, req, s, 0)
}

func (h *RecruiterHandler) showCompanies(ctx context.Context, req Request, s conversation.State, page int) (*Response, error) {
	res, err := h.deps.Queries.Companies.Handle(ctx, query.SearchCompaniesQuery{
		Prefix: s.Draft.CompanyQuery,
		Page:   page,
	})
	if err != nil {
		if shared.IsValidation(err) {
			return send("Please send at least one letter of the company name.", nil), nil
		}
		return nil, err
	}

	s.Draft.CompanyPage = res.Page
	if err := h.save(ctx, req.UserID, s.To(conversation.StepCompanyPick)); err != nil {
		return nil, err
	}

	allowNew := enabled(h.deps.Features.CompanyRegistration, req.UserID)
	return edit(req, presenter.CompanyResults(s.Draft.CompanyQuery, res), h.keyboards.CompanyPage(res, allowNew)), nil
}

func (h *RecruiterHandler) onCompanyName(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	name := strings.TrimSpace(req.Text)
	if name == "" {
		return send("Please send the company name.", nil), nil
	}
	s.Draft.CompanyName = name
	return h.ask(ctx, req, s, conversation.StepCompanyWebsite,
		"🌐 Company website? Send <code>-</code> to skip.", nil)
}

func (h *RecruiterHandler) onCompanyWebsite(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	c, err := h.deps.Commands.RegisterCompany.Handle(ctx, command.RegisterCompanyCommand{
		Name:    s.Draft.CompanyName,
		Website: req.Text,
	})
	switch {
	case shared.IsAlreadyExists(err):
		s.Draft.CompanyQuery = s.Draft.CompanyName
		return h.ask(ctx, req, s, conversation.StepCompanyQuery,
			fmt.Sprintf("A company named «%s» already exists. Search for it instead:", html.EscapeString(s.Draft.CompanyName)), nil)
	case err != nil:
		return h.failure(ctx, req, err), nil
	}
	return h.becomeRecruiter(ctx, req, c.ID)
}

func (h *RecruiterHandler) becomeRecruiter(ctx context.Context, req Request, companyID int64) (*Response, error) {
	_, err := h.deps.Commands.RegisterRecruiter.Handle(ctx, command.RegisterRecruiterCommand{
		UserID:    req.UserID,
		CompanyID: companyID,
	})
	switch {
	case errors.Is(err, shared.ErrRecruiterAlreadyExist):
		// Picking a company twice lands on the same menu.
	case errors.Is(err, shared.ErrCompanyNotFound):
		return h.respond(req, "This company no longer exists. Search again."), nil
	case err != nil:
		return h.failure(ctx, req, err), nil
	}

	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}
	return edit(req, "✅ Your recruiter profile is ready.", h.keyboards.RecruiterMenu()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Publishing
// ─────────────────────────────────────────────────────────────────────────────

// Publish starts the vacancy questionnaire.
func (h *RecruiterHandler) Publish(ctx context.Context, req Request) (*Response, error) {
	rec, resp, err := h.recruiter(ctx, req)
	if rec == nil {
		return resp, err
	}
	return h.ask(ctx, req, conversation.State{}, conversation.StepVacancyPosition, "💼 What position are you hiring for?", nil)
}

func (h *RecruiterHandler) onVacancyPosition(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	position := strings.TrimSpace(req.Text)
	if position == "" {
		return send("Please send the position title.", nil), nil
	}
	s.Draft.VacancyPosition = position
	return h.ask(ctx, req, s, conversation.StepVacancyDescription, "📝 Describe the job.", nil)
}

func (h *RecruiterHandler) onVacancyDescription(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	s.Draft.VacancyDescription = strings.TrimSpace(req.Text)
	return h.ask(ctx, req, s, conversation.StepVacancySalary,
		"💰 Monthly salary? Send a whole number, or <code>-</code> if not specified.", nil)
}

func (h *RecruiterHandler) onVacancySalary(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	salary, ok := parseSalary(req.Text)
	if !ok {
		return send("⚠️ Please send a non-negative whole number, or <code>-</code>.", nil), nil
	}
	s.Draft.VacancySalary = salary
	return h.ask(ctx, req, s, conversation.StepVacancyConfirm,
		presenter.VacancyPreview(s.Draft.VacancyPosition, s.Draft.VacancyDescription, salary),
		h.keyboards.VacancyConfirm())
}

func parseSalary(text string) (int64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	if text == "-" || text == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ConfirmVacancy publishes the drafted vacancy.
func (h *RecruiterHandler) ConfirmVacancy(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.Step != conversation.StepVacancyConfirm {
		return toast(msgExpired, false), nil
	}

	_, err = h.deps.Commands.PublishVacancy.Handle(ctx, command.PublishVacancyCommand{
		RecruiterID: req.UserID,
		Position:    s.Draft.VacancyPosition,
		Description: s.Draft.VacancyDescription,
		Salary:      s.Draft.VacancySalary,
	})
	if err != nil {
		return h.failure(ctx, req, err), nil
	}

	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}
	return edit(req, "✅ Vacancy published.", h.keyboards.RecruiterMenu()), nil
}

// CancelVacancy drops the draft.
func (h *RecruiterHandler) CancelVacancy(ctx context.Context, req Request) (*Response, error) {
	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}
	return edit(req, "Publishing cancelled.", h.keyboards.RecruiterMenu()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Own vacancies
// ─────────────────────────────────────────────────────────────────────────────

// MyVacancies sends one message per vacancy, each with its own buttons.
func (h *RecruiterHandler) MyVacancies(ctx context.Context, req Request) (*Response, error) {
	rec, resp, err := h.recruiter(ctx, req)
	if rec == nil {
		return resp, err
	}

	items, err := h.deps.Queries.Vacancies.ListOwn(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return edit(req, "📋 You have not published any vacancies yet.", h.keyboards.RecruiterMenu()), nil
	}

	out := edit(req, fmt.Sprintf("📋 <b>My vacancies</b>: %d", len(items)), h.keyboards.BackTo(presenter.CbRecruiterMenu))
	for _, v := range items {
		out.Replies = append(out.Replies, Reply{Text: presenter.OwnVacancy(v), Keyboard: h.keyboards.OwnVacancy(v)})
	}
	return out, nil
}

// DeleteVacancy removes one of the caller's vacancies.
func (h *RecruiterHandler) DeleteVacancy(ctx context.Context, req Request) (*Response, error) {
	id, err := presenter.ParseID(req.Data, presenter.CbDeleteVacancy)
	if err != nil {
		return toast(msgExpired, false), nil
	}

	err = h.deps.Commands.DeleteVacancy.Handle(ctx, command.DeleteVacancyCommand{
		RecruiterID: req.UserID,
		VacancyID:   id,
	})
	switch {
	case shared.IsForbidden(err):
		return toast("⛔ This vacancy belongs to another recruiter.", true), nil
	case shared.IsNotFound(err):
		return toast("This vacancy was already deleted.", false), nil
	case err != nil:
		return h.failure(ctx, req, err), nil
	}

	out := edit(req, "🗑 Vacancy deleted.", nil)
	out.Toast = "Deleted."
	return out, nil
}

// Applicants lists the seekers who applied to one of the caller's vacancies.
func (h *RecruiterHandler) Applicants(ctx context.Context, req Request) (*Response, error) {
	id, err := presenter.ParseID(req.Data, presenter.CbVacancyApplicants)
	if err != nil {
		return toast(msgExpired, false), nil
	}

	applicants, err := h.deps.Queries.Vacancies.ListApplicants(ctx, req.UserID, id)
	switch {
	case shared.IsForbidden(err):
		return toast("⛔ This vacancy belongs to another recruiter.", true), nil
	case shared.IsNotFound(err):
		return toast("This vacancy was deleted.", false), nil
	case err != nil:
		return nil, err
	}

	position := fmt.Sprintf("Vacancy #%d", id)
	if own, err := h.deps.Queries.Vacancies.ListOwn(ctx, req.UserID); err == nil {
		for _, v := range own {
			if v.ID == id {
				position = v.Position()
				break
			}
		}
	}
	return send(presenter.Applicants(position, applicants), nil), nil
}

// CompanyStats shows the counters of the caller's company.
func (h *RecruiterHandler) CompanyStats(ctx context.Context, req Request) (*Response, error) {
	rec, resp, err := h.recruiter(ctx, req)
	if rec == nil {
		return resp, err
	}

	card, err := h.deps.Queries.CompanyCard.Handle(ctx, rec.CompanyID)
	if err != nil {
		return nil, err
	}
	return edit(req, presenter.CompanyCard(*card), h.keyboards.CompanyStats(card.Company.Website)), nil
}
