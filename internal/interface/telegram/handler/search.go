package handler

import (
	"context"
	"errors"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/application/search"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/middleware"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH HANDLER
// Vacancy browsing over a per-user search.Cursor.
// ══════════════════════════════════════════════════════════════════════════════

const (
	msgNoVacancies    = "📭 There are no vacancies yet. Check back later."
	msgNoMatches      = "📭 No vacancies match your filter."
	msgSessionExpired = "⌛ Your search session has expired. Open the search again."
	msgEndReached     = "No more vacancies in this direction."
	msgEndFiltered    = "No more matching vacancies in this direction."
)

// SearchHandler handles vacancy browsing.
type SearchHandler struct {
	*base
}

// Open starts a fresh browsing session on the first vacancy.
func (h *SearchHandler) Open(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if p.IsAbsent() {
		return h.respond(req, msgNeedStart), nil
	}

	id := search.SessionID(req.UserID)
	if err := h.deps.Sessions.Open(ctx, id); err != nil {
		return nil, err
	}

	var resp *Response
	err = h.deps.Sessions.Do(id, func(s *search.Session) error {
		var err error
		resp, err = h.render(ctx, req, s)
		return err
	})
	if err != nil {
		return h.sessionFailure(ctx, req, err)
	}
	return resp, nil
}

// Next moves to the following vacancy, honouring the active filter.
func (h *SearchHandler) Next(ctx context.Context, req Request) (*Response, error) {
	return h.navigate(ctx, req, search.Forward)
}

// Prev moves to the preceding vacancy, honouring the active filter.
func (h *SearchHandler) Prev(ctx context.Context, req Request) (*Response, error) {
	return h.navigate(ctx, req, search.Backward)
}

func (h *SearchHandler) navigate(ctx context.Context, req Request, dir search.Direction) (*Response, error) {
	var resp *Response
	err := h.deps.Sessions.Do(search.SessionID(req.UserID), func(s *search.Session) error {
		c, f := s.Cursor(), s.Filter()

		var o search.Outcome
		if f.IsEmpty() {
			o = c.Jump(ctx, dir)
		} else {
			o = c.JumpWithFilter(ctx, dir, f)
		}

		switch o.Status {
		case search.StoreError:
			middleware.Logger(ctx, h.logger).Error("search navigation failed",
				"direction", dir.String(), "index", c.Index(), "error", o.Err)
			resp = toast(msgTryLater, false)
			return nil

		case search.NotFound:
			// A filtered scan leaves the cursor where it ran out; show that record.
			r, err := h.render(ctx, req, s)
			if err != nil {
				return err
			}
			r.Toast = msgEndReached
			if !f.IsEmpty() {
				r.Toast = msgEndFiltered
			}
			resp = r
			return nil

		default:
			var err error
			resp, err = h.render(ctx, req, s)
			return err
		}
	})
	if err != nil {
		return h.sessionFailure(ctx, req, err)
	}
	return resp, nil
}

// Apply submits an application to the vacancy under the cursor.
func (h *SearchHandler) Apply(ctx context.Context, req Request) (*Response, error) {
	if !enabled(h.deps.Features.Applications, req.UserID) {
		return toast("Applications are currently disabled.", true), nil
	}

	var (
		current vacancy.Vacancy
		ok      bool
	)
	err := h.deps.Sessions.Do(search.SessionID(req.UserID), func(s *search.Session) error {
		current, ok = s.Cursor().Current().Get()
		return nil
	})
	if err != nil {
		return h.sessionFailure(ctx, req, err)
	}
	if !ok {
		return toast(msgExpired, false), nil
	}

	res, err := h.deps.Commands.ApplyToVacancy.Handle(ctx, command.ApplyToVacancyCommand{
		SeekerID:  req.UserID,
		VacancyID: current.ID,
	})
	switch {
	case errors.Is(err, shared.ErrSeekerNotFound):
		return toast("Create a seeker profile before applying.", true), nil
	case errors.Is(err, shared.ErrVacancyNotFound):
		return toast("This vacancy has been removed.", true), nil
	case err != nil:
		return h.failure(ctx, req, err), nil
	case res.AlreadyApplied:
		return toast("You have already applied to this vacancy.", false), nil
	default:
		return toast("📨 Application sent!", false), nil
	}
}

// Filter asks for a salary range, then for a position pattern.
func (h *SearchHandler) Filter(ctx context.Context, req Request) (*Response, error) {
	err := h.deps.Sessions.Do(search.SessionID(req.UserID), func(*search.Session) error { return nil })
	if err != nil {
		return h.sessionFailure(ctx, req, err)
	}
	return h.ask(ctx, req, conversation.State{}, conversation.StepFilterSalary,
		"💰 Send a salary range such as <code>1000-5000</code>, <code>3000-</code> or <code>-8000</code>.\nSend <code>-</code> for any salary.", nil)
}

// Reset drops the active filter and redraws the current card.
func (h *SearchHandler) Reset(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := h.deps.Sessions.Do(search.SessionID(req.UserID), func(s *search.Session) error {
		s.SetFilter(vacancy.Filter{})
		var err error
		resp, err = h.render(ctx, req, s)
		return err
	})
	if err != nil {
		return h.sessionFailure(ctx, req, err)
	}
	resp.Toast = "Filter cleared."
	return resp, nil
}

// Close ends the browsing session.
func (h *SearchHandler) Close(_ context.Context, req Request) (*Response, error) {
	h.deps.Sessions.Close(search.SessionID(req.UserID))
	return edit(req, "Search closed.", h.keyboards.SeekerMenu()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Dialogue steps
// ─────────────────────────────────────────────────────────────────────────────

func (h *SearchHandler) onFilterSalary(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	if _, err := vacancy.ParseSalaryRange(req.Text); err != nil {
		return h.failure(ctx, req, err), nil
	}
	s.Draft.FilterSalary = req.Text
	return h.ask(ctx, req, s, conversation.StepFilterPosition,
		"🔤 Send a position to look for. Regular expressions work too.\nSend <code>-</code> for any position.", nil)
}

// onFilterPosition installs the filter. The current card stays when it
// already matches; otherwise the cursor scans forward and then backward.
func (h *SearchHandler) onFilterPosition(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	salary, err := vacancy.ParseSalaryRange(s.Draft.FilterSalary)
	if err != nil {
		return h.failure(ctx, req, err), nil
	}
	f := vacancy.NewFilter(salary, req.Text)

	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}

	var resp *Response
	err = h.deps.Sessions.Do(search.SessionID(req.UserID), func(sess *search.Session) error {
		sess.SetFilter(f)
		c := sess.Cursor()

		if c.Empty() {
			resp = send(msgNoVacancies, h.keyboards.SearchEmpty(!f.IsEmpty()))
			return nil
		}

		ok, err := c.Matches(ctx, f)
		if err != nil {
			return err
		}

		if !ok {
			o := c.JumpWithFilter(ctx, search.Forward, f)
			if o.Status == search.NotFound {
				o = c.JumpWithFilter(ctx, search.Backward, f)
			}
			switch o.Status {
			case search.StoreError:
				return o.Err
			case search.NotFound:
				resp = send(msgNoMatches+"\n\n🎛 Filter: "+f.String(), h.keyboards.SearchEmpty(true))
				return nil
			}
		}

		resp, err = h.render(ctx, req, sess)
		return err
	})
	if err != nil {
		return h.sessionFailure(ctx, req, err)
	}
	return resp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────────────────────

// render draws the card under the cursor. Text input gets a new message and
// button presses edit the card in place.
func (h *SearchHandler) render(ctx context.Context, req Request, s *search.Session) (*Response, error) {
	c, f := s.Cursor(), s.Filter()
	if c.Empty() {
		return edit(req, msgNoVacancies, h.keyboards.SearchEmpty(false)), nil
	}

	listing, err := c.CurrentListing(ctx)
	if err != nil {
		return nil, err
	}

	state := presenter.CardState{
		CanBackward: c.CanBackward(),
		CanForward:  c.CanForward(),
		Filtered:    !f.IsEmpty(),
	}

	l, ok := listing.Get()
	if !ok {
		return edit(req, presenter.VacancyMissing(c.Index()+1), h.keyboards.VacancyCard(state)), nil
	}

	state.CanApply = enabled(h.deps.Features.Applications, req.UserID) && !l.Vacancy.IsOwnedBy(req.UserID)
	return edit(req, presenter.VacancyCard(l, c.Index()+1, f), h.keyboards.VacancyCard(state)), nil
}

// sessionFailure maps registry and store errors to replies.
func (h *SearchHandler) sessionFailure(ctx context.Context, req Request, err error) (*Response, error) {
	if errors.Is(err, search.ErrNoSession) {
		return edit(req, msgSessionExpired, h.keyboards.BackTo(presenter.CbSeekerMenu)), nil
	}
	middleware.Logger(ctx, h.logger).Error("search failed", "error", err)
	return h.respond(req, msgTryLater), nil
}
