package handler

import (
	"context"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEEKER HANDLER
// Seeker menu, portfolio questionnaire and the list of applications.
// ══════════════════════════════════════════════════════════════════════════════

// SeekerHandler handles the seeker side of the bot.
type SeekerHandler struct {
	*base
}

// Menu shows the seeker menu, or starts the portfolio questionnaire for
// users without a seeker profile.
func (h *SeekerHandler) Menu(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	prof, ok := p.Get()
	if !ok {
		return toast(msgNeedStart, true), nil
	}

	if !prof.IsSeeker() {
		return h.ask(ctx, req, conversation.State{}, conversation.StepPosition,
			"🔎 Let's create your seeker profile.\n\nWhat position are you looking for?", nil)
	}

	portfolio, err := h.deps.Queries.Portfolio.Handle(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return edit(req, presenter.Portfolio(portfolio), h.keyboards.SeekerMenu()), nil
}

// EditPortfolio reruns the questionnaire and replaces the portfolio.
func (h *SeekerHandler) EditPortfolio(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if prof, ok := p.Get(); !ok || !prof.IsSeeker() {
		return toast(msgExpired, false), nil
	}

	s := conversation.State{Draft: conversation.Draft{EditingPortfolio: true}}
	return h.ask(ctx, req, s, conversation.StepPosition, "📝 What position are you looking for?", nil)
}

// MyApplications lists the vacancies the seeker applied to.
func (h *SeekerHandler) MyApplications(ctx context.Context, req Request) (*Response, error) {
	items, err := h.deps.Queries.Vacancies.ListApplications(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return edit(req, presenter.VacancyList("📨 <b>My applications</b>", items), h.keyboards.BackTo(presenter.CbSeekerMenu)), nil
}

// NoExperience finishes the questionnaire with the experiences collected
// so far.
func (h *SeekerHandler) NoExperience(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.Step != conversation.StepExperienceTitle {
		return toast(msgExpired, false), nil
	}
	return h.commit(ctx, req, s)
}

// ConfirmExperience keeps the drafted experience and saves the portfolio.
func (h *SeekerHandler) ConfirmExperience(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.Step != conversation.StepExperienceConfirm {
		return toast(msgExpired, false), nil
	}
	s.Draft.Experiences = append(s.Draft.Experiences, s.Draft.Experience)
	s.Draft.Experience = profile.Experience{}
	return h.commit(ctx, req, s)
}

// AddExperience keeps the drafted experience and asks for another one.
func (h *SeekerHandler) AddExperience(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.Step != conversation.StepExperienceConfirm {
		return toast(msgExpired, false), nil
	}
	s.Draft.Experiences = append(s.Draft.Experiences, s.Draft.Experience)
	s.Draft.Experience = profile.Experience{}
	return h.ask(ctx, req, s, conversation.StepExperienceTitle,
		"Title of the next experience? Tap the button to finish.", h.finishKeyboard())
}

func (h *SeekerHandler) finishKeyboard() *presenter.InlineKeyboard {
	return presenter.NewInlineKeyboard().AddRow(presenter.CallbackButton("✅ Finish", presenter.CbNoExperience))
}

// ─────────────────────────────────────────────────────────────────────────────
// Dialogue steps
// ─────────────────────────────────────────────────────────────────────────────

func (h *SeekerHandler) onPosition(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	position := strings.TrimSpace(req.Text)
	if position == "" {
		return send("Please send the position you are looking for.", nil), nil
	}
	s.Draft.Position = position
	s.Draft.Experiences = nil
	return h.ask(ctx, req, s, conversation.StepExperienceTitle,
		"Now your experience. Send the title of a job or project, or tap the button if you have none.",
		h.keyboards.NoExperience())
}

func (h *SeekerHandler) onExperienceTitle(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	title := strings.TrimSpace(req.Text)
	if title == "" {
		return send("Please send a title.", nil), nil
	}
	s.Draft.Experience = profile.Experience{Title: title}
	return h.ask(ctx, req, s, conversation.StepExperienceDescription, "Describe what you did there.", nil)
}

func (h *SeekerHandler) onExperienceDescription(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	s.Draft.Experience.Description = strings.TrimSpace(req.Text)
	return h.ask(ctx, req, s, conversation.StepExperienceTimeline, "When was it? For example: 2021–2023.", nil)
}

func (h *SeekerHandler) onExperienceTimeline(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	s.Draft.Experience.Timeline = strings.TrimSpace(req.Text)
	return h.ask(ctx, req, s, conversation.StepExperienceConfirm,
		presenter.ExperienceSummary(s.Draft.Experience), h.keyboards.ExperienceConfirm())
}

// commit registers the seeker or replaces the portfolio.
func (h *SeekerHandler) commit(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	var err error
	if s.Draft.EditingPortfolio {
		_, err = h.deps.Commands.UpdatePortfolio.Handle(ctx, command.UpdatePortfolioCommand{
			UserID:      req.UserID,
			Position:    s.Draft.Position,
			Experiences: s.Draft.Experiences,
		})
	} else {
		_, err = h.deps.Commands.RegisterSeeker.Handle(ctx, command.RegisterSeekerCommand{
			UserID:      req.UserID,
			Position:    s.Draft.Position,
			Experiences: s.Draft.Experiences,
		})
	}
	if err != nil {
		if err := h.clear(ctx, req.UserID); err != nil {
			return nil, err
		}
		return h.failure(ctx, req, err), nil
	}

	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}
	return edit(req, "✅ Portfolio saved.", h.keyboards.SeekerMenu()), nil
}
