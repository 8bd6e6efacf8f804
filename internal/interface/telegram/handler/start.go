package handler

import (
	"context"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/application/search"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// /start, /help, /cancel, the main menu and user registration.
// ══════════════════════════════════════════════════════════════════════════════

// StartHandler handles entry commands and the user profile.
type StartHandler struct {
	*base
}

// Start shows the main menu, or asks for the first name of a new user.
func (h *StartHandler) Start(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}

	if u, ok := p.Get(); ok {
		return send(presenter.Welcome(u.User), h.keyboards.MainMenu()), nil
	}

	return h.ask(ctx, req, conversation.State{}, conversation.StepFirstName,
		"Welcome to the job board! 👋\n\nLet's get you registered. What is your first name?", nil)
}

// Help lists the commands.
func (h *StartHandler) Help(_ context.Context, _ Request) (*Response, error) {
	return send(presenter.Help(), nil), nil
}

// Cancel drops any pending question and closes the search session.
func (h *StartHandler) Cancel(ctx context.Context, req Request) (*Response, error) {
	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}
	h.deps.Sessions.Close(search.SessionID(req.UserID))

	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if p.IsAbsent() {
		return send("Cancelled. "+msgNeedStart, nil), nil
	}
	return send("Cancelled.", h.keyboards.MainMenu()), nil
}

// MainMenu redraws the main menu in place.
func (h *StartHandler) MainMenu(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	u, ok := p.Get()
	if !ok {
		return toast(msgNeedStart, true), nil
	}
	return edit(req, presenter.Welcome(u.User), h.keyboards.MainMenu()), nil
}

// EditProfile starts renaming the user.
func (h *StartHandler) EditProfile(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if p.IsAbsent() {
		return toast(msgNeedStart, true), nil
	}

	s := conversation.State{Draft: conversation.Draft{Renaming: true}}
	return h.ask(ctx, req, s, conversation.StepFirstName, "✏️ Send your new first name.", nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dialogue steps
// ─────────────────────────────────────────────────────────────────────────────

func (h *StartHandler) onFirstName(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	name := strings.TrimSpace(req.Text)
	if name == "" {
		return send("Please send a non-empty first name.", nil), nil
	}
	s.Draft.FirstName = name
	return h.ask(ctx, req, s, conversation.StepLastName, "And your last name?", nil)
}

func (h *StartHandler) onLastName(ctx context.Context, req Request, s conversation.State) (*Response, error) {
	last := strings.TrimSpace(req.Text)
	if last == "" {
		return send("Please send a non-empty last name.", nil), nil
	}

	var err error
	if s.Draft.Renaming {
		_, err = h.deps.Commands.UpdateUser.Handle(ctx, command.UpdateUserCommand{
			UserID: req.UserID, FirstName: s.Draft.FirstName, LastName: last,
		})
	} else {
		_, err = h.deps.Commands.RegisterUser.Handle(ctx, command.RegisterUserCommand{
			UserID: req.UserID, FirstName: s.Draft.FirstName, LastName: last,
		})
	}
	if err != nil && !shared.IsAlreadyExists(err) {
		if shared.IsValidation(err) {
			return h.failure(ctx, req, err), nil
		}
		return nil, err
	}

	if err := h.clear(ctx, req.UserID); err != nil {
		return nil, err
	}

	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	u, ok := p.Get()
	if !ok {
		return send(msgTryLater, nil), nil
	}
	if s.Draft.Renaming {
		return send("✅ Profile updated.\n\n"+presenter.Welcome(u.User), h.keyboards.MainMenu()), nil
	}
	return send("✅ You are registered.\n\n"+presenter.Welcome(u.User), h.keyboards.MainMenu()), nil
}
