// Package handler contains the Telegram conversation handlers.
// Each handler follows the pattern: receive update → check dialogue state →
// call application layer → format response.
package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/application/search"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/middleware"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE
// ══════════════════════════════════════════════════════════════════════════════

// Request is one routed update.
type Request struct {
	// UserID is the sender's Telegram ID. Private chats share it as ChatID.
	UserID int64
	ChatID int64

	// MessageID is the message the callback button belongs to, or the
	// incoming message itself.
	MessageID int64

	// Telegram profile names, used as hints only.
	FirstName string
	LastName  string

	// Text is the message text, or the arguments of a command.
	Text string

	// Data is the callback payload.
	Data string
}

// IsCallback reports whether the request came from an inline button.
func (r Request) IsCallback() bool {
	return r.Data != ""
}

// Reply is one outgoing message.
type Reply struct {
	Text     string
	Keyboard *presenter.InlineKeyboard
}

// Response is what a handler wants sent back.
type Response struct {
	Replies []Reply

	// Edit makes the first reply replace the message the callback came from.
	Edit bool

	// Toast is the callback answer; Alert shows it as a dialog.
	Toast string
	Alert bool
}

func send(text string, kb *presenter.InlineKeyboard) *Response {
	return &Response{Replies: []Reply{{Text: text, Keyboard: kb}}}
}

// edit replaces the originating message for callbacks and sends a new one
// for text input.
func edit(req Request, text string, kb *presenter.InlineKeyboard) *Response {
	return &Response{Replies: []Reply{{Text: text, Keyboard: kb}}, Edit: req.IsCallback()}
}

func toast(text string, alert bool) *Response {
	return &Response{Toast: text, Alert: alert}
}

const (
	msgTryLater  = "😔 Something went wrong. Please try again later."
	msgExpired   = "This button has expired."
	msgNeedStart = "Please send /start to register first."
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Commands groups the write-side handlers the bot drives.
type Commands struct {
	RegisterUser      *command.RegisterUserHandler
	UpdateUser        *command.UpdateUserHandler
	RegisterSeeker    *command.RegisterSeekerHandler
	UpdatePortfolio   *command.UpdatePortfolioHandler
	RegisterRecruiter *command.RegisterRecruiterHandler
	RegisterCompany   *command.RegisterCompanyHandler
	PublishVacancy    *command.PublishVacancyHandler
	DeleteVacancy     *command.DeleteVacancyHandler
	ApplyToVacancy    *command.ApplyToVacancyHandler
}

// Queries groups the read-side handlers the bot drives.
type Queries struct {
	Profile     *query.GetProfileHandler
	Portfolio   *query.GetPortfolioHandler
	Companies   *query.SearchCompaniesHandler
	CompanyCard *query.GetCompanyMetricsHandler
	Vacancies   *query.VacanciesHandler
}

// Features gates optional flows per user. A nil gate means enabled.
type Features struct {
	Applications        func(userID int64) bool
	CompanyRegistration func(userID int64) bool
}

func enabled(gate func(int64) bool, userID int64) bool {
	return gate == nil || gate(userID)
}

// Deps contains everything the handlers need.
type Deps struct {
	Commands Commands
	Queries  Queries
	Sessions *search.Registry
	States   conversation.Store
	Features Features
	Logger   *slog.Logger
}

// Set holds one handler per flow.
type Set struct {
	Start     *StartHandler
	Seeker    *SeekerHandler
	Search    *SearchHandler
	Recruiter *RecruiterHandler
	Dialog    *DialogHandler
}

// New wires all handlers over shared dependencies.
func New(deps Deps) *Set {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	b := &base{
		deps:      deps,
		keyboards: presenter.NewKeyboardBuilder(),
		logger:    deps.Logger,
	}
	s := &Set{
		Start:     &StartHandler{base: b},
		Seeker:    &SeekerHandler{base: b},
		Search:    &SearchHandler{base: b},
		Recruiter: &RecruiterHandler{base: b},
	}
	s.Dialog = &DialogHandler{base: b, set: s}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type base struct {
	deps      Deps
	keyboards *presenter.KeyboardBuilder
	logger    *slog.Logger
}

// lookup returns None for users that never registered.
func (b *base) lookup(ctx context.Context, userID int64) (mo.Option[profile.Profile], error) {
	p, err := b.deps.Queries.Profile.Handle(ctx, query.GetProfileQuery{UserID: userID})
	if err != nil {
		if shared.IsNotFound(err) {
			return mo.None[profile.Profile](), nil
		}
		return mo.None[profile.Profile](), err
	}
	return mo.Some(p), nil
}

func (b *base) state(ctx context.Context, userID int64) (conversation.State, error) {
	return b.deps.States.Get(ctx, userID)
}

func (b *base) save(ctx context.Context, userID int64, s conversation.State) error {
	return b.deps.States.Save(ctx, userID, s)
}

func (b *base) clear(ctx context.Context, userID int64) error {
	return b.deps.States.Clear(ctx, userID)
}

// ask moves the dialogue to step and sends the question.
func (b *base) ask(ctx context.Context, req Request, s conversation.State, step conversation.Step, question string, kb *presenter.InlineKeyboard) (*Response, error) {
	if err := b.save(ctx, req.UserID, s.To(step)); err != nil {
		return nil, err
	}
	return send(question, kb), nil
}

// failure turns an application error into a reply. Validation and
// permission problems are shown to the user; the rest is logged.
func (b *base) failure(ctx context.Context, req Request, err error) *Response {
	var de *shared.DomainError
	switch {
	case shared.IsValidation(err) && errors.As(err, &de) && de.Message != "":
		return b.respond(req, "⚠️ "+de.Message+".")
	case shared.IsValidation(err):
		return b.respond(req, "⚠️ That doesn't look right. Please try again.")
	case shared.IsForbidden(err):
		return b.respond(req, "⛔ You are not allowed to do that.")
	default:
		middleware.Logger(ctx, b.logger).Error("handler failed", "error", err)
		return b.respond(req, msgTryLater)
	}
}

func (b *base) respond(req Request, text string) *Response {
	if req.IsCallback() {
		return toast(text, true)
	}
	return send(text, nil)
}
