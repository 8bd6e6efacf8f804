package telegram

import (
	"context"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/infrastructure/external/telegram"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/handler"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Maps commands, callback prefixes and free text to handler funcs.
// ══════════════════════════════════════════════════════════════════════════════

// HandlerFunc handles one routed update.
type HandlerFunc func(ctx context.Context, req handler.Request) (*handler.Response, error)

// Match is a routed update.
type Match struct {
	// Route names the handler for logs and metrics, e.g. "/start" or
	// "cb:search:next".
	Route   string
	Request handler.Request
	Handler HandlerFunc

	// CallbackID is set for button presses and must be answered.
	CallbackID string
}

// Router routes Telegram updates to handlers. Registration is not safe for
// concurrent use; finish it before the bot starts.
type Router struct {
	commands  map[string]HandlerFunc
	callbacks map[string]HandlerFunc
	text      HandlerFunc

	unknownCommand  HandlerFunc
	unknownCallback HandlerFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		commands:  make(map[string]HandlerFunc),
		callbacks: make(map[string]HandlerFunc),
		unknownCommand: func(context.Context, handler.Request) (*handler.Response, error) {
			return &handler.Response{Replies: []handler.Reply{{Text: "Unknown command. Send /help for the list."}}}, nil
		},
		unknownCallback: func(context.Context, handler.Request) (*handler.Response, error) {
			return &handler.Response{Toast: "This button is no longer supported."}, nil
		},
	}
}

// Command registers a handler for "/name".
func (r *Router) Command(name string, h HandlerFunc) {
	r.commands[name] = h
}

// Callback registers a handler for callback data starting with prefix.
// The longest registered prefix wins.
func (r *Router) Callback(prefix string, h HandlerFunc) {
	r.callbacks[prefix] = h
}

// Text registers the handler for plain messages.
func (r *Router) Text(h HandlerFunc) {
	r.text = h
}

// Route resolves an update. It reports false for updates the bot ignores:
// group chats, messages without a sender and unsupported update kinds.
func (r *Router) Route(u *telegram.Update) (Match, bool) {
	switch {
	case u.Message != nil:
		return r.routeMessage(u.Message)
	case u.CallbackQuery != nil:
		return r.routeCallback(u.CallbackQuery)
	default:
		return Match{}, false
	}
}

func (r *Router) routeMessage(msg *telegram.Message) (Match, bool) {
	if msg.From == nil || msg.From.IsBot || !telegram.IsPrivateChat(msg) {
		return Match{}, false
	}

	req := handler.Request{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Text:      strings.TrimSpace(msg.Text),
	}

	if cmd := telegram.ExtractCommand(msg); cmd != "" {
		req.Text = telegram.ExtractCommandArgs(msg)
		h, ok := r.commands[cmd]
		if !ok {
			return Match{Route: "/unknown", Request: req, Handler: r.unknownCommand}, true
		}
		return Match{Route: "/" + cmd, Request: req, Handler: h}, true
	}

	if req.Text == "" || r.text == nil {
		return Match{}, false
	}
	return Match{Route: "text", Request: req, Handler: r.text}, true
}

func (r *Router) routeCallback(cq *telegram.CallbackQuery) (Match, bool) {
	if cq.From == nil {
		return Match{}, false
	}

	req := handler.Request{
		UserID:    cq.From.ID,
		ChatID:    cq.From.ID,
		FirstName: cq.From.FirstName,
		LastName:  cq.From.LastName,
		Data:      cq.Data,
	}
	if cq.Message != nil {
		req.MessageID = cq.Message.MessageID
		if cq.Message.Chat != nil {
			req.ChatID = cq.Message.Chat.ID
		}
	}

	var prefix string
	var h HandlerFunc
	for p, candidate := range r.callbacks {
		if strings.HasPrefix(cq.Data, p) && len(p) > len(prefix) {
			prefix, h = p, candidate
		}
	}
	if h == nil {
		return Match{Route: "cb:unknown", Request: req, Handler: r.unknownCallback, CallbackID: cq.ID}, true
	}
	return Match{Route: "cb:" + strings.TrimSuffix(prefix, ":"), Request: req, Handler: h, CallbackID: cq.ID}, true
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTES
// ══════════════════════════════════════════════════════════════════════════════

// Routes registers every flow of the set.
func Routes(set *handler.Set) *Router {
	r := NewRouter()

	r.Command("start", set.Start.Start)
	r.Command("help", set.Start.Help)
	r.Command("cancel", set.Start.Cancel)
	r.Command("search", set.Search.Open)

	r.Callback(presenter.CbMainMenu, set.Start.MainMenu)
	r.Callback(presenter.CbEditProfile, set.Start.EditProfile)

	r.Callback(presenter.CbSeekerMenu, set.Seeker.Menu)
	r.Callback(presenter.CbEditPortfolio, set.Seeker.EditPortfolio)
	r.Callback(presenter.CbMyApplications, set.Seeker.MyApplications)
	r.Callback(presenter.CbNoExperience, set.Seeker.NoExperience)
	r.Callback(presenter.CbConfirmExp, set.Seeker.ConfirmExperience)
	r.Callback(presenter.CbAddExperience, set.Seeker.AddExperience)

	r.Callback(presenter.CbSearch, set.Search.Open)
	r.Callback(presenter.CbSearchNext, set.Search.Next)
	r.Callback(presenter.CbSearchPrev, set.Search.Prev)
	r.Callback(presenter.CbSearchApply, set.Search.Apply)
	r.Callback(presenter.CbSearchFilter, set.Search.Filter)
	r.Callback(presenter.CbSearchReset, set.Search.Reset)
	r.Callback(presenter.CbSearchClose, set.Search.Close)

	r.Callback(presenter.CbRecruiterMenu, set.Recruiter.Menu)
	r.Callback(presenter.CbCompanyPage, set.Recruiter.CompanyPage)
	r.Callback(presenter.CbCompanyPick, set.Recruiter.CompanyPick)
	r.Callback(presenter.CbCompanyNew, set.Recruiter.CompanyNew)
	r.Callback(presenter.CbCompanyAgain, set.Recruiter.CompanyAgain)
	r.Callback(presenter.CbPublish, set.Recruiter.Publish)
	r.Callback(presenter.CbMyVacancies, set.Recruiter.MyVacancies)
	r.Callback(presenter.CbCompanyStats, set.Recruiter.CompanyStats)
	r.Callback(presenter.CbConfirmVacancy, set.Recruiter.ConfirmVacancy)
	r.Callback(presenter.CbCancelVacancy, set.Recruiter.CancelVacancy)
	r.Callback(presenter.CbDeleteVacancy, set.Recruiter.DeleteVacancy)
	r.Callback(presenter.CbVacancyApplicants, set.Recruiter.Applicants)

	r.Text(set.Dialog.Text)
	return r
}
