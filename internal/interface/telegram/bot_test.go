package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/infrastructure/external/telegram"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/handler"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/middleware"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type sent struct {
	chatID    int64
	messageID int64
	text      string
	markup    *telegram.InlineKeyboardMarkup
	edit      bool
}

type answer struct {
	id    string
	text  string
	alert bool
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sent
	answers  []answer
	editErr  error
}

func (s *fakeSender) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, sent{chatID: p.ChatID, text: p.Text, markup: p.ReplyMarkup})
	return &telegram.Message{MessageID: int64(len(s.messages))}, nil
}

func (s *fakeSender) EditMessageText(_ context.Context, chatID, messageID int64, text, _ string, kb *telegram.InlineKeyboardMarkup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editErr != nil {
		return s.editErr
	}
	s.messages = append(s.messages, sent{chatID: chatID, messageID: messageID, text: text, markup: kb, edit: true})
	return nil
}

func (s *fakeSender) AnswerCallbackQuery(_ context.Context, id, text string, alert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, answer{id: id, text: text, alert: alert})
	return nil
}

func quietConfig() BotConfig {
	cfg := DefaultBotConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Recovery.EnableStackTrace = false
	return cfg
}

func privateMessage(userID int64, text string) *telegram.Update {
	msg := &telegram.Message{
		MessageID: 5,
		From:      &telegram.User{ID: userID, FirstName: "Ada"},
		Chat:      &telegram.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		n := len(text)
		for i, r := range text {
			if r == ' ' {
				n = i
				break
			}
		}
		msg.Entities = []telegram.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return &telegram.Update{UpdateID: 1, Message: msg}
}

func buttonPress(userID int64, data string) *telegram.Update {
	return &telegram.Update{UpdateID: 2, CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-1",
		From: &telegram.User{ID: userID},
		Message: &telegram.Message{
			MessageID: 42,
			Chat:      &telegram.Chat{ID: userID, Type: "private"},
		},
		Data: data,
	}}
}

func reply(text string, kb *presenter.InlineKeyboard) HandlerFunc {
	return func(context.Context, handler.Request) (*handler.Response, error) {
		return &handler.Response{Replies: []handler.Reply{{Text: text, Keyboard: kb}}}, nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

func TestRouter_Commands(t *testing.T) {
	r := NewRouter()
	var got handler.Request
	r.Command("start", func(_ context.Context, req handler.Request) (*handler.Response, error) {
		got = req
		return nil, nil
	})

	m, ok := r.Route(privateMessage(7, "/start@vacancies_bot  ref42 "))
	require.True(t, ok)
	assert.Equal(t, "/start", m.Route)
	_, err := m.Handler(context.Background(), m.Request)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "ref42", got.Text)

	m, ok = r.Route(privateMessage(7, "/nope"))
	require.True(t, ok)
	assert.Equal(t, "/unknown", m.Route)
}

func TestRouter_LongestCallbackPrefixWins(t *testing.T) {
	r := NewRouter()
	r.Callback("vac:", reply("generic", nil))
	r.Callback(presenter.CbDeleteVacancy, reply("delete", nil))

	m, ok := r.Route(buttonPress(7, presenter.WithID(presenter.CbDeleteVacancy, 3)))
	require.True(t, ok)
	assert.Equal(t, "cb:vac:del", m.Route)
	assert.Equal(t, "cb-1", m.CallbackID)
	assert.Equal(t, int64(42), m.Request.MessageID)

	resp, err := m.Handler(context.Background(), m.Request)
	require.NoError(t, err)
	assert.Equal(t, "delete", resp.Replies[0].Text)
}

func TestRouter_IgnoresGroupsAndEmptyText(t *testing.T) {
	r := NewRouter()
	r.Text(reply("text", nil))

	group := privateMessage(7, "hello")
	group.Message.Chat.Type = "group"
	_, ok := r.Route(group)
	assert.False(t, ok)

	_, ok = r.Route(privateMessage(7, "   "))
	assert.False(t, ok)

	_, ok = r.Route(&telegram.Update{UpdateID: 3})
	assert.False(t, ok)
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

func TestBot_CallbackEditsAndAnswers(t *testing.T) {
	r := NewRouter()
	kb := presenter.NewInlineKeyboard().AddRow(presenter.CallbackButton("▶", presenter.CbSearchNext))
	r.Callback(presenter.CbSearchNext, func(context.Context, handler.Request) (*handler.Response, error) {
		return &handler.Response{Replies: []handler.Reply{{Text: "card", Keyboard: kb}}, Edit: true, Toast: "moved"}, nil
	})
	s := &fakeSender{}
	b := NewBot(quietConfig(), s, r)

	require.NoError(t, b.HandleUpdate(context.Background(), buttonPress(7, presenter.CbSearchNext)))

	require.Len(t, s.answers, 1)
	assert.Equal(t, answer{id: "cb-1", text: "moved"}, s.answers[0])
	require.Len(t, s.messages, 1)
	assert.True(t, s.messages[0].edit)
	assert.Equal(t, int64(42), s.messages[0].messageID)
	require.NotNil(t, s.messages[0].markup)
	assert.Equal(t, presenter.CbSearchNext, s.messages[0].markup.InlineKeyboard[0][0].CallbackData)

	snap := b.Metrics()
	require.Len(t, snap.Routes, 1)
	assert.Equal(t, "cb:search:next", snap.Routes[0].Route)
}

func TestBot_FallsBackToSendWhenEditFails(t *testing.T) {
	r := NewRouter()
	r.Callback(presenter.CbMainMenu, func(context.Context, handler.Request) (*handler.Response, error) {
		return &handler.Response{Replies: []handler.Reply{{Text: "menu"}}, Edit: true}, nil
	})
	s := &fakeSender{editErr: &telegram.APIError{Code: 400, Description: "Bad Request: message to edit not found"}}
	b := NewBot(quietConfig(), s, r)

	require.NoError(t, b.HandleUpdate(context.Background(), buttonPress(7, presenter.CbMainMenu)))
	require.Len(t, s.messages, 1)
	assert.False(t, s.messages[0].edit)
	assert.Equal(t, "menu", s.messages[0].text)
}

func TestBot_HandlerErrorAndPanic(t *testing.T) {
	r := NewRouter()
	r.Command("fail", func(context.Context, handler.Request) (*handler.Response, error) {
		return nil, errors.New("postgres: connection reset")
	})
	r.Command("panic", func(context.Context, handler.Request) (*handler.Response, error) {
		panic("nil map")
	})
	s := &fakeSender{}
	cfg := quietConfig()
	cfg.Recovery.UserErrorMessage = "sorry"
	b := NewBot(cfg, s, r)

	require.NoError(t, b.HandleUpdate(context.Background(), privateMessage(7, "/fail")))
	require.NoError(t, b.HandleUpdate(context.Background(), privateMessage(7, "/panic")))

	require.Len(t, s.messages, 2)
	assert.Equal(t, "sorry", s.messages[0].text)
	assert.Equal(t, "sorry", s.messages[1].text)

	snap := b.Metrics()
	assert.Equal(t, int64(1), snap.Panics)
	assert.Equal(t, int64(2), snap.TotalErrors)
}

func TestBot_RateLimited(t *testing.T) {
	calls := 0
	r := NewRouter()
	r.Text(func(context.Context, handler.Request) (*handler.Response, error) {
		calls++
		return nil, nil
	})
	cfg := quietConfig()
	cfg.RateLimit = middleware.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1, IdleTTL: time.Minute}
	s := &fakeSender{}
	b := NewBot(cfg, s, r)

	require.NoError(t, b.HandleUpdate(context.Background(), privateMessage(7, "one")))
	require.NoError(t, b.HandleUpdate(context.Background(), privateMessage(7, "two")))

	assert.Equal(t, 1, calls)
	require.Len(t, s.messages, 1)
	assert.Contains(t, s.messages[0].text, "Too many requests")
	assert.Equal(t, int64(1), b.Metrics().RateLimited)
}

func TestBot_SerializesUpdatesPerUser(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		overlap bool
	)
	r := NewRouter()
	r.Text(func(context.Context, handler.Request) (*handler.Response, error) {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil, nil
	})
	cfg := quietConfig()
	cfg.RateLimit.Whitelisted = map[int64]bool{7: true}
	b := NewBot(cfg, &fakeSender{}, r)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.HandleUpdate(context.Background(), privateMessage(7, "hi"))
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Equal(t, 0, b.users.len())
	require.NoError(t, b.Shutdown(context.Background()))
}
