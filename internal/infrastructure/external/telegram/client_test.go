package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/pkg/circuitbreaker"
	"github.com/sweethome/vacancies-bot/pkg/retry"
)

func newTestClient(t *testing.T, h http.HandlerFunc, breaker *circuitbreaker.CircuitBreaker) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("TOKEN")
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 1000
	cfg.Retrier = retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(2*time.Millisecond),
	)
	cfg.Breaker = breaker
	return NewClient(cfg)
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestSendMessage(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, http.StatusOK, `{"ok":true,"result":{"message_id":7,"chat":{"id":42,"type":"private"},"text":"hi"}}`)
	}, nil)

	msg, err := c.SendMessage(context.Background(), SendMessageParams{
		ChatID:      42,
		Text:        "hi",
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{{Text: "▶", CallbackData: "search:next"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.MessageID)
	assert.Equal(t, float64(42), got["chat_id"])
	assert.Contains(t, got, "reply_markup")
}

func TestCallAPI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			reply(w, http.StatusBadGateway, `bad gateway`)
			return
		}
		reply(w, http.StatusOK, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"jobs_bot"}}`)
	}, nil)

	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jobs_bot", me.Username)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallAPI_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		reply(w, http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	}, nil)

	err := c.Notify(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.True(t, IsBlocked(err))
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallAPI_HonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			reply(w, http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":1}}`)
			return
		}
		reply(w, http.StatusOK, `{"ok":true,"result":true}`)
	}, nil)

	start := time.Now()
	require.NoError(t, c.DeleteMessage(context.Background(), 1, 2))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEditMessageText_IgnoresNotModified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	}, nil)

	assert.NoError(t, c.EditMessageText(context.Background(), 1, 2, "same", "", nil))
}

func TestCallAPI_BreakerOpensOnServerErrorsOnly(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		reply(w, code, fmt.Sprintf(`{"ok":false,"error_code":%d,"description":"nope"}`, code))
	}, cb)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, c.AnswerCallbackQuery(ctx, "q", "", false))
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())

	status.Store(http.StatusInternalServerError)
	require.Error(t, c.AnswerCallbackQuery(ctx, "q", "", false))
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	err := c.AnswerCallbackQuery(ctx, "q", "", false)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestExtractCommand(t *testing.T) {
	msg := &Message{
		Text:     "/start@jobs_bot deep",
		Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 15}},
	}
	assert.Equal(t, "start", ExtractCommand(msg))
	assert.Equal(t, "deep", ExtractCommandArgs(msg))

	assert.Empty(t, ExtractCommand(&Message{Text: "hello"}))
	assert.Empty(t, ExtractCommand(nil))
}
