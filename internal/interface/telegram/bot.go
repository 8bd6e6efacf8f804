// Package telegram is the Telegram interface of the job board bot. It turns
// updates into handler requests, runs them through the middleware chain and
// delivers the responses.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sweethome/vacancies-bot/internal/infrastructure/external/telegram"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/handler"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/middleware"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// UpdateTimeout bounds the handling of a single update.
	UpdateTimeout time.Duration

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout is how long Shutdown waits for handlers.
	GracefulShutdownTimeout time.Duration

	RateLimit middleware.RateLimitConfig
	Recovery  middleware.RecoveryConfig
	Metrics   middleware.MetricsConfig

	Logger *slog.Logger
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		UpdateTimeout:           15 * time.Second,
		MaxConcurrentUpdates:    100,
		GracefulShutdownTimeout: 30 * time.Second,
		RateLimit:               middleware.DefaultRateLimitConfig(),
		Recovery:                middleware.DefaultRecoveryConfig(),
		Metrics:                 middleware.DefaultMetricsConfig(),
		Logger:                  slog.Default(),
	}
}

// Sender is the part of the Bot API client the bot writes through.
type Sender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	sender Sender
	router *Router
	logger *slog.Logger

	rateLimiter *middleware.RateLimiter
	recovery    *middleware.RecoveryMiddleware
	metrics     *middleware.MetricsMiddleware

	updates *semaphore.Weighted
	users   *userLocks
	wg      sync.WaitGroup
}

// NewBot creates a bot that answers through sender.
func NewBot(config BotConfig, sender Sender, router *Router) *Bot {
	defaults := DefaultBotConfig()
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.UpdateTimeout <= 0 {
		config.UpdateTimeout = defaults.UpdateTimeout
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = defaults.MaxConcurrentUpdates
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = defaults.GracefulShutdownTimeout
	}
	if config.Recovery.Logger == nil {
		config.Recovery.Logger = config.Logger
	}

	return &Bot{
		config:      config,
		sender:      sender,
		router:      router,
		logger:      config.Logger,
		rateLimiter: middleware.NewRateLimiter(config.RateLimit),
		recovery:    middleware.NewRecoveryMiddleware(config.Recovery),
		metrics:     middleware.NewMetricsMiddleware(config.Metrics),
		updates:     semaphore.NewWeighted(int64(config.MaxConcurrentUpdates)),
		users:       newUserLocks(),
	}
}

// Poller is the long-polling half of the Bot API client.
type Poller interface {
	StartPolling(ctx context.Context, handler telegram.UpdateHandler) error
}

// Run long-polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, poller Poller) error {
	b.logger.Info("starting long polling")
	err := poller.StartPolling(ctx, b.HandleUpdate)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown waits for in-flight updates.
func (b *Bot) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all update handlers completed")
		return nil
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns the current request counters.
func (b *Bot) Metrics() middleware.MetricsSnapshot {
	return b.metrics.Snapshot()
}

// CleanupRateLimits drops idle rate limit buckets.
func (b *Bot) CleanupRateLimits() int {
	return b.rateLimiter.Cleanup()
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// HandleUpdate processes a single update. Handler failures are reported to
// the user and logged; only a cancelled ctx is returned as an error.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	match, ok := b.router.Route(update)
	if !ok {
		return nil
	}

	if err := b.updates.Acquire(ctx, 1); err != nil {
		return err
	}
	defer b.updates.Release(1)

	b.wg.Add(1)
	defer b.wg.Done()

	userID := match.Request.UserID
	ctx, requestID := middleware.ContextWithRequestID(ctx)
	ctx = middleware.ContextWithTelegramID(ctx, userID)
	ctx, cancel := context.WithTimeout(ctx, b.config.UpdateTimeout)
	defer cancel()

	logger := middleware.Logger(ctx, b.logger)

	if limit := b.rateLimiter.Check(userID); !limit.Allowed {
		b.metrics.RecordRateLimited()
		logger.Debug("update rate limited", "route", match.Route, "banned", limit.IsBanned)
		b.rejectRateLimited(ctx, match, limit)
		return nil
	}

	unlock := b.users.lock(userID)
	defer unlock()

	done := b.metrics.Start(match.Route, userID)
	var resp *handler.Response
	result := b.recovery.Run(ctx, userID, match.Route, func() error {
		var err error
		resp, err = match.Handler(ctx, match.Request)
		return err
	})

	switch {
	case result.Recovered:
		done(result.PanicInfo.Error)
		b.metrics.RecordPanic()
		resp = b.failureResponse(match, result.UserMessage)
	case result.Err != nil:
		logger.Error("failed to handle update",
			"update_id", update.UpdateID,
			"route", match.Route,
			"error", result.Err,
		)
		done(result.Err)
		resp = b.failureResponse(match, b.config.Recovery.UserErrorMessage)
	default:
		done(nil)
	}

	if err := b.deliver(ctx, match, resp); err != nil {
		logger.Warn("failed to deliver response", "route", match.Route, "request_id", requestID, "error", err)
	}
	return nil
}

func (b *Bot) failureResponse(match Match, text string) *handler.Response {
	if text == "" {
		text = middleware.DefaultRecoveryConfig().UserErrorMessage
	}
	if match.CallbackID != "" {
		return &handler.Response{Toast: text, Alert: true}
	}
	return &handler.Response{Replies: []handler.Reply{{Text: text}}}
}

func (b *Bot) rejectRateLimited(ctx context.Context, match Match, limit middleware.RateLimitResult) {
	var err error
	if match.CallbackID != "" {
		err = b.sender.AnswerCallbackQuery(ctx, match.CallbackID, limit.Message(), false)
	} else if !limit.IsBanned {
		_, err = b.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID: match.Request.ChatID,
			Text:   limit.Message(),
		})
	}
	if err != nil {
		middleware.Logger(ctx, b.logger).Debug("failed to send rate limit notice", "error", err)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY
// ══════════════════════════════════════════════════════════════════════════════

// deliver answers the callback first so the button spinner stops, then
// sends or edits the replies in order.
func (b *Bot) deliver(ctx context.Context, match Match, resp *handler.Response) error {
	if resp == nil {
		resp = &handler.Response{}
	}

	var errs []error
	if match.CallbackID != "" {
		if err := b.sender.AnswerCallbackQuery(ctx, match.CallbackID, resp.Toast, resp.Alert); err != nil {
			errs = append(errs, fmt.Errorf("answer callback: %w", err))
		}
	}

	for i, r := range resp.Replies {
		markup := toMarkup(r.Keyboard)

		if i == 0 && resp.Edit && match.Request.MessageID != 0 {
			err := b.sender.EditMessageText(ctx, match.Request.ChatID, match.Request.MessageID, r.Text, presenter.ParseModeHTML, markup)
			if err == nil {
				continue
			}
			if telegram.IsBlocked(err) {
				return nil
			}
			// Old or deleted messages cannot be edited; send a fresh one.
			middleware.Logger(ctx, b.logger).Debug("edit failed, sending instead", "error", err)
		}

		_, err := b.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:            match.Request.ChatID,
			Text:              r.Text,
			ParseMode:         presenter.ParseModeHTML,
			DisableWebPreview: true,
			ReplyMarkup:       markup,
		})
		if err != nil {
			if telegram.IsBlocked(err) {
				middleware.Logger(ctx, b.logger).Info("user blocked the bot")
				return nil
			}
			errs = append(errs, fmt.Errorf("send reply %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func toMarkup(k *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if k == nil || len(k.Rows) == 0 {
		return nil
	}
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(k.Rows))}
	for _, row := range k.Rows {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
				URL:          btn.URL,
			})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// ══════════════════════════════════════════════════════════════════════════════
// PER-USER LOCKS
// Updates from one user are handled one at a time so dialogue state is
// read and written in order.
// ══════════════════════════════════════════════════════════════════════════════

type userLock struct {
	mu   sync.Mutex
	refs int
}

type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

// lock blocks until the user's lock is held and returns its release func.
// Entries are dropped once nobody holds or waits for them.
func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
