package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers and converts them to a friendly reply. The
// stack goes to the log, never to the user.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// UserErrorMessage is the message sent to users when a panic occurs.
	UserErrorMessage string

	// MaxPanicsPerMinute caps how many panics are logged per minute.
	MaxPanicsPerMinute int

	// OnPanic is called for every logged panic.
	OnPanic func(ctx context.Context, info *PanicInfo)

	Logger *slog.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace:   true,
		UserErrorMessage:   "😔 Something went wrong. Please try again in a few minutes.",
		MaxPanicsPerMinute: 100,
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	Error      error
	StackTrace string
	RequestID  string
	TelegramID int64
	Route      string
	Timestamp  time.Time
}

// RecoveryResult represents the result of running a handler.
type RecoveryResult struct {
	// Recovered indicates if a panic was recovered.
	Recovered bool

	// PanicInfo contains panic details (if recovered).
	PanicInfo *PanicInfo

	// UserMessage is the message to show to the user.
	UserMessage string

	// Err is what the handler returned when it did not panic.
	Err error
}

// RecoveryMiddleware recovers from panics in update handlers.
type RecoveryMiddleware struct {
	config RecoveryConfig
	logger *slog.Logger

	mu     sync.Mutex
	count  int
	window time.Time
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.UserErrorMessage == "" {
		config.UserErrorMessage = DefaultRecoveryConfig().UserErrorMessage
	}
	return &RecoveryMiddleware{
		config: config,
		logger: config.Logger,
		window: time.Now(),
	}
}

// Run executes the handler and recovers from any panic it raises.
func (m *RecoveryMiddleware) Run(ctx context.Context, telegramID int64, route string, handler func() error) (result RecoveryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(ctx, r, telegramID, route)
		}
	}()
	return RecoveryResult{Err: handler()}
}

func (m *RecoveryMiddleware) handlePanic(ctx context.Context, panicValue interface{}, telegramID int64, route string) RecoveryResult {
	info := &PanicInfo{
		Error:      toError(panicValue),
		TelegramID: telegramID,
		Route:      route,
		RequestID:  RequestIDFrom(ctx),
		Timestamp:  time.Now(),
	}
	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	if m.allow() {
		m.logger.Error("panic recovered in update handler",
			"request_id", info.RequestID,
			"telegram_id", telegramID,
			"route", route,
			"error", info.Error,
			"stack", info.StackTrace,
		)
		if m.config.OnPanic != nil {
			m.config.OnPanic(ctx, info)
		}
	}

	return RecoveryResult{
		Recovered:   true,
		PanicInfo:   info,
		UserMessage: m.config.UserErrorMessage,
	}
}

// allow rate-limits panic logging so a crash loop cannot flood the log.
func (m *RecoveryMiddleware) allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if now.Sub(m.window) > time.Minute {
		m.count = 0
		m.window = now
	}
	if m.config.MaxPanicsPerMinute > 0 && m.count >= m.config.MaxPanicsPerMinute {
		return false
	}
	m.count++
	return true
}

// toError converts a panic value to an error.
func toError(panicValue interface{}) error {
	switch v := panicValue.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("%s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
