package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher subscribes named handlers to a bus and wraps each of them with
// the middleware chain, a per-attempt timeout and retries.
type Dispatcher struct {
	bus         shared.EventSubscriber
	middlewares []Middleware
	retrier     *retry.Retrier
	timeout     time.Duration
	logger      *slog.Logger
	mu          sync.Mutex
	registered  []string
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	Bus shared.EventSubscriber

	// Retrier decides how failed handlers are retried. Nil means one attempt.
	Retrier *retry.Retrier

	// Timeout bounds a single handler attempt.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(bus shared.EventSubscriber) DispatcherConfig {
	return DispatcherConfig{
		Bus: bus,
		Retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(200*time.Millisecond),
			retry.WithRetryIf(shared.IsRetryable),
		),
		Timeout: 10 * time.Second,
	}
}

// NewDispatcher creates a new event dispatcher with recovery and logging
// middleware installed.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Retrier == nil {
		config.Retrier = retry.New(retry.WithMaxAttempts(1))
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		bus:     config.Bus,
		retrier: config.Retrier,
		timeout: config.Timeout,
		logger:  config.Logger,
	}
	d.Use(LoggingMiddleware(config.Logger))
	d.Use(RecoveryMiddleware(config.Logger))
	return d
}

// ContextHandler is an event handler that honours a deadline.
type ContextHandler func(ctx context.Context, event shared.Event) error

// Register subscribes handler under name for eventType.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler ContextHandler) error {
	d.mu.Lock()
	chain := d.wrap(name, handler)
	d.registered = append(d.registered, fmt.Sprintf("%s:%s", eventType, name))
	d.mu.Unlock()

	if err := d.bus.Subscribe(eventType, chain); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	d.logger.Debug("event handler registered", "event_type", eventType, "handler", name)
	return nil
}

// Registered lists "event:handler" pairs in registration order.
func (d *Dispatcher) Registered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.registered...)
}

func (d *Dispatcher) wrap(name string, handler ContextHandler) shared.EventHandler {
	attempt := func(event shared.Event) error {
		return d.retrier.Do(context.Background(), func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			return handler(ctx, event)
		})
	}

	chain := shared.EventHandler(attempt)
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		chain = d.middlewares[i](name, chain)
	}
	return chain
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution. It applies to handlers registered
// after Use.
type Middleware func(name string, next shared.EventHandler) shared.EventHandler

// Use adds middleware to the dispatcher.
func (d *Dispatcher) Use(middleware Middleware) {
	d.middlewares = append(d.middlewares, middleware)
}

// RecoveryMiddleware turns a handler panic into ErrHandlerPanic.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(name string, next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"handler", name,
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, name, r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs handler execution.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(name string, next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			duration := time.Since(start)

			if err != nil {
				logger.Error("handler failed",
					"handler", name,
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", duration,
					"error", err,
				)
			} else {
				logger.Debug("handler completed",
					"handler", name,
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", duration,
				)
			}

			return err
		}
	}
}
