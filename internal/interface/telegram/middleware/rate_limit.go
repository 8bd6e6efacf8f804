// Package middleware contains Telegram bot middlewares for request processing.
package middleware

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token buckets. Repeat offenders are muted for BanDuration.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained per-user rate.
	RequestsPerMinute int

	// BurstSize is the maximum burst size (tokens in bucket at start).
	BurstSize int

	// IdleTTL is how long an untouched bucket is kept.
	IdleTTL time.Duration

	// BanDuration is how long to temporarily mute users who exceed limits.
	BanDuration time.Duration

	// BanThreshold is the number of limit violations before a temporary ban.
	BanThreshold int

	// Whitelisted users are never limited.
	Whitelisted map[int64]bool

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         10,
		IdleTTL:           10 * time.Minute,
		BanDuration:       time.Minute,
		BanThreshold:      20,
		Whitelisted:       make(map[int64]bool),
		Now:               time.Now,
	}
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	IsBanned   bool
}

// Message is the text shown to a limited user.
func (r RateLimitResult) Message() string {
	seconds := int(r.RetryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf("⏳ Too many requests. Try again in %d s.", seconds)
}

type bucket struct {
	limiter    *rate.Limiter
	violations int
	bannedTill time.Time
	lastSeen   time.Time
}

// RateLimiter implements per-user rate limiting.
type RateLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	buckets map[int64]*bucket
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[int64]*bucket),
	}
}

// Check consumes a token for the user if one is available.
func (rl *RateLimiter) Check(telegramID int64) RateLimitResult {
	if rl.config.Whitelisted[telegramID] {
		return RateLimitResult{Allowed: true}
	}

	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[telegramID]
	if !ok {
		perSecond := rate.Limit(float64(rl.config.RequestsPerMinute) / 60.0)
		b = &bucket{limiter: rate.NewLimiter(perSecond, rl.config.BurstSize)}
		rl.buckets[telegramID] = b
	}
	b.lastSeen = now

	if now.Before(b.bannedTill) {
		return RateLimitResult{IsBanned: true, RetryAfter: b.bannedTill.Sub(now)}
	}

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		b.violations++
		if rl.config.BanThreshold > 0 && b.violations >= rl.config.BanThreshold {
			b.violations = 0
			b.bannedTill = now.Add(rl.config.BanDuration)
			return RateLimitResult{IsBanned: true, RetryAfter: rl.config.BanDuration}
		}
		return RateLimitResult{RetryAfter: delay}
	}
	return RateLimitResult{Allowed: true}
}

// Cleanup drops buckets idle longer than IdleTTL and returns how many went.
func (rl *RateLimiter) Cleanup() int {
	cutoff := rl.config.Now().Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) && !b.bannedTill.After(cutoff) {
			delete(rl.buckets, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
