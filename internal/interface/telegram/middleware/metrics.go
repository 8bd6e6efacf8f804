package middleware

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS MIDDLEWARE
// In-process counters per route. Exposed on /health.
// ══════════════════════════════════════════════════════════════════════════════

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// SlowRequestThreshold defines what's considered a slow request.
	SlowRequestThreshold time.Duration

	// OnSlowRequest is called when a request exceeds the slow threshold.
	OnSlowRequest func(route string, duration time.Duration, telegramID int64)
}

// DefaultMetricsConfig returns sensible defaults for metrics middleware.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SlowRequestThreshold: 2 * time.Second,
	}
}

// RouteMetrics holds counters for one route.
type RouteMetrics struct {
	Route         string        `json:"route"`
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	MaxDuration   time.Duration `json:"max_duration"`
}

// AvgDuration returns the mean latency of the route.
func (m RouteMetrics) AvgDuration() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.Count)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	StartedAt      time.Time      `json:"started_at"`
	TotalRequests  int64          `json:"total_requests"`
	TotalErrors    int64          `json:"total_errors"`
	ActiveRequests int64          `json:"active_requests"`
	RateLimited    int64          `json:"rate_limited"`
	Panics         int64          `json:"panics"`
	Routes         []RouteMetrics `json:"routes"`
}

// MetricsMiddleware collects and exposes metrics.
type MetricsMiddleware struct {
	config    MetricsConfig
	startedAt time.Time

	totalRequests  atomic.Int64
	totalErrors    atomic.Int64
	activeRequests atomic.Int64
	rateLimited    atomic.Int64
	panics         atomic.Int64

	mu     sync.Mutex
	routes map[string]*RouteMetrics
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(config MetricsConfig) *MetricsMiddleware {
	return &MetricsMiddleware{
		config:    config,
		startedAt: time.Now(),
		routes:    make(map[string]*RouteMetrics),
	}
}

// Start marks a request as in flight. Call the returned func with the
// handler's error once it finishes.
func (m *MetricsMiddleware) Start(route string, telegramID int64) func(err error) {
	m.totalRequests.Add(1)
	m.activeRequests.Add(1)
	started := time.Now()

	return func(err error) {
		elapsed := time.Since(started)
		m.activeRequests.Add(-1)
		if err != nil {
			m.totalErrors.Add(1)
		}

		m.mu.Lock()
		r, ok := m.routes[route]
		if !ok {
			r = &RouteMetrics{Route: route}
			m.routes[route] = r
		}
		r.Count++
		if err != nil {
			r.Errors++
		}
		r.TotalDuration += elapsed
		if elapsed > r.MaxDuration {
			r.MaxDuration = elapsed
		}
		m.mu.Unlock()

		if m.config.OnSlowRequest != nil && m.config.SlowRequestThreshold > 0 && elapsed > m.config.SlowRequestThreshold {
			m.config.OnSlowRequest(route, elapsed, telegramID)
		}
	}
}

// RecordRateLimited counts a rejected update.
func (m *MetricsMiddleware) RecordRateLimited() { m.rateLimited.Add(1) }

// RecordPanic counts a recovered panic.
func (m *MetricsMiddleware) RecordPanic() { m.panics.Add(1) }

// Snapshot returns the current counters with routes sorted by name.
func (m *MetricsMiddleware) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		StartedAt:      m.startedAt,
		TotalRequests:  m.totalRequests.Load(),
		TotalErrors:    m.totalErrors.Load(),
		ActiveRequests: m.activeRequests.Load(),
		RateLimited:    m.rateLimited.Load(),
		Panics:         m.panics.Load(),
	}

	m.mu.Lock()
	for _, r := range m.routes {
		s.Routes = append(s.Routes, *r)
	}
	m.mu.Unlock()

	sort.Slice(s.Routes, func(i, j int) bool { return s.Routes[i].Route < s.Routes[j].Route })
	return s
}
