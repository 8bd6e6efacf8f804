// Package jobs contains implementations of scheduled jobs.
package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE SEARCH SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SessionSweeper removes idle search sessions.
type SessionSweeper interface {
	Sweep(maxIdle time.Duration) int
	Len() int
}

// ExpireSessionsJob drops search sessions nobody touched for MaxIdle.
type ExpireSessionsJob struct {
	sessions SessionSweeper
	maxIdle  time.Duration
	logger   *slog.Logger

	expired atomic.Int64
}

// NewExpireSessionsJob creates the job.
func NewExpireSessionsJob(sessions SessionSweeper, maxIdle time.Duration, logger *slog.Logger) *ExpireSessionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireSessionsJob{
		sessions: sessions,
		maxIdle:  maxIdle,
		logger:   logger.With("job", "expire_search_sessions"),
	}
}

// Name returns the job name.
func (j *ExpireSessionsJob) Name() string {
	return "expire_search_sessions"
}

// Description returns a human-readable description.
func (j *ExpireSessionsJob) Description() string {
	return "Closes search sessions idle for longer than the session TTL"
}

// Run executes the job.
func (j *ExpireSessionsJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed := j.sessions.Sweep(j.maxIdle)
	j.expired.Add(int64(removed))

	if removed > 0 {
		j.logger.Info("search sessions expired",
			"removed", removed,
			"remaining", j.sessions.Len(),
		)
	}
	return nil
}

// TotalExpired returns how many sessions the job removed since start.
func (j *ExpireSessionsJob) TotalExpired() int64 {
	return j.expired.Load()
}
