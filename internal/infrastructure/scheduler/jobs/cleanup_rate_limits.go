package jobs

import (
	"context"
	"log/slog"
)

// RateLimitCleaner drops idle per-user rate limit buckets.
type RateLimitCleaner interface {
	CleanupRateLimits() int
}

// RateLimitCleanupJob keeps the bot's limiter map from growing with every
// user who ever wrote to it.
type RateLimitCleanupJob struct {
	limiter RateLimitCleaner
	logger  *slog.Logger
}

// NewRateLimitCleanupJob creates the job.
func NewRateLimitCleanupJob(limiter RateLimitCleaner, logger *slog.Logger) *RateLimitCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitCleanupJob{
		limiter: limiter,
		logger:  logger.With("job", "cleanup_rate_limits"),
	}
}

func (j *RateLimitCleanupJob) Name() string { return "cleanup_rate_limits" }

func (j *RateLimitCleanupJob) Description() string {
	return "Removes idle per-user rate limit buckets"
}

// Run executes the job.
func (j *RateLimitCleanupJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if removed := j.limiter.CleanupRateLimits(); removed > 0 {
		j.logger.Debug("rate limit buckets removed", "removed", removed)
	}
	return nil
}
