package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sweethome/vacancies-bot/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE COMPANY METRICS JOB
// ══════════════════════════════════════════════════════════════════════════════

// MetricsReconciler recomputes company counters.
type MetricsReconciler interface {
	Handle(ctx context.Context) (*command.ReconcileMetricsResult, error)
}

// ReconcileMetricsJob periodically rewrites company counters from the
// relational store.
type ReconcileMetricsJob struct {
	reconciler MetricsReconciler
	timeout    time.Duration
	logger     *slog.Logger

	lastResult atomic.Pointer[command.ReconcileMetricsResult]
}

// NewReconcileMetricsJob creates the job. A zero timeout means 2 minutes.
func NewReconcileMetricsJob(reconciler MetricsReconciler, timeout time.Duration, logger *slog.Logger) *ReconcileMetricsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ReconcileMetricsJob{
		reconciler: reconciler,
		timeout:    timeout,
		logger:     logger.With("job", "reconcile_company_metrics"),
	}
}

// Name returns the job name.
func (j *ReconcileMetricsJob) Name() string {
	return "reconcile_company_metrics"
}

// Description returns a human-readable description.
func (j *ReconcileMetricsJob) Description() string {
	return "Recomputes company employee and open-vacancy counters"
}

// Run executes the job.
func (j *ReconcileMetricsJob) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	j.logger.Debug("reconcile started", "run_id", runID)

	result, err := j.reconciler.Handle(ctx)
	if err != nil {
		return fmt.Errorf("reconcile company metrics (run %s): %w", runID, err)
	}
	j.lastResult.Store(result)

	if result.Failed > 0 {
		return fmt.Errorf("reconcile company metrics (run %s): %d of %d companies failed",
			runID, result.Failed, result.Companies)
	}
	return nil
}

// LastResult returns the outcome of the last successful run, if any.
func (j *ReconcileMetricsJob) LastResult() *command.ReconcileMetricsResult {
	return j.lastResult.Load()
}
