package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE COMPANY METRICS COMMAND
// Recomputes the cached counters from the relational store. Event-driven
// increments drift when a handler fails; this brings them back in line.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileMetricsResult contains the outcome of a run.
type ReconcileMetricsResult struct {
	Companies int
	Failed    int
	Duration  time.Duration
}

// ReconcileMetricsHandler recomputes company counters.
type ReconcileMetricsHandler struct {
	companies  company.Repository
	recruiters profile.RecruiterRepository
	vacancies  vacancy.Repository
	metrics    company.MetricsStore
	logger     *slog.Logger
}

// NewReconcileMetricsHandler creates a new ReconcileMetricsHandler.
func NewReconcileMetricsHandler(
	companies company.Repository,
	recruiters profile.RecruiterRepository,
	vacancies vacancy.Repository,
	metrics company.MetricsStore,
	logger *slog.Logger,
) *ReconcileMetricsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileMetricsHandler{
		companies:  companies,
		recruiters: recruiters,
		vacancies:  vacancies,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle writes both counters for every company. A failed write is logged
// and counted; the run continues with the next company.
func (h *ReconcileMetricsHandler) Handle(ctx context.Context) (*ReconcileMetricsResult, error) {
	start := time.Now()

	ids, err := h.companies.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile_metrics: %w", err)
	}
	employees, err := h.recruiters.CountByCompany(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile_metrics: count recruiters: %w", err)
	}
	open, err := h.vacancies.CountByCompany(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile_metrics: count vacancies: %w", err)
	}

	result := &ReconcileMetricsResult{Companies: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.metrics.Set(ctx, id, employees[id], open[id]); err != nil {
			result.Failed++
			h.logger.Warn("failed to reconcile company", "company_id", id, "error", err)
		}
	}
	result.Duration = time.Since(start)

	h.logger.Info("company metrics reconciled",
		"companies", result.Companies,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}
