// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// COMPANY COUNTERS HANDLER
// Keeps the cached employee and open-vacancy counters in step with profile
// and vacancy events. Counter failures are reported as storage errors so the
// dispatcher retries them; the reconcile job repairs anything still missed.
// ═══════════════════════════════════════════════════════════════════════════

// CompanyCountersHandler updates company counters.
type CompanyCountersHandler struct {
	metrics company.MetricsStore
	logger  *slog.Logger
}

// NewCompanyCountersHandler creates a new handler.
func NewCompanyCountersHandler(metrics company.MetricsStore, logger *slog.Logger) *CompanyCountersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyCountersHandler{
		metrics: metrics,
		logger:  logger.With("handler", "company_counters"),
	}
}

// OnRecruiterRegistered raises the employee counter.
func (h *CompanyCountersHandler) OnRecruiterRegistered(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.RecruiterRegisteredEvent)
	if !ok {
		h.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}
	if err := h.metrics.AddEmployees(ctx, e.CompanyID, 1); err != nil {
		return shared.WrapError("company", "AddEmployees", shared.ErrStorage, "counter update failed", err)
	}
	return nil
}

// OnVacancyPublished raises the open-vacancy counter.
func (h *CompanyCountersHandler) OnVacancyPublished(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.VacancyPublishedEvent)
	if !ok {
		h.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}
	return h.addVacancies(ctx, e.CompanyID, 1)
}

// OnVacancyDeleted lowers the open-vacancy counter. The store floors it at 0.
func (h *CompanyCountersHandler) OnVacancyDeleted(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.VacancyDeletedEvent)
	if !ok {
		h.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}
	return h.addVacancies(ctx, e.CompanyID, -1)
}

func (h *CompanyCountersHandler) addVacancies(ctx context.Context, companyID, delta int64) error {
	if err := h.metrics.AddVacancies(ctx, companyID, delta); err != nil {
		return shared.WrapError("company", "AddVacancies", shared.ErrStorage, "counter update failed", err)
	}
	return nil
}
