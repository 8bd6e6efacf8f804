package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE VACANCY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteVacancyCommand removes a vacancy on behalf of its owner.
type DeleteVacancyCommand struct {
	RecruiterID int64
	VacancyID   int64
}

// Validate validates the command.
func (c DeleteVacancyCommand) Validate() error {
	if c.RecruiterID <= 0 || c.VacancyID <= 0 {
		return fmt.Errorf("delete_vacancy: %w: recruiter_id and vacancy_id are required", shared.ErrInvalidID)
	}
	return nil
}

// DeleteVacancyHandler handles DeleteVacancyCommand.
type DeleteVacancyHandler struct {
	recruiters profile.RecruiterRepository
	vacancies  vacancy.Repository
	bodies     vacancy.BodyStore
	graph      vacancy.Graph
	events     shared.EventPublisher
	logger     *slog.Logger
}

// NewDeleteVacancyHandler creates a new DeleteVacancyHandler.
func NewDeleteVacancyHandler(
	recruiters profile.RecruiterRepository,
	vacancies vacancy.Repository,
	bodies vacancy.BodyStore,
	graph vacancy.Graph,
	events shared.EventPublisher,
	logger *slog.Logger,
) *DeleteVacancyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteVacancyHandler{
		recruiters: recruiters,
		vacancies:  vacancies,
		bodies:     bodies,
		graph:      graph,
		events:     events,
		logger:     logger,
	}
}

// Handle deletes the row first so cursors stop seeing the vacancy, then the
// body and the graph node.
func (h *DeleteVacancyHandler) Handle(ctx context.Context, cmd DeleteVacancyCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	v, err := h.vacancies.GetByID(ctx, cmd.VacancyID)
	if err != nil {
		return fmt.Errorf("delete_vacancy: %w", err)
	}
	if !v.IsOwnedBy(cmd.RecruiterID) {
		return shared.ErrNotVacancyOwner
	}

	recruiter, err := h.recruiters.GetByUserID(ctx, cmd.RecruiterID)
	if err != nil {
		return fmt.Errorf("delete_vacancy: %w", err)
	}

	if err := h.vacancies.Delete(ctx, v.ID); err != nil {
		return fmt.Errorf("delete_vacancy: %w", err)
	}

	if err := h.bodies.DeleteBody(ctx, v.DocumentRef); err != nil {
		h.logger.Warn("failed to delete vacancy body", "vacancy_id", v.ID, "ref", v.DocumentRef, "error", err)
	}
	if err := h.graph.RemoveVacancy(ctx, v.ID); err != nil {
		h.logger.Warn("failed to delete vacancy node", "vacancy_id", v.ID, "error", err)
	}

	if err := h.events.Publish(shared.NewVacancyDeletedEvent(v.ID, v.OwnerID, recruiter.CompanyID)); err != nil {
		h.logger.Error("failed to publish vacancy deleted", "vacancy_id", v.ID, "error", err)
	}

	return nil
}
