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
// APPLY TO VACANCY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ApplyToVacancyCommand represents a seeker applying to a vacancy.
type ApplyToVacancyCommand struct {
	SeekerID  int64
	VacancyID int64
}

// Validate validates the command.
func (c ApplyToVacancyCommand) Validate() error {
	if c.SeekerID <= 0 || c.VacancyID <= 0 {
		return fmt.Errorf("apply_vacancy: %w: seeker_id and vacancy_id are required", shared.ErrInvalidID)
	}
	return nil
}

// ApplyToVacancyResult contains the result of applying.
type ApplyToVacancyResult struct {
	AlreadyApplied bool
}

// ApplyToVacancyHandler handles ApplyToVacancyCommand.
type ApplyToVacancyHandler struct {
	users     profile.UserRepository
	seekers   profile.SeekerRepository
	vacancies vacancy.Repository
	bodies    vacancy.BodyFetcher
	graph     vacancy.Graph
	events    shared.EventPublisher
	logger    *slog.Logger
}

// NewApplyToVacancyHandler creates a new ApplyToVacancyHandler.
func NewApplyToVacancyHandler(
	users profile.UserRepository,
	seekers profile.SeekerRepository,
	vacancies vacancy.Repository,
	bodies vacancy.BodyFetcher,
	graph vacancy.Graph,
	events shared.EventPublisher,
	logger *slog.Logger,
) *ApplyToVacancyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplyToVacancyHandler{
		users:     users,
		seekers:   seekers,
		vacancies: vacancies,
		bodies:    bodies,
		graph:     graph,
		events:    events,
		logger:    logger,
	}
}

// Handle creates the application edge. Repeating it is harmless and reported
// through AlreadyApplied; only the first application emits an event.
func (h *ApplyToVacancyHandler) Handle(ctx context.Context, cmd ApplyToVacancyCommand) (*ApplyToVacancyResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.seekers.GetByUserID(ctx, cmd.SeekerID); err != nil {
		return nil, fmt.Errorf("apply_vacancy: %w", err)
	}

	v, err := h.vacancies.GetByID(ctx, cmd.VacancyID)
	if err != nil {
		return nil, fmt.Errorf("apply_vacancy: %w", err)
	}

	created, err := h.graph.Apply(ctx, cmd.SeekerID, v.ID)
	if err != nil {
		return nil, fmt.Errorf("apply_vacancy: %w", err)
	}
	if !created {
		return &ApplyToVacancyResult{AlreadyApplied: true}, nil
	}

	h.publish(ctx, cmd.SeekerID, *v)
	return &ApplyToVacancyResult{}, nil
}

// publish emits ApplicationSubmitted. Name and position are best effort.
func (h *ApplyToVacancyHandler) publish(ctx context.Context, seekerID int64, v vacancy.Vacancy) {
	var seekerName, position string
	if user, err := h.users.GetByID(ctx, seekerID); err == nil {
		seekerName = user.FullName()
	}
	if body, err := h.bodies.GetBody(ctx, v.DocumentRef); err == nil {
		position = body.OrEmpty().Position
	}

	event := shared.NewApplicationSubmittedEvent(v.ID, seekerID, v.OwnerID, seekerName, position)
	if err := h.events.Publish(event); err != nil {
		h.logger.Error("failed to publish application submitted",
			"vacancy_id", v.ID,
			"seeker_id", seekerID,
			"error", err,
		)
	}
}
