package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUBLISH VACANCY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// PublishVacancyCommand represents a recruiter publishing a vacancy.
type PublishVacancyCommand struct {
	RecruiterID int64
	Position    string
	Description string
	Salary      int64
}

// Validate validates the command.
func (c PublishVacancyCommand) Validate() error {
	if c.RecruiterID <= 0 {
		return fmt.Errorf("publish_vacancy: %w: recruiter_id is required", shared.ErrInvalidID)
	}
	return nil
}

// PublishVacancyResult contains the result of publishing.
type PublishVacancyResult struct {
	Vacancy vacancy.Vacancy
	Body    vacancy.Body
}

// PublishVacancyHandler handles PublishVacancyCommand.
type PublishVacancyHandler struct {
	recruiters profile.RecruiterRepository
	vacancies  vacancy.Repository
	bodies     vacancy.BodyStore
	graph      vacancy.Graph
	events     shared.EventPublisher
	logger     *slog.Logger
}

// NewPublishVacancyHandler creates a new PublishVacancyHandler.
func NewPublishVacancyHandler(
	recruiters profile.RecruiterRepository,
	vacancies vacancy.Repository,
	bodies vacancy.BodyStore,
	graph vacancy.Graph,
	events shared.EventPublisher,
	logger *slog.Logger,
) *PublishVacancyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishVacancyHandler{
		recruiters: recruiters,
		vacancies:  vacancies,
		bodies:     bodies,
		graph:      graph,
		events:     events,
		logger:     logger,
	}
}

// Handle stores the body, then the row, then the graph node. A failed step
// removes what the earlier steps wrote.
func (h *PublishVacancyHandler) Handle(ctx context.Context, cmd PublishVacancyCommand) (*PublishVacancyResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	body, err := vacancy.NewBody(cmd.Position, cmd.Description, cmd.Salary)
	if err != nil {
		return nil, err
	}

	recruiter, err := h.recruiters.GetByUserID(ctx, cmd.RecruiterID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrRecruiterNotFound
		}
		return nil, fmt.Errorf("publish_vacancy: %w", err)
	}

	ref, err := h.bodies.InsertBody(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("publish_vacancy: store body: %w", err)
	}

	v := &vacancy.Vacancy{
		OwnerID:     cmd.RecruiterID,
		DocumentRef: ref,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.vacancies.Create(ctx, v); err != nil {
		h.rollbackBody(ref)
		return nil, fmt.Errorf("publish_vacancy: %w", err)
	}

	if err := h.graph.AddVacancy(ctx, v.ID, cmd.RecruiterID); err != nil {
		h.rollbackBody(ref)
		if delErr := h.vacancies.Delete(context.WithoutCancel(ctx), v.ID); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, fmt.Errorf("publish_vacancy: graph node: %w", err)
	}

	event := shared.NewVacancyPublishedEvent(v.ID, cmd.RecruiterID, recruiter.CompanyID, body.Position)
	if err := h.events.Publish(event); err != nil {
		h.logger.Error("failed to publish vacancy published", "vacancy_id", v.ID, "error", err)
	}

	h.logger.Info("vacancy published",
		"vacancy_id", v.ID,
		"recruiter_id", cmd.RecruiterID,
		"company_id", recruiter.CompanyID,
	)

	return &PublishVacancyResult{Vacancy: *v, Body: body}, nil
}

func (h *PublishVacancyHandler) rollbackBody(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.bodies.DeleteBody(ctx, ref); err != nil {
		h.logger.Warn("orphaned vacancy body", "ref", ref, "error", err)
	}
}
