package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER RECRUITER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterRecruiterCommand binds a registered user to a company as recruiter.
type RegisterRecruiterCommand struct {
	UserID    int64
	CompanyID int64
}

// Validate validates the command.
func (c RegisterRecruiterCommand) Validate() error {
	if c.UserID <= 0 || c.CompanyID <= 0 {
		return fmt.Errorf("register_recruiter: %w: user_id and company_id are required", shared.ErrInvalidID)
	}
	return nil
}

// RegisterRecruiterHandler handles RegisterRecruiterCommand.
type RegisterRecruiterHandler struct {
	users      profile.UserRepository
	recruiters profile.RecruiterRepository
	companies  company.Repository
	graph      profile.Graph
	events     shared.EventPublisher
	cache      profile.Cache
	logger     *slog.Logger
}

// NewRegisterRecruiterHandler creates a new RegisterRecruiterHandler.
func NewRegisterRecruiterHandler(
	users profile.UserRepository,
	recruiters profile.RecruiterRepository,
	companies company.Repository,
	graph profile.Graph,
	events shared.EventPublisher,
	cache profile.Cache,
	logger *slog.Logger,
) *RegisterRecruiterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterRecruiterHandler{
		users:      users,
		recruiters: recruiters,
		companies:  companies,
		graph:      graph,
		events:     events,
		cache:      cache,
		logger:     logger,
	}
}

// Handle registers the recruiter. The employee counter is raised by the
// RecruiterRegistered event handler.
func (h *RegisterRecruiterHandler) Handle(ctx context.Context, cmd RegisterRecruiterCommand) (*profile.Recruiter, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.users.GetByID(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("register_recruiter: %w", err)
	}

	if _, err := h.companies.GetByID(ctx, cmd.CompanyID); err != nil {
		return nil, fmt.Errorf("register_recruiter: %w", err)
	}

	_, err := h.recruiters.GetByUserID(ctx, cmd.UserID)
	switch {
	case err == nil:
		return nil, shared.ErrRecruiterAlreadyExist
	case !shared.IsNotFound(err):
		return nil, fmt.Errorf("register_recruiter: %w", err)
	}

	nodeRef, err := h.graph.AddRecruiter(ctx, cmd.UserID, cmd.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("register_recruiter: graph node: %w", err)
	}

	recruiter := &profile.Recruiter{
		UserID:    cmd.UserID,
		CompanyID: cmd.CompanyID,
		NodeRef:   nodeRef,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.recruiters.Create(ctx, recruiter); err != nil {
		return nil, fmt.Errorf("register_recruiter: %w", err)
	}

	invalidate(ctx, h.cache, cmd.UserID)

	if err := h.events.Publish(shared.NewRecruiterRegisteredEvent(cmd.UserID, cmd.CompanyID)); err != nil {
		h.logger.Error("failed to publish recruiter registered", "user_id", cmd.UserID, "error", err)
	}

	return recruiter, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER COMPANY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterCompanyCommand creates a company. Website may be empty or "-".
type RegisterCompanyCommand struct {
	Name    string
	Website string
}

// RegisterCompanyHandler handles RegisterCompanyCommand.
type RegisterCompanyHandler struct {
	companies company.Repository
	metrics   company.MetricsStore
	logger    *slog.Logger
}

// NewRegisterCompanyHandler creates a new RegisterCompanyHandler.
func NewRegisterCompanyHandler(companies company.Repository, metrics company.MetricsStore, logger *slog.Logger) *RegisterCompanyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterCompanyHandler{companies: companies, metrics: metrics, logger: logger}
}

// Handle stores the company and seeds both counters with zero.
func (h *RegisterCompanyHandler) Handle(ctx context.Context, cmd RegisterCompanyCommand) (*company.Company, error) {
	c, err := company.NewCompany(cmd.Name, cmd.Website)
	if err != nil {
		return nil, err
	}

	if err := h.companies.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("register_company: %w", err)
	}

	if err := h.metrics.Set(ctx, c.ID, 0, 0); err != nil {
		// Counters stay unknown until the next reconcile run.
		h.logger.Warn("failed to seed company metrics", "company_id", c.ID, "error", err)
	}

	return c, nil
}
