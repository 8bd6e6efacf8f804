package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER SEEKER COMMAND
// Writes to three stores in order: portfolio document, graph node, then the
// relational row that references both.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterSeekerCommand adds the seeker role to a registered user.
type RegisterSeekerCommand struct {
	UserID      int64
	Position    string
	Experiences []profile.Experience
}

// RegisterSeekerHandler handles RegisterSeekerCommand.
type RegisterSeekerHandler struct {
	users      profile.UserRepository
	seekers    profile.SeekerRepository
	portfolios profile.PortfolioStore
	graph      profile.Graph
	cache      profile.Cache
	logger     *slog.Logger
}

// NewRegisterSeekerHandler creates a new RegisterSeekerHandler.
func NewRegisterSeekerHandler(
	users profile.UserRepository,
	seekers profile.SeekerRepository,
	portfolios profile.PortfolioStore,
	graph profile.Graph,
	cache profile.Cache,
	logger *slog.Logger,
) *RegisterSeekerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterSeekerHandler{
		users:      users,
		seekers:    seekers,
		portfolios: portfolios,
		graph:      graph,
		cache:      cache,
		logger:     logger,
	}
}

// Handle registers the seeker profile.
func (h *RegisterSeekerHandler) Handle(ctx context.Context, cmd RegisterSeekerCommand) (*profile.Seeker, error) {
	portfolio, err := profile.NewPortfolio(cmd.Position, cmd.Experiences)
	if err != nil {
		return nil, err
	}

	if _, err := h.users.GetByID(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("register_seeker: %w", err)
	}

	_, err = h.seekers.GetByUserID(ctx, cmd.UserID)
	switch {
	case err == nil:
		return nil, shared.ErrSeekerAlreadyExists
	case !shared.IsNotFound(err):
		return nil, fmt.Errorf("register_seeker: %w", err)
	}

	portfolioRef, err := h.portfolios.InsertPortfolio(ctx, portfolio)
	if err != nil {
		return nil, fmt.Errorf("register_seeker: store portfolio: %w", err)
	}

	nodeRef, err := h.graph.AddSeeker(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("register_seeker: graph node: %w", err)
	}

	seeker := &profile.Seeker{
		UserID:       cmd.UserID,
		PortfolioRef: portfolioRef,
		NodeRef:      nodeRef,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.seekers.Create(ctx, seeker); err != nil {
		// The portfolio document stays behind; the graph node is MERGEd so a
		// retry reuses it.
		h.logger.Warn("seeker row rejected after portfolio insert",
			"user_id", cmd.UserID,
			"portfolio_ref", portfolioRef,
			"error", err,
		)
		return nil, fmt.Errorf("register_seeker: %w", err)
	}

	invalidate(ctx, h.cache, cmd.UserID)

	h.logger.Info("seeker registered",
		"user_id", cmd.UserID,
		"experiences", len(portfolio.Experiences),
	)
	return seeker, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PORTFOLIO COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePortfolioCommand replaces the seeker's portfolio.
type UpdatePortfolioCommand struct {
	UserID      int64
	Position    string
	Experiences []profile.Experience
}

// UpdatePortfolioHandler handles UpdatePortfolioCommand.
type UpdatePortfolioHandler struct {
	seekers    profile.SeekerRepository
	portfolios profile.PortfolioStore
}

// NewUpdatePortfolioHandler creates a new UpdatePortfolioHandler.
func NewUpdatePortfolioHandler(seekers profile.SeekerRepository, portfolios profile.PortfolioStore) *UpdatePortfolioHandler {
	return &UpdatePortfolioHandler{seekers: seekers, portfolios: portfolios}
}

// Handle overwrites the document in place, keeping its reference.
func (h *UpdatePortfolioHandler) Handle(ctx context.Context, cmd UpdatePortfolioCommand) (profile.Portfolio, error) {
	portfolio, err := profile.NewPortfolio(cmd.Position, cmd.Experiences)
	if err != nil {
		return profile.Portfolio{}, err
	}

	seeker, err := h.seekers.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return profile.Portfolio{}, fmt.Errorf("update_portfolio: %w", err)
	}

	if err := h.portfolios.ReplacePortfolio(ctx, seeker.PortfolioRef, portfolio); err != nil {
		return profile.Portfolio{}, fmt.Errorf("update_portfolio: %w", err)
	}

	return portfolio, nil
}
