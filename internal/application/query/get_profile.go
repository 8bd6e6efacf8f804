// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Assembles the user row with its optional seeker and recruiter parts. Reads
// go through the profile cache; commands that change a profile invalidate it.
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery identifies the user.
type GetProfileQuery struct {
	UserID int64

	// SkipCache forces a read from the relational store.
	SkipCache bool
}

// Validate checks query parameters.
func (q GetProfileQuery) Validate() error {
	if q.UserID <= 0 {
		return errors.New("user_id must be positive")
	}
	return nil
}

// GetProfileHandler handles GetProfileQuery.
type GetProfileHandler struct {
	users      profile.UserRepository
	seekers    profile.SeekerRepository
	recruiters profile.RecruiterRepository
	cache      profile.Cache
	logger     *slog.Logger
}

// NewGetProfileHandler creates a new handler. cache may be nil.
func NewGetProfileHandler(
	users profile.UserRepository,
	seekers profile.SeekerRepository,
	recruiters profile.RecruiterRepository,
	cache profile.Cache,
	logger *slog.Logger,
) *GetProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetProfileHandler{
		users:      users,
		seekers:    seekers,
		recruiters: recruiters,
		cache:      cache,
		logger:     logger,
	}
}

// Handle returns the profile. An unregistered user yields ErrUserNotFound.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (profile.Profile, error) {
	if err := q.Validate(); err != nil {
		return profile.Profile{}, shared.WrapError("query", "GetProfile", shared.ErrValidation, err.Error(), err)
	}

	if h.cache != nil && !q.SkipCache {
		cached, err := h.cache.Get(ctx, q.UserID)
		if err != nil {
			h.logger.Warn("profile cache read failed", "user_id", q.UserID, "error", err)
		} else if p, ok := cached.Get(); ok {
			return p, nil
		}
	}

	p, err := h.load(ctx, q.UserID)
	if err != nil {
		return profile.Profile{}, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, p); err != nil {
			h.logger.Warn("profile cache write failed", "user_id", q.UserID, "error", err)
		}
	}
	return p, nil
}

func (h *GetProfileHandler) load(ctx context.Context, userID int64) (profile.Profile, error) {
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return profile.Profile{}, err
	}

	seeker, err := optional(h.seekers.GetByUserID(ctx, userID))
	if err != nil {
		return profile.Profile{}, err
	}

	recruiter, err := optional(h.recruiters.GetByUserID(ctx, userID))
	if err != nil {
		return profile.Profile{}, err
	}

	return profile.Profile{User: *user, Seeker: seeker, Recruiter: recruiter}, nil
}

// optional turns a not-found lookup into None.
func optional[T any](v *T, err error) (mo.Option[T], error) {
	if err != nil {
		if shared.IsNotFound(err) {
			return mo.None[T](), nil
		}
		return mo.None[T](), err
	}
	return mo.PointerToOption(v), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET PORTFOLIO QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetPortfolioHandler returns the seeker's portfolio document.
type GetPortfolioHandler struct {
	seekers    profile.SeekerRepository
	portfolios profile.PortfolioStore
}

// NewGetPortfolioHandler creates a new handler.
func NewGetPortfolioHandler(seekers profile.SeekerRepository, portfolios profile.PortfolioStore) *GetPortfolioHandler {
	return &GetPortfolioHandler{seekers: seekers, portfolios: portfolios}
}

// Handle returns the portfolio. A dangling reference is reported as None.
func (h *GetPortfolioHandler) Handle(ctx context.Context, userID int64) (mo.Option[profile.Portfolio], error) {
	seeker, err := h.seekers.GetByUserID(ctx, userID)
	if err != nil {
		return mo.None[profile.Portfolio](), err
	}
	return h.portfolios.GetPortfolio(ctx, seeker.PortfolioRef)
}
