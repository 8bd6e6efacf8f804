package profile

import (
	"context"

	"github.com/samber/mo"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository stores user_profiles rows.
type UserRepository interface {
	// Create returns ErrUserAlreadyExists for a duplicate ID.
	Create(ctx context.Context, u *User) error

	// GetByID returns ErrUserNotFound if the user is not registered.
	GetByID(ctx context.Context, id int64) (*User, error)

	// Update returns ErrUserNotFound if the user is not registered.
	Update(ctx context.Context, u *User) error
}

// SeekerRepository stores seeker_profiles rows.
type SeekerRepository interface {
	Create(ctx context.Context, s *Seeker) error
	GetByUserID(ctx context.Context, userID int64) (*Seeker, error)
}

// RecruiterRepository stores recruiter_profiles rows.
type RecruiterRepository interface {
	Create(ctx context.Context, r *Recruiter) error
	GetByUserID(ctx context.Context, userID int64) (*Recruiter, error)

	// CountByCompany returns the number of recruiters per company ID.
	CountByCompany(ctx context.Context) (map[int64]int64, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Document and graph stores
// ─────────────────────────────────────────────────────────────────────────────

// PortfolioStore keeps portfolios in the document store.
type PortfolioStore interface {
	InsertPortfolio(ctx context.Context, p Portfolio) (string, error)
	GetPortfolio(ctx context.Context, ref string) (mo.Option[Portfolio], error)

	// ReplacePortfolio overwrites the document in place so the reference
	// held by the seeker row stays valid.
	ReplacePortfolio(ctx context.Context, ref string, p Portfolio) error
}

// Graph creates the person nodes and returns their node references.
type Graph interface {
	AddSeeker(ctx context.Context, userID int64) (string, error)
	AddRecruiter(ctx context.Context, userID, companyID int64) (string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache
// ─────────────────────────────────────────────────────────────────────────────

// Cache holds assembled profiles in front of the relational store.
type Cache interface {
	Get(ctx context.Context, userID int64) (mo.Option[Profile], error)
	Set(ctx context.Context, p Profile) error
	Invalidate(ctx context.Context, userID int64) error
}
