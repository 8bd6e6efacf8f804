package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements profile.UserRepository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create inserts the user row.
func (r *UserRepository) Create(ctx context.Context, u *profile.User) error {
	query := `
		INSERT INTO user_profiles (id, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`

	_, err := r.conn.Exec(ctx, query, u.ID, u.FirstName, u.LastName, u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by Telegram ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*profile.User, error) {
	query := `
		SELECT id, first_name, last_name, created_at
		FROM user_profiles
		WHERE id = $1
	`

	var u profile.User
	err := r.conn.QueryRow(ctx, query, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// Update writes the names back.
func (r *UserRepository) Update(ctx context.Context, u *profile.User) error {
	query := `
		UPDATE user_profiles
		SET first_name = $1, last_name = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.conn.Exec(ctx, query, u.FirstName, u.LastName, time.Now().UTC(), u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEKER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SeekerRepository implements profile.SeekerRepository for PostgreSQL.
type SeekerRepository struct {
	conn *Connection
}

// NewSeekerRepository creates a new SeekerRepository.
func NewSeekerRepository(conn *Connection) *SeekerRepository {
	return &SeekerRepository{conn: conn}
}

// Create inserts the seeker row.
func (r *SeekerRepository) Create(ctx context.Context, s *profile.Seeker) error {
	query := `
		INSERT INTO seeker_profiles (user_id, portfolio_ref, node_ref, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query, s.UserID, s.PortfolioRef, s.NodeRef, s.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrSeekerAlreadyExists
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to create seeker: %w", err)
	}

	return nil
}

// GetByUserID returns the seeker profile of a user.
func (r *SeekerRepository) GetByUserID(ctx context.Context, userID int64) (*profile.Seeker, error) {
	query := `
		SELECT user_id, portfolio_ref, node_ref, created_at
		FROM seeker_profiles
		WHERE user_id = $1
	`

	var s profile.Seeker
	err := r.conn.QueryRow(ctx, query, userID).Scan(&s.UserID, &s.PortfolioRef, &s.NodeRef, &s.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrSeekerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seeker: %w", err)
	}

	return &s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECRUITER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RecruiterRepository implements profile.RecruiterRepository for PostgreSQL.
type RecruiterRepository struct {
	conn *Connection
}

// NewRecruiterRepository creates a new RecruiterRepository.
func NewRecruiterRepository(conn *Connection) *RecruiterRepository {
	return &RecruiterRepository{conn: conn}
}

// Create inserts the recruiter row.
func (r *RecruiterRepository) Create(ctx context.Context, rec *profile.Recruiter) error {
	query := `
		INSERT INTO recruiter_profiles (user_id, company_id, node_ref, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query, rec.UserID, rec.CompanyID, rec.NodeRef, rec.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrRecruiterAlreadyExist
		}
		if IsForeignKeyViolation(err) {
			return shared.WrapError("profile", "RegisterRecruiter", shared.ErrNotFound, "user or company does not exist", err)
		}
		return fmt.Errorf("failed to create recruiter: %w", err)
	}

	return nil
}

// GetByUserID returns the recruiter profile of a user.
func (r *RecruiterRepository) GetByUserID(ctx context.Context, userID int64) (*profile.Recruiter, error) {
	query := `
		SELECT user_id, company_id, node_ref, created_at
		FROM recruiter_profiles
		WHERE user_id = $1
	`

	var rec profile.Recruiter
	err := r.conn.QueryRow(ctx, query, userID).Scan(&rec.UserID, &rec.CompanyID, &rec.NodeRef, &rec.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrRecruiterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recruiter: %w", err)
	}

	return &rec, nil
}

// CountByCompany returns recruiters per company.
func (r *RecruiterRepository) CountByCompany(ctx context.Context) (map[int64]int64, error) {
	return countGrouped(ctx, r.conn, `
		SELECT company_id, COUNT(*)
		FROM recruiter_profiles
		GROUP BY company_id
	`)
}

// countGrouped scans (id, count) rows into a map.
func countGrouped(ctx context.Context, q Querier, query string, args ...any) (map[int64]int64, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[id] = n
	}

	return counts, rows.Err()
}
