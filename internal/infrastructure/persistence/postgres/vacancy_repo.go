package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ══════════════════════════════════════════════════════════════════════════════
// VACANCY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// VacancyRepository implements vacancy.Repository for PostgreSQL.
type VacancyRepository struct {
	conn *Connection
}

// NewVacancyRepository creates a new VacancyRepository.
func NewVacancyRepository(conn *Connection) *VacancyRepository {
	return &VacancyRepository{conn: conn}
}

const vacancyColumns = "id, owner_id, document_ref, created_at"

// LoadPage returns one LIMIT/OFFSET window. Ordering by the primary key keeps
// windows stable between calls.
func (r *VacancyRepository) LoadPage(ctx context.Context, limit, offset int) ([]vacancy.Vacancy, error) {
	query := `
		SELECT ` + vacancyColumns + `
		FROM vacancies
		ORDER BY id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load vacancy page: %w", err)
	}
	return scanVacancies(rows)
}

// Create inserts the row and fills in ID and CreatedAt.
func (r *VacancyRepository) Create(ctx context.Context, v *vacancy.Vacancy) error {
	query := `
		INSERT INTO vacancies (owner_id, document_ref)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.conn.QueryRow(ctx, query, v.OwnerID, v.DocumentRef).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrRecruiterNotFound
		}
		return fmt.Errorf("failed to create vacancy: %w", err)
	}

	return nil
}

// GetByID returns a vacancy row.
func (r *VacancyRepository) GetByID(ctx context.Context, id int64) (*vacancy.Vacancy, error) {
	query := `SELECT ` + vacancyColumns + ` FROM vacancies WHERE id = $1`

	var v vacancy.Vacancy
	err := r.conn.QueryRow(ctx, query, id).Scan(&v.ID, &v.OwnerID, &v.DocumentRef, &v.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrVacancyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vacancy: %w", err)
	}

	return &v, nil
}

// Delete removes the row.
func (r *VacancyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM vacancies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete vacancy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrVacancyNotFound
	}
	return nil
}

// ListByOwner returns a recruiter's vacancies, oldest first.
func (r *VacancyRepository) ListByOwner(ctx context.Context, ownerID int64) ([]vacancy.Vacancy, error) {
	query := `
		SELECT ` + vacancyColumns + `
		FROM vacancies
		WHERE owner_id = $1
		ORDER BY id ASC
	`

	rows, err := r.conn.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vacancies: %w", err)
	}
	return scanVacancies(rows)
}

// GetByIDs returns the rows that still exist.
func (r *VacancyRepository) GetByIDs(ctx context.Context, ids []int64) ([]vacancy.Vacancy, error) {
	if len(ids) == 0 {
		return []vacancy.Vacancy{}, nil
	}

	query := `
		SELECT ` + vacancyColumns + `
		FROM vacancies
		WHERE id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacancies by ids: %w", err)
	}
	return scanVacancies(rows)
}

// Count returns the total number of vacancies.
func (r *VacancyRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM vacancies").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vacancies: %w", err)
	}
	return count, nil
}

// CountByCompany returns open vacancies per company through the owner's
// recruiter profile.
func (r *VacancyRepository) CountByCompany(ctx context.Context) (map[int64]int64, error) {
	return countGrouped(ctx, r.conn, `
		SELECT rp.company_id, COUNT(v.id)
		FROM vacancies v
		JOIN recruiter_profiles rp ON rp.user_id = v.owner_id
		GROUP BY rp.company_id
	`)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

func scanVacancies(rows pgx.Rows) ([]vacancy.Vacancy, error) {
	defer rows.Close()

	result := []vacancy.Vacancy{}
	for rows.Next() {
		var v vacancy.Vacancy
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.DocumentRef, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vacancy: %w", err)
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vacancies: %w", err)
	}
	return result, nil
}
