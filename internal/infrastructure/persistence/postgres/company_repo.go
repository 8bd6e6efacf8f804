package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// CompanyRepository implements company.Repository for PostgreSQL.
type CompanyRepository struct {
	conn *Connection
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(conn *Connection) *CompanyRepository {
	return &CompanyRepository{conn: conn}
}

// Create inserts the company and fills in its ID.
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	query := `
		INSERT INTO companies (name, website, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.conn.QueryRow(ctx, query, c.Name, c.Website, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCompanyAlreadyExists
		}
		return fmt.Errorf("failed to create company: %w", err)
	}

	return nil
}

// GetByID returns a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*company.Company, error) {
	query := `
		SELECT id, name, website, created_at
		FROM companies
		WHERE id = $1
	`

	var c company.Company
	err := r.conn.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Website, &c.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &c, nil
}

// SearchByPrefix runs a case-insensitive prefix search. LIKE wildcards in
// the prefix are matched literally.
func (r *CompanyRepository) SearchByPrefix(ctx context.Context, prefix string, limit, offset int) ([]company.Company, error) {
	query := `
		SELECT id, name, website, created_at
		FROM companies
		WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, escapeLike(strings.TrimSpace(prefix))+"%", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}
	defer rows.Close()

	result := make([]company.Company, 0, limit)
	for rows.Next() {
		var c company.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Website, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

// ListIDs returns every company ID in ascending order.
func (r *CompanyRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.conn.Query(ctx, "SELECT id FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
