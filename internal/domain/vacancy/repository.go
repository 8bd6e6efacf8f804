package vacancy

import (
	"context"

	"github.com/samber/mo"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// PageLoader is the single relational capability the browsing cursor needs.
type PageLoader interface {
	// LoadPage returns up to limit records starting at offset, ordered by ID.
	// No rows is an empty slice and a nil error.
	LoadPage(ctx context.Context, limit, offset int) ([]Vacancy, error)
}

// Repository stores vacancy rows in the relational store.
type Repository interface {
	PageLoader

	// Create inserts the row and fills in ID and CreatedAt.
	Create(ctx context.Context, v *Vacancy) error

	// GetByID returns ErrVacancyNotFound if the row does not exist.
	GetByID(ctx context.Context, id int64) (*Vacancy, error)

	// Delete removes the row. Returns ErrVacancyNotFound if it did not exist.
	Delete(ctx context.Context, id int64) error

	// ListByOwner returns the recruiter's vacancies, oldest first.
	ListByOwner(ctx context.Context, ownerID int64) ([]Vacancy, error)

	// GetByIDs returns the rows that still exist, in ID order.
	GetByIDs(ctx context.Context, ids []int64) ([]Vacancy, error)

	// Count returns the total number of vacancies.
	Count(ctx context.Context) (int, error)

	// CountByCompany returns open vacancies per company ID.
	CountByCompany(ctx context.Context) (map[int64]int64, error)
}

// BodyFetcher resolves a document reference to the vacancy body.
type BodyFetcher interface {
	// GetBody returns None when the document does not exist.
	GetBody(ctx context.Context, ref string) (mo.Option[Body], error)
}

// BodyStore keeps vacancy bodies in the document store.
type BodyStore interface {
	BodyFetcher

	// InsertBody stores the body and returns its opaque reference.
	InsertBody(ctx context.Context, body Body) (string, error)

	// DeleteBody removes the document. Missing documents are not an error.
	DeleteBody(ctx context.Context, ref string) error
}

// Graph keeps the publication and application relationships.
type Graph interface {
	// AddVacancy creates the Vacancy node and its PUBLISHED_BY edge.
	AddVacancy(ctx context.Context, vacancyID, recruiterID int64) error

	// RemoveVacancy deletes the node with all of its edges.
	RemoveVacancy(ctx context.Context, vacancyID int64) error

	// Apply creates the APPLIED_TO edge. It reports false when the edge
	// already existed.
	Apply(ctx context.Context, seekerID, vacancyID int64) (bool, error)

	// Applicants returns seeker user IDs that applied to the vacancy.
	Applicants(ctx context.Context, vacancyID int64) ([]int64, error)

	// Applications returns vacancy IDs the seeker applied to.
	Applications(ctx context.Context, seekerID int64) ([]int64, error)
}
