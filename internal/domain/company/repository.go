package company

import "context"

// Repository stores companies in the relational store.
type Repository interface {
	// Create fills in ID. Returns ErrCompanyAlreadyExists for a duplicate name.
	Create(ctx context.Context, c *Company) error

	GetByID(ctx context.Context, id int64) (*Company, error)

	// SearchByPrefix matches names case-insensitively, ordered by name.
	SearchByPrefix(ctx context.Context, prefix string, limit, offset int) ([]Company, error)

	// ListIDs returns every company ID.
	ListIDs(ctx context.Context) ([]int64, error)
}

// MetricsStore keeps the per-company counters in the key-value cache.
type MetricsStore interface {
	Get(ctx context.Context, companyID int64) (Metrics, error)

	// AddEmployees and AddVacancies apply delta and never go below zero.
	AddEmployees(ctx context.Context, companyID, delta int64) error
	AddVacancies(ctx context.Context, companyID, delta int64) error

	// Set overwrites both counters.
	Set(ctx context.Context, companyID, employees, vacancies int64) error
}
