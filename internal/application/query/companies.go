package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH COMPANIES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// SearchCompaniesQuery is a case-insensitive name prefix search.
type SearchCompaniesQuery struct {
	Prefix string

	// Page is zero-based.
	Page int
}

// Validate normalizes the query.
func (q *SearchCompaniesQuery) Validate() error {
	q.Prefix = strings.TrimSpace(q.Prefix)
	if q.Prefix == "" {
		return errors.New("prefix cannot be empty")
	}
	if q.Page < 0 {
		q.Page = 0
	}
	return nil
}

// SearchCompaniesHandler handles SearchCompaniesQuery.
type SearchCompaniesHandler struct {
	companies company.Repository
}

// NewSearchCompaniesHandler creates a new handler.
func NewSearchCompaniesHandler(companies company.Repository) *SearchCompaniesHandler {
	return &SearchCompaniesHandler{companies: companies}
}

// Handle fetches one row past the page to learn whether a next page exists.
func (h *SearchCompaniesHandler) Handle(ctx context.Context, q SearchCompaniesQuery) (company.Page, error) {
	if err := q.Validate(); err != nil {
		return company.Page{}, shared.WrapError("query", "SearchCompanies", shared.ErrValidation, err.Error(), err)
	}

	rows, err := h.companies.SearchByPrefix(ctx, q.Prefix, company.PageSize+1, q.Page*company.PageSize)
	if err != nil {
		return company.Page{}, fmt.Errorf("search companies: %w", err)
	}
	return company.NewPage(rows, q.Page), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET COMPANY METRICS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// CompanyCardDTO is a company with its counters.
type CompanyCardDTO struct {
	Company company.Company
	Metrics company.Metrics
}

// GetCompanyMetricsHandler builds a company card.
type GetCompanyMetricsHandler struct {
	companies company.Repository
	metrics   company.MetricsStore
}

// NewGetCompanyMetricsHandler creates a new handler.
func NewGetCompanyMetricsHandler(companies company.Repository, metrics company.MetricsStore) *GetCompanyMetricsHandler {
	return &GetCompanyMetricsHandler{companies: companies, metrics: metrics}
}

// Handle returns the card. Counters that cannot be read are left unknown
// rather than failing the card.
func (h *GetCompanyMetricsHandler) Handle(ctx context.Context, companyID int64) (*CompanyCardDTO, error) {
	c, err := h.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	m, err := h.metrics.Get(ctx, companyID)
	if err != nil {
		m = company.Metrics{CompanyID: companyID}
	}

	return &CompanyCardDTO{Company: *c, Metrics: m}, nil
}
