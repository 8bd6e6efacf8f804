package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// VacancyDTO is a vacancy row joined with its body. Body is None when the
// document is missing.
type VacancyDTO struct {
	ID        int64                   `json:"id"`
	OwnerID   int64                   `json:"owner_id"`
	CreatedAt time.Time               `json:"created_at"`
	Body      mo.Option[vacancy.Body] `json:"body"`

	// Applicants is filled only for the owner's own listing.
	Applicants int `json:"applicants,omitempty"`
}

// Position returns the body position or a placeholder.
func (d VacancyDTO) Position() string {
	if b, ok := d.Body.Get(); ok {
		return b.Position
	}
	return "(missing)"
}

// ApplicantDTO describes a seeker who applied to a vacancy.
type ApplicantDTO struct {
	UserID    int64                        `json:"user_id"`
	FullName  string                       `json:"full_name"`
	Portfolio mo.Option[profile.Portfolio] `json:"portfolio"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// VacanciesHandler answers the read-side vacancy queries.
type VacanciesHandler struct {
	vacancies  vacancy.Repository
	bodies     vacancy.BodyFetcher
	graph      vacancy.Graph
	users      profile.UserRepository
	seekers    profile.SeekerRepository
	portfolios profile.PortfolioStore
}

// NewVacanciesHandler creates a new handler.
func NewVacanciesHandler(
	vacancies vacancy.Repository,
	bodies vacancy.BodyFetcher,
	graph vacancy.Graph,
	users profile.UserRepository,
	seekers profile.SeekerRepository,
	portfolios profile.PortfolioStore,
) *VacanciesHandler {
	return &VacanciesHandler{
		vacancies:  vacancies,
		bodies:     bodies,
		graph:      graph,
		users:      users,
		seekers:    seekers,
		portfolios: portfolios,
	}
}

// ListVacanciesQuery pages through all vacancies in cursor order.
type ListVacanciesQuery struct {
	Limit  int
	Offset int
}

// Validate normalizes the query.
func (q *ListVacanciesQuery) Validate() error {
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// List returns one page of vacancies with bodies.
func (h *VacanciesHandler) List(ctx context.Context, q ListVacanciesQuery) ([]VacancyDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "ListVacancies", shared.ErrValidation, err.Error(), err)
	}

	rows, err := h.vacancies.LoadPage(ctx, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list vacancies: %w", err)
	}
	return h.withBodies(ctx, rows)
}

// ListOwn returns the recruiter's vacancies with applicant counts.
func (h *VacanciesHandler) ListOwn(ctx context.Context, recruiterID int64) ([]VacancyDTO, error) {
	rows, err := h.vacancies.ListByOwner(ctx, recruiterID)
	if err != nil {
		return nil, fmt.Errorf("list own vacancies: %w", err)
	}

	out, err := h.withBodies(ctx, rows)
	if err != nil {
		return nil, err
	}
	for i := range out {
		applicants, err := h.graph.Applicants(ctx, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list own vacancies: %w", err)
		}
		out[i].Applicants = len(applicants)
	}
	return out, nil
}

// ListApplicants returns the seekers who applied to the vacancy. Only the
// owner may see them.
func (h *VacanciesHandler) ListApplicants(ctx context.Context, recruiterID, vacancyID int64) ([]ApplicantDTO, error) {
	v, err := h.vacancies.GetByID(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	if !v.IsOwnedBy(recruiterID) {
		return nil, shared.ErrNotVacancyOwner
	}

	ids, err := h.graph.Applicants(ctx, vacancyID)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}

	out := make([]ApplicantDTO, 0, len(ids))
	for _, id := range ids {
		dto := ApplicantDTO{UserID: id}
		if user, err := h.users.GetByID(ctx, id); err == nil {
			dto.FullName = user.FullName()
		}
		if seeker, err := h.seekers.GetByUserID(ctx, id); err == nil {
			if p, err := h.portfolios.GetPortfolio(ctx, seeker.PortfolioRef); err == nil {
				dto.Portfolio = p
			}
		}
		out = append(out, dto)
	}
	return out, nil
}

// ListApplications returns the vacancies the seeker applied to that still
// exist.
func (h *VacanciesHandler) ListApplications(ctx context.Context, seekerID int64) ([]VacancyDTO, error) {
	ids, err := h.graph.Applications(ctx, seekerID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	rows, err := h.vacancies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return h.withBodies(ctx, rows)
}

func (h *VacanciesHandler) withBodies(ctx context.Context, rows []vacancy.Vacancy) ([]VacancyDTO, error) {
	out := make([]VacancyDTO, 0, len(rows))
	for _, v := range rows {
		body, err := h.bodies.GetBody(ctx, v.DocumentRef)
		if err != nil {
			return nil, fmt.Errorf("load vacancy %d body: %w", v.ID, err)
		}
		out = append(out, VacancyDTO{
			ID:        v.ID,
			OwnerID:   v.OwnerID,
			CreatedAt: v.CreatedAt,
			Body:      body,
		})
	}
	return out, nil
}
