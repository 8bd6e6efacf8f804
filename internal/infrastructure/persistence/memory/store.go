// Package memory keeps every store the bot needs in process memory. It backs
// the bot in STORAGE_BACKEND=memory mode and the application-level tests.
// Ordering and error semantics follow the Postgres, MongoDB, Neo4j and Redis
// implementations.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// Store is a single in-memory backend. Obtain typed views through its
// accessor methods.
type Store struct {
	mu sync.RWMutex

	users      map[int64]profile.User
	seekers    map[int64]profile.Seeker
	recruiters map[int64]profile.Recruiter
	portfolios map[string]profile.Portfolio

	companies []company.Company
	counters  map[int64]*counters

	vacancies []vacancy.Vacancy
	bodies    map[string]vacancy.Body

	published map[int64]int64
	applied   map[int64][]int64

	profiles map[int64]profile.Profile

	nextCompanyID int64
	nextVacancyID int64
	nextRef       int64
}

type counters struct {
	employees mo.Option[int64]
	vacancies mo.Option[int64]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[int64]profile.User),
		seekers:    make(map[int64]profile.Seeker),
		recruiters: make(map[int64]profile.Recruiter),
		portfolios: make(map[string]profile.Portfolio),
		counters:   make(map[int64]*counters),
		bodies:     make(map[string]vacancy.Body),
		published:  make(map[int64]int64),
		applied:    make(map[int64][]int64),
		profiles:   make(map[int64]profile.Profile),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ref(prefix string) string {
	s.nextRef++
	return fmt.Sprintf("%s-%d", prefix, s.nextRef)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

// Users returns the user repository view.
func (s *Store) Users() profile.UserRepository { return userRepo{s} }

// Seekers returns the seeker repository view.
func (s *Store) Seekers() profile.SeekerRepository { return seekerRepo{s} }

// Recruiters returns the recruiter repository view.
func (s *Store) Recruiters() profile.RecruiterRepository { return recruiterRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *profile.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return shared.ErrUserAlreadyExists
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*profile.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepo) Update(_ context.Context, u *profile.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.s.users[u.ID] = *u
	return nil
}

type seekerRepo struct{ s *Store }

func (r seekerRepo) Create(_ context.Context, sk *profile.Seeker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.seekers[sk.UserID]; ok {
		return shared.ErrSeekerAlreadyExists
	}
	r.s.seekers[sk.UserID] = *sk
	return nil
}

func (r seekerRepo) GetByUserID(_ context.Context, userID int64) (*profile.Seeker, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sk, ok := r.s.seekers[userID]
	if !ok {
		return nil, shared.ErrSeekerNotFound
	}
	return &sk, nil
}

type recruiterRepo struct{ s *Store }

func (r recruiterRepo) Create(_ context.Context, rec *profile.Recruiter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recruiters[rec.UserID]; ok {
		return shared.ErrRecruiterAlreadyExist
	}
	r.s.recruiters[rec.UserID] = *rec
	return nil
}

func (r recruiterRepo) GetByUserID(_ context.Context, userID int64) (*profile.Recruiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.recruiters[userID]
	if !ok {
		return nil, shared.ErrRecruiterNotFound
	}
	return &rec, nil
}

func (r recruiterRepo) CountByCompany(context.Context) (map[int64]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[int64]int64)
	for _, rec := range r.s.recruiters {
		out[rec.CompanyID]++
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENTS
// ══════════════════════════════════════════════════════════════════════════════

// InsertPortfolio implements profile.PortfolioStore.
func (s *Store) InsertPortfolio(_ context.Context, p profile.Portfolio) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.ref("portfolio")
	s.portfolios[ref] = p
	return ref, nil
}

// GetPortfolio implements profile.PortfolioStore.
func (s *Store) GetPortfolio(_ context.Context, ref string) (mo.Option[profile.Portfolio], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[ref]
	return mo.TupleToOption(p, ok), nil
}

// ReplacePortfolio implements profile.PortfolioStore.
func (s *Store) ReplacePortfolio(_ context.Context, ref string, p profile.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[ref]; !ok {
		return shared.NewDomainError("documents", "ReplacePortfolio", shared.ErrNotFound, "portfolio not found")
	}
	s.portfolios[ref] = p
	return nil
}

// InsertBody implements vacancy.BodyStore.
func (s *Store) InsertBody(_ context.Context, body vacancy.Body) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.ref("vacancy")
	s.bodies[ref] = body
	return ref, nil
}

// GetBody implements vacancy.BodyFetcher.
func (s *Store) GetBody(_ context.Context, ref string) (mo.Option[vacancy.Body], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[ref]
	return mo.TupleToOption(b, ok), nil
}

// DeleteBody implements vacancy.BodyStore.
func (s *Store) DeleteBody(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bodies, ref)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPANIES
// ══════════════════════════════════════════════════════════════════════════════

// Companies returns the company repository view.
func (s *Store) Companies() company.Repository { return companyRepo{s} }

type companyRepo struct{ s *Store }

func (r companyRepo) Create(_ context.Context, c *company.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.companies {
		if strings.EqualFold(existing.Name, c.Name) {
			return shared.ErrCompanyAlreadyExists
		}
	}
	r.s.nextCompanyID++
	c.ID = r.s.nextCompanyID
	r.s.companies = append(r.s.companies, *c)
	return nil
}

func (r companyRepo) GetByID(_ context.Context, id int64) (*company.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.companies {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, shared.ErrCompanyNotFound
}

func (r companyRepo) SearchByPrefix(_ context.Context, prefix string, limit, offset int) ([]company.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var matched []company.Company
	for _, c := range r.s.companies {
		if strings.HasPrefix(strings.ToLower(c.Name), prefix) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return window(matched, limit, offset), nil
}

func (r companyRepo) ListIDs(context.Context) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]int64, 0, len(r.s.companies))
	for _, c := range r.s.companies {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// Metrics returns the counter store view.
func (s *Store) Metrics() company.MetricsStore { return metricsStore{s} }

type metricsStore struct{ s *Store }

func (m metricsStore) Get(_ context.Context, companyID int64) (company.Metrics, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := company.Metrics{CompanyID: companyID}
	if c, ok := m.s.counters[companyID]; ok {
		out.Employees = c.employees
		out.OpenVacancies = c.vacancies
	}
	return out, nil
}

func (m metricsStore) AddEmployees(_ context.Context, companyID, delta int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := m.s.counter(companyID)
	c.employees = mo.Some(max(c.employees.OrEmpty()+delta, 0))
	return nil
}

func (m metricsStore) AddVacancies(_ context.Context, companyID, delta int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := m.s.counter(companyID)
	c.vacancies = mo.Some(max(c.vacancies.OrEmpty()+delta, 0))
	return nil
}

func (m metricsStore) Set(_ context.Context, companyID, employees, vacancies int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := m.s.counter(companyID)
	c.employees = mo.Some(employees)
	c.vacancies = mo.Some(vacancies)
	return nil
}

func (s *Store) counter(companyID int64) *counters {
	c, ok := s.counters[companyID]
	if !ok {
		c = &counters{}
		s.counters[companyID] = c
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// VACANCIES
// ══════════════════════════════════════════════════════════════════════════════

// Vacancies returns the vacancy repository view.
func (s *Store) Vacancies() vacancy.Repository { return vacancyRepo{s} }

type vacancyRepo struct{ s *Store }

func (r vacancyRepo) LoadPage(_ context.Context, limit, offset int) ([]vacancy.Vacancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return window(r.s.vacancies, limit, offset), nil
}

func (r vacancyRepo) Create(_ context.Context, v *vacancy.Vacancy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextVacancyID++
	v.ID = r.s.nextVacancyID
	r.s.vacancies = append(r.s.vacancies, *v)
	return nil
}

func (r vacancyRepo) GetByID(_ context.Context, id int64) (*vacancy.Vacancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.vacancies {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, shared.ErrVacancyNotFound
}

func (r vacancyRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, v := range r.s.vacancies {
		if v.ID == id {
			r.s.vacancies = append(r.s.vacancies[:i:i], r.s.vacancies[i+1:]...)
			return nil
		}
	}
	return shared.ErrVacancyNotFound
}

func (r vacancyRepo) ListByOwner(_ context.Context, ownerID int64) ([]vacancy.Vacancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []vacancy.Vacancy{}
	for _, v := range r.s.vacancies {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r vacancyRepo) GetByIDs(_ context.Context, ids []int64) ([]vacancy.Vacancy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []vacancy.Vacancy{}
	for _, v := range r.s.vacancies {
		if want[v.ID] {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r vacancyRepo) Count(context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.vacancies), nil
}

func (r vacancyRepo) CountByCompany(context.Context) (map[int64]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[int64]int64)
	for _, v := range r.s.vacancies {
		if rec, ok := r.s.recruiters[v.OwnerID]; ok {
			out[rec.CompanyID]++
		}
	}
	return out, nil
}

func window[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) || limit <= 0 {
		return []T{}
	}
	end := min(offset+limit, len(rows))
	return append([]T(nil), rows[offset:end]...)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRAPH
// ══════════════════════════════════════════════════════════════════════════════

// AddSeeker implements profile.Graph.
func (s *Store) AddSeeker(_ context.Context, userID int64) (string, error) {
	return fmt.Sprintf("seeker:%d", userID), nil
}

// AddRecruiter implements profile.Graph.
func (s *Store) AddRecruiter(_ context.Context, userID, _ int64) (string, error) {
	return fmt.Sprintf("recruiter:%d", userID), nil
}

// AddVacancy implements vacancy.Graph.
func (s *Store) AddVacancy(_ context.Context, vacancyID, recruiterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[vacancyID] = recruiterID
	return nil
}

// RemoveVacancy implements vacancy.Graph.
func (s *Store) RemoveVacancy(_ context.Context, vacancyID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.published, vacancyID)
	delete(s.applied, vacancyID)
	return nil
}

// Apply implements vacancy.Graph.
func (s *Store) Apply(_ context.Context, seekerID, vacancyID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.published[vacancyID]; !ok {
		return false, shared.ErrVacancyNotFound
	}
	for _, id := range s.applied[vacancyID] {
		if id == seekerID {
			return false, nil
		}
	}
	s.applied[vacancyID] = append(s.applied[vacancyID], seekerID)
	return true, nil
}

// Applicants implements vacancy.Graph.
func (s *Store) Applicants(_ context.Context, vacancyID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64{}, s.applied[vacancyID]...), nil
}

// Applications implements vacancy.Graph.
func (s *Store) Applications(_ context.Context, seekerID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []int64{}
	for vacancyID, seekers := range s.applied {
		for _, id := range seekers {
			if id == seekerID {
				out = append(out, vacancyID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileCache returns the profile cache view.
func (s *Store) ProfileCache() profile.Cache { return profileCache{s} }

type profileCache struct{ s *Store }

func (c profileCache) Get(_ context.Context, userID int64) (mo.Option[profile.Profile], error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	p, ok := c.s.profiles[userID]
	return mo.TupleToOption(p, ok), nil
}

func (c profileCache) Set(_ context.Context, p profile.Profile) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.profiles[p.User.ID] = p
	return nil
}

func (c profileCache) Invalidate(_ context.Context, userID int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.profiles, userID)
	return nil
}
