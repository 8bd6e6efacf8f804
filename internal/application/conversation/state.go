// Package conversation holds the per-user dialogue state of the bot: which
// question was asked last and the draft assembled from earlier answers.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
)

// Step names the input the bot is waiting for.
type Step string

const (
	StepIdle Step = ""

	// Registration and renaming.
	StepFirstName Step = "user.first_name"
	StepLastName  Step = "user.last_name"

	// Portfolio.
	StepPosition              Step = "seeker.position"
	StepExperienceTitle       Step = "seeker.experience_title"
	StepExperienceDescription Step = "seeker.experience_description"
	StepExperienceTimeline    Step = "seeker.experience_timeline"
	StepExperienceConfirm     Step = "seeker.experience_confirm"

	// Search filter.
	StepFilterSalary   Step = "search.filter_salary"
	StepFilterPosition Step = "search.filter_position"

	// Recruiter onboarding.
	StepCompanyQuery   Step = "recruiter.company_query"
	StepCompanyPick    Step = "recruiter.company_pick"
	StepCompanyName    Step = "recruiter.company_name"
	StepCompanyWebsite Step = "recruiter.company_website"

	// Publishing.
	StepVacancyPosition    Step = "vacancy.position"
	StepVacancyDescription Step = "vacancy.description"
	StepVacancySalary      Step = "vacancy.salary"
	StepVacancyConfirm     Step = "vacancy.confirm"
)

// Draft accumulates answers until the flow commits them.
type Draft struct {
	FirstName string `json:"first_name,omitempty"`

	// Renaming an existing user rather than registering a new one.
	Renaming bool `json:"renaming,omitempty"`

	// Portfolio in progress. EditingPortfolio replaces instead of registering.
	Position         string               `json:"position,omitempty"`
	Experiences      []profile.Experience `json:"experiences,omitempty"`
	Experience       profile.Experience   `json:"experience"`
	EditingPortfolio bool                 `json:"editing_portfolio,omitempty"`

	// Raw salary answer kept until the position answer arrives.
	FilterSalary string `json:"filter_salary,omitempty"`

	CompanyQuery string `json:"company_query,omitempty"`
	CompanyPage  int    `json:"company_page,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`

	VacancyPosition    string `json:"vacancy_position,omitempty"`
	VacancyDescription string `json:"vacancy_description,omitempty"`
	VacancySalary      int64  `json:"vacancy_salary,omitempty"`
}

// State is what the store keeps per user.
type State struct {
	Step      Step      `json:"step"`
	Draft     Draft     `json:"draft"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsIdle reports whether no question is pending.
func (s State) IsIdle() bool {
	return s.Step == StepIdle
}

// To returns a copy moved to the next step with the draft kept.
func (s State) To(step Step) State {
	s.Step = step
	return s
}

// Store persists dialogue state between updates.
type Store interface {
	// Get returns the idle state when nothing is stored.
	Get(ctx context.Context, userID int64) (State, error)
	Save(ctx context.Context, userID int64, s State) error
	Clear(ctx context.Context, userID int64) error
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY STORE
// ══════════════════════════════════════════════════════════════════════════════

// MemoryStore keeps state in process memory. Used in tests and when Redis
// is disabled.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, userID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID], nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, userID int64, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = time.Now()
	m.states[userID] = s
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}
