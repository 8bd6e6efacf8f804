// Package profile models the people behind a Telegram account: the base user
// and the optional seeker and recruiter roles layered on top of it.
package profile

import (
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a registered account. ID is the Telegram user ID.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// NewUser validates names and returns a user ready to be stored.
func NewUser(id int64, firstName, lastName string) (*User, error) {
	if id <= 0 {
		return nil, shared.ErrInvalidUserID
	}
	u := &User{ID: id, CreatedAt: time.Now().UTC()}
	if err := u.Rename(firstName, lastName); err != nil {
		return nil, err
	}
	return u, nil
}

// Rename replaces both names.
func (u *User) Rename(firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return shared.ErrEmptyName
	}
	u.FirstName = firstName
	u.LastName = lastName
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEKER
// ══════════════════════════════════════════════════════════════════════════════

// Experience is one entry of a seeker's work history.
type Experience struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
	Timeline    string `json:"timeline" bson:"timeline"`
}

// Portfolio is the document-store part of a seeker profile.
type Portfolio struct {
	Position    string       `json:"position" bson:"position"`
	Experiences []Experience `json:"experiences" bson:"experiences"`
}

// NewPortfolio validates the desired position and drops untitled experiences.
func NewPortfolio(position string, experiences []Experience) (Portfolio, error) {
	position = strings.TrimSpace(position)
	if position == "" {
		return Portfolio{}, shared.ErrEmptyPosition
	}

	kept := make([]Experience, 0, len(experiences))
	for _, e := range experiences {
		e.Title = strings.TrimSpace(e.Title)
		if e.Title == "" {
			continue
		}
		e.Description = strings.TrimSpace(e.Description)
		e.Timeline = strings.TrimSpace(e.Timeline)
		kept = append(kept, e)
	}

	return Portfolio{Position: position, Experiences: kept}, nil
}

// Seeker is the relational row of a job seeker.
type Seeker struct {
	UserID       int64
	PortfolioRef string
	NodeRef      string
	CreatedAt    time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// RECRUITER
// ══════════════════════════════════════════════════════════════════════════════

// Recruiter is the relational row of a recruiter bound to one company.
type Recruiter struct {
	UserID    int64
	CompanyID int64
	NodeRef   string
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATED VIEW
// ══════════════════════════════════════════════════════════════════════════════

// Profile is everything known about a user, as shown by the bot.
type Profile struct {
	User      User
	Seeker    mo.Option[Seeker]
	Recruiter mo.Option[Recruiter]
}

// IsSeeker reports whether the seeker role is registered.
func (p Profile) IsSeeker() bool { return p.Seeker.IsPresent() }

// IsRecruiter reports whether the recruiter role is registered.
func (p Profile) IsRecruiter() bool { return p.Recruiter.IsPresent() }
