// Package vacancy contains the vacancy domain model: the relational record,
// its document-store body and the browsing filter.
package vacancy

import (
	"strings"
	"time"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VACANCY RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Vacancy is the relational row of a published vacancy. The free-form content
// lives in the document store and is addressed by DocumentRef.
type Vacancy struct {
	ID          int64
	OwnerID     int64
	DocumentRef string
	CreatedAt   time.Time
}

// IsOwnedBy reports whether the recruiter with the given user ID published it.
func (v Vacancy) IsOwnedBy(userID int64) bool {
	return v.OwnerID == userID
}

// ══════════════════════════════════════════════════════════════════════════════
// VACANCY BODY
// ══════════════════════════════════════════════════════════════════════════════

// Body is the document-store content of a vacancy.
type Body struct {
	Position    string `json:"position" bson:"position"`
	Description string `json:"description" bson:"description"`
	Salary      int64  `json:"salary" bson:"salary"`
}

// NewBody validates and normalizes a body before it is stored.
func NewBody(position, description string, salary int64) (Body, error) {
	position = strings.TrimSpace(position)
	if position == "" {
		return Body{}, shared.ErrEmptyPosition
	}
	if salary < 0 {
		return Body{}, shared.ErrNegativeSalary
	}
	return Body{
		Position:    position,
		Description: strings.TrimSpace(description),
		Salary:      salary,
	}, nil
}

// Listing couples a record with its body for presentation.
type Listing struct {
	Vacancy Vacancy
	Body    Body
}
