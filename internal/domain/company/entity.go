// Package company models employers that recruiters belong to and the
// counters shown on a company card.
package company

import (
	"net/url"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// PageSize is the number of companies per page in search results.
const PageSize = 5

// Company is an employer registered by a recruiter.
type Company struct {
	ID        int64
	Name      string
	Website   string
	CreatedAt time.Time
}

// NewCompany validates the name and normalizes the website. An empty website
// or "-" means none.
func NewCompany(name, website string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrEmptyCompanyName
	}

	website = strings.TrimSpace(website)
	if website == "-" {
		website = ""
	}
	if website != "" {
		if !strings.Contains(website, "://") {
			website = "https://" + website
		}
		u, err := url.Parse(website)
		if err != nil || u.Host == "" {
			return nil, shared.NewDomainError("company", "Validate", shared.ErrInvalidInput, "website is not a valid URL")
		}
	}

	return &Company{Name: name, Website: website, CreatedAt: time.Now().UTC()}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics are the cached counters of a company. A counter that was never
// written is None and shown as unknown.
type Metrics struct {
	CompanyID     int64
	Employees     mo.Option[int64]
	OpenVacancies mo.Option[int64]
}

// Page is one page of a company search.
type Page struct {
	Companies []Company
	Page      int
	HasPrev   bool
	HasNext   bool
}

// NewPage slices a search result that was fetched with one extra row.
func NewPage(rows []Company, page int) Page {
	p := Page{Page: page, HasPrev: page > 0}
	if len(rows) > PageSize {
		rows = rows[:PageSize]
		p.HasNext = true
	}
	p.Companies = rows
	return p
}
