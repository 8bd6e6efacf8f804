package presenter

import (
	"fmt"
	"html"
	"strings"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// ParseModeHTML is used for every message the bot sends.
const ParseModeHTML = "HTML"

const maxDescription = 700

// esc escapes user supplied text for HTML parse mode.
func esc(s string) string {
	return html.EscapeString(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ══════════════════════════════════════════════════════════════════════════════
// VACANCIES
// ══════════════════════════════════════════════════════════════════════════════

// VacancyCard renders the record under the search cursor. position is the
// 1-based ordinal of the record in the full listing.
func VacancyCard(l vacancy.Listing, position int, filter vacancy.Filter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💼 <b>%s</b>\n", esc(l.Body.Position))
	fmt.Fprintf(&sb, "💰 %s\n", Salary(l.Body.Salary))
	if l.Body.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", esc(truncate(l.Body.Description, maxDescription)))
	}
	fmt.Fprintf(&sb, "\n<i>#%d · published %s</i>", position, l.Vacancy.CreatedAt.Format("2006-01-02"))
	if !filter.IsEmpty() {
		fmt.Fprintf(&sb, "\n🎛 Filter: %s", esc(filter.String()))
	}
	return sb.String()
}

// VacancyMissing is shown when the record exists but its document is gone.
func VacancyMissing(position int) string {
	return fmt.Sprintf("⚠️ Vacancy #%d is no longer available.", position)
}

// Salary renders a salary amount; zero reads as not specified.
func Salary(amount int64) string {
	if amount == 0 {
		return "not specified"
	}
	s := fmt.Sprintf("%d", amount)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// VacancyList renders a short list such as My applications.
func VacancyList(title string, items []query.VacancyDTO) string {
	if len(items) == 0 {
		return title + "\n\nNothing here yet."
	}
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	for i, v := range items {
		salary := "?"
		if b, ok := v.Body.Get(); ok {
			salary = Salary(b.Salary)
		}
		fmt.Fprintf(&sb, "\n%d. <b>%s</b> · %s", i+1, esc(v.Position()), salary)
	}
	return sb.String()
}

// OwnVacancy renders one entry of My vacancies.
func OwnVacancy(v query.VacancyDTO) string {
	text := fmt.Sprintf("💼 <b>%s</b>", esc(v.Position()))
	if b, ok := v.Body.Get(); ok {
		text += "\n💰 " + Salary(b.Salary)
	}
	return text + fmt.Sprintf("\n<i>published %s</i>", v.CreatedAt.Format("2006-01-02"))
}

// VacancyPreview is shown before publishing.
func VacancyPreview(position, description string, salary int64) string {
	return fmt.Sprintf("Please check the vacancy:\n\n💼 <b>%s</b>\n💰 %s\n\n%s",
		esc(position), Salary(salary), esc(description))
}

// Applicants lists the seekers who applied to a vacancy.
func Applicants(position string, applicants []query.ApplicantDTO) string {
	if len(applicants) == 0 {
		return fmt.Sprintf("👥 <b>%s</b>\n\nNo applications yet.", esc(position))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 <b>%s</b>: %d applicant(s)\n", esc(position), len(applicants))
	for i, a := range applicants {
		fmt.Fprintf(&sb, "\n%d. <a href=\"tg://user?id=%d\">%s</a>", i+1, a.UserID, esc(a.FullName))
		if p, ok := a.Portfolio.Get(); ok {
			fmt.Fprintf(&sb, ", %s", esc(p.Position))
			for _, e := range p.Experiences {
				fmt.Fprintf(&sb, "\n   • %s", esc(e.Title))
				if e.Timeline != "" {
					fmt.Fprintf(&sb, " (%s)", esc(e.Timeline))
				}
			}
		}
	}
	return sb.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

// Welcome greets a registered user with the main menu.
func Welcome(u profile.User) string {
	return fmt.Sprintf("Hi, <b>%s</b>! 👋\n\nWhat would you like to do?", esc(u.FirstName))
}

// Portfolio renders a seeker's portfolio.
func Portfolio(p mo.Option[profile.Portfolio]) string {
	pf, ok := p.Get()
	if !ok {
		return "📝 Your portfolio is not available right now."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>%s</b>", esc(pf.Position))
	if len(pf.Experiences) == 0 {
		sb.WriteString("\n\nNo experience listed.")
	}
	for _, e := range pf.Experiences {
		fmt.Fprintf(&sb, "\n\n<b>%s</b>", esc(e.Title))
		if e.Timeline != "" {
			fmt.Fprintf(&sb, " <i>%s</i>", esc(e.Timeline))
		}
		if e.Description != "" {
			fmt.Fprintf(&sb, "\n%s", esc(e.Description))
		}
	}
	return sb.String()
}

// ExperienceSummary is shown before the seeker confirms an entry.
func ExperienceSummary(e profile.Experience) string {
	return fmt.Sprintf("<b>%s</b> <i>%s</i>\n%s", esc(e.Title), esc(e.Timeline), esc(e.Description))
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPANIES
// ══════════════════════════════════════════════════════════════════════════════

// CompanyResults heads the company search keyboard.
func CompanyResults(prefix string, p company.Page) string {
	if len(p.Companies) == 0 {
		return fmt.Sprintf("No companies start with «%s».", esc(prefix))
	}
	return fmt.Sprintf("Companies matching «%s» (page %d). Pick yours:", esc(prefix), p.Page+1)
}

// CompanyCard renders a company with its counters.
func CompanyCard(c query.CompanyCardDTO) string {
	return fmt.Sprintf("🏢 <b>%s</b>\n\n👥 Employees: %s\n💼 Open vacancies: %s",
		esc(c.Company.Name), counter(c.Metrics.Employees), counter(c.Metrics.OpenVacancies))
}

func counter(v mo.Option[int64]) string {
	n, ok := v.Get()
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%d", n)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELP
// ══════════════════════════════════════════════════════════════════════════════

// Help lists the bot commands.
func Help() string {
	return "<b>Commands</b>\n\n" +
		"/start · main menu or registration\n" +
		"/search · browse vacancies\n" +
		"/cancel · abort the current dialogue and close search\n" +
		"/help · this message\n\n" +
		"Seekers browse vacancies with ◀ ▶, narrow them with a filter and apply in one tap. " +
		"Recruiters publish vacancies and review applicants."
}
