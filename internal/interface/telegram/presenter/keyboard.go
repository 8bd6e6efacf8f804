// Package presenter formats data for Telegram display.
// Presenters handle the conversion from domain objects to user-friendly
// Telegram messages, keyboards, and other UI elements.
package presenter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/domain/company"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// These types represent Telegram inline keyboards independently of the client.
// The router converts them to the Bot API format.
// ══════════════════════════════════════════════════════════════════════════════

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	// Text is the button text.
	Text string

	// CallbackData is the callback data (for callback buttons).
	CallbackData string

	// URL is the URL to open (for URL buttons).
	URL string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{
		Rows: make([][]InlineButton, 0),
	}
}

// AddRow adds a row of buttons. Empty rows are skipped.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	if len(buttons) > 0 {
		k.Rows = append(k.Rows, buttons)
	}
	return k
}

// Find returns the button carrying the callback data, if any.
func (k *InlineKeyboard) Find(callbackData string) (InlineButton, bool) {
	if k == nil {
		return InlineButton{}, false
	}
	for _, row := range k.Rows {
		for _, b := range row {
			if b.CallbackData == callbackData {
				return b, true
			}
		}
	}
	return InlineButton{}, false
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL button.
func URLButton(text, url string) InlineButton {
	return InlineButton{
		Text: text,
		URL:  url,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CALLBACK DATA
// Callback payloads are "<prefix>:<action>[:<arg>]". Telegram caps them at
// 64 bytes.
// ══════════════════════════════════════════════════════════════════════════════

const (
	CbMainMenu      = "menu:main"
	CbSeekerMenu    = "menu:seeker"
	CbRecruiterMenu = "menu:recruiter"
	CbEditProfile   = "menu:profile"

	CbSearch            = "seeker:search"
	CbEditPortfolio     = "seeker:portfolio"
	CbMyApplications    = "seeker:applications"
	CbNoExperience      = "exp:none"
	CbConfirmExp        = "exp:confirm"
	CbAddExperience     = "exp:add"
	CbSearchNext        = "search:next"
	CbSearchPrev        = "search:prev"
	CbSearchApply       = "search:apply"
	CbSearchFilter      = "search:filter"
	CbSearchReset       = "search:reset"
	CbSearchClose       = "search:close"
	CbCompanyPage       = "company:page:"
	CbCompanyPick       = "company:pick:"
	CbCompanyNew        = "company:new"
	CbCompanyAgain      = "company:again"
	CbPublish           = "rec:publish"
	CbMyVacancies       = "rec:vacancies"
	CbCompanyStats      = "rec:stats"
	CbConfirmVacancy    = "vac:confirm"
	CbCancelVacancy     = "vac:cancel"
	CbDeleteVacancy     = "vac:del:"
	CbVacancyApplicants = "vac:apps:"
)

// WithID appends a numeric argument to a callback prefix.
func WithID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// ParseID extracts the numeric argument after prefix.
func ParseID(data, prefix string) (int64, error) {
	raw, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, fmt.Errorf("callback %q lacks prefix %q", data, prefix)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// Builds keyboards for different use cases.
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds inline keyboards for various handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// ─────────────────────────────────────────────────────────────────────────────
// MENUS
// ─────────────────────────────────────────────────────────────────────────────

// MainMenu is shown to registered users.
func (b *KeyboardBuilder) MainMenu() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("🔎 Seeker", CbSeekerMenu),
			CallbackButton("🏢 Recruiter", CbRecruiterMenu),
		).
		AddRow(CallbackButton("✏️ Edit profile", CbEditProfile))
}

// SeekerMenu is shown once the user has a seeker profile.
func (b *KeyboardBuilder) SeekerMenu() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("🔍 Search vacancies", CbSearch)).
		AddRow(
			CallbackButton("📝 Edit portfolio", CbEditPortfolio),
			CallbackButton("📨 My applications", CbMyApplications),
		).
		AddRow(CallbackButton("⬅️ Back", CbMainMenu))
}

// RecruiterMenu is shown once the user has a recruiter profile.
func (b *KeyboardBuilder) RecruiterMenu() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("➕ Publish vacancy", CbPublish)).
		AddRow(
			CallbackButton("📋 My vacancies", CbMyVacancies),
			CallbackButton("📊 Company stats", CbCompanyStats),
		).
		AddRow(CallbackButton("⬅️ Back", CbMainMenu))
}

// BackTo is a single back button.
func (b *KeyboardBuilder) BackTo(callbackData string) *InlineKeyboard {
	return NewInlineKeyboard().AddRow(CallbackButton("⬅️ Back", callbackData))
}

// ─────────────────────────────────────────────────────────────────────────────
// PORTFOLIO
// ─────────────────────────────────────────────────────────────────────────────

// NoExperience lets the seeker finish the portfolio without experiences.
func (b *KeyboardBuilder) NoExperience() *InlineKeyboard {
	return NewInlineKeyboard().AddRow(CallbackButton("🚫 No experience", CbNoExperience))
}

// ExperienceConfirm closes one experience entry.
func (b *KeyboardBuilder) ExperienceConfirm() *InlineKeyboard {
	return NewInlineKeyboard().AddRow(
		CallbackButton("✅ Confirm", CbConfirmExp),
		CallbackButton("➕ Add another", CbAddExperience),
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// SEARCH
// ─────────────────────────────────────────────────────────────────────────────

// CardState carries what the vacancy card keyboard depends on.
type CardState struct {
	CanBackward bool
	CanForward  bool
	Filtered    bool
	CanApply    bool
}

// VacancyCard is the browsing keyboard. Arrows only appear when a neighbor
// exists in that direction.
func (b *KeyboardBuilder) VacancyCard(s CardState) *InlineKeyboard {
	var nav []InlineButton
	if s.CanBackward {
		nav = append(nav, CallbackButton("◀", CbSearchPrev))
	}
	if s.CanForward {
		nav = append(nav, CallbackButton("▶", CbSearchNext))
	}

	var actions []InlineButton
	if s.CanApply {
		actions = append(actions, CallbackButton("📨 Apply", CbSearchApply))
	}
	actions = append(actions, CallbackButton("🎛 Filter", CbSearchFilter))

	var tail []InlineButton
	if s.Filtered {
		tail = append(tail, CallbackButton("♻️ Reset filter", CbSearchReset))
	}
	tail = append(tail, CallbackButton("✖️ Close", CbSearchClose))

	return NewInlineKeyboard().AddRow(nav...).AddRow(actions...).AddRow(tail...)
}

// SearchEmpty is shown when nothing can be displayed.
func (b *KeyboardBuilder) SearchEmpty(filtered bool) *InlineKeyboard {
	k := NewInlineKeyboard()
	if filtered {
		k.AddRow(CallbackButton("♻️ Reset filter", CbSearchReset))
	}
	return k.AddRow(CallbackButton("✖️ Close", CbSearchClose))
}

// ─────────────────────────────────────────────────────────────────────────────
// RECRUITER
// ─────────────────────────────────────────────────────────────────────────────

// CompanyPage lists one page of company search results.
func (b *KeyboardBuilder) CompanyPage(p company.Page, allowNew bool) *InlineKeyboard {
	k := NewInlineKeyboard()
	for _, c := range p.Companies {
		k.AddRow(CallbackButton("🏢 "+c.Name, WithID(CbCompanyPick, c.ID)))
	}

	var nav []InlineButton
	if p.HasPrev {
		nav = append(nav, CallbackButton("◀", WithID(CbCompanyPage, int64(p.Page-1))))
	}
	if p.HasNext {
		nav = append(nav, CallbackButton("▶", WithID(CbCompanyPage, int64(p.Page+1))))
	}
	k.AddRow(nav...)

	var tail []InlineButton
	if allowNew {
		tail = append(tail, CallbackButton("🆕 Register new", CbCompanyNew))
	}
	tail = append(tail, CallbackButton("🔁 Search again", CbCompanyAgain))
	return k.AddRow(tail...)
}

// VacancyConfirm finishes the publish flow.
func (b *KeyboardBuilder) VacancyConfirm() *InlineKeyboard {
	return NewInlineKeyboard().AddRow(
		CallbackButton("✅ Publish", CbConfirmVacancy),
		CallbackButton("✖️ Cancel", CbCancelVacancy),
	)
}

// OwnVacancy is attached to each entry of My vacancies.
func (b *KeyboardBuilder) OwnVacancy(v query.VacancyDTO) *InlineKeyboard {
	return NewInlineKeyboard().AddRow(
		CallbackButton(fmt.Sprintf("👥 Applicants (%d)", v.Applicants), WithID(CbVacancyApplicants, v.ID)),
		CallbackButton("🗑 Delete", WithID(CbDeleteVacancy, v.ID)),
	)
}

// CompanyStats may link to the company website.
func (b *KeyboardBuilder) CompanyStats(website string) *InlineKeyboard {
	k := NewInlineKeyboard()
	if website != "" {
		k.AddRow(URLButton("🌐 Website", website))
	}
	return k.AddRow(CallbackButton("⬅️ Back", CbRecruiterMenu))
}
