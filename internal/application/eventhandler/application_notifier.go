package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// APPLICATION NOTIFIER
// Tells the recruiter that a seeker applied to one of their vacancies.
// ═══════════════════════════════════════════════════════════════════════════

// Notifier delivers a plain-text message to a user's private chat.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Gate reports whether a notification may be sent to the user.
type Gate func(userID int64) bool

// ApplicationNotifier handles ApplicationSubmitted events.
type ApplicationNotifier struct {
	notifier Notifier
	gate     Gate
	logger   *slog.Logger
}

// NewApplicationNotifier creates a new handler. A nil gate allows everyone.
func NewApplicationNotifier(notifier Notifier, gate Gate, logger *slog.Logger) *ApplicationNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = func(int64) bool { return true }
	}
	return &ApplicationNotifier{
		notifier: notifier,
		gate:     gate,
		logger:   logger.With("handler", "application_notifier"),
	}
}

// Handle sends the notification to the vacancy owner.
func (h *ApplicationNotifier) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.ApplicationSubmittedEvent)
	if !ok {
		h.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}

	if !h.gate(e.OwnerID) {
		h.logger.Debug("applicant notification disabled", "owner_id", e.OwnerID)
		return nil
	}

	if err := h.notifier.Notify(ctx, e.OwnerID, FormatApplication(e)); err != nil {
		return fmt.Errorf("notify recruiter %d: %w", e.OwnerID, err)
	}
	return nil
}

// FormatApplication renders the recruiter-facing message.
func FormatApplication(e shared.ApplicationSubmittedEvent) string {
	name := strings.TrimSpace(e.SeekerName)
	if name == "" {
		name = fmt.Sprintf("seeker #%d", e.SeekerID)
	}
	position := strings.TrimSpace(e.Position)
	if position == "" {
		position = fmt.Sprintf("vacancy #%d", e.VacancyID)
	}

	var sb strings.Builder
	sb.WriteString("📬 New application\n\n")
	fmt.Fprintf(&sb, "%s applied to «%s».\n", name, position)
	sb.WriteString("Open My vacancies to see the applicants.")
	return sb.String()
}
