package handler

import (
	"context"

	"github.com/sweethome/vacancies-bot/internal/application/conversation"
)

// DialogHandler routes free text to the step the user is answering.
type DialogHandler struct {
	*base
	set *Set
}

type stepFunc func(ctx context.Context, req Request, s conversation.State) (*Response, error)

// Text handles a plain message.
func (h *DialogHandler) Text(ctx context.Context, req Request) (*Response, error) {
	s, err := h.state(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if s.IsIdle() {
		return h.idle(ctx, req)
	}

	step, ok := h.steps()[s.Step]
	if !ok {
		// Unknown step left over from an older release.
		if err := h.clear(ctx, req.UserID); err != nil {
			return nil, err
		}
		return h.idle(ctx, req)
	}
	return step(ctx, req, s)
}

func (h *DialogHandler) idle(ctx context.Context, req Request) (*Response, error) {
	p, err := h.lookup(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if p.IsAbsent() {
		return send(msgNeedStart, nil), nil
	}
	return send("Use the menu below, or /help for the list of commands.", h.keyboards.MainMenu()), nil
}

func (h *DialogHandler) steps() map[conversation.Step]stepFunc {
	s := h.set
	return map[conversation.Step]stepFunc{
		conversation.StepFirstName: s.Start.onFirstName,
		conversation.StepLastName:  s.Start.onLastName,

		conversation.StepPosition:              s.Seeker.onPosition,
		conversation.StepExperienceTitle:       s.Seeker.onExperienceTitle,
		conversation.StepExperienceDescription: s.Seeker.onExperienceDescription,
		conversation.StepExperienceTimeline:    s.Seeker.onExperienceTimeline,
		conversation.StepExperienceConfirm:     pressButton,

		conversation.StepFilterSalary:   s.Search.onFilterSalary,
		conversation.StepFilterPosition: s.Search.onFilterPosition,

		conversation.StepCompanyQuery:   s.Recruiter.onCompanyQuery,
		conversation.StepCompanyPick:    s.Recruiter.onCompanyQuery,
		conversation.StepCompanyName:    s.Recruiter.onCompanyName,
		conversation.StepCompanyWebsite: s.Recruiter.onCompanyWebsite,

		conversation.StepVacancyPosition:    s.Recruiter.onVacancyPosition,
		conversation.StepVacancyDescription: s.Recruiter.onVacancyDescription,
		conversation.StepVacancySalary:      s.Recruiter.onVacancySalary,
		conversation.StepVacancyConfirm:     pressButton,
	}
}

// pressButton answers text sent while a confirmation keyboard is pending.
func pressButton(context.Context, Request, conversation.State) (*Response, error) {
	return send("Please use the buttons above, or /cancel.", nil), nil
}
