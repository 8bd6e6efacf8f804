package shared

import (
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Side effects that live outside the owning store
// (counters, notifications) are driven from these.
const (
	// Profile events
	EventRecruiterRegistered EventType = "profile.recruiter_registered"

	// Vacancy events
	EventVacancyPublished     EventType = "vacancy.published"
	EventVacancyDeleted       EventType = "vacancy.deleted"
	EventApplicationSubmitted EventType = "vacancy.application_submitted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// RecruiterRegisteredEvent is emitted when a user joins a company as recruiter.
type RecruiterRegisteredEvent struct {
	BaseEvent
	UserID    int64 `json:"user_id"`
	CompanyID int64 `json:"company_id"`
}

// Payload implements Event interface.
func (e RecruiterRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"company_id": e.CompanyID,
	}
}

// NewRecruiterRegisteredEvent creates a new RecruiterRegisteredEvent.
func NewRecruiterRegisteredEvent(userID, companyID int64) RecruiterRegisteredEvent {
	return RecruiterRegisteredEvent{
		BaseEvent: NewBaseEvent(EventRecruiterRegistered, formatID(userID)),
		UserID:    userID,
		CompanyID: companyID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Vacancy Events
// ═══════════════════════════════════════════════════════════════════════════

// VacancyPublishedEvent is emitted after all stores accepted a new vacancy.
type VacancyPublishedEvent struct {
	BaseEvent
	VacancyID int64  `json:"vacancy_id"`
	OwnerID   int64  `json:"owner_id"`
	CompanyID int64  `json:"company_id"`
	Position  string `json:"position"`
}

// Payload implements Event interface.
func (e VacancyPublishedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"vacancy_id": e.VacancyID,
		"owner_id":   e.OwnerID,
		"company_id": e.CompanyID,
		"position":   e.Position,
	}
}

// NewVacancyPublishedEvent creates a new VacancyPublishedEvent.
func NewVacancyPublishedEvent(vacancyID, ownerID, companyID int64, position string) VacancyPublishedEvent {
	return VacancyPublishedEvent{
		BaseEvent: NewBaseEvent(EventVacancyPublished, formatID(vacancyID)),
		VacancyID: vacancyID,
		OwnerID:   ownerID,
		CompanyID: companyID,
		Position:  position,
	}
}

// VacancyDeletedEvent is emitted when a recruiter removes a vacancy.
type VacancyDeletedEvent struct {
	BaseEvent
	VacancyID int64 `json:"vacancy_id"`
	OwnerID   int64 `json:"owner_id"`
	CompanyID int64 `json:"company_id"`
}

// Payload implements Event interface.
func (e VacancyDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"vacancy_id": e.VacancyID,
		"owner_id":   e.OwnerID,
		"company_id": e.CompanyID,
	}
}

// NewVacancyDeletedEvent creates a new VacancyDeletedEvent.
func NewVacancyDeletedEvent(vacancyID, ownerID, companyID int64) VacancyDeletedEvent {
	return VacancyDeletedEvent{
		BaseEvent: NewBaseEvent(EventVacancyDeleted, formatID(vacancyID)),
		VacancyID: vacancyID,
		OwnerID:   ownerID,
		CompanyID: companyID,
	}
}

// ApplicationSubmittedEvent is emitted when a seeker applies to a vacancy
// for the first time.
type ApplicationSubmittedEvent struct {
	BaseEvent
	VacancyID  int64  `json:"vacancy_id"`
	SeekerID   int64  `json:"seeker_id"`
	OwnerID    int64  `json:"owner_id"`
	SeekerName string `json:"seeker_name"`
	Position   string `json:"position"`
}

// Payload implements Event interface.
func (e ApplicationSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"vacancy_id":  e.VacancyID,
		"seeker_id":   e.SeekerID,
		"owner_id":    e.OwnerID,
		"seeker_name": e.SeekerName,
		"position":    e.Position,
	}
}

// NewApplicationSubmittedEvent creates a new ApplicationSubmittedEvent.
func NewApplicationSubmittedEvent(vacancyID, seekerID, ownerID int64, seekerName, position string) ApplicationSubmittedEvent {
	return ApplicationSubmittedEvent{
		BaseEvent:  NewBaseEvent(EventApplicationSubmitted, formatID(vacancyID)),
		VacancyID:  vacancyID,
		SeekerID:   seekerID,
		OwnerID:    ownerID,
		SeekerName: seekerName,
		Position:   position,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
