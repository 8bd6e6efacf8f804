// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Storage and external service errors
	ErrStorage            = errors.New("storage error")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "vacancy", "profile", "company"
	Op      string // Operation that failed, e.g., "Publish", "Apply"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Profile domain errors
var (
	ErrUserNotFound          = NewDomainError("profile", "FindUser", ErrNotFound, "user not found")
	ErrUserAlreadyExists     = NewDomainError("profile", "RegisterUser", ErrAlreadyExists, "user already registered")
	ErrSeekerNotFound        = NewDomainError("profile", "FindSeeker", ErrNotFound, "seeker profile not found")
	ErrSeekerAlreadyExists   = NewDomainError("profile", "RegisterSeeker", ErrAlreadyExists, "seeker profile already exists")
	ErrRecruiterNotFound     = NewDomainError("profile", "FindRecruiter", ErrNotFound, "recruiter profile not found")
	ErrRecruiterAlreadyExist = NewDomainError("profile", "RegisterRecruiter", ErrAlreadyExists, "recruiter profile already exists")
	ErrInvalidUserID         = NewDomainError("profile", "Validate", ErrInvalidID, "invalid user ID")
	ErrEmptyName             = NewDomainError("profile", "Validate", ErrEmptyValue, "name cannot be empty")
	ErrEmptyPosition         = NewDomainError("profile", "Validate", ErrEmptyValue, "position cannot be empty")
)

// Company domain errors
var (
	ErrCompanyNotFound      = NewDomainError("company", "Find", ErrNotFound, "company not found")
	ErrCompanyAlreadyExists = NewDomainError("company", "Register", ErrAlreadyExists, "company already exists")
	ErrEmptyCompanyName     = NewDomainError("company", "Validate", ErrEmptyValue, "company name cannot be empty")
)

// Vacancy domain errors
var (
	ErrVacancyNotFound    = NewDomainError("vacancy", "Find", ErrNotFound, "vacancy not found")
	ErrVacancyBodyMissing = NewDomainError("vacancy", "FindBody", ErrNotFound, "vacancy document not found")
	ErrNotVacancyOwner    = NewDomainError("vacancy", "Delete", ErrForbidden, "vacancy belongs to another recruiter")
	ErrNegativeSalary     = NewDomainError("vacancy", "Validate", ErrNegativeValue, "salary cannot be negative")
	ErrInvalidSalaryRange = NewDomainError("vacancy", "Validate", ErrValueOutOfRange, "salary range minimum exceeds maximum")
	ErrAlreadyApplied     = NewDomainError("vacancy", "Apply", ErrAlreadyExists, "already applied to this vacancy")
)

// External service errors
var (
	ErrDocumentStoreUnavailable = NewDomainError("documents", "Request", ErrServiceUnavailable, "document store is unavailable")
	ErrTelegramAPIFailed        = NewDomainError("telegram", "Send", ErrExternalService, "Telegram API request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsForbidden checks if the error is an authorization error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrStorage)
}
