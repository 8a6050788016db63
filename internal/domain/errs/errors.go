// Package errs defines the error taxonomy shared by the timesheet services
// and translated to transport status codes at the HTTP boundary.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for bad input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when the requester lacks access.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a timesheet, entry, profile or project is missing.
	ErrNotFound = errors.New("not found")

	// ErrTimesheetLocked is returned when entries are mutated outside draft or rejected.
	ErrTimesheetLocked = errors.New("timesheet is locked")

	// ErrUpstreamUnavailable is returned when a store or lookup collaborator fails.
	// Callers may retry idempotent reads.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError carries field-level detail for a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the kind and id of the missing record.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// Locked wraps ErrTimesheetLocked with the timesheet id and its status.
func Locked(timesheetID, status string) error {
	return fmt.Errorf("%w: timesheet %s is %s", ErrTimesheetLocked, timesheetID, status)
}

// Upstream wraps ErrUpstreamUnavailable around a collaborator failure.
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}

// FieldOf returns the field of a ValidationError in the chain, if any.
func FieldOf(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field, true
	}
	return "", false
}
