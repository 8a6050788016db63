package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_IsValidation(t *testing.T) {
	err := Invalid("hours", "must be greater than 0 and at most 24, got %.2f", 25.0)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "hours: must be greater than 0 and at most 24, got 25.00", err.Error())

	field, ok := FieldOf(fmt.Errorf("save entry: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "hours", field)
}

func TestWrappers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"forbidden", Forbidden("requester %s has no approval access", "u1"), ErrForbidden},
		{"not found", NotFound("timesheet", "ts-1"), ErrNotFound},
		{"locked", Locked("ts-1", "SUBMITTED"), ErrTimesheetLocked},
		{"upstream", Upstream("list timesheets", errors.New("disk I/O error")), ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
		})
	}
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Upstream("create entry", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "create entry")
}

func TestFieldOf_NoValidationError(t *testing.T) {
	_, ok := FieldOf(ErrNotFound)
	assert.False(t, ok)
}
