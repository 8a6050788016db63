package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
)

// Transition fires trigger against ts and applies the field effects of the
// transition. ts is left untouched on any error.
//
// approve and reject require a non-empty comment and actor id. submit clears
// the previous decision and stamps SubmittedAt. The entry-count precondition of
// submit is checked by the caller.
func Transition(ctx context.Context, ts *entity.Timesheet, trigger Trigger, actorID, comment string, now time.Time) (*entity.TimesheetHistory, error) {
	m, err := ForTimesheet(ts.Status)
	if err != nil {
		return nil, err
	}
	if !m.CanFire(trigger) {
		return nil, fmt.Errorf("%w: cannot %s a %s timesheet", ErrInvalidTransition, trigger, ts.Status)
	}

	comment = strings.TrimSpace(comment)
	if trigger == TriggerApprove || trigger == TriggerReject {
		if comment == "" {
			return nil, errs.Invalid("comment", "a comment is required to %s", trigger)
		}
		if actorID == "" {
			return nil, errs.Invalid("approver_id", "approver is required")
		}
	}

	if err := m.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	previous := ts.Status
	now = now.UTC()

	switch trigger {
	case TriggerSubmit:
		ts.SubmittedAt = &now
		ts.ApprovedBy = nil
		ts.ApprovedAt = nil
		ts.ApprovalComments = nil
		ts.RejectionComments = nil
	case TriggerApprove:
		ts.ApprovedBy = &actorID
		ts.ApprovedAt = &now
		ts.ApprovalComments = &comment
		ts.RejectionComments = nil
	case TriggerReject:
		ts.ApprovedBy = &actorID
		ts.ApprovedAt = &now
		ts.RejectionComments = &comment
		ts.ApprovalComments = nil
	}
	ts.Status = m.State().String()
	ts.UpdatedAt = now

	return &entity.TimesheetHistory{
		TimesheetID:    ts.ID,
		ActorID:        actorID,
		PreviousStatus: previous,
		NewStatus:      ts.Status,
		Action:         trigger.String(),
		Comment:        comment,
		CreatedAt:      now,
	}, nil
}
