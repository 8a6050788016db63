package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
)

var now = time.Date(2024, 1, 5, 17, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestTransition_Submit(t *testing.T) {
	ts := &entity.Timesheet{
		ID:                "ts1",
		Status:            "rejected",
		RejectionComments: strPtr("Missing Friday"),
		ApprovalComments:  strPtr("stale"),
	}

	h, err := Transition(context.Background(), ts, TriggerSubmit, "staff", "", now)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if ts.Status != "submitted" {
		t.Errorf("Status = %s, want submitted", ts.Status)
	}
	if ts.SubmittedAt == nil || !ts.SubmittedAt.Equal(now) {
		t.Errorf("SubmittedAt = %v, want %v", ts.SubmittedAt, now)
	}
	if ts.RejectionComments != nil || ts.ApprovalComments != nil {
		t.Error("submit should clear prior comments")
	}
	if h.PreviousStatus != "rejected" || h.NewStatus != "submitted" || h.Action != "submit" {
		t.Errorf("unexpected history %+v", h)
	}
}

func TestTransition_ResubmitClearsDecision(t *testing.T) {
	ts := &entity.Timesheet{ID: "ts1", Status: "submitted"}

	if _, err := Transition(context.Background(), ts, TriggerReject, "mgr", "Missing Friday", now); err != nil {
		t.Fatalf("reject error = %v", err)
	}
	if _, err := Transition(context.Background(), ts, TriggerSubmit, "staff", "", now.Add(time.Hour)); err != nil {
		t.Fatalf("resubmit error = %v", err)
	}

	if ts.Status != "submitted" {
		t.Errorf("Status = %s, want submitted", ts.Status)
	}
	if ts.ApprovedBy != nil || ts.ApprovedAt != nil {
		t.Errorf("resubmitted timesheet still carries decision by %v at %v", ts.ApprovedBy, ts.ApprovedAt)
	}
}

func TestTransition_Approve(t *testing.T) {
	ts := &entity.Timesheet{ID: "ts1", Status: "submitted", RejectionComments: strPtr("old")}

	if _, err := Transition(context.Background(), ts, TriggerApprove, "mgr", "  Looks good ", now); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if ts.Status != "approved" {
		t.Errorf("Status = %s, want approved", ts.Status)
	}
	if ts.ApprovedBy == nil || *ts.ApprovedBy != "mgr" {
		t.Errorf("ApprovedBy = %v, want mgr", ts.ApprovedBy)
	}
	if ts.ApprovalComments == nil || *ts.ApprovalComments != "Looks good" {
		t.Errorf("ApprovalComments = %v", ts.ApprovalComments)
	}
	if ts.RejectionComments != nil {
		t.Error("approve should clear rejection comment")
	}
	if ts.ApprovedAt == nil {
		t.Error("ApprovedAt should be set")
	}
}

func TestTransition_Reject(t *testing.T) {
	ts := &entity.Timesheet{ID: "ts1", Status: "submitted", ApprovalComments: strPtr("old")}

	if _, err := Transition(context.Background(), ts, TriggerReject, "mgr", "Missing Friday", now); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if ts.Status != "rejected" || ts.ApprovalComments != nil {
		t.Errorf("unexpected timesheet %+v", ts)
	}
	if ts.RejectionComments == nil || *ts.RejectionComments != "Missing Friday" {
		t.Errorf("RejectionComments = %v", ts.RejectionComments)
	}
}

func TestTransition_CommentRequired(t *testing.T) {
	for _, trigger := range []Trigger{TriggerApprove, TriggerReject} {
		ts := &entity.Timesheet{ID: "ts1", Status: "submitted"}
		before := *ts

		_, err := Transition(context.Background(), ts, trigger, "mgr", "   ", now)
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%s: error = %v, want validation", trigger, err)
		}
		if field, _ := errs.FieldOf(err); field != "comment" {
			t.Errorf("%s: field = %q, want comment", trigger, field)
		}
		if *ts != before {
			t.Errorf("%s: timesheet mutated on failure", trigger)
		}
	}
}

func TestTransition_ApproverRequired(t *testing.T) {
	ts := &entity.Timesheet{ID: "ts1", Status: "submitted"}
	_, err := Transition(context.Background(), ts, TriggerApprove, "", "ok", now)
	if field, _ := errs.FieldOf(err); field != "approver_id" {
		t.Errorf("field = %q, want approver_id", field)
	}
	if ts.Status != "submitted" {
		t.Error("status should be unchanged")
	}
}

func TestTransition_Illegal(t *testing.T) {
	ts := &entity.Timesheet{ID: "ts1", Status: "approved"}
	_, err := Transition(context.Background(), ts, TriggerUnsubmit, "staff", "", now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
	if ts.Status != "approved" {
		t.Error("status should be unchanged")
	}
}
