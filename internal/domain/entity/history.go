package entity

import "time"

// TimesheetHistory is one row of a timesheet's audit trail.
type TimesheetHistory struct {
	ID             string    `json:"id"`
	TimesheetID    string    `json:"timesheet_id"`
	ActorID        string    `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
