package entity

import "time"

// Timesheet is one account's reported hours for one calendar week.
// At most one exists per (AccountID, WeekStart).
type Timesheet struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"account_id"`
	OrganizationID    string     `json:"organization_id"`
	WeekStart         time.Time  `json:"week_start"`
	Status            string     `json:"status"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy        *string    `json:"approved_by,omitempty"`
	ApprovalComments  *string    `json:"approval_comments,omitempty"`
	RejectionComments *string    `json:"rejection_comments,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TimesheetEntry is a single logged work record inside a timesheet.
type TimesheetEntry struct {
	ID          string    `json:"id"`
	TimesheetID string    `json:"timesheet_id"`
	ProjectID   string    `json:"project_id"`
	TaskID      *string   `json:"task_id,omitempty"`
	WorkDate    time.Time `json:"work_date"`
	Hours       float64   `json:"hours"`
	Billable    bool      `json:"billable"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimesheetFilter narrows an organization-wide timesheet listing.
//
// When Scoped is set, a timesheet matches if its owner is in AccountIDs or
// it has at least one entry on a project in ProjectIDs. A scoped filter with
// both sets empty matches nothing.
type TimesheetFilter struct {
	Status     string
	WeekStart  *time.Time
	Scoped     bool
	AccountIDs []string
	ProjectIDs []string
}
