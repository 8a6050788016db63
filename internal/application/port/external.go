package port

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

// ManagerScope resolves the projects of an organization on which an account
// holds the team manager role.
type ManagerScope interface {
	ManagedProjects(ctx context.Context, organizationID, accountID string) ([]string, error)
}

// ManagerIndex is a ManagerScope kept current by membership changes.
type ManagerIndex interface {
	ManagerScope
	// Rebuild replaces the index contents from the store.
	Rebuild(ctx context.Context) error
	// Apply records whether accountID manages the given projects, which all
	// share one team.
	Apply(projects []*entity.Project, accountID string, manager bool)
}

// Notifier delivers a plain text message to a chat user.
type Notifier interface {
	SendText(ctx context.Context, openID, text string) error
}

// ExportRow is one entry line of the approved-hours workbook.
type ExportRow struct {
	AccountID   string
	AccountName string
	WeekStart   time.Time
	WorkDate    time.Time
	ProjectCode string
	ProjectName string
	TaskID      string
	Hours       float64
	Billable    bool
	Note        string
	ApprovedBy  string
}

// WorkbookWriter renders export rows as a spreadsheet.
type WorkbookWriter interface {
	WriteApprovedHours(rows []ExportRow, weekStart time.Time) ([]byte, error)
}
