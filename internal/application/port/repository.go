package port

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

// Repositories return (nil, nil) for a missing row; callers translate that to
// errs.ErrNotFound. Storage failures are wrapped with errs.ErrUpstreamUnavailable.

// TimesheetRepository defines persistence operations for Timesheet
type TimesheetRepository interface {
	Create(ctx context.Context, ts *entity.Timesheet) error
	GetByID(ctx context.Context, id string) (*entity.Timesheet, error)
	FindByAccountWeek(ctx context.Context, accountID string, weekStart time.Time) (*entity.Timesheet, error)
	// Update overwrites the mutable columns. Concurrent writers race; the last one wins.
	Update(ctx context.Context, ts *entity.Timesheet) error
	ListByOrg(ctx context.Context, organizationID string, filter entity.TimesheetFilter) ([]*entity.Timesheet, error)
	ListByAccount(ctx context.Context, accountID string, filter entity.TimesheetFilter) ([]*entity.Timesheet, error)
}

// EntryRepository defines persistence operations for TimesheetEntry
type EntryRepository interface {
	Create(ctx context.Context, entry *entity.TimesheetEntry) error
	GetByID(ctx context.Context, id string) (*entity.TimesheetEntry, error)
	Update(ctx context.Context, entry *entity.TimesheetEntry) error
	Delete(ctx context.Context, id string) error
	ListByTimesheet(ctx context.Context, timesheetID string) ([]entity.TimesheetEntry, error)
	ListByTimesheets(ctx context.Context, timesheetIDs []string) ([]entity.TimesheetEntry, error)
	CountByTimesheet(ctx context.Context, timesheetID string) (int, error)
}

// HistoryRepository defines persistence operations for TimesheetHistory
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.TimesheetHistory) error
	ListByTimesheet(ctx context.Context, timesheetID string) ([]*entity.TimesheetHistory, error)
}

// ProfileRepository defines lookups over user profiles
type ProfileRepository interface {
	Get(ctx context.Context, accountID string) (*entity.Profile, error)
	ListBySupervisor(ctx context.Context, supervisorID string) ([]*entity.Profile, error)
	ListByIDs(ctx context.Context, accountIDs []string) ([]*entity.Profile, error)
}

// RoleLookup fetches role labels for an account. Unknown accounts yield no labels.
type RoleLookup interface {
	RoleLabels(ctx context.Context, accountID string) ([]string, error)
}

// ProjectRepository defines read-only lookups over projects
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	ListByOrg(ctx context.Context, organizationID string) ([]*entity.Project, error)
	ListByTeam(ctx context.Context, teamID string) ([]*entity.Project, error)
	ListAll(ctx context.Context) ([]*entity.Project, error)
}

// TeamRepository defines persistence operations for team memberships
type TeamRepository interface {
	ListMembers(ctx context.Context, teamID string) ([]entity.TeamMember, error)
	ListAll(ctx context.Context) ([]entity.TeamMember, error)
	Upsert(ctx context.Context, member entity.TeamMember) error
	Delete(ctx context.Context, teamID, accountID string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
