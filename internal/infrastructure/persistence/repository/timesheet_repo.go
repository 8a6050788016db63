package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

const timesheetColumns = `t.id, t.account_id, t.organization_id, t.week_start, t.status,
	t.submitted_at, t.approved_by, t.approval_comments, t.rejection_comments, t.approved_at,
	t.created_at, t.updated_at`

// TimesheetRepository implements port.TimesheetRepository
type TimesheetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimesheetRepository creates a new timesheet repository
func NewTimesheetRepository(db *sql.DB, logger *zap.Logger) port.TimesheetRepository {
	return &TimesheetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a timesheet. An existing row for the same account and week
// is left in place; callers re-read by (account, week).
func (r *TimesheetRepository) Create(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		INSERT INTO timesheets (
			id, account_id, organization_id, week_start, status,
			submitted_at, approved_by, approval_comments, rejection_comments, approved_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, week_start) DO NOTHING
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		ts.ID,
		ts.AccountID,
		ts.OrganizationID,
		formatDate(ts.WeekStart),
		ts.Status,
		nullTime(ts.SubmittedAt),
		nullString(ts.ApprovedBy),
		nullString(ts.ApprovalComments),
		nullString(ts.RejectionComments),
		nullTime(ts.ApprovedAt),
		ts.CreatedAt.UTC(),
		ts.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create timesheet", zap.String("account_id", ts.AccountID), zap.Error(err))
		return storeErr("create timesheet", err)
	}
	return nil
}

// GetByID retrieves a timesheet by ID
func (r *TimesheetRepository) GetByID(ctx context.Context, id string) (*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets t WHERE t.id = ?`

	ts, err := scanTimesheet(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get timesheet", zap.String("id", id), zap.Error(err))
		return nil, storeErr("get timesheet", err)
	}
	return ts, nil
}

// FindByAccountWeek retrieves the timesheet of one account for one week
func (r *TimesheetRepository) FindByAccountWeek(ctx context.Context, accountID string, weekStart time.Time) (*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets t WHERE t.account_id = ? AND t.week_start = ?`

	ts, err := scanTimesheet(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, accountID, formatDate(weekStart)))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find timesheet", zap.String("account_id", accountID), zap.Error(err))
		return nil, storeErr("find timesheet", err)
	}
	return ts, nil
}

// Update overwrites status and approval columns
func (r *TimesheetRepository) Update(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		UPDATE timesheets SET
			status = ?, submitted_at = ?, approved_by = ?, approval_comments = ?,
			rejection_comments = ?, approved_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		ts.Status,
		nullTime(ts.SubmittedAt),
		nullString(ts.ApprovedBy),
		nullString(ts.ApprovalComments),
		nullString(ts.RejectionComments),
		nullTime(ts.ApprovedAt),
		ts.UpdatedAt.UTC(),
		ts.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update timesheet", zap.String("id", ts.ID), zap.Error(err))
		return storeErr("update timesheet", err)
	}
	return nil
}

// ListByOrg lists an organization's timesheets, newest week first
func (r *TimesheetRepository) ListByOrg(ctx context.Context, organizationID string, filter entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	return r.list(ctx, "t.organization_id = ?", organizationID, filter)
}

// ListByAccount lists one account's timesheets, newest week first
func (r *TimesheetRepository) ListByAccount(ctx context.Context, accountID string, filter entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	return r.list(ctx, "t.account_id = ?", accountID, filter)
}

func (r *TimesheetRepository) list(ctx context.Context, base string, baseArg string, filter entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	where := []string{base}
	args := []interface{}{baseArg}

	if filter.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, filter.Status)
	}
	if filter.WeekStart != nil {
		where = append(where, "t.week_start = ?")
		args = append(args, formatDate(*filter.WeekStart))
	}
	if filter.Scoped {
		var scope []string
		if len(filter.AccountIDs) > 0 {
			in, inArgs := inClause(filter.AccountIDs)
			scope = append(scope, "t.account_id IN "+in)
			args = append(args, inArgs...)
		}
		if len(filter.ProjectIDs) > 0 {
			in, inArgs := inClause(filter.ProjectIDs)
			scope = append(scope, `EXISTS (
				SELECT 1 FROM timesheet_entries e
				WHERE e.timesheet_id = t.id AND e.project_id IN `+in+`)`)
			args = append(args, inArgs...)
		}
		if len(scope) == 0 {
			return []*entity.Timesheet{}, nil
		}
		where = append(where, "("+strings.Join(scope, " OR ")+")")
	}

	query := fmt.Sprintf(`SELECT %s FROM timesheets t WHERE %s ORDER BY t.week_start DESC, t.account_id ASC`,
		timesheetColumns, strings.Join(where, " AND "))

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list timesheets", zap.Error(err))
		return nil, storeErr("list timesheets", err)
	}
	defer rows.Close()

	out := []*entity.Timesheet{}
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, storeErr("scan timesheet", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list timesheets", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimesheet(row rowScanner) (*entity.Timesheet, error) {
	var (
		ts                                entity.Timesheet
		weekStart                         string
		submittedAt, approvedAt           sql.NullTime
		approvedBy, approvalC, rejectionC sql.NullString
	)

	err := row.Scan(
		&ts.ID,
		&ts.AccountID,
		&ts.OrganizationID,
		&weekStart,
		&ts.Status,
		&submittedAt,
		&approvedBy,
		&approvalC,
		&rejectionC,
		&approvedAt,
		&ts.CreatedAt,
		&ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ts.WeekStart, err = parseDate(weekStart); err != nil {
		return nil, fmt.Errorf("timesheet %s: %w", ts.ID, err)
	}
	ts.SubmittedAt = timePtr(submittedAt)
	ts.ApprovedAt = timePtr(approvedAt)
	ts.ApprovedBy = stringPtr(approvedBy)
	ts.ApprovalComments = stringPtr(approvalC)
	ts.RejectionComments = stringPtr(rejectionC)
	ts.CreatedAt = ts.CreatedAt.UTC()
	ts.UpdatedAt = ts.UpdatedAt.UTC()
	return &ts, nil
}
