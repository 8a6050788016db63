package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

const entryColumns = `id, timesheet_id, project_id, task_id, work_date, hours, billable, note, created_at, updated_at`

// EntryRepository implements port.EntryRepository
type EntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *sql.DB, logger *zap.Logger) port.EntryRepository {
	return &EntryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an entry
func (r *EntryRepository) Create(ctx context.Context, e *entity.TimesheetEntry) error {
	query := `
		INSERT INTO timesheet_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		e.ID,
		e.TimesheetID,
		e.ProjectID,
		nullString(e.TaskID),
		formatDate(e.WorkDate),
		e.Hours,
		e.Billable,
		e.Note,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create entry", zap.String("timesheet_id", e.TimesheetID), zap.Error(err))
		return storeErr("create entry", err)
	}
	return nil
}

// GetByID retrieves an entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*entity.TimesheetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timesheet_entries WHERE id = ?`

	e, err := scanEntry(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get entry", zap.String("id", id), zap.Error(err))
		return nil, storeErr("get entry", err)
	}
	return &e, nil
}

// Update overwrites an entry's writable columns
func (r *EntryRepository) Update(ctx context.Context, e *entity.TimesheetEntry) error {
	query := `
		UPDATE timesheet_entries SET
			project_id = ?, task_id = ?, work_date = ?, hours = ?, billable = ?, note = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		e.ProjectID,
		nullString(e.TaskID),
		formatDate(e.WorkDate),
		e.Hours,
		e.Billable,
		e.Note,
		e.UpdatedAt.UTC(),
		e.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update entry", zap.String("id", e.ID), zap.Error(err))
		return storeErr("update entry", err)
	}
	return nil
}

// Delete removes an entry
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM timesheet_entries WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete entry", zap.String("id", id), zap.Error(err))
		return storeErr("delete entry", err)
	}
	return nil
}

// ListByTimesheet lists a timesheet's entries by work date
func (r *EntryRepository) ListByTimesheet(ctx context.Context, timesheetID string) ([]entity.TimesheetEntry, error) {
	return r.ListByTimesheets(ctx, []string{timesheetID})
}

// ListByTimesheets lists the entries of several timesheets by work date
func (r *EntryRepository) ListByTimesheets(ctx context.Context, timesheetIDs []string) ([]entity.TimesheetEntry, error) {
	out := []entity.TimesheetEntry{}
	if len(timesheetIDs) == 0 {
		return out, nil
	}

	in, args := inClause(timesheetIDs)
	query := fmt.Sprintf(`SELECT %s FROM timesheet_entries WHERE timesheet_id IN %s
		ORDER BY work_date ASC, created_at ASC, id ASC`, entryColumns, in)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list entries", zap.Int("timesheets", len(timesheetIDs)), zap.Error(err))
		return nil, storeErr("list entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storeErr("scan entry", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list entries", err)
	}
	return out, nil
}

// CountByTimesheet counts a timesheet's entries
func (r *EntryRepository) CountByTimesheet(ctx context.Context, timesheetID string) (int, error) {
	var n int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM timesheet_entries WHERE timesheet_id = ?`, timesheetID).Scan(&n)
	if err != nil {
		return 0, storeErr("count entries", err)
	}
	return n, nil
}

func scanEntry(row rowScanner) (entity.TimesheetEntry, error) {
	var (
		e        entity.TimesheetEntry
		taskID   sql.NullString
		workDate string
	)

	err := row.Scan(
		&e.ID,
		&e.TimesheetID,
		&e.ProjectID,
		&taskID,
		&workDate,
		&e.Hours,
		&e.Billable,
		&e.Note,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return e, err
	}

	if e.WorkDate, err = parseDate(workDate); err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.TaskID = stringPtr(taskID)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
