package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, h *entity.TimesheetHistory) error {
	query := `
		INSERT INTO timesheet_history (
			id, timesheet_id, actor_id, previous_status, new_status, action, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		h.ID,
		h.TimesheetID,
		h.ActorID,
		h.PreviousStatus,
		h.NewStatus,
		h.Action,
		h.Comment,
		h.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("timesheet_id", h.TimesheetID), zap.Error(err))
		return storeErr("create history", err)
	}
	return nil
}

// ListByTimesheet retrieves all history records for a timesheet, oldest first
func (r *HistoryRepository) ListByTimesheet(ctx context.Context, timesheetID string) ([]*entity.TimesheetHistory, error) {
	query := `
		SELECT id, timesheet_id, actor_id, previous_status, new_status, action, comment, created_at
		FROM timesheet_history
		WHERE timesheet_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, timesheetID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("timesheet_id", timesheetID), zap.Error(err))
		return nil, storeErr("list history", err)
	}
	defer rows.Close()

	records := []*entity.TimesheetHistory{}
	for rows.Next() {
		var h entity.TimesheetHistory
		if err := rows.Scan(
			&h.ID,
			&h.TimesheetID,
			&h.ActorID,
			&h.PreviousStatus,
			&h.NewStatus,
			&h.Action,
			&h.Comment,
			&h.CreatedAt,
		); err != nil {
			return nil, storeErr("scan history", err)
		}
		h.CreatedAt = h.CreatedAt.UTC()
		records = append(records, &h)
	}

	return records, storeErrOrNil("list history", rows.Err())
}

func storeErrOrNil(op string, err error) error {
	if err == nil {
		return nil
	}
	return storeErr(op, err)
}
