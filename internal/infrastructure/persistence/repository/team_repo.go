package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// TeamRepository implements port.TeamRepository
type TeamRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTeamRepository creates a new team membership repository
func NewTeamRepository(db *sql.DB, logger *zap.Logger) port.TeamRepository {
	return &TeamRepository{
		db:     db,
		logger: logger,
	}
}

// ListMembers lists one team's members
func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]entity.TeamMember, error) {
	return r.query(ctx, "list team members", `WHERE team_id = ?`, teamID)
}

// ListAll lists every membership row
func (r *TeamRepository) ListAll(ctx context.Context) ([]entity.TeamMember, error) {
	return r.query(ctx, "list all team members", "")
}

// Upsert sets an account's roles on a team
func (r *TeamRepository) Upsert(ctx context.Context, m entity.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, account_id, roles, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (team_id, account_id) DO UPDATE SET
			roles = excluded.roles,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, m.TeamID, m.AccountID, joinRoles(m.Roles)); err != nil {
		r.logger.Error("Failed to upsert team member", zap.String("team_id", m.TeamID), zap.String("account_id", m.AccountID), zap.Error(err))
		return storeErr("upsert team member", err)
	}
	return nil
}

// Delete removes an account from a team
func (r *TeamRepository) Delete(ctx context.Context, teamID, accountID string) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = ? AND account_id = ?`, teamID, accountID)
	if err != nil {
		r.logger.Error("Failed to delete team member", zap.String("team_id", teamID), zap.String("account_id", accountID), zap.Error(err))
		return storeErr("delete team member", err)
	}
	return nil
}

func (r *TeamRepository) query(ctx context.Context, op, where string, args ...interface{}) ([]entity.TeamMember, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT team_id, account_id, roles FROM team_members `+where+` ORDER BY team_id, account_id`, args...)
	if err != nil {
		r.logger.Error("Team query failed", zap.String("op", op), zap.Error(err))
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []entity.TeamMember{}
	for rows.Next() {
		var (
			m     entity.TeamMember
			roles string
		)
		if err := rows.Scan(&m.TeamID, &m.AccountID, &roles); err != nil {
			return nil, storeErr(op, err)
		}
		m.Roles = splitRoles(roles)
		out = append(out, m)
	}
	return out, storeErrOrNil(op, rows.Err())
}
