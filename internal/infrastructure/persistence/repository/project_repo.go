package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces a project
func (r *ProjectRepository) Upsert(ctx context.Context, p *entity.Project) error {
	query := `
		INSERT INTO projects (id, organization_id, team_id, name, code)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = excluded.organization_id,
			team_id = excluded.team_id,
			name = excluded.name,
			code = excluded.code
	`
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, p.ID, p.OrganizationID, p.TeamID, p.Name, p.Code); err != nil {
		r.logger.Error("Failed to upsert project", zap.String("id", p.ID), zap.Error(err))
		return storeErr("upsert project", err)
	}
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	var p entity.Project
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, organization_id, team_id, name, code FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.OrganizationID, &p.TeamID, &p.Name, &p.Code)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.String("id", id), zap.Error(err))
		return nil, storeErr("get project", err)
	}
	return &p, nil
}

// ListByOrg lists an organization's projects
func (r *ProjectRepository) ListByOrg(ctx context.Context, organizationID string) ([]*entity.Project, error) {
	return r.query(ctx, "list projects", `WHERE organization_id = ?`, organizationID)
}

// ListByTeam lists the projects backed by a team
func (r *ProjectRepository) ListByTeam(ctx context.Context, teamID string) ([]*entity.Project, error) {
	return r.query(ctx, "list projects by team", `WHERE team_id = ?`, teamID)
}

// ListAll lists every project
func (r *ProjectRepository) ListAll(ctx context.Context) ([]*entity.Project, error) {
	return r.query(ctx, "list all projects", "")
}

func (r *ProjectRepository) query(ctx context.Context, op, where string, args ...interface{}) ([]*entity.Project, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, organization_id, team_id, name, code FROM projects `+where+` ORDER BY id`, args...)
	if err != nil {
		r.logger.Error("Project query failed", zap.String("op", op), zap.Error(err))
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []*entity.Project{}
	for rows.Next() {
		var p entity.Project
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.TeamID, &p.Name, &p.Code); err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, &p)
	}
	return out, storeErrOrNil(op, rows.Err())
}

var _ port.ProjectRepository = (*ProjectRepository)(nil)
