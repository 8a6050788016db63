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

const profileColumns = `account_id, organization_id, supervisor_id, name, email, lark_open_id, roles, created_at, updated_at`

// ProfileRepository implements port.ProfileRepository and port.RoleLookup
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces a profile
func (r *ProfileRepository) Upsert(ctx context.Context, p *entity.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (account_id) DO UPDATE SET
			organization_id = excluded.organization_id,
			supervisor_id = excluded.supervisor_id,
			name = excluded.name,
			email = excluded.email,
			lark_open_id = excluded.lark_open_id,
			roles = excluded.roles,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		p.AccountID,
		p.OrganizationID,
		nullString(p.SupervisorID),
		p.Name,
		p.Email,
		p.LarkOpenID,
		joinRoles(p.Roles),
	)
	if err != nil {
		r.logger.Error("Failed to upsert profile", zap.String("account_id", p.AccountID), zap.Error(err))
		return storeErr("upsert profile", err)
	}
	return nil
}

// Get retrieves a profile by account ID
func (r *ProfileRepository) Get(ctx context.Context, accountID string) (*entity.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE account_id = ?`

	p, err := scanProfile(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, accountID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get profile", zap.String("account_id", accountID), zap.Error(err))
		return nil, storeErr("get profile", err)
	}
	return p, nil
}

// ListBySupervisor lists the profiles whose supervisor is supervisorID
func (r *ProfileRepository) ListBySupervisor(ctx context.Context, supervisorID string) ([]*entity.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE supervisor_id = ? ORDER BY account_id`
	return r.query(ctx, "list profiles by supervisor", query, supervisorID)
}

// ListByIDs lists the profiles of the given accounts; unknown ids are skipped
func (r *ProfileRepository) ListByIDs(ctx context.Context, accountIDs []string) ([]*entity.Profile, error) {
	if len(accountIDs) == 0 {
		return []*entity.Profile{}, nil
	}
	in, args := inClause(accountIDs)
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE account_id IN %s ORDER BY account_id`, profileColumns, in)
	return r.query(ctx, "list profiles", query, args...)
}

// RoleLabels implements port.RoleLookup
func (r *ProfileRepository) RoleLabels(ctx context.Context, accountID string) ([]string, error) {
	var roles string
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT roles FROM profiles WHERE account_id = ?`, accountID).Scan(&roles)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get role labels", zap.String("account_id", accountID), zap.Error(err))
		return nil, storeErr("role labels", err)
	}
	return splitRoles(roles), nil
}

func (r *ProfileRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*entity.Profile, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Profile query failed", zap.String("op", op), zap.Error(err))
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []*entity.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, p)
	}
	return out, storeErrOrNil(op, rows.Err())
}

func scanProfile(row rowScanner) (*entity.Profile, error) {
	var (
		p            entity.Profile
		supervisorID sql.NullString
		roles        string
	)
	err := row.Scan(
		&p.AccountID,
		&p.OrganizationID,
		&supervisorID,
		&p.Name,
		&p.Email,
		&p.LarkOpenID,
		&roles,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SupervisorID = stringPtr(supervisorID)
	p.Roles = splitRoles(roles)
	return &p, nil
}

var (
	_ port.ProfileRepository = (*ProfileRepository)(nil)
	_ port.RoleLookup        = (*ProfileRepository)(nil)
)
