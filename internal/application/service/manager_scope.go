package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

// DefaultFanoutBatchSize bounds concurrent team lookups per resolution.
const DefaultFanoutBatchSize = 8

type fanoutScope struct {
	projects  port.ProjectRepository
	teams     port.TeamRepository
	batchSize int
	logger    Logger
}

// NewFanoutManagerScope returns a ManagerScope that lists every project of the
// organization and checks its team membership, at most batchSize at a time.
// A failed team lookup counts as no match for that project.
func NewFanoutManagerScope(projects port.ProjectRepository, teams port.TeamRepository, batchSize int, logger Logger) port.ManagerScope {
	if batchSize <= 0 {
		batchSize = DefaultFanoutBatchSize
	}
	return &fanoutScope{
		projects:  projects,
		teams:     teams,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *fanoutScope) ManagedProjects(ctx context.Context, organizationID, accountID string) ([]string, error) {
	projects, err := s.projects.ListByOrg(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	results := make([]access.LookupResult, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchSize)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			results[i] = s.lookup(gctx, p, accountID)
			return nil
		})
	}
	// lookups never return an error to the group
	_ = g.Wait()

	for _, r := range access.Failed(results) {
		s.logger.Error("Team lookup failed, treating project as no match",
			"project_id", r.ProjectID,
			"account_id", accountID,
			"error", r.Err,
		)
	}

	return access.Fold(results), nil
}

func (s *fanoutScope) lookup(ctx context.Context, p *entity.Project, accountID string) access.LookupResult {
	res := access.LookupResult{ProjectID: p.ID}
	if p.TeamID == "" {
		return res
	}

	members, err := s.teams.ListMembers(ctx, p.TeamID)
	if err != nil {
		res.Err = err
		return res
	}
	for _, m := range members {
		if m.AccountID == accountID && m.HasRole(entity.TeamRoleManager) {
			res.Manager = true
			break
		}
	}
	return res
}
