package membership

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
)

// Index is an in-memory inverted index from account to the projects it
// manages. It is rebuilt from the store at startup and kept current by
// membership changes between reconciliations.
type Index struct {
	projects port.ProjectRepository
	teams    port.TeamRepository
	logger   *zap.Logger

	mu         sync.RWMutex
	managed    map[string]map[string]struct{} // account -> project ids
	projectOrg map[string]string
	generation uint64 // bumped by every Apply
}

// maxRebuildAttempts bounds how often Rebuild re-reads the store when
// membership changes land while it is reading.
const maxRebuildAttempts = 3

// NewIndex creates an empty index. Call Rebuild before serving.
func NewIndex(projects port.ProjectRepository, teams port.TeamRepository, logger *zap.Logger) *Index {
	return &Index{
		projects:   projects,
		teams:      teams,
		logger:     logger,
		managed:    make(map[string]map[string]struct{}),
		projectOrg: make(map[string]string),
	}
}

// ManagedProjects returns the sorted ids of the organization's projects
// managed by accountID.
func (i *Index) ManagedProjects(ctx context.Context, organizationID, accountID string) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := []string{}
	for projectID := range i.managed[accountID] {
		if i.projectOrg[projectID] == organizationID {
			out = append(out, projectID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Rebuild replaces the index contents from the project and team stores.
// On failure the previous contents are kept. A snapshot read while Apply
// ran is discarded and the store is read again, so a rebuild never rolls
// back a newer membership change.
func (i *Index) Rebuild(ctx context.Context) error {
	for attempt := 1; attempt <= maxRebuildAttempts; attempt++ {
		i.mu.RLock()
		gen := i.generation
		i.mu.RUnlock()

		managed, projectOrg, err := i.load(ctx)
		if err != nil {
			return err
		}

		i.mu.Lock()
		if i.generation != gen {
			i.mu.Unlock()
			i.logger.Debug("Membership changed during rebuild, reloading",
				zap.Int("attempt", attempt))
			continue
		}
		i.managed = managed
		i.projectOrg = projectOrg
		i.mu.Unlock()

		i.logger.Debug("Manager index rebuilt",
			zap.Int("projects", len(projectOrg)),
			zap.Int("managers", len(managed)))
		return nil
	}

	// Apply keeps the current contents fresh; the next reconcile retries.
	i.logger.Warn("Manager index rebuild skipped, membership kept changing",
		zap.Int("attempts", maxRebuildAttempts))
	return nil
}

func (i *Index) load(ctx context.Context) (map[string]map[string]struct{}, map[string]string, error) {
	projects, err := i.projects.ListAll(ctx)
	if err != nil {
		return nil, nil, errs.Upstream("list projects", err)
	}
	members, err := i.teams.ListAll(ctx)
	if err != nil {
		return nil, nil, errs.Upstream("list team members", err)
	}

	byTeam := make(map[string][]string)
	projectOrg := make(map[string]string, len(projects))
	for _, p := range projects {
		projectOrg[p.ID] = p.OrganizationID
		if p.TeamID != "" {
			byTeam[p.TeamID] = append(byTeam[p.TeamID], p.ID)
		}
	}

	managed := make(map[string]map[string]struct{})
	for _, m := range members {
		if !m.HasRole(entity.TeamRoleManager) {
			continue
		}
		for _, projectID := range byTeam[m.TeamID] {
			set, ok := managed[m.AccountID]
			if !ok {
				set = make(map[string]struct{})
				managed[m.AccountID] = set
			}
			set[projectID] = struct{}{}
		}
	}
	return managed, projectOrg, nil
}

// Apply records whether accountID manages projects.
func (i *Index) Apply(projects []*entity.Project, accountID string, manager bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.generation++
	set := i.managed[accountID]
	for _, p := range projects {
		i.projectOrg[p.ID] = p.OrganizationID
		if manager {
			if set == nil {
				set = make(map[string]struct{})
				i.managed[accountID] = set
			}
			set[p.ID] = struct{}{}
		} else if set != nil {
			delete(set, p.ID)
		}
	}
	if set != nil && len(set) == 0 {
		delete(i.managed, accountID)
	}
}

// Size returns the number of accounts holding a manager role.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.managed)
}

var _ port.ManagerIndex = (*Index)(nil)
