package service

import (
	"context"
	"strings"

	"github.com/garyjia/timesheet-approval/internal/application/dispatcher"
	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
	"github.com/garyjia/timesheet-approval/internal/domain/event"
)

// MembershipService changes project team membership and keeps the manager
// index in step with the store.
type MembershipService interface {
	AddMember(ctx context.Context, req Requester, teamID, accountID string, roles []string) (*entity.TeamMember, error)
	RemoveMember(ctx context.Context, req Requester, teamID, accountID string) error
}

type membershipServiceImpl struct {
	teams      port.TeamRepository
	projects   port.ProjectRepository
	profiles   port.ProfileRepository
	roles      port.RoleLookup
	index      port.ManagerIndex
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewMembershipService creates a new MembershipService. index may be nil when
// manager scope is resolved by fan-out.
func NewMembershipService(
	teams port.TeamRepository,
	projects port.ProjectRepository,
	profiles port.ProfileRepository,
	roles port.RoleLookup,
	index port.ManagerIndex,
	d dispatcher.Dispatcher,
	logger Logger,
) MembershipService {
	return &membershipServiceImpl{
		teams:      teams,
		projects:   projects,
		profiles:   profiles,
		roles:      roles,
		index:      index,
		dispatcher: d,
		logger:     logger,
	}
}

func (s *membershipServiceImpl) AddMember(ctx context.Context, req Requester, teamID, accountID string, roles []string) (*entity.TeamMember, error) {
	roles = normalizeTeamRoles(roles)
	if len(roles) == 0 {
		return nil, errs.Invalid("roles", "at least one role is required")
	}
	for _, r := range roles {
		if r != entity.TeamRoleManager && r != entity.TeamRoleMember {
			return nil, errs.Invalid("roles", "unknown team role %q", r)
		}
	}

	projects, err := s.authorize(ctx, req, teamID, accountID)
	if err != nil {
		return nil, err
	}

	member := entity.TeamMember{TeamID: teamID, AccountID: accountID, Roles: roles}
	if err := s.teams.Upsert(ctx, member); err != nil {
		s.logger.Error("Failed to save team member", "team_id", teamID, "account_id", accountID, "error", err)
		return nil, err
	}

	s.applyIndex(ctx, req, projects, member)
	return &member, nil
}

func (s *membershipServiceImpl) RemoveMember(ctx context.Context, req Requester, teamID, accountID string) error {
	projects, err := s.authorize(ctx, req, teamID, accountID)
	if err != nil {
		return err
	}

	if err := s.teams.Delete(ctx, teamID, accountID); err != nil {
		s.logger.Error("Failed to remove team member", "team_id", teamID, "account_id", accountID, "error", err)
		return err
	}

	s.applyIndex(ctx, req, projects, entity.TeamMember{TeamID: teamID, AccountID: accountID})
	return nil
}

// authorize requires an admin and a team backing at least one project of the
// requester's organization. It returns those projects.
func (s *membershipServiceImpl) authorize(ctx context.Context, req Requester, teamID, accountID string) ([]*entity.Project, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, errs.Invalid("team_id", "team id is required")
	}
	if strings.TrimSpace(accountID) == "" {
		return nil, errs.Invalid("account_id", "account id is required")
	}

	labels, err := s.roles.RoleLabels(ctx, req.AccountID)
	if err != nil {
		return nil, errs.Upstream("role lookup", err)
	}
	if !access.NewRoleSet(labels...).IsAdmin() {
		s.logger.Info("Forbidden", "requester", req.AccountID, "action", "change team membership", "team_id", teamID)
		return nil, errs.Forbidden("team membership is managed by admins")
	}

	all, err := s.projects.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	var projects []*entity.Project
	for _, p := range all {
		if p.OrganizationID == req.OrganizationID {
			projects = append(projects, p)
		}
	}
	if len(projects) == 0 {
		return nil, errs.NotFound("team", teamID)
	}

	profile, err := s.profiles.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.OrganizationID != req.OrganizationID {
		return nil, errs.NotFound("profile", accountID)
	}

	return projects, nil
}

func (s *membershipServiceImpl) applyIndex(ctx context.Context, req Requester, projects []*entity.Project, m entity.TeamMember) {
	manager := m.HasRole(entity.TeamRoleManager)
	if s.index != nil {
		s.index.Apply(projects, m.AccountID, manager)
	}

	s.logger.Info("Team membership changed",
		"team_id", m.TeamID,
		"account_id", m.AccountID,
		"roles", m.Roles,
		"manager", manager,
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeMembershipChanged, m.AccountID, req.AccountID, map[string]interface{}{
			event.KeyTeamID:         m.TeamID,
			event.KeyOrganizationID: req.OrganizationID,
			event.KeyRoles:          strings.Join(m.Roles, ","),
		}))
	}
}

func normalizeTeamRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, strings.ToLower(r))
	}
	return dedupe(out)
}
