package service

import (
	"context"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
)

// AccessResolver computes what a requester may see and approve.
type AccessResolver interface {
	// Resolve returns the requester's access within their organization.
	// Role lookup failures and request expiry propagate; supervisor and
	// manager sub-lookup failures are logged and contribute no scope.
	Resolve(ctx context.Context, req Requester) (access.Access, error)
}

type accessResolverImpl struct {
	roles    port.RoleLookup
	profiles port.ProfileRepository
	managers port.ManagerScope
	logger   Logger
}

// NewAccessResolver creates a new AccessResolver
func NewAccessResolver(
	roles port.RoleLookup,
	profiles port.ProfileRepository,
	managers port.ManagerScope,
	logger Logger,
) AccessResolver {
	return &accessResolverImpl{
		roles:    roles,
		profiles: profiles,
		managers: managers,
		logger:   logger,
	}
}

func (r *accessResolverImpl) Resolve(ctx context.Context, req Requester) (access.Access, error) {
	labels, err := r.roles.RoleLabels(ctx, req.AccountID)
	if err != nil {
		return access.Access{}, errs.Upstream("role lookup", err)
	}

	acc := access.Access{
		AccountID:      req.AccountID,
		OrganizationID: req.OrganizationID,
		Roles:          access.NewRoleSet(labels...),
	}

	switch {
	case acc.Roles.IsAdmin():
		acc.Admin = true
		return acc, nil
	case acc.Roles.IsFinance():
		acc.Finance = true
		return acc, nil
	}

	acc.StaffAccountIDs = r.supervisedStaff(ctx, req)
	acc.ProjectIDs = r.managedProjects(ctx, req)

	// An expired request is retryable, not an absence of scope.
	if err := ctx.Err(); err != nil {
		return access.Access{}, errs.Upstream("resolve access", err)
	}

	return acc, nil
}

func (r *accessResolverImpl) supervisedStaff(ctx context.Context, req Requester) []string {
	profiles, err := r.profiles.ListBySupervisor(ctx, req.AccountID)
	if err != nil {
		r.logger.Error("Supervisor lookup failed, treating as no match",
			"account_id", req.AccountID,
			"error", err,
		)
		return nil
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.OrganizationID != req.OrganizationID {
			continue
		}
		ids = append(ids, p.AccountID)
	}
	return dedupe(ids)
}

func (r *accessResolverImpl) managedProjects(ctx context.Context, req Requester) []string {
	ids, err := r.managers.ManagedProjects(ctx, req.OrganizationID, req.AccountID)
	if err != nil {
		r.logger.Error("Manager scope lookup failed, treating as no match",
			"account_id", req.AccountID,
			"organization_id", req.OrganizationID,
			"error", err,
		)
		return nil
	}
	return dedupe(ids)
}
