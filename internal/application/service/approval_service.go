package service

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
	"github.com/garyjia/timesheet-approval/internal/domain/summary"
	"github.com/garyjia/timesheet-approval/internal/domain/workflow"
)

// ApprovalFilter is the optional status and week narrowing of a listing.
type ApprovalFilter struct {
	Status    string
	WeekStart *time.Time
}

// OwnerSummary is the slice of a profile shown next to a timesheet.
type OwnerSummary struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
}

// ApprovalItem is one timesheet in an approvals listing.
type ApprovalItem struct {
	Timesheet  *entity.Timesheet `json:"timesheet"`
	Owner      OwnerSummary      `json:"owner"`
	Totals     summary.Totals    `json:"totals"`
	ProjectIDs []string          `json:"project_ids"`
	Via        access.Class      `json:"via"`
}

// ApprovalSummary aggregates every entry of the visible timesheets.
type ApprovalSummary struct {
	Access     []access.Class  `json:"access"`
	Timesheets int             `json:"timesheets"`
	Totals     summary.Totals  `json:"totals"`
	ByUser     []summary.Group `json:"by_user"`
	ByProject  []summary.Group `json:"by_project"`
}

// ApprovalService answers "which timesheets can this requester see or approve"
type ApprovalService interface {
	// ListForApproval lists timesheets within the requester's approval scope.
	// Finance and requesters without scope are forbidden.
	ListForApproval(ctx context.Context, req Requester, f ApprovalFilter) ([]ApprovalItem, error)
	SummarizeApprovals(ctx context.Context, req Requester, f ApprovalFilter) (*ApprovalSummary, error)
	// ListStaffTimesheets lists one staff member's timesheets for self, admin,
	// finance, or that member's supervisor.
	ListStaffTimesheets(ctx context.Context, req Requester, staffAccountID string, f ApprovalFilter) ([]ApprovalItem, error)
}

type approvalServiceImpl struct {
	timesheets port.TimesheetRepository
	entries    port.EntryRepository
	profiles   port.ProfileRepository
	roles      port.RoleLookup
	resolver   AccessResolver
	logger     Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	timesheets port.TimesheetRepository,
	entries port.EntryRepository,
	profiles port.ProfileRepository,
	roles port.RoleLookup,
	resolver AccessResolver,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		timesheets: timesheets,
		entries:    entries,
		profiles:   profiles,
		roles:      roles,
		resolver:   resolver,
		logger:     logger,
	}
}

func (s *approvalServiceImpl) ListForApproval(ctx context.Context, req Requester, f ApprovalFilter) ([]ApprovalItem, error) {
	items, _, _, err := s.loadApprovals(ctx, req, f)
	return items, err
}

func (s *approvalServiceImpl) SummarizeApprovals(ctx context.Context, req Requester, f ApprovalFilter) (*ApprovalSummary, error) {
	items, entries, acc, err := s.loadApprovals(ctx, req, f)
	if err != nil {
		return nil, err
	}

	owners := make(map[string]string, len(items))
	for _, it := range items {
		owners[it.Timesheet.ID] = it.Timesheet.AccountID
	}

	return &ApprovalSummary{
		Access:     acc.Classes(),
		Timesheets: len(items),
		Totals:     summary.Summarize(entries),
		ByUser:     summary.ByUser(entries, owners),
		ByProject:  summary.ByProject(entries),
	}, nil
}

func (s *approvalServiceImpl) ListStaffTimesheets(ctx context.Context, req Requester, staffAccountID string, f ApprovalFilter) ([]ApprovalItem, error) {
	filter, err := toFilter(f)
	if err != nil {
		return nil, err
	}

	staff, err := s.profiles.Get(ctx, staffAccountID)
	if err != nil {
		return nil, err
	}
	if staff == nil || staff.OrganizationID != req.OrganizationID {
		return nil, errs.NotFound("profile", staffAccountID)
	}

	class, err := s.staffAccess(ctx, req, staff)
	if err != nil {
		return nil, err
	}

	list, err := s.timesheets.ListByAccount(ctx, staffAccountID, filter)
	if err != nil {
		return nil, err
	}

	items, _, err := s.hydrate(ctx, list, func(*entity.Timesheet, []string) access.Class { return class })
	return items, err
}

func (s *approvalServiceImpl) staffAccess(ctx context.Context, req Requester, staff *entity.Profile) (access.Class, error) {
	if staff.AccountID == req.AccountID {
		return access.ClassOwner, nil
	}

	labels, err := s.roles.RoleLabels(ctx, req.AccountID)
	if err != nil {
		return access.ClassNone, errs.Upstream("role lookup", err)
	}
	roles := access.NewRoleSet(labels...)

	switch {
	case roles.IsAdmin():
		return access.ClassAdmin, nil
	case roles.IsFinance():
		return access.ClassFinance, nil
	case staff.SupervisorID != nil && *staff.SupervisorID == req.AccountID:
		return access.ClassSupervisor, nil
	}

	s.logger.Info("Forbidden", "requester", req.AccountID, "action", "list staff timesheets", "staff", staff.AccountID)
	return access.ClassNone, errs.Forbidden("no access to timesheets of %s", staff.AccountID)
}

func (s *approvalServiceImpl) loadApprovals(ctx context.Context, req Requester, f ApprovalFilter) ([]ApprovalItem, []entity.TimesheetEntry, access.Access, error) {
	filter, err := toFilter(f)
	if err != nil {
		return nil, nil, access.Access{}, err
	}

	acc, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, nil, acc, err
	}
	if acc.Finance || acc.IsNone() {
		s.logger.Info("Forbidden", "requester", req.AccountID, "action", "list approvals", "access", acc.Class())
		return nil, nil, acc, errs.Forbidden("no approval access")
	}

	list, err := s.timesheets.ListByOrg(ctx, req.OrganizationID, acc.Filter(filter))
	if err != nil {
		return nil, nil, acc, err
	}

	items, entries, err := s.hydrate(ctx, list, func(ts *entity.Timesheet, projectIDs []string) access.Class {
		return acc.ClassFor(ts, projectIDs)
	})
	if err != nil {
		return nil, nil, acc, err
	}

	s.logger.Info("Approvals listed", "requester", req.AccountID, "access", acc.Class(), "count", len(items))
	return items, entries, acc, nil
}

// hydrate attaches owners, entry totals and the access class to each timesheet.
func (s *approvalServiceImpl) hydrate(
	ctx context.Context,
	list []*entity.Timesheet,
	classify func(ts *entity.Timesheet, projectIDs []string) access.Class,
) ([]ApprovalItem, []entity.TimesheetEntry, error) {
	items := make([]ApprovalItem, 0, len(list))
	if len(list) == 0 {
		return items, nil, nil
	}

	ids := make([]string, 0, len(list))
	ownerIDs := make([]string, 0, len(list))
	for _, ts := range list {
		ids = append(ids, ts.ID)
		ownerIDs = append(ownerIDs, ts.AccountID)
	}

	entries, err := s.entries.ListByTimesheets(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byTimesheet := make(map[string][]entity.TimesheetEntry, len(list))
	for _, e := range entries {
		byTimesheet[e.TimesheetID] = append(byTimesheet[e.TimesheetID], e)
	}

	profiles, err := s.profiles.ListByIDs(ctx, dedupe(ownerIDs))
	if err != nil {
		return nil, nil, err
	}
	owners := make(map[string]*entity.Profile, len(profiles))
	for _, p := range profiles {
		owners[p.AccountID] = p
	}

	for _, ts := range list {
		own := byTimesheet[ts.ID]
		projectIDs := entryProjects(own)

		owner := OwnerSummary{AccountID: ts.AccountID}
		if p, ok := owners[ts.AccountID]; ok {
			owner.Name = p.Name
			owner.Email = p.Email
		}

		items = append(items, ApprovalItem{
			Timesheet:  ts,
			Owner:      owner,
			Totals:     summary.Summarize(own),
			ProjectIDs: projectIDs,
			Via:        classify(ts, projectIDs),
		})
	}

	return items, entries, nil
}

func toFilter(f ApprovalFilter) (entity.TimesheetFilter, error) {
	var out entity.TimesheetFilter
	if f.Status != "" {
		state, ok := workflow.ParseState(f.Status)
		if !ok {
			return out, errs.Invalid("status", "unknown status %q", f.Status)
		}
		out.Status = state.String()
	}
	if f.WeekStart != nil {
		week := entity.DateOf(*f.WeekStart)
		if week.Weekday() != time.Monday {
			return out, errs.Invalid("week", "week start %s is not a Monday", week.Format(entity.DateLayout))
		}
		out.WeekStart = &week
	}
	return out, nil
}
