package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
)

// Export is a rendered workbook ready for download.
type Export struct {
	Filename string
	Content  []byte
	Rows     int
}

// ExportService renders approved hours for payroll
type ExportService interface {
	ExportApproved(ctx context.Context, req Requester, weekStart time.Time) (*Export, error)
}

type exportServiceImpl struct {
	timesheets port.TimesheetRepository
	entries    port.EntryRepository
	profiles   port.ProfileRepository
	projects   port.ProjectRepository
	roles      port.RoleLookup
	writer     port.WorkbookWriter
	logger     Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	timesheets port.TimesheetRepository,
	entries port.EntryRepository,
	profiles port.ProfileRepository,
	projects port.ProjectRepository,
	roles port.RoleLookup,
	writer port.WorkbookWriter,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		timesheets: timesheets,
		entries:    entries,
		profiles:   profiles,
		projects:   projects,
		roles:      roles,
		writer:     writer,
		logger:     logger,
	}
}

// ExportApproved renders every approved entry of the organization for one week.
// Admin or finance only.
func (s *exportServiceImpl) ExportApproved(ctx context.Context, req Requester, weekStart time.Time) (*Export, error) {
	weekStart = entity.DateOf(weekStart)
	if weekStart.Weekday() != time.Monday {
		return nil, errs.Invalid("week", "week start %s is not a Monday", weekStart.Format(entity.DateLayout))
	}

	labels, err := s.roles.RoleLabels(ctx, req.AccountID)
	if err != nil {
		return nil, errs.Upstream("role lookup", err)
	}
	roles := access.NewRoleSet(labels...)
	if !roles.IsAdmin() && !roles.IsFinance() {
		s.logger.Info("Forbidden", "requester", req.AccountID, "action", "export approved hours")
		return nil, errs.Forbidden("export is restricted to admin and finance")
	}

	list, err := s.timesheets.ListByOrg(ctx, req.OrganizationID, entity.TimesheetFilter{
		Status:    statusApproved,
		WeekStart: &weekStart,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.buildRows(ctx, req.OrganizationID, list)
	if err != nil {
		return nil, err
	}

	content, err := s.writer.WriteApprovedHours(rows, weekStart)
	if err != nil {
		s.logger.Error("Failed to render export", "week_start", weekStart.Format(entity.DateLayout), "error", err)
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("Approved hours exported",
		"requester", req.AccountID,
		"week_start", weekStart.Format(entity.DateLayout),
		"timesheets", len(list),
		"rows", len(rows),
	)

	return &Export{
		Filename: fmt.Sprintf("approved-hours-%s.xlsx", weekStart.Format(entity.DateLayout)),
		Content:  content,
		Rows:     len(rows),
	}, nil
}

func (s *exportServiceImpl) buildRows(ctx context.Context, orgID string, list []*entity.Timesheet) ([]port.ExportRow, error) {
	if len(list) == 0 {
		return nil, nil
	}

	byID := make(map[string]*entity.Timesheet, len(list))
	ids := make([]string, 0, len(list))
	ownerIDs := make([]string, 0, len(list))
	for _, ts := range list {
		byID[ts.ID] = ts
		ids = append(ids, ts.ID)
		ownerIDs = append(ownerIDs, ts.AccountID)
	}

	entries, err := s.entries.ListByTimesheets(ctx, ids)
	if err != nil {
		return nil, err
	}

	profiles, err := s.profiles.ListByIDs(ctx, dedupe(ownerIDs))
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.AccountID] = displayName(p.Name, p.AccountID)
	}

	projects, err := s.projects.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	projectByID := make(map[string]*entity.Project, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = p
	}

	rows := make([]port.ExportRow, 0, len(entries))
	for _, e := range entries {
		ts := byID[e.TimesheetID]
		row := port.ExportRow{
			AccountID:   ts.AccountID,
			AccountName: names[ts.AccountID],
			WeekStart:   ts.WeekStart,
			WorkDate:    e.WorkDate,
			ProjectCode: e.ProjectID,
			Hours:       e.Hours,
			Billable:    e.Billable,
			Note:        e.Note,
		}
		if row.AccountName == "" {
			row.AccountName = ts.AccountID
		}
		if p, ok := projectByID[e.ProjectID]; ok {
			row.ProjectCode = p.Code
			row.ProjectName = p.Name
		}
		if e.TaskID != nil {
			row.TaskID = *e.TaskID
		}
		if ts.ApprovedBy != nil {
			row.ApprovedBy = *ts.ApprovedBy
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AccountName != rows[j].AccountName {
			return rows[i].AccountName < rows[j].AccountName
		}
		return rows[i].WorkDate.Before(rows[j].WorkDate)
	})

	return rows, nil
}
