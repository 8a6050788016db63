package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/timesheet-approval/internal/application/dispatcher"
	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
	"github.com/garyjia/timesheet-approval/internal/domain/event"
	"github.com/garyjia/timesheet-approval/internal/domain/summary"
	"github.com/garyjia/timesheet-approval/internal/domain/workflow"
)

const (
	maxEntryHours  = 24
	maxNoteLength  = 2000
	statusDraft    = "draft"
	statusApproved = "approved"
)

// EntryInput carries the writable fields of a timesheet entry.
// AccountID is optional and only honored for admins saving on behalf of staff.
type EntryInput struct {
	AccountID string
	ProjectID string
	TaskID    *string
	WorkDate  time.Time
	Hours     float64
	Billable  bool
	Note      string
}

// WeekView is one account's week: the timesheet if it exists, its entries and totals.
type WeekView struct {
	WeekStart time.Time               `json:"week_start"`
	Timesheet *entity.Timesheet       `json:"timesheet"`
	Entries   []entity.TimesheetEntry `json:"entries"`
	Totals    summary.Totals          `json:"totals"`
}

// TimesheetView is a single timesheet as seen by a requester.
type TimesheetView struct {
	Timesheet *entity.Timesheet       `json:"timesheet"`
	Entries   []entity.TimesheetEntry `json:"entries"`
	Totals    summary.Totals          `json:"totals"`
	Access    access.Class            `json:"access"`
}

// TimesheetService manages entries and the timesheet approval lifecycle
type TimesheetService interface {
	GetWeek(ctx context.Context, req Requester, weekStart time.Time) (*WeekView, error)
	GetTimesheet(ctx context.Context, req Requester, id string) (*TimesheetView, error)
	History(ctx context.Context, req Requester, id string) ([]*entity.TimesheetHistory, error)

	SaveEntry(ctx context.Context, req Requester, in EntryInput) (*entity.TimesheetEntry, error)
	UpdateEntry(ctx context.Context, req Requester, id string, in EntryInput) (*entity.TimesheetEntry, error)
	DeleteEntry(ctx context.Context, req Requester, id string) error

	Submit(ctx context.Context, req Requester, id string) (*entity.Timesheet, error)
	Unsubmit(ctx context.Context, req Requester, id string) (*entity.Timesheet, error)
	Approve(ctx context.Context, req Requester, id, comment string) (*entity.Timesheet, error)
	Reject(ctx context.Context, req Requester, id, comment string) (*entity.Timesheet, error)
}

// TimesheetDeps groups the collaborators of the timesheet service
type TimesheetDeps struct {
	Timesheets port.TimesheetRepository
	Entries    port.EntryRepository
	Histories  port.HistoryRepository
	Profiles   port.ProfileRepository
	Projects   port.ProjectRepository
	Roles      port.RoleLookup
	Access     AccessResolver
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Logger     Logger
	Clock      Clock
}

type timesheetServiceImpl struct {
	TimesheetDeps
}

// NewTimesheetService creates a new TimesheetService
func NewTimesheetService(deps TimesheetDeps) TimesheetService {
	if deps.Clock == nil {
		deps.Clock = defaultClock
	}
	return &timesheetServiceImpl{TimesheetDeps: deps}
}

// GetWeek returns the requester's own week. A missing timesheet is not an error.
func (s *timesheetServiceImpl) GetWeek(ctx context.Context, req Requester, weekStart time.Time) (*WeekView, error) {
	weekStart = entity.DateOf(weekStart)
	if weekStart.Weekday() != time.Monday {
		return nil, errs.Invalid("week", "week start %s is not a Monday", weekStart.Format(entity.DateLayout))
	}

	view := &WeekView{WeekStart: weekStart, Entries: []entity.TimesheetEntry{}}

	ts, err := s.Timesheets.FindByAccountWeek(ctx, req.AccountID, weekStart)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return view, nil
	}

	entries, err := s.Entries.ListByTimesheet(ctx, ts.ID)
	if err != nil {
		return nil, err
	}

	view.Timesheet = ts
	view.Entries = entries
	view.Totals = summary.Summarize(entries)
	return view, nil
}

// GetTimesheet returns a timesheet the requester may view
func (s *timesheetServiceImpl) GetTimesheet(ctx context.Context, req Requester, id string) (*TimesheetView, error) {
	ts, err := s.loadTimesheet(ctx, req, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.Entries.ListByTimesheet(ctx, ts.ID)
	if err != nil {
		return nil, err
	}

	class, err := s.viewClass(ctx, req, ts, entries)
	if err != nil {
		return nil, err
	}

	return &TimesheetView{
		Timesheet: ts,
		Entries:   entries,
		Totals:    summary.Summarize(entries),
		Access:    class,
	}, nil
}

// History returns the audit trail of a timesheet the requester may view
func (s *timesheetServiceImpl) History(ctx context.Context, req Requester, id string) ([]*entity.TimesheetHistory, error) {
	ts, err := s.loadTimesheet(ctx, req, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.Entries.ListByTimesheet(ctx, ts.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.viewClass(ctx, req, ts, entries); err != nil {
		return nil, err
	}

	return s.Histories.ListByTimesheet(ctx, ts.ID)
}

// SaveEntry creates an entry, creating the week's timesheet as draft if needed
func (s *timesheetServiceImpl) SaveEntry(ctx context.Context, req Requester, in EntryInput) (*entity.TimesheetEntry, error) {
	if err := validateEntry(in); err != nil {
		return nil, err
	}

	ownerID, err := s.entryOwner(ctx, req, in.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, req, in.ProjectID); err != nil {
		return nil, err
	}

	now := s.Clock()
	weekStart := entity.WeekStartOf(in.WorkDate)
	entry := &entity.TimesheetEntry{
		ID:        uuid.NewString(),
		ProjectID: in.ProjectID,
		TaskID:    in.TaskID,
		WorkDate:  entity.DateOf(in.WorkDate),
		Hours:     in.Hours,
		Billable:  in.Billable,
		Note:      strings.TrimSpace(in.Note),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ts, err := s.ensureTimesheet(txCtx, ownerID, req.OrganizationID, weekStart, now)
		if err != nil {
			return err
		}
		if err := checkEditable(ts); err != nil {
			return err
		}

		entry.TimesheetID = ts.ID
		return s.Entries.Create(txCtx, entry)
	})
	if err != nil {
		s.Logger.Error("Failed to save entry", "account_id", ownerID, "week_start", weekStart.Format(entity.DateLayout), "error", err)
		return nil, err
	}

	s.Logger.Info("Entry saved", "entry_id", entry.ID, "timesheet_id", entry.TimesheetID, "hours", entry.Hours)
	return entry, nil
}

// UpdateEntry rewrites an entry. The work date must stay inside the timesheet's week.
func (s *timesheetServiceImpl) UpdateEntry(ctx context.Context, req Requester, id string, in EntryInput) (*entity.TimesheetEntry, error) {
	if err := validateEntry(in); err != nil {
		return nil, err
	}

	var updated *entity.TimesheetEntry
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entry, ts, err := s.loadEditableEntry(txCtx, req, id)
		if err != nil {
			return err
		}
		if !entity.InWeek(ts.WeekStart, in.WorkDate) {
			return errs.Invalid("work_date", "date %s is outside the week of %s",
				in.WorkDate.Format(entity.DateLayout), ts.WeekStart.Format(entity.DateLayout))
		}
		if entry.ProjectID != in.ProjectID {
			if err := s.checkProject(txCtx, req, in.ProjectID); err != nil {
				return err
			}
		}

		entry.ProjectID = in.ProjectID
		entry.TaskID = in.TaskID
		entry.WorkDate = entity.DateOf(in.WorkDate)
		entry.Hours = in.Hours
		entry.Billable = in.Billable
		entry.Note = strings.TrimSpace(in.Note)
		entry.UpdatedAt = s.Clock()

		if err := s.Entries.Update(txCtx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Entry updated", "entry_id", id)
	return updated, nil
}

// DeleteEntry removes an entry from an editable timesheet
func (s *timesheetServiceImpl) DeleteEntry(ctx context.Context, req Requester, id string) error {
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, _, err := s.loadEditableEntry(txCtx, req, id); err != nil {
			return err
		}
		return s.Entries.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Entry deleted", "entry_id", id)
	return nil
}

func (s *timesheetServiceImpl) Submit(ctx context.Context, req Requester, id string) (*entity.Timesheet, error) {
	return s.transition(ctx, req, id, workflow.TriggerSubmit, "")
}

func (s *timesheetServiceImpl) Unsubmit(ctx context.Context, req Requester, id string) (*entity.Timesheet, error) {
	return s.transition(ctx, req, id, workflow.TriggerUnsubmit, "")
}

func (s *timesheetServiceImpl) Approve(ctx context.Context, req Requester, id, comment string) (*entity.Timesheet, error) {
	return s.transition(ctx, req, id, workflow.TriggerApprove, comment)
}

func (s *timesheetServiceImpl) Reject(ctx context.Context, req Requester, id, comment string) (*entity.Timesheet, error) {
	return s.transition(ctx, req, id, workflow.TriggerReject, comment)
}

func (s *timesheetServiceImpl) transition(ctx context.Context, req Requester, id string, trigger workflow.Trigger, comment string) (*entity.Timesheet, error) {
	ts, err := s.loadTimesheet(ctx, req, id)
	if err != nil {
		return nil, err
	}

	switch trigger {
	case workflow.TriggerSubmit, workflow.TriggerUnsubmit:
		if err := s.authorizeOwner(ctx, req, ts.AccountID, string(trigger)); err != nil {
			return nil, err
		}
	default:
		if err := s.authorizeApprover(ctx, req, ts, string(trigger)); err != nil {
			return nil, err
		}
	}

	var history *entity.TimesheetHistory
	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// re-read inside the transaction so the status check sees the latest write
		current, err := s.Timesheets.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return errs.NotFound("timesheet", id)
		}

		if trigger == workflow.TriggerSubmit {
			n, err := s.Entries.CountByTimesheet(txCtx, id)
			if err != nil {
				return err
			}
			if n == 0 {
				return errs.Invalid("entries", "cannot submit a timesheet with no entries")
			}
		}

		history, err = workflow.Transition(txCtx, current, trigger, req.AccountID, comment, s.Clock())
		if err != nil {
			return err
		}
		if err := s.Timesheets.Update(txCtx, current); err != nil {
			return err
		}

		history.ID = uuid.NewString()
		if err := s.Histories.Create(txCtx, history); err != nil {
			return err
		}
		ts = current
		return nil
	})
	if err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			s.Logger.Info("Rejected transition", "timesheet_id", id, "trigger", trigger, "status", ts.Status)
		}
		return nil, err
	}

	s.Logger.Info("Timesheet transitioned",
		"timesheet_id", ts.ID,
		"trigger", trigger,
		"previous_status", history.PreviousStatus,
		"new_status", history.NewStatus,
		"actor_id", req.AccountID,
	)

	s.publish(ctx, ts, history)
	return ts, nil
}

func (s *timesheetServiceImpl) publish(ctx context.Context, ts *entity.Timesheet, h *entity.TimesheetHistory) {
	if s.Dispatcher == nil {
		return
	}
	eventType, ok := event.ForTrigger(h.Action)
	if !ok {
		return
	}

	s.Dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, ts.ID, h.ActorID, map[string]interface{}{
		event.KeyAccountID:      ts.AccountID,
		event.KeyOrganizationID: ts.OrganizationID,
		event.KeyWeekStart:      ts.WeekStart.Format(entity.DateLayout),
		event.KeyPreviousStatus: h.PreviousStatus,
		event.KeyNewStatus:      h.NewStatus,
		event.KeyComment:        h.Comment,
	}))
}

// loadTimesheet fetches a timesheet in the requester's organization.
// Timesheets of other organizations are reported as missing.
func (s *timesheetServiceImpl) loadTimesheet(ctx context.Context, req Requester, id string) (*entity.Timesheet, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.Invalid("id", "timesheet id is required")
	}
	ts, err := s.Timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts == nil || ts.OrganizationID != req.OrganizationID {
		return nil, errs.NotFound("timesheet", id)
	}
	return ts, nil
}

func (s *timesheetServiceImpl) loadEditableEntry(ctx context.Context, req Requester, id string) (*entity.TimesheetEntry, *entity.Timesheet, error) {
	entry, err := s.Entries.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, errs.NotFound("entry", id)
	}

	ts, err := s.Timesheets.GetByID(ctx, entry.TimesheetID)
	if err != nil {
		return nil, nil, err
	}
	if ts == nil || ts.OrganizationID != req.OrganizationID {
		return nil, nil, errs.NotFound("entry", id)
	}

	if err := s.authorizeOwner(ctx, req, ts.AccountID, "edit entry"); err != nil {
		return nil, nil, err
	}
	if err := checkEditable(ts); err != nil {
		return nil, nil, err
	}
	return entry, ts, nil
}

// ensureTimesheet finds the (account, week) timesheet or creates it as draft.
// A concurrent creator wins silently; the stored row is returned either way.
func (s *timesheetServiceImpl) ensureTimesheet(ctx context.Context, accountID, orgID string, weekStart, now time.Time) (*entity.Timesheet, error) {
	ts, err := s.Timesheets.FindByAccountWeek(ctx, accountID, weekStart)
	if err != nil || ts != nil {
		return ts, err
	}

	created := &entity.Timesheet{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		OrganizationID: orgID,
		WeekStart:      weekStart,
		Status:         statusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Timesheets.Create(ctx, created); err != nil {
		return nil, err
	}

	ts, err = s.Timesheets.FindByAccountWeek(ctx, accountID, weekStart)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, errs.Upstream("create timesheet", fmt.Errorf("timesheet for %s week %s not readable after insert", accountID, weekStart.Format(entity.DateLayout)))
	}
	if ts.ID == created.ID {
		s.Logger.Info("Timesheet created", "timesheet_id", ts.ID, "account_id", accountID, "week_start", weekStart.Format(entity.DateLayout))
	}
	return ts, nil
}

// entryOwner resolves whose timesheet an entry goes to. Only admins may
// write for another account, and only within their organization.
func (s *timesheetServiceImpl) entryOwner(ctx context.Context, req Requester, accountID string) (string, error) {
	if accountID == "" || accountID == req.AccountID {
		return req.AccountID, nil
	}

	if err := s.authorizeOwner(ctx, req, accountID, "save entry"); err != nil {
		return "", err
	}

	profile, err := s.Profiles.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	if profile == nil || profile.OrganizationID != req.OrganizationID {
		return "", errs.NotFound("profile", accountID)
	}
	return accountID, nil
}

func (s *timesheetServiceImpl) checkProject(ctx context.Context, req Requester, projectID string) error {
	project, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil || project.OrganizationID != req.OrganizationID {
		return errs.NotFound("project", projectID)
	}
	return nil
}

// authorizeOwner allows the owner or an admin.
func (s *timesheetServiceImpl) authorizeOwner(ctx context.Context, req Requester, ownerID, action string) error {
	if ownerID == req.AccountID {
		return nil
	}

	labels, err := s.Roles.RoleLabels(ctx, req.AccountID)
	if err != nil {
		return errs.Upstream("role lookup", err)
	}
	if access.NewRoleSet(labels...).IsAdmin() {
		return nil
	}

	s.Logger.Info("Forbidden", "requester", req.AccountID, "action", action, "owner", ownerID)
	return errs.Forbidden("%s is restricted to the owner or an admin", action)
}

// authorizeApprover requires approval coverage. Only admins may approve their own timesheet.
func (s *timesheetServiceImpl) authorizeApprover(ctx context.Context, req Requester, ts *entity.Timesheet, action string) error {
	acc, err := s.Access.Resolve(ctx, req)
	if err != nil {
		return err
	}

	if ts.AccountID == req.AccountID && !acc.Admin {
		s.Logger.Info("Forbidden", "requester", req.AccountID, "action", action, "reason", "self approval")
		return errs.Forbidden("cannot %s your own timesheet", action)
	}

	var projectIDs []string
	if !acc.Admin && len(acc.ProjectIDs) > 0 && !acc.Supervises(ts.AccountID) {
		entries, err := s.Entries.ListByTimesheet(ctx, ts.ID)
		if err != nil {
			return err
		}
		projectIDs = entryProjects(entries)
	}

	if !acc.CanApprove(ts, projectIDs) {
		s.Logger.Info("Forbidden", "requester", req.AccountID, "action", action, "timesheet_id", ts.ID, "access", acc.Class())
		return errs.Forbidden("no approval access to timesheet %s", ts.ID)
	}
	return nil
}

func (s *timesheetServiceImpl) viewClass(ctx context.Context, req Requester, ts *entity.Timesheet, entries []entity.TimesheetEntry) (access.Class, error) {
	if ts.AccountID == req.AccountID {
		return access.ClassOwner, nil
	}

	acc, err := s.Access.Resolve(ctx, req)
	if err != nil {
		return access.ClassNone, err
	}

	class := acc.ClassFor(ts, entryProjects(entries))
	if class == access.ClassNone {
		s.Logger.Info("Forbidden", "requester", req.AccountID, "action", "view", "timesheet_id", ts.ID)
		return class, errs.Forbidden("no access to timesheet %s", ts.ID)
	}
	return class, nil
}

func checkEditable(ts *entity.Timesheet) error {
	state, ok := workflow.ParseState(ts.Status)
	if !ok || !state.IsEditable() {
		return errs.Locked(ts.ID, ts.Status)
	}
	return nil
}

func validateEntry(in EntryInput) error {
	switch {
	case math.IsNaN(in.Hours) || in.Hours <= 0 || in.Hours > maxEntryHours:
		return errs.Invalid("hours", "hours must be greater than 0 and at most %d", maxEntryHours)
	case strings.TrimSpace(in.ProjectID) == "":
		return errs.Invalid("project_id", "project is required")
	case in.WorkDate.IsZero():
		return errs.Invalid("work_date", "work date is required")
	case len(in.Note) > maxNoteLength:
		return errs.Invalid("note", "note must be at most %d characters", maxNoteLength)
	}
	return nil
}

func entryProjects(entries []entity.TimesheetEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProjectID)
	}
	return dedupe(ids)
}
