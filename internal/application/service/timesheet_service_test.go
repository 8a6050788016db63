package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
	"github.com/garyjia/timesheet-approval/internal/domain/event"
	"github.com/garyjia/timesheet-approval/internal/domain/workflow"
)

var (
	week1   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fixedAt = time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC)
)

type fixture struct {
	store      *memStore
	roles      *mockRoles
	profiles   *mockProfiles
	projects   *mockProjects
	managers   *mockManagerScope
	dispatcher *recordingDispatcher
	logger     *mockLogger
	resolver   AccessResolver
	svc        TimesheetService
}

func newFixture() *fixture {
	f := &fixture{
		store: newMemStore(),
		roles: &mockRoles{labels: map[string][]string{
			"ada":   {access.RoleAdmin},
			"fin":   {access.RoleFinance, access.RoleStaff},
			"alice": {access.RoleStaff},
			"bob":   {access.RoleStaff},
			"sam":   {access.RoleStaff, access.RoleSupervisor},
			"mike":  {access.RoleStaff},
		}},
		profiles: &mockProfiles{profiles: map[string]*entity.Profile{
			"ada":   {AccountID: "ada", OrganizationID: "org1", Name: "Ada"},
			"alice": {AccountID: "alice", OrganizationID: "org1", Name: "Alice", SupervisorID: strPtr("sam"), LarkOpenID: "ou_alice"},
			"bob":   {AccountID: "bob", OrganizationID: "org1", Name: "Bob", SupervisorID: strPtr("sam")},
			"sam":   {AccountID: "sam", OrganizationID: "org1", Name: "Sam", LarkOpenID: "ou_sam"},
			"mike":  {AccountID: "mike", OrganizationID: "org1", Name: "Mike"},
			"fin":   {AccountID: "fin", OrganizationID: "org1", Name: "Fin"},
			"zed":   {AccountID: "zed", OrganizationID: "org2", Name: "Zed"},
		}},
		projects: &mockProjects{projects: []*entity.Project{
			{ID: "p1", OrganizationID: "org1", TeamID: "t1", Name: "Apollo", Code: "APL"},
			{ID: "p2", OrganizationID: "org1", TeamID: "t2", Name: "Borealis", Code: "BOR"},
			{ID: "px", OrganizationID: "org2", TeamID: "tx", Name: "Elsewhere", Code: "ELS"},
		}},
		managers: &mockManagerScope{managedFunc: func(ctx context.Context, org, account string) ([]string, error) {
			if account == "mike" {
				return []string{"p1"}, nil
			}
			return nil, nil
		}},
		dispatcher: &recordingDispatcher{},
		logger:     &mockLogger{},
	}

	f.resolver = NewAccessResolver(f.roles, f.profiles, f.managers, f.logger)
	f.svc = NewTimesheetService(TimesheetDeps{
		Timesheets: f.store,
		Entries:    memEntries{f.store},
		Histories:  memHistory{f.store},
		Profiles:   f.profiles,
		Projects:   f.projects,
		Roles:      f.roles,
		Access:     f.resolver,
		TxManager:  &mockTxManager{},
		Dispatcher: f.dispatcher,
		Logger:     f.logger,
		Clock:      func() time.Time { return fixedAt },
	})
	return f
}

func req(account string) Requester {
	return Requester{AccountID: account, OrganizationID: "org1"}
}

func day(offset int) time.Time { return week1.AddDate(0, 0, offset) }

// fullWeek logs 40 hours for account, 32 of them billable.
func (f *fixture) fullWeek(t *testing.T, account string) string {
	t.Helper()
	var tsID string
	for i := 0; i < 5; i++ {
		in := EntryInput{ProjectID: "p1", WorkDate: day(i), Hours: 8, Billable: i < 4}
		if i == 4 {
			in.ProjectID = "p2"
		}
		e, err := f.svc.SaveEntry(context.Background(), req(account), in)
		require.NoError(t, err)
		tsID = e.TimesheetID
	}
	return tsID
}

func TestTimesheetService_SaveEntry_LazyCreatesDraft(t *testing.T) {
	f := newFixture()

	e1, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(2), Hours: 7.5, Billable: true})
	require.NoError(t, err)
	e2, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p2", WorkDate: day(6), Hours: 1})
	require.NoError(t, err)

	assert.Equal(t, e1.TimesheetID, e2.TimesheetID, "same week shares one timesheet")

	ts, err := f.store.GetByID(context.Background(), e1.TimesheetID)
	require.NoError(t, err)
	assert.Equal(t, "draft", ts.Status)
	assert.Equal(t, week1, ts.WeekStart)
	assert.Equal(t, "org1", ts.OrganizationID)

	e3, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(7), Hours: 1})
	require.NoError(t, err)
	assert.NotEqual(t, e1.TimesheetID, e3.TimesheetID, "next week gets its own timesheet")
}

func TestTimesheetService_SaveEntry_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    EntryInput
		field string
	}{
		{"hours over 24", EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: 25}, "hours"},
		{"zero hours", EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: 0}, "hours"},
		{"negative hours", EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: -1}, "hours"},
		{"missing project", EntryInput{WorkDate: day(0), Hours: 1}, "project_id"},
		{"missing date", EntryInput{ProjectID: "p1", Hours: 1}, "work_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.SaveEntry(context.Background(), req("alice"), tt.in)

			assert.ErrorIs(t, err, errs.ErrValidation)
			field, _ := errs.FieldOf(err)
			assert.Equal(t, tt.field, field)
			assert.Zero(t, f.store.writes, "no store write on validation failure")
		})
	}
}

func TestTimesheetService_SaveEntry_BoundaryHours(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: 24})
	assert.NoError(t, err)
}

func TestTimesheetService_SaveEntry_ForeignProject(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "px", WorkDate: day(0), Hours: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTimesheetService_SaveEntry_OnBehalf(t *testing.T) {
	f := newFixture()

	e, err := f.svc.SaveEntry(context.Background(), req("ada"), EntryInput{AccountID: "alice", ProjectID: "p1", WorkDate: day(0), Hours: 2})
	require.NoError(t, err)
	ts, _ := f.store.GetByID(context.Background(), e.TimesheetID)
	assert.Equal(t, "alice", ts.AccountID)

	_, err = f.svc.SaveEntry(context.Background(), req("bob"), EntryInput{AccountID: "alice", ProjectID: "p1", WorkDate: day(0), Hours: 2})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.SaveEntry(context.Background(), req("ada"), EntryInput{AccountID: "zed", ProjectID: "p1", WorkDate: day(0), Hours: 2})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTimesheetService_Scenario_SubmitFullWeek(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")

	ts, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", ts.Status)
	require.NotNil(t, ts.SubmittedAt)
	assert.Equal(t, fixedAt, *ts.SubmittedAt)

	view, err := f.svc.GetWeek(context.Background(), req("alice"), week1)
	require.NoError(t, err)
	assert.Equal(t, 40.0, view.Totals.TotalHours)
	assert.Equal(t, 32.0, view.Totals.BillableHours)
	assert.Equal(t, 8.0, view.Totals.NonBillableHours)

	assert.Equal(t, []event.Type{event.TypeTimesheetSubmitted}, f.dispatcher.types())

	history, err := f.svc.History(context.Background(), req("alice"), tsID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "draft", history[0].PreviousStatus)
	assert.Equal(t, "submitted", history[0].NewStatus)
}

func TestTimesheetService_Scenario_ManagerApproves(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)

	ts, err := f.svc.Approve(context.Background(), req("mike"), tsID, "Looks good")
	require.NoError(t, err)

	assert.Equal(t, "approved", ts.Status)
	require.NotNil(t, ts.ApprovedBy)
	assert.Equal(t, "mike", *ts.ApprovedBy)
	require.NotNil(t, ts.ApprovalComments)
	assert.Equal(t, "Looks good", *ts.ApprovalComments)
	assert.Nil(t, ts.RejectionComments)
}

func TestTimesheetService_Scenario_RejectThenResubmit(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)

	ts, err := f.svc.Reject(context.Background(), req("mike"), tsID, "Missing Friday")
	require.NoError(t, err)
	assert.Equal(t, "rejected", ts.Status)

	// rejected timesheets are editable again
	_, err = f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(4), Hours: 2})
	require.NoError(t, err)

	ts, err = f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", ts.Status)
	assert.Nil(t, ts.RejectionComments)
	assert.Nil(t, ts.ApprovalComments)
}

func TestTimesheetService_Submit_Empty(t *testing.T) {
	f := newFixture()
	e, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteEntry(context.Background(), req("alice"), e.ID))

	_, err = f.svc.Submit(context.Background(), req("alice"), e.TimesheetID)
	assert.ErrorIs(t, err, errs.ErrValidation)

	ts, _ := f.store.GetByID(context.Background(), e.TimesheetID)
	assert.Equal(t, "draft", ts.Status)
}

func TestTimesheetService_Approve_RequiresComment(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), req("sam"), tsID, "")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.svc.Reject(context.Background(), req("sam"), tsID, "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	ts, _ := f.store.GetByID(context.Background(), tsID)
	assert.Equal(t, "submitted", ts.Status)
}

func TestTimesheetService_Approve_Access(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), req("bob"), tsID, "ok")
	assert.ErrorIs(t, err, errs.ErrForbidden, "peer has no access")

	_, err = f.svc.Approve(context.Background(), req("fin"), tsID, "ok")
	assert.ErrorIs(t, err, errs.ErrForbidden, "finance is read-only")

	_, err = f.svc.Approve(context.Background(), req("alice"), tsID, "ok")
	assert.ErrorIs(t, err, errs.ErrForbidden, "no self approval")

	_, err = f.svc.Approve(context.Background(), Requester{AccountID: "ada", OrganizationID: "org2"}, tsID, "ok")
	assert.ErrorIs(t, err, errs.ErrNotFound, "other organization")

	ts, err := f.svc.Approve(context.Background(), req("sam"), tsID, "ok")
	require.NoError(t, err)
	assert.Equal(t, "approved", ts.Status)
}

func TestTimesheetService_Transition_Illegal(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), req("ada"), tsID, "fine")
	require.NoError(t, err)

	_, err = f.svc.Unsubmit(context.Background(), req("alice"), tsID)
	assert.True(t, errors.Is(err, workflow.ErrInvalidTransition))
	_, err = f.svc.Submit(context.Background(), req("alice"), tsID)
	assert.True(t, errors.Is(err, workflow.ErrInvalidTransition))

	ts, _ := f.store.GetByID(context.Background(), tsID)
	assert.Equal(t, "approved", ts.Status)
}

func TestTimesheetService_Unsubmit(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)

	_, err = f.svc.Unsubmit(context.Background(), req("bob"), tsID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	ts, err := f.svc.Unsubmit(context.Background(), req("alice"), tsID)
	require.NoError(t, err)
	assert.Equal(t, "draft", ts.Status)
}

func TestTimesheetService_EntryLocked(t *testing.T) {
	for _, final := range []string{"submitted", "approved"} {
		t.Run(final, func(t *testing.T) {
			f := newFixture()
			tsID := f.fullWeek(t, "alice")
			_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
			require.NoError(t, err)
			if final == "approved" {
				_, err = f.svc.Approve(context.Background(), req("sam"), tsID, "ok")
				require.NoError(t, err)
			}

			before, _ := memEntries{f.store}.ListByTimesheet(context.Background(), tsID)

			_, err = f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(1), Hours: 1})
			assert.ErrorIs(t, err, errs.ErrTimesheetLocked)

			_, err = f.svc.UpdateEntry(context.Background(), req("alice"), before[0].ID, EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: 2})
			assert.ErrorIs(t, err, errs.ErrTimesheetLocked)

			err = f.svc.DeleteEntry(context.Background(), req("alice"), before[0].ID)
			assert.ErrorIs(t, err, errs.ErrTimesheetLocked)

			after, _ := memEntries{f.store}.ListByTimesheet(context.Background(), tsID)
			assert.Equal(t, before, after)
		})
	}
}

func TestTimesheetService_UpdateEntry(t *testing.T) {
	f := newFixture()
	e, err := f.svc.SaveEntry(context.Background(), req("alice"), EntryInput{ProjectID: "p1", WorkDate: day(0), Hours: 1})
	require.NoError(t, err)

	updated, err := f.svc.UpdateEntry(context.Background(), req("alice"), e.ID, EntryInput{ProjectID: "p2", WorkDate: day(3), Hours: 6, Billable: true, Note: " design "})
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.ProjectID)
	assert.Equal(t, 6.0, updated.Hours)
	assert.Equal(t, "design", updated.Note)

	_, err = f.svc.UpdateEntry(context.Background(), req("alice"), e.ID, EntryInput{ProjectID: "p2", WorkDate: day(7), Hours: 6})
	field, _ := errs.FieldOf(err)
	assert.Equal(t, "work_date", field)

	_, err = f.svc.UpdateEntry(context.Background(), req("bob"), e.ID, EntryInput{ProjectID: "p2", WorkDate: day(3), Hours: 6})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.UpdateEntry(context.Background(), req("alice"), "missing", EntryInput{ProjectID: "p2", WorkDate: day(3), Hours: 6})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTimesheetService_GetWeek(t *testing.T) {
	f := newFixture()

	view, err := f.svc.GetWeek(context.Background(), req("alice"), week1)
	require.NoError(t, err)
	assert.Nil(t, view.Timesheet)
	assert.Empty(t, view.Entries)

	_, err = f.svc.GetWeek(context.Background(), req("alice"), day(2))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestTimesheetService_GetTimesheet_Access(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")

	view, err := f.svc.GetTimesheet(context.Background(), req("alice"), tsID)
	require.NoError(t, err)
	assert.Equal(t, access.ClassOwner, view.Access)
	assert.Len(t, view.Entries, 5)

	view, err = f.svc.GetTimesheet(context.Background(), req("fin"), tsID)
	require.NoError(t, err)
	assert.Equal(t, access.ClassFinance, view.Access)

	view, err = f.svc.GetTimesheet(context.Background(), req("mike"), tsID)
	require.NoError(t, err)
	assert.Equal(t, access.ClassManager, view.Access)

	_, err = f.svc.GetTimesheet(context.Background(), req("bob"), tsID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.GetTimesheet(context.Background(), req("alice"), "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTimesheetService_StoreFailurePropagates(t *testing.T) {
	f := newFixture()
	tsID := f.fullWeek(t, "alice")

	f.store.getTimesheetErr = errs.Upstream("get timesheet", errors.New("disk I/O error"))
	_, err := f.svc.Submit(context.Background(), req("alice"), tsID)
	assert.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
}
