package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/timesheet-approval/internal/application/dispatcher"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/event"
)

type mockLogger struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, msg)
}

// memStore is an in-memory timesheet, entry and history store.
type memStore struct {
	mu         sync.Mutex
	timesheets map[string]*entity.Timesheet
	entries    map[string]*entity.TimesheetEntry
	history    []*entity.TimesheetHistory
	writes     int

	getTimesheetErr error
	updateErr       error
}

func newMemStore() *memStore {
	return &memStore{
		timesheets: make(map[string]*entity.Timesheet),
		entries:    make(map[string]*entity.TimesheetEntry),
	}
}

func (m *memStore) Create(ctx context.Context, ts *entity.Timesheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.timesheets {
		if existing.AccountID == ts.AccountID && existing.WeekStart.Equal(ts.WeekStart) {
			return nil
		}
	}
	cp := *ts
	m.timesheets[ts.ID] = &cp
	m.writes++
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*entity.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getTimesheetErr != nil {
		return nil, m.getTimesheetErr
	}
	ts, ok := m.timesheets[id]
	if !ok {
		return nil, nil
	}
	cp := *ts
	return &cp, nil
}

func (m *memStore) FindByAccountWeek(ctx context.Context, accountID string, weekStart time.Time) (*entity.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.timesheets {
		if ts.AccountID == accountID && ts.WeekStart.Equal(weekStart) {
			cp := *ts
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Update(ctx context.Context, ts *entity.Timesheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *ts
	m.timesheets[ts.ID] = &cp
	m.writes++
	return nil
}

func (m *memStore) list(match func(*entity.Timesheet) bool, f entity.TimesheetFilter) []*entity.Timesheet {
	var out []*entity.Timesheet
	for _, ts := range m.timesheets {
		if !match(ts) {
			continue
		}
		if f.Status != "" && ts.Status != f.Status {
			continue
		}
		if f.WeekStart != nil && !ts.WeekStart.Equal(*f.WeekStart) {
			continue
		}
		if f.Scoped && !m.inScope(ts, f) {
			continue
		}
		cp := *ts
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (m *memStore) inScope(ts *entity.Timesheet, f entity.TimesheetFilter) bool {
	for _, a := range f.AccountIDs {
		if a == ts.AccountID {
			return true
		}
	}
	for _, e := range m.entries {
		if e.TimesheetID != ts.ID {
			continue
		}
		for _, p := range f.ProjectIDs {
			if p == e.ProjectID {
				return true
			}
		}
	}
	return false
}

func (m *memStore) ListByOrg(ctx context.Context, organizationID string, f entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(ts *entity.Timesheet) bool { return ts.OrganizationID == organizationID }, f), nil
}

func (m *memStore) ListByAccount(ctx context.Context, accountID string, f entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(ts *entity.Timesheet) bool { return ts.AccountID == accountID }, f), nil
}

// memEntries adapts memStore to port.EntryRepository
type memEntries struct{ *memStore }

func (m memEntries) Create(ctx context.Context, e *entity.TimesheetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.ID] = &cp
	m.writes++
	return nil
}

func (m memEntries) GetByID(ctx context.Context, id string) (*entity.TimesheetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m memEntries) Update(ctx context.Context, e *entity.TimesheetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.ID] = &cp
	m.writes++
	return nil
}

func (m memEntries) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	m.writes++
	return nil
}

func (m memEntries) ListByTimesheet(ctx context.Context, timesheetID string) ([]entity.TimesheetEntry, error) {
	return m.ListByTimesheets(ctx, []string{timesheetID})
}

func (m memEntries) ListByTimesheets(ctx context.Context, ids []string) ([]entity.TimesheetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []entity.TimesheetEntry{}
	for _, e := range m.entries {
		if want[e.TimesheetID] {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m memEntries) CountByTimesheet(ctx context.Context, timesheetID string) (int, error) {
	entries, _ := m.ListByTimesheet(ctx, timesheetID)
	return len(entries), nil
}

// memHistory adapts memStore to port.HistoryRepository
type memHistory struct{ *memStore }

func (m memHistory) Create(ctx context.Context, h *entity.TimesheetHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, h)
	return nil
}

func (m memHistory) ListByTimesheet(ctx context.Context, timesheetID string) ([]*entity.TimesheetHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TimesheetHistory
	for _, h := range m.history {
		if h.TimesheetID == timesheetID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockRoles struct {
	labels map[string][]string
	err    error
}

func (m *mockRoles) RoleLabels(ctx context.Context, accountID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.labels[accountID], nil
}

type mockProfiles struct {
	profiles         map[string]*entity.Profile
	listBySupervisor func(ctx context.Context, supervisorID string) ([]*entity.Profile, error)
	getErr           error
}

func (m *mockProfiles) Get(ctx context.Context, accountID string) (*entity.Profile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.profiles[accountID], nil
}

func (m *mockProfiles) ListBySupervisor(ctx context.Context, supervisorID string) ([]*entity.Profile, error) {
	if m.listBySupervisor != nil {
		return m.listBySupervisor(ctx, supervisorID)
	}
	var out []*entity.Profile
	for _, p := range m.profiles {
		if p.SupervisorID != nil && *p.SupervisorID == supervisorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (m *mockProfiles) ListByIDs(ctx context.Context, ids []string) ([]*entity.Profile, error) {
	var out []*entity.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockProjects struct {
	projects  []*entity.Project
	listErr   error
	listCalls int
}

func (m *mockProjects) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	for _, p := range m.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProjects) ListByOrg(ctx context.Context, organizationID string) ([]*entity.Project, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.Project
	for _, p := range m.projects {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjects) ListByTeam(ctx context.Context, teamID string) ([]*entity.Project, error) {
	var out []*entity.Project
	for _, p := range m.projects {
		if p.TeamID == teamID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjects) ListAll(ctx context.Context) ([]*entity.Project, error) {
	return m.projects, nil
}

type mockTeams struct {
	mu              sync.Mutex
	members         map[string][]entity.TeamMember
	listMembersFunc func(ctx context.Context, teamID string) ([]entity.TeamMember, error)
	upserted        []entity.TeamMember
	deleted         []string
}

func (m *mockTeams) ListMembers(ctx context.Context, teamID string) ([]entity.TeamMember, error) {
	if m.listMembersFunc != nil {
		return m.listMembersFunc(ctx, teamID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[teamID], nil
}

func (m *mockTeams) ListAll(ctx context.Context) ([]entity.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.TeamMember
	for _, ms := range m.members {
		out = append(out, ms...)
	}
	return out, nil
}

func (m *mockTeams) Upsert(ctx context.Context, member entity.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, member)
	return nil
}

func (m *mockTeams) Delete(ctx context.Context, teamID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, teamID+"/"+accountID)
	return nil
}

type mockManagerScope struct {
	managedFunc func(ctx context.Context, organizationID, accountID string) ([]string, error)
}

func (m *mockManagerScope) ManagedProjects(ctx context.Context, organizationID, accountID string) ([]string, error) {
	if m.managedFunc != nil {
		return m.managedFunc(ctx, organizationID, accountID)
	}
	return nil, nil
}

type mockIndex struct {
	mockManagerScope
	applied []string
}

func (m *mockIndex) Rebuild(ctx context.Context) error { return nil }

func (m *mockIndex) Apply(projects []*entity.Project, accountID string, manager bool) {
	for _, p := range projects {
		if manager {
			m.applied = append(m.applied, "+"+p.ID+"/"+accountID)
		} else {
			m.applied = append(m.applied, "-"+p.ID+"/"+accountID)
		}
	}
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func (m *mockNotifier) SendText(ctx context.Context, openID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = make(map[string][]string)
	}
	m.sent[openID] = append(m.sent[openID], text)
	return nil
}

// recordingDispatcher captures async events without running handlers.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler)              {}
func (d *recordingDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler) {}
func (d *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.DispatchAsync(ctx, evt)
	return nil
}
func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}
func (d *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo { return nil }
func (d *recordingDispatcher) Close() error                                      { return nil }

func (d *recordingDispatcher) types() []event.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.Type, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func strPtr(s string) *string { return &s }
