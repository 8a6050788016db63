package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

func TestRoleSet(t *testing.T) {
	rs := NewRoleSet(" Admin ", "", "finance")

	assert.True(t, rs.IsAdmin())
	assert.True(t, rs.IsFinance())
	assert.True(t, rs.IsStaff(), "admin implies staff")
	assert.Equal(t, []string{"admin", "finance"}, rs.Labels())

	assert.False(t, NewRoleSet(RoleClient).IsStaff())
	assert.True(t, NewRoleSet(RoleStaff).IsStaff())
}

func TestAccess_Classes(t *testing.T) {
	tests := []struct {
		name string
		acc  Access
		want []Class
	}{
		{"admin wins over scopes", Access{Admin: true, StaffAccountIDs: []string{"a"}}, []Class{ClassAdmin}},
		{"finance", Access{Finance: true}, []Class{ClassFinance}},
		{"supervisor and manager", Access{StaffAccountIDs: []string{"a"}, ProjectIDs: []string{"p"}}, []Class{ClassSupervisor, ClassManager}},
		{"manager only", Access{ProjectIDs: []string{"p"}}, []Class{ClassManager}},
		{"none", Access{}, []Class{ClassNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.acc.Classes())
			assert.Equal(t, tt.want[0], tt.acc.Class())
		})
	}
}

func TestAccess_CanApprove(t *testing.T) {
	ts := &entity.Timesheet{ID: "ts1", AccountID: "staff-a", OrganizationID: "org1"}
	other := &entity.Timesheet{ID: "ts2", AccountID: "staff-a", OrganizationID: "org2"}

	admin := Access{AccountID: "boss", OrganizationID: "org1", Admin: true}
	assert.True(t, admin.CanApprove(ts, nil))
	assert.False(t, admin.CanApprove(other, nil), "admin is bounded by organization")

	finance := Access{AccountID: "fin", OrganizationID: "org1", Finance: true}
	assert.False(t, finance.CanApprove(ts, nil))
	assert.True(t, finance.CanView(ts, nil))
	assert.Equal(t, ClassFinance, finance.ClassFor(ts, nil))

	sup := Access{AccountID: "sup", OrganizationID: "org1", StaffAccountIDs: []string{"staff-a", "staff-b"}}
	assert.True(t, sup.CanApprove(ts, nil))
	assert.Equal(t, ClassSupervisor, sup.ClassFor(ts, nil))
	assert.False(t, sup.CanApprove(&entity.Timesheet{AccountID: "staff-c", OrganizationID: "org1"}, nil))

	mgr := Access{AccountID: "mgr", OrganizationID: "org1", ProjectIDs: []string{"p1"}}
	assert.True(t, mgr.CanApprove(ts, []string{"p9", "p1"}))
	assert.False(t, mgr.CanApprove(ts, []string{"p9"}))

	owner := Access{AccountID: "staff-a", OrganizationID: "org1"}
	assert.False(t, owner.CanApprove(ts, nil))
	assert.Equal(t, ClassOwner, owner.ClassFor(ts, nil))
	assert.True(t, owner.CanView(ts, nil))
}

func TestAccess_Filter(t *testing.T) {
	base := entity.TimesheetFilter{Status: "submitted"}

	got := Access{Admin: true}.Filter(base)
	assert.False(t, got.Scoped)
	assert.Equal(t, "submitted", got.Status)

	got = Access{StaffAccountIDs: []string{"a", "b"}}.Filter(base)
	assert.True(t, got.Scoped)
	assert.Equal(t, []string{"a", "b"}, got.AccountIDs)
	assert.Empty(t, got.ProjectIDs)
}

func TestFold(t *testing.T) {
	results := []LookupResult{
		{ProjectID: "p1", Manager: true},
		{ProjectID: "p2", Err: errors.New("team missing")},
		{ProjectID: "p3"},
		{ProjectID: "p4", Manager: true},
		{ProjectID: "p5", Manager: true, Err: errors.New("timeout")},
	}

	assert.Equal(t, []string{"p1", "p4"}, Fold(results))
	assert.Len(t, Failed(results), 2)
	assert.Nil(t, Fold(nil))
}
