package access

import (
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

// Class is the category of authority a requester holds over timesheets.
type Class string

const (
	ClassAdmin      Class = "admin"
	ClassFinance    Class = "finance"
	ClassSupervisor Class = "supervisor"
	ClassManager    Class = "manager"
	ClassOwner      Class = "owner"
	ClassNone       Class = "none"
)

// Access is the resolved authority of one requester within one organization.
// Supervisor and manager scopes are additive; Admin and Finance short-circuit
// them and leave both scopes empty.
type Access struct {
	AccountID       string   `json:"account_id"`
	OrganizationID  string   `json:"organization_id"`
	Roles           RoleSet  `json:"-"`
	Admin           bool     `json:"admin"`
	Finance         bool     `json:"finance"`
	StaffAccountIDs []string `json:"staff_account_ids,omitempty"`
	ProjectIDs      []string `json:"project_ids,omitempty"`
}

// Classes lists every class the requester holds, most privileged first.
func (a Access) Classes() []Class {
	switch {
	case a.Admin:
		return []Class{ClassAdmin}
	case a.Finance:
		return []Class{ClassFinance}
	}

	var out []Class
	if len(a.StaffAccountIDs) > 0 {
		out = append(out, ClassSupervisor)
	}
	if len(a.ProjectIDs) > 0 {
		out = append(out, ClassManager)
	}
	if len(out) == 0 {
		return []Class{ClassNone}
	}
	return out
}

// Class returns the most privileged class held.
func (a Access) Class() Class {
	return a.Classes()[0]
}

// IsNone reports whether the requester has no approval authority at all.
func (a Access) IsNone() bool {
	return a.Class() == ClassNone
}

// Supervises reports whether accountID is in the supervisor scope.
func (a Access) Supervises(accountID string) bool {
	return contains(a.StaffAccountIDs, accountID)
}

// Manages reports whether projectID is in the manager scope.
func (a Access) Manages(projectID string) bool {
	return contains(a.ProjectIDs, projectID)
}

// CanApprove reports whether the requester may approve or reject ts, given the
// project ids of its entries. Finance is read-only.
func (a Access) CanApprove(ts *entity.Timesheet, entryProjectIDs []string) bool {
	return a.approvalClass(ts, entryProjectIDs) != ClassNone
}

// CanView reports whether the requester may read ts.
func (a Access) CanView(ts *entity.Timesheet, entryProjectIDs []string) bool {
	return a.ClassFor(ts, entryProjectIDs) != ClassNone
}

// ClassFor returns the class through which the requester sees ts.
func (a Access) ClassFor(ts *entity.Timesheet, entryProjectIDs []string) Class {
	if ts == nil || ts.OrganizationID != a.OrganizationID {
		return ClassNone
	}
	if c := a.approvalClass(ts, entryProjectIDs); c != ClassNone {
		return c
	}
	if a.Finance {
		return ClassFinance
	}
	if ts.AccountID == a.AccountID {
		return ClassOwner
	}
	return ClassNone
}

func (a Access) approvalClass(ts *entity.Timesheet, entryProjectIDs []string) Class {
	if ts == nil || ts.OrganizationID != a.OrganizationID {
		return ClassNone
	}
	if a.Admin {
		return ClassAdmin
	}
	if a.Finance {
		return ClassNone
	}
	if a.Supervises(ts.AccountID) {
		return ClassSupervisor
	}
	for _, p := range entryProjectIDs {
		if a.Manages(p) {
			return ClassManager
		}
	}
	return ClassNone
}

// Filter narrows base to the timesheets the requester may approve.
// Admins get base unchanged.
func (a Access) Filter(base entity.TimesheetFilter) entity.TimesheetFilter {
	if a.Admin {
		base.Scoped = false
		base.AccountIDs = nil
		base.ProjectIDs = nil
		return base
	}
	base.Scoped = true
	base.AccountIDs = append([]string(nil), a.StaffAccountIDs...)
	base.ProjectIDs = append([]string(nil), a.ProjectIDs...)
	return base
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
