package entity

import "time"

// Profile is a staff or client identity record.
type Profile struct {
	AccountID      string    `json:"account_id"`
	OrganizationID string    `json:"organization_id"`
	SupervisorID   *string   `json:"supervisor_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	LarkOpenID     string    `json:"lark_open_id,omitempty"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Project is read-only to the timesheet core; TeamID links to the membership store.
type Project struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	TeamID         string `json:"team_id"`
	Name           string `json:"name"`
	Code           string `json:"code"`
}

// TeamMember is one account's membership in a project team.
type TeamMember struct {
	TeamID    string   `json:"team_id"`
	AccountID string   `json:"account_id"`
	Roles     []string `json:"roles"`
}

// Team role labels
const (
	TeamRoleManager = "manager"
	TeamRoleMember  = "member"
)

// HasRole reports whether the member holds role on the team.
func (m TeamMember) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}
