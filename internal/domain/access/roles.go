package access

import (
	"sort"
	"strings"
)

// Role labels carried on a profile
const (
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
	RoleClient     = "client"
	RoleSupervisor = "supervisor"
	RoleFinance    = "finance"
)

// RoleSet is the set of role labels held by one account, fetched per request.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from raw labels. Labels are trimmed and lowercased;
// blanks are dropped.
func NewRoleSet(labels ...string) RoleSet {
	rs := make(RoleSet, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		rs[l] = struct{}{}
	}
	return rs
}

// Has reports whether the set contains label.
func (rs RoleSet) Has(label string) bool {
	_, ok := rs[label]
	return ok
}

func (rs RoleSet) IsAdmin() bool   { return rs.Has(RoleAdmin) }
func (rs RoleSet) IsFinance() bool { return rs.Has(RoleFinance) }

// IsStaff is derived: admins count as staff without carrying the label.
func (rs RoleSet) IsStaff() bool {
	return rs.Has(RoleStaff) || rs.Has(RoleAdmin)
}

// Labels returns the labels in sorted order.
func (rs RoleSet) Labels() []string {
	out := make([]string, 0, len(rs))
	for l := range rs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
