package event

// Type identifies the type of domain event
type Type string

const (
	TypeTimesheetSubmitted   Type = "timesheet.submitted"
	TypeTimesheetUnsubmitted Type = "timesheet.unsubmitted"
	TypeTimesheetApproved    Type = "timesheet.approved"
	TypeTimesheetRejected    Type = "timesheet.rejected"
	TypeMembershipChanged    Type = "membership.changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTimesheetSubmitted,
		TypeTimesheetUnsubmitted,
		TypeTimesheetApproved,
		TypeTimesheetRejected,
		TypeMembershipChanged:
		return true
	default:
		return false
	}
}

// ForTrigger maps a workflow trigger name to its transition event type.
func ForTrigger(trigger string) (Type, bool) {
	switch trigger {
	case "submit":
		return TypeTimesheetSubmitted, true
	case "unsubmit":
		return TypeTimesheetUnsubmitted, true
	case "approve":
		return TypeTimesheetApproved, true
	case "reject":
		return TypeTimesheetRejected, true
	}
	return "", false
}
