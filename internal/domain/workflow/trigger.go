package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerSubmit   Trigger = "submit"
	TriggerUnsubmit Trigger = "unsubmit"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
