package workflow

// State represents a timesheet status in the approval lifecycle
type State string

const (
	StateDraft     State = "draft"
	StateSubmitted State = "submitted"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
)

var validStates = map[State]bool{
	StateDraft:     true,
	StateSubmitted: true,
	StateApproved:  true,
	StateRejected:  true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
}

// editableStates are the only states in which entries may change
var editableStates = map[State]bool{
	StateDraft:    true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsEditable returns true if entries of a timesheet in this state may be created, updated or deleted
func (s State) IsEditable() bool {
	return editableStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid timesheet state
func (s State) IsValid() bool {
	return validStates[s]
}

// ParseState converts a stored or query value into a State
func ParseState(s string) (State, bool) {
	st := State(s)
	return st, st.IsValid()
}
