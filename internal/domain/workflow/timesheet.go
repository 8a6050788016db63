package workflow

import (
	"context"
	"fmt"
	"sort"
)

// timesheetTransitions maps each status to the triggers it accepts and the
// status each one leads to. Approved has no entry and is terminal.
var timesheetTransitions = map[State]map[Trigger]State{
	StateDraft: {
		TriggerSubmit: StateSubmitted,
	},
	StateSubmitted: {
		TriggerApprove:  StateApproved,
		TriggerReject:   StateRejected,
		TriggerUnsubmit: StateDraft,
	},
	StateRejected: {
		TriggerSubmit: StateSubmitted,
	},
}

// timesheetMachine walks timesheetTransitions from one timesheet's status.
type timesheetMachine struct {
	current State
}

// ForTimesheet returns a state machine positioned at the timesheet's current status.
func ForTimesheet(status string) (StateMachine, error) {
	state, ok := ParseState(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, status)
	}
	return &timesheetMachine{current: state}, nil
}

func (m *timesheetMachine) State() State {
	return m.current
}

func (m *timesheetMachine) CanFire(trigger Trigger) bool {
	_, ok := timesheetTransitions[m.current][trigger]
	return ok
}

func (m *timesheetMachine) Fire(_ context.Context, trigger Trigger) error {
	next, ok := timesheetTransitions[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = next
	return nil
}

func (m *timesheetMachine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(timesheetTransitions[m.current]))
	for trigger := range timesheetTransitions[m.current] {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
