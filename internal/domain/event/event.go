package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by producers and handlers
const (
	KeyAccountID      = "account_id"
	KeyOrganizationID = "organization_id"
	KeyWeekStart      = "week_start"
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyComment        = "comment"
	KeyTeamID         = "team_id"
	KeyRoles          = "roles"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	SubjectID     string                 `json:"subject_id"`
	ActorID       string                 `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event. SubjectID is the timesheet id for
// transition events and the account id for membership events.
func NewEvent(eventType Type, subjectID, actorID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		SubjectID:     subjectID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: id,
	}
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, subjectID, actorID string, payload map[string]interface{}, correlationID string) *Event {
	evt := NewEvent(eventType, subjectID, actorID, payload)
	evt.CorrelationID = correlationID
	return evt
}

// WithPayload returns a copy of the event with key set (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
