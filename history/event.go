package history

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of a history event. Remote services add
// event types over time, so values outside the known set are carried
// through as-is rather than rejected.
type EventType string

const (
	EventType_WorkflowExecutionStarted        EventType = "WorkflowExecutionStarted"
	EventType_WorkflowExecutionCompleted      EventType = "WorkflowExecutionCompleted"
	EventType_WorkflowExecutionFailed         EventType = "WorkflowExecutionFailed"
	EventType_WorkflowExecutionCanceled       EventType = "WorkflowExecutionCanceled"
	EventType_WorkflowExecutionTerminated     EventType = "WorkflowExecutionTerminated"
	EventType_WorkflowExecutionContinuedAsNew EventType = "WorkflowExecutionContinuedAsNew"
	EventType_WorkflowExecutionTimedOut       EventType = "WorkflowExecutionTimedOut"
	EventType_WorkflowExecutionSignaled       EventType = "WorkflowExecutionSignaled"

	EventType_DecisionTaskScheduled EventType = "DecisionTaskScheduled"
	EventType_DecisionTaskStarted   EventType = "DecisionTaskStarted"
	EventType_DecisionTaskCompleted EventType = "DecisionTaskCompleted"
	EventType_DecisionTaskTimedOut  EventType = "DecisionTaskTimedOut"

	EventType_ActivityTaskScheduled EventType = "ActivityTaskScheduled"
	EventType_ActivityTaskStarted   EventType = "ActivityTaskStarted"
	EventType_ActivityTaskCompleted EventType = "ActivityTaskCompleted"
	EventType_ActivityTaskFailed    EventType = "ActivityTaskFailed"
	EventType_ActivityTaskTimedOut  EventType = "ActivityTaskTimedOut"

	EventType_TimerStarted EventType = "TimerStarted"
	EventType_TimerFired   EventType = "TimerFired"
)

func (et EventType) String() string {
	return string(et)
}

// Event is one record in a workflow execution's history, as returned by the
// connection provider.
type Event struct {
	// EventID is the remote-assigned, strictly increasing id of this event
	// within its execution's history.
	EventID int64 `json:"event_id"`

	Type EventType `json:"event_type"`

	Timestamp time.Time `json:"event_timestamp"`

	// Attributes is the event type specific payload, kept opaque so events
	// of types unknown to this package survive a round trip untouched.
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

func NewHistoryEvent(eventID int64, timestamp time.Time, eventType EventType, attributes json.RawMessage) *Event {
	return &Event{
		EventID:    eventID,
		Type:       eventType,
		Timestamp:  timestamp,
		Attributes: attributes,
	}
}

// DecodeAttributes unmarshals the event's payload into vptr.
func (e *Event) DecodeAttributes(vptr any) error {
	return json.Unmarshal(e.Attributes, vptr)
}
