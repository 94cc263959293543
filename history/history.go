package history

import "github.com/simple-workflow/swf/core"

// History is the ordered report of a single workflow execution's events,
// oldest first. It is assembled once per fetch and never mutates the source
// sequence; every input record produces exactly one entry.
type History struct {
	events []*Event
}

// New assembles a history report from the raw event records, preserving
// their order exactly.
func New(events []*Event) *History {
	h := &History{
		events: make([]*Event, len(events)),
	}

	copy(h.events, events)

	return h
}

// Events returns the events in remote order. The returned slice is a copy,
// callers can not disturb the report.
func (h *History) Events() []*Event {
	events := make([]*Event, len(h.events))
	copy(events, h.events)

	return events
}

func (h *History) Len() int {
	return len(h.events)
}

// LastEvent returns the most recent event, or nil for an empty history.
func (h *History) LastEvent() *Event {
	if len(h.events) == 0 {
		return nil
	}

	return h.events[len(h.events)-1]
}

// CloseStatus scans the history backwards for the terminal event and returns
// how the execution ended. ok is false while the execution is still running
// or when the history carries no terminal event.
func (h *History) CloseStatus() (status core.CloseStatus, ok bool) {
	for i := len(h.events) - 1; i >= 0; i-- {
		switch h.events[i].Type {
		case EventType_WorkflowExecutionCompleted:
			return core.CloseStatusCompleted, true
		case EventType_WorkflowExecutionFailed:
			return core.CloseStatusFailed, true
		case EventType_WorkflowExecutionCanceled:
			return core.CloseStatusCanceled, true
		case EventType_WorkflowExecutionTerminated:
			return core.CloseStatusTerminated, true
		case EventType_WorkflowExecutionContinuedAsNew:
			return core.CloseStatusContinuedAsNew, true
		case EventType_WorkflowExecutionTimedOut:
			return core.CloseStatusTimedOut, true
		}
	}

	return "", false
}
