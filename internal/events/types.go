// Package events defines the event taxonomy emitted by action controllers and
// the plumbing that carries those events to the TUI, the JSON-lines log, and
// any other observer.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

const (
	// Action lifecycle events
	EventActionStarted   EventType = "action.started"
	EventActionProgress  EventType = "action.progress"
	EventActionSucceeded EventType = "action.succeeded"
	EventActionFailed    EventType = "action.failed"
	EventRetryScheduled  EventType = "action.retry_scheduled"
	EventActionReset     EventType = "action.reset"
	EventPhaseChanged    EventType = "action.phase_changed"

	// Preference events
	EventPrefChanged EventType = "prefs.changed"

	// Error events
	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceController = "controller"
	SourcePrefs      = "prefs"
	SourceInternal   = "actionctl"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// RunStartedEvent is emitted when a controller starts a new run.
type RunStartedEvent struct {
	BaseEvent
	Action  string `json:"action"`
	RunID   string `json:"run_id"`
	Token   uint64 `json:"token"`
	Attempt int    `json:"attempt"`
}

// ProgressEvent is emitted for every progress report accepted from the
// current run. Reports from superseded runs never produce one.
type ProgressEvent struct {
	BaseEvent
	Action   string  `json:"action"`
	RunID    string  `json:"run_id"`
	Token    uint64  `json:"token"`
	Progress float64 `json:"progress"`
}

// RunSucceededEvent is emitted when the current run resolves.
type RunSucceededEvent struct {
	BaseEvent
	Action     string `json:"action"`
	RunID      string `json:"run_id"`
	Token      uint64 `json:"token"`
	Attempt    int    `json:"attempt"`
	Result     string `json:"result,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// RunFailedEvent is emitted when the current run fails.
type RunFailedEvent struct {
	BaseEvent
	Action     string `json:"action"`
	RunID      string `json:"run_id"`
	Token      uint64 `json:"token"`
	Attempt    int    `json:"attempt"`
	RetryLimit int    `json:"retry_limit"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

// RetryScheduledEvent is emitted when a retry timer is armed.
// Attempt is the attempt number the retry will run as.
type RetryScheduledEvent struct {
	BaseEvent
	Action     string `json:"action"`
	Token      uint64 `json:"token"`
	Attempt    int    `json:"attempt"`
	RetryLimit int    `json:"retry_limit"`
	DelayMs    int64  `json:"delay_ms"`
}

// ResetEvent is emitted on an explicit reset.
type ResetEvent struct {
	BaseEvent
	Action string `json:"action"`
	Token  uint64 `json:"token"`
}

// PhaseChangedEvent is emitted whenever a controller moves between phases.
// From carries the previous phase so observers never need to track it.
type PhaseChangedEvent struct {
	BaseEvent
	Action string `json:"action"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// PrefChangedEvent is emitted when a persisted preference changes, either
// locally or through an external edit of the preferences file.
type PrefChangedEvent struct {
	BaseEvent
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// Severity levels for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for error conditions outside an action's own failure
// path, such as a preferences file that could not be written.
type ErrorEvent struct {
	BaseEvent
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewControllerEvent creates a BaseEvent with the controller as the source.
func NewControllerEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceController)
}

// NewInternalEvent creates a BaseEvent with actionctl as the source.
func NewInternalEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceInternal)
}

// IsTerminal reports whether the event ends a run.
func IsTerminal(event Event) bool {
	if event == nil {
		return false
	}
	switch event.Type() {
	case EventActionSucceeded, EventActionFailed:
		return true
	default:
		return false
	}
}
