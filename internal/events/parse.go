package events

import (
	"encoding/json"
)

type eventEnvelope struct {
	Type EventType `json:"type"`
}

// ParseEvent parses a JSON line written by LogSink back into a typed Event.
// Returns nil with no error for unknown event types so logs written by newer
// versions still replay.
func ParseEvent(line []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, err
	}

	var ev Event
	switch envelope.Type {
	case EventActionStarted:
		ev = &RunStartedEvent{}
	case EventActionProgress:
		ev = &ProgressEvent{}
	case EventActionSucceeded:
		ev = &RunSucceededEvent{}
	case EventActionFailed:
		ev = &RunFailedEvent{}
	case EventRetryScheduled:
		ev = &RetryScheduledEvent{}
	case EventActionReset:
		ev = &ResetEvent{}
	case EventPhaseChanged:
		ev = &PhaseChangedEvent{}
	case EventPrefChanged:
		ev = &PrefChangedEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
