package main

import (
	"github.com/fatih/color"

	"github.com/npratt/actionctl/internal/events"
)

var (
	colorSuccess = color.New(color.FgGreen, color.Bold)
	colorFailure = color.New(color.FgRed)
	colorRetry   = color.New(color.FgYellow)
	colorMuted   = color.New(color.Faint)
)

// colorLine colors a formatted event line by event type. Color is disabled
// automatically when stdout is not a terminal or NO_COLOR is set.
func colorLine(ev events.Event, line string) string {
	switch ev.Type() {
	case events.EventActionSucceeded:
		return colorSuccess.Sprint(line)
	case events.EventActionFailed, events.EventError:
		return colorFailure.Sprint(line)
	case events.EventRetryScheduled:
		return colorRetry.Sprint(line)
	case events.EventPhaseChanged, events.EventActionReset:
		return colorMuted.Sprint(line)
	default:
		return line
	}
}
