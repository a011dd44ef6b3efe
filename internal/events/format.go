package events

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	maxErrorLength    = 120
	maxResultLength   = 80
	truncateIndicator = "..."
)

// Format converts an event to a human-readable string for display.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *RunStartedEvent:
		return formatRunStarted(e)
	case *ProgressEvent:
		return formatProgress(e)
	case *RunSucceededEvent:
		return formatRunSucceeded(e)
	case *RunFailedEvent:
		return formatRunFailed(e)
	case *RetryScheduledEvent:
		return formatRetryScheduled(e)
	case *ResetEvent:
		return fmt.Sprintf("%s: reset", label(e.Action))
	case *PhaseChangedEvent:
		return fmt.Sprintf("%s: %s -> %s", label(e.Action), e.From, e.To)
	case *PrefChangedEvent:
		return fmt.Sprintf("preference %s = %t", SafeString(e.Key), e.Value)
	case *ErrorEvent:
		return formatError(e)
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a timestamp prefix.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05")
	detail := Format(event)
	if detail == "" {
		return fmt.Sprintf("[%s] %s", ts, event.Type())
	}
	return fmt.Sprintf("[%s] %s", ts, detail)
}

func label(action string) string {
	action = SafeString(action)
	if action == "" {
		return "action"
	}
	return action
}

func formatRunStarted(e *RunStartedEvent) string {
	if e.Attempt > 0 {
		return fmt.Sprintf("%s: started (retry %d)", label(e.Action), e.Attempt)
	}
	return fmt.Sprintf("%s: started", label(e.Action))
}

func formatProgress(e *ProgressEvent) string {
	return fmt.Sprintf("%s: %3.0f%%", label(e.Action), e.Progress)
}

func formatRunSucceeded(e *RunSucceededEvent) string {
	d := time.Duration(e.DurationMs) * time.Millisecond
	result := Truncate(e.Result, maxResultLength)
	if result == "" {
		return fmt.Sprintf("%s: succeeded in %s", label(e.Action), d)
	}
	return fmt.Sprintf("%s: succeeded in %s: %s", label(e.Action), d, result)
}

func formatRunFailed(e *RunFailedEvent) string {
	msg := Truncate(e.Error, maxErrorLength)
	remaining := e.RetryLimit - e.Attempt
	if remaining <= 0 {
		return fmt.Sprintf("%s: failed: %s (no retries left)", label(e.Action), msg)
	}
	return fmt.Sprintf("%s: failed: %s (%d retries left)", label(e.Action), msg, remaining)
}

func formatRetryScheduled(e *RetryScheduledEvent) string {
	d := time.Duration(e.DelayMs) * time.Millisecond
	return fmt.Sprintf("%s: retry %d/%d in %s", label(e.Action), e.Attempt, e.RetryLimit, d)
}

func formatError(e *ErrorEvent) string {
	msg := Truncate(e.Message, maxErrorLength)
	if e.Severity == SeverityWarning {
		return fmt.Sprintf("warning: %s", msg)
	}
	return fmt.Sprintf("error: %s", msg)
}

// Truncate shortens text to maxLen, adding indicator if truncated.
func Truncate(s string, maxLen int) string {
	s = SafeString(s)
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	return s[:maxLen-len(truncateIndicator)] + truncateIndicator
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SafeString sanitizes a string for single-line display: ANSI sequences and
// control characters are removed and whitespace runs collapse to one space.
func SafeString(s string) string {
	s = StripANSI(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			sb.WriteRune(' ')
		case !unicode.IsControl(r):
			sb.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}
