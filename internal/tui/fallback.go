package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/npratt/actionctl/internal/events"
)

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// IsTerminal reports whether the TUI can run interactively.
func IsTerminal() bool {
	return isTerminal()
}

// PrintEvents writes each event from ch to w as a timestamped line. It stops
// after printing an event for which done returns true, when ch closes, on
// interrupt, or when ctx is cancelled. A nil done never stops early.
func PrintEvents(ctx context.Context, ch <-chan events.Event, w io.Writer, done func(events.Event) bool) error {
	return PrintEventsStyled(ctx, ch, w, done, nil)
}

// PrintEventsStyled is PrintEvents with each line passed through style
// before it is written. A nil style leaves lines unchanged.
func PrintEventsStyled(ctx context.Context, ch <-chan events.Event, w io.Writer, done func(events.Event) bool, style func(events.Event, string) string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigChan:
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}

			if text := events.FormatWithTimestamp(event); text != "" {
				if style != nil {
					text = style(event, text)
				}
				if _, err := fmt.Fprintln(w, text); err != nil {
					return fmt.Errorf("write event: %w", err)
				}
			}
			if done != nil && done(event) {
				return nil
			}
		}
	}
}
