package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/npratt/actionctl/internal/events"
)

// followPoll is how often tailFollow checks the event log for new lines.
const followPoll = 100 * time.Millisecond

// tailLast prints the last n events from the log at path.
func tailLast(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, err = fmt.Fprintln(w, "No events yet (log file does not exist)")
			return err
		}
		return fmt.Errorf("open event log: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Ring of the last n lines.
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event log: %w", err)
	}

	if len(lines) == 0 {
		_, err = fmt.Fprintln(w, "No events yet")
		return err
	}

	for _, line := range lines {
		if err := printEventLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

// waitForFile polls until path exists and returns it opened.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	ticker := time.NewTicker(5 * followPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("open event log: %w", err)
			}
		}
	}
}

// tailFollow prints events appended to the log at path until ctx is done.
func tailFollow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		_, _ = fmt.Fprintln(w, "Waiting for event log to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	case err != nil:
		return fmt.Errorf("open event log: %w", err)
	default:
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			_ = file.Close()
			return fmt.Errorf("seek to end: %w", err)
		}
	}
	defer func() { _ = file.Close() }()

	_, _ = fmt.Fprintln(w, "Following events (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	var partial strings.Builder
	for {
		chunk, err := reader.ReadString('\n')
		partial.WriteString(chunk)
		switch {
		case err == nil:
			if err := printEventLine(w, strings.TrimSuffix(partial.String(), "\n")); err != nil {
				return err
			}
			partial.Reset()
		case errors.Is(err, io.EOF):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPoll):
			}
		default:
			return fmt.Errorf("read event log: %w", err)
		}
	}
}

// printEventLine writes one logged event in the same format as live output.
// Lines that are not events are printed as-is; unknown event types are
// skipped.
func printEventLine(w io.Writer, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	ev, err := events.ParseEvent([]byte(line))
	if err != nil {
		_, err = fmt.Fprintln(w, line)
		return err
	}
	if ev == nil {
		return nil
	}
	_, err = fmt.Fprintln(w, colorLine(ev, events.FormatWithTimestamp(ev)))
	return err
}
