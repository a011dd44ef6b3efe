package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/events"
	"github.com/npratt/actionctl/internal/prefs"
)

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(event)
	}
}

// waitForPath waits for the next settled path.
func waitForPath(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return pathSettledMsg(<-ch)
	}
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		slog.Info("event channel closed, exiting TUI")
		cmd := m.quit()
		return m, cmd

	case pathSettledMsg:
		if !m.isRunning() {
			m.selectPath(string(msg))
		}
		return m, waitForPath(m.pathChan)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		if m.input.Focused() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys: always work regardless of focus
	switch key {
	case "ctrl+c":
		cmd := m.quit()
		return m, cmd

	case "enter":
		m.startUpload()
		return m, nil

	case "tab", "esc":
		if m.input.Focused() {
			m.input.Blur()
			return m, nil
		}
		if m.isRunning() {
			return m, nil
		}
		cmd := m.input.Focus()
		return m, cmd
	}

	// While typing, everything else edits the path
	if m.input.Focused() {
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if after := m.input.Value(); after != before {
			m.path.Set(after)
		}
		return m, cmd
	}

	switch key {
	case "q":
		cmd := m.quit()
		return m, cmd

	case "r":
		m.retry()
		return m, nil

	case "x":
		m.fullReset()
		cmd := m.input.Focus()
		return m, cmd

	case "t":
		m.toggleTheme()
		return m, nil

	case "i", "/":
		if m.isRunning() {
			return m, nil
		}
		cmd := m.input.Focus()
		return m, cmd

	default:
		return m, nil
	}
}

// startUpload resolves the typed path and runs the action with it. A missing
// or unusable path still runs, so the failure is reported by the action.
func (m *model) startUpload() {
	if m.ctrl == nil {
		return
	}
	if p := m.input.Value(); p != m.lastPath {
		m.selectPath(p)
	}
	m.input.Blur()
	m.retryPending = false
	m.notice = ""
	m.ctrl.Run(m.file)
	m.snap = m.ctrl.Snapshot()
}

// retry schedules another attempt after a failure. It is ignored while a
// retry is pending or once the retry limit is reached.
func (m *model) retry() {
	if m.ctrl == nil || m.retryPending {
		return
	}
	m.snap = m.ctrl.Snapshot()
	if m.snap.Phase != action.PhaseFailed {
		return
	}
	if m.ctrl.Retry(m.file) {
		m.retryPending = true
	}
}

// fullReset clears the selected file as well as the controller state.
func (m *model) fullReset() {
	if m.ctrl != nil {
		m.ctrl.Reset()
		m.snap = m.ctrl.Snapshot()
	}
	m.input.SetValue("")
	m.file = nil
	m.fileErr = ""
	m.lastPath = ""
	m.retryPending = false
	m.notice = ""
}

// toggleTheme flips between light and dark, persisting the choice when a
// store is configured.
func (m *model) toggleTheme() {
	if m.themes == nil {
		m.dark = !m.dark
		m.applyTheme()
		return
	}
	dark, err := m.themes.Toggle(prefs.KeyDarkMode, m.dark)
	if err != nil {
		slog.Warn("failed to save theme", "error", err)
		m.notice = fmt.Sprintf("theme not saved: %v", err)
	}
	m.dark = dark
	m.applyTheme()
}

func (m *model) quit() tea.Cmd {
	m.path.Stop()
	if m.onQuit != nil {
		m.onQuit()
	}
	return tea.Quit
}

func (m model) isRunning() bool {
	return m.snap.Phase == action.PhaseRunning
}

// handleEvent processes an event and updates model state.
func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case *events.RunStartedEvent:
		m.retryPending = false

	case *events.RetryScheduledEvent:
		m.retryPending = true
		m.retryDelay = time.Duration(e.DelayMs) * time.Millisecond

	case *events.ResetEvent:
		m.retryPending = false

	case *events.PrefChangedEvent:
		if e.Key == prefs.KeyDarkMode && e.Value != m.dark {
			m.dark = e.Value
			m.applyTheme()
		}
	}

	if m.ctrl != nil && event.Source() == events.SourceController {
		m.snap = m.ctrl.Snapshot()
	}

	// Progress is shown by the bar, not the log
	if event.Type() == events.EventActionProgress {
		return
	}
	text := events.Format(event)
	if text == "" {
		return
	}
	m.eventLines = append(m.eventLines, eventLine{
		Time: event.Timestamp(),
		Text: text,
		Type: event.Type(),
	})
	if len(m.eventLines) > maxEventLines {
		m.eventLines = m.eventLines[len(m.eventLines)-maxEventLines:]
	}
}
