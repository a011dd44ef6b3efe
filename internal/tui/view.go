package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/events"
)

const (
	minWidth  = 60
	minHeight = 15
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	p := m.palette()
	sections := []string{
		m.renderHeader(),
		m.renderDivider(),
		m.renderSelection(),
		"",
		m.renderOutcome(),
		m.renderDivider(),
		m.renderEvents(),
		m.renderDivider(),
		m.renderFooter(),
	}
	content := strings.Join(sections, "\n")

	rendered := p.Container.
		Width(safeWidth(m.width - 2)).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderTooSmall renders a minimal message for terminals that are too small.
func (m model) renderTooSmall() string {
	return fmt.Sprintf("Terminal too small (%dx%d). Need %dx%d minimum.",
		m.width, m.height, minWidth, minHeight)
}

// renderHeader renders the title and theme on one line.
func (m model) renderHeader() string {
	p := m.palette()
	w := safeWidth(m.width - 4)

	title := p.Title.Render("actionctl upload")
	theme := "light"
	if m.dark {
		theme = "dark"
	}
	right := p.Label.Render(fmt.Sprintf("%s  theme: %s", m.snap.Phase, theme))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", max(1, w-lipgloss.Width(title)-lipgloss.Width(right))),
		right,
	)
}

func (m model) renderDivider() string {
	w := safeWidth(m.width - 4)
	return m.palette().Divider.Render(strings.Repeat("─", w))
}

// renderSelection renders the path input and what it resolved to.
func (m model) renderSelection() string {
	p := m.palette()
	lines := []string{p.Label.Render("File"), m.input.View()}

	switch {
	case m.file != nil:
		lines = append(lines, p.File.Render(fmt.Sprintf("%s (%.1f KB)", m.file.Name, m.file.SizeKB())))
	case m.fileErr != "":
		lines = append(lines, p.FileError.Render(events.Truncate(m.fileErr, safeWidth(m.width-6))))
	default:
		lines = append(lines, p.Hint.Render("no file selected"))
	}
	return strings.Join(lines, "\n")
}

// renderOutcome renders the controller state: progress while running, the
// result or error once settled.
func (m model) renderOutcome() string {
	p := m.palette()
	var lines []string

	switch m.snap.Phase {
	case action.PhaseIdle:
		lines = append(lines, p.Hint.Render("Press enter to upload."))

	case action.PhaseRunning:
		name := "file"
		if m.file != nil {
			name = m.file.Name
		}
		lines = append(lines,
			m.spinner.View()+" "+p.Running.Render(fmt.Sprintf("Uploading %s...", name)),
			m.bar.ViewAs(m.snap.Progress/action.MaxProgress)+" "+p.Label.Render(fmt.Sprintf("%3.0f%%", m.snap.Progress)),
		)
		if m.snap.Attempt > 0 {
			lines = append(lines, m.renderAttempt())
		}

	case action.PhaseSucceeded:
		lines = append(lines, p.Success.Render(m.snap.Result))

	case action.PhaseFailed:
		lines = append(lines,
			p.Error.Render(m.snap.Error),
			m.renderAttempt(),
		)
		switch {
		case m.retryPending:
			lines = append(lines, p.Hint.Render(fmt.Sprintf("Retrying in %s...", m.retryDelay)))
		case m.snap.RetriesExhausted():
			lines = append(lines, p.Hint.Render("No retries left. Press x to start over."))
		default:
			left := m.snap.RetryLimit - m.snap.Attempt
			lines = append(lines, p.Hint.Render(fmt.Sprintf("Press r to retry (%d left).", left)))
		}
	}

	if m.notice != "" {
		lines = append(lines, p.FileError.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

// renderAttempt renders "attempt n/limit" where n counts retries made.
func (m model) renderAttempt() string {
	return m.palette().Attempt.Render(fmt.Sprintf("attempt %d/%d", m.snap.Attempt, m.snap.RetryLimit))
}

// renderEvents renders the most recent events, oldest first.
func (m model) renderEvents() string {
	p := m.palette()
	if len(m.eventLines) == 0 {
		return p.Hint.Render("No events yet.")
	}

	w := safeWidth(m.width - 4)
	lines := make([]string, 0, len(m.eventLines))
	for _, el := range m.eventLines {
		prefix := el.Time.Format("15:04:05") + " "
		text := events.Truncate(el.Text, safeWidth(w-len(prefix)))
		lines = append(lines, p.Label.Render(prefix)+m.styleForType(el.Type).Render(text))
	}
	return strings.Join(lines, "\n")
}

// renderFooter renders keyboard shortcuts help text.
func (m model) renderFooter() string {
	var help string
	switch {
	case m.input.Focused():
		help = "enter: upload  tab: done editing  ctrl+c: quit"
	case m.snap.Phase == action.PhaseFailed && !m.snap.RetriesExhausted() && !m.retryPending:
		help = "r: retry  enter: upload  x: reset  t: theme  i: edit path  q: quit"
	default:
		help = "enter: upload  x: reset  t: theme  i: edit path  q: quit"
	}
	return m.palette().Footer.Render(help)
}

// styleForType returns the log style for an event type.
func (m model) styleForType(t events.EventType) lipgloss.Style {
	p := m.palette()
	switch t {
	case events.EventActionSucceeded:
		return p.LogResult
	case events.EventActionFailed, events.EventError:
		return p.LogError
	case events.EventPhaseChanged, events.EventActionReset, events.EventRetryScheduled:
		return p.LogPhase
	default:
		return p.Log
	}
}

// safeWidth returns a width that is at least 1 to prevent negative values.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}
