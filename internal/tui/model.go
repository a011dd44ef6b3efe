package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/debounce"
	"github.com/npratt/actionctl/internal/events"
	"github.com/npratt/actionctl/internal/prefs"
	"github.com/npratt/actionctl/internal/upload"
)

// Uploader is the part of the action controller the TUI drives.
type Uploader interface {
	Run(file *upload.File)
	Retry(file *upload.File) bool
	Reset()
	Snapshot() action.Snapshot[string]
}

// ThemeStore persists the theme choice.
type ThemeStore interface {
	Bool(key string, def bool) bool
	Toggle(key string, def bool) (bool, error)
}

// eventLine is a formatted event for the log pane.
type eventLine struct {
	Time time.Time
	Text string
	Type events.EventType
}

const (
	// maxEventLines is the number of recent events kept for display.
	maxEventLines = 6
	barWidth      = 40
	inputWidth    = 48
)

// modelConfig carries the optional settings newModel needs.
type modelConfig struct {
	initialPath  string
	pathDebounce time.Duration
	darkDefault  bool
	onQuit       func()
}

// model is the bubbletea model for the upload TUI.
type model struct {
	// Sources
	eventChan <-chan events.Event
	pathChan  chan string
	ctrl      Uploader
	themes    ThemeStore

	// Widgets
	input   textinput.Model
	bar     progress.Model
	spinner spinner.Model

	// Selection
	path     *debounce.Value[string]
	file     *upload.File
	fileErr  string
	lastPath string

	// Controller view
	snap         action.Snapshot[string]
	retryPending bool
	retryDelay   time.Duration

	// Event log
	eventLines []eventLine

	// UI state
	dark   bool
	notice string
	width  int
	height int

	onQuit func()
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg events.Event

// pathSettledMsg carries a path once typing has paused.
type pathSettledMsg string

// newModel creates a model bound to the given controller and event channel.
// themes may be nil, in which case theme changes are not persisted.
func newModel(eventChan <-chan events.Event, ctrl Uploader, themes ThemeStore, cfg modelConfig) model {
	input := textinput.New()
	input.Placeholder = "path/to/file"
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Width = inputWidth
	input.Focus()

	dark := cfg.darkDefault
	if themes != nil {
		dark = themes.Bool(prefs.KeyDarkMode, cfg.darkDefault)
	}

	// The debounced value settles on a timer goroutine; hand the result to
	// the program through a channel, keeping only the latest path.
	pathChan := make(chan string, 1)
	path := debounce.New(cfg.pathDebounce, func(p string) {
		select {
		case <-pathChan:
		default:
		}
		select {
		case pathChan <- p:
		default:
		}
	})

	m := model{
		eventChan: eventChan,
		pathChan:  pathChan,
		ctrl:      ctrl,
		themes:    themes,
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		path:      path,
		dark:      dark,
		onQuit:    cfg.onQuit,
	}
	m.applyTheme()

	if ctrl != nil {
		m.snap = ctrl.Snapshot()
	}
	if cfg.initialPath != "" {
		m.input.SetValue(cfg.initialPath)
		m.selectPath(cfg.initialPath)
	}
	return m
}

// applyTheme rebuilds the theme-dependent widgets.
func (m *model) applyTheme() {
	p := paletteFor(m.dark)
	m.bar = progress.New(
		progress.WithGradient(p.BarStart, p.BarEnd),
		progress.WithWidth(barWidth),
	)
	m.spinner.Style = p.Running
}

// palette returns the active palette.
func (m model) palette() palette {
	return paletteFor(m.dark)
}

// selectPath resolves path to a file, recording the error for display when
// it cannot be used. An empty path clears the selection.
func (m *model) selectPath(path string) {
	m.lastPath = path
	if path == "" {
		m.file = nil
		m.fileErr = ""
		return
	}
	f, err := upload.Stat(path)
	if err != nil {
		m.file = nil
		m.fileErr = err.Error()
		return
	}
	m.file = f
	m.fileErr = ""
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.eventChan),
		waitForPath(m.pathChan),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// Update, handleKey, handleEvent are implemented in update.go
// View is implemented in view.go
