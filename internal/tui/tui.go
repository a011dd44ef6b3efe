// Package tui provides a terminal UI for running an upload through the action
// controller using bubbletea.
package tui

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/actionctl/internal/events"
)

// TUI is the interactive upload screen.
type TUI struct {
	eventChan    <-chan events.Event
	ctrl         Uploader
	themes       ThemeStore
	initialPath  string
	pathDebounce time.Duration
	darkDefault  bool
	onQuit       func()
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a new TUI that drives ctrl and renders events from eventChan.
func New(eventChan <-chan events.Event, ctrl Uploader, opts ...Option) *TUI {
	t := &TUI{
		eventChan: eventChan,
		ctrl:      ctrl,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithThemeStore persists theme toggles in store.
func WithThemeStore(store ThemeStore) Option {
	return func(t *TUI) {
		t.themes = store
	}
}

// WithInitialPath pre-fills the file path.
func WithInitialPath(path string) Option {
	return func(t *TUI) {
		t.initialPath = path
	}
}

// WithPathDebounce sets how long typing must pause before the path is checked.
func WithPathDebounce(d time.Duration) Option {
	return func(t *TUI) {
		t.pathDebounce = d
	}
}

// WithDarkDefault selects the theme used until one is saved.
func WithDarkDefault(dark bool) Option {
	return func(t *TUI) {
		t.darkDefault = dark
	}
}

// WithOnQuit sets the callback invoked when the user quits.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// Run starts the TUI and blocks until it exits. Without a terminal it
// uploads the initial path and prints events line by line instead.
func (t *TUI) Run(ctx context.Context) error {
	if !isTerminal() {
		return t.runSimple(ctx)
	}

	m := newModel(t.eventChan, t.ctrl, t.themes, modelConfig{
		initialPath:  t.initialPath,
		pathDebounce: t.pathDebounce,
		darkDefault:  t.darkDefault,
		onQuit:       t.onQuit,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// runSimple runs a single upload of the initial path and streams its events
// to stdout until it settles.
func (t *TUI) runSimple(ctx context.Context) error {
	m := newModel(t.eventChan, t.ctrl, nil, modelConfig{initialPath: t.initialPath})
	m.path.Stop()
	t.ctrl.Run(m.file)

	return PrintEvents(ctx, t.eventChan, os.Stdout, events.IsTerminal)
}
