package tui

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/events"
	"github.com/npratt/actionctl/internal/prefs"
	"github.com/npratt/actionctl/internal/upload"
)

// fakeUploader records calls and serves a canned snapshot.
type fakeUploader struct {
	mu      sync.Mutex
	runs    []*upload.File
	retries []*upload.File
	retryOK bool
	resets  int
	snap    action.Snapshot[string]
}

func (f *fakeUploader) Run(file *upload.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, file)
	f.snap = action.Snapshot[string]{Phase: action.PhaseRunning, RetryLimit: f.snap.RetryLimit}
}

func (f *fakeUploader) Retry(file *upload.File) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries = append(f.retries, file)
	return f.retryOK
}

func (f *fakeUploader) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.snap = action.Snapshot[string]{Phase: action.PhaseIdle, RetryLimit: f.snap.RetryLimit}
}

func (f *fakeUploader) Snapshot() action.Snapshot[string] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeUploader) setSnapshot(s action.Snapshot[string]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
}

// fakeThemes is an in-memory ThemeStore.
type fakeThemes struct {
	values map[string]bool
	err    error
}

func (f *fakeThemes) Bool(key string, def bool) bool {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

func (f *fakeThemes) Toggle(key string, def bool) (bool, error) {
	cur := f.Bool(key, def)
	if f.err != nil {
		return cur, f.err
	}
	f.values[key] = !cur
	return !cur, nil
}

func tempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return nm, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newTestModel(ctrl Uploader, themes ThemeStore, cfg modelConfig) model {
	m := newModel(make(chan events.Event), ctrl, themes, cfg)
	m.width = 80
	m.height = 24
	return m
}

func TestNewModelInitialPath(t *testing.T) {
	path := tempFile(t, "report.pdf", 2048)
	m := newTestModel(&fakeUploader{}, nil, modelConfig{initialPath: path})

	if m.file == nil {
		t.Fatal("file = nil, want selected file")
	}
	if m.file.Name != "report.pdf" {
		t.Errorf("file.Name = %q, want %q", m.file.Name, "report.pdf")
	}
	if m.input.Value() != path {
		t.Errorf("input = %q, want %q", m.input.Value(), path)
	}
	if !m.input.Focused() {
		t.Error("input should start focused")
	}
}

func TestNewModelMissingPath(t *testing.T) {
	m := newTestModel(&fakeUploader{}, nil, modelConfig{initialPath: "/nonexistent/file"})

	if m.file != nil {
		t.Errorf("file = %+v, want nil", m.file)
	}
	if m.fileErr == "" {
		t.Error("fileErr is empty, want stat error")
	}
}

func TestTypingSettlesPath(t *testing.T) {
	path := tempFile(t, "a.txt", 10)
	m := newTestModel(&fakeUploader{}, nil, modelConfig{pathDebounce: 10 * time.Millisecond})

	for _, r := range path {
		m, _ = update(t, m, runeKey(r))
	}
	if m.input.Value() != path {
		t.Fatalf("input = %q, want %q", m.input.Value(), path)
	}
	if m.file != nil {
		t.Error("file selected before typing settled")
	}

	// A slow keystroke can settle a prefix first; wait for the full path.
	deadline := time.After(time.Second)
	for m.lastPath != path {
		select {
		case settled := <-m.pathChan:
			m, _ = update(t, m, pathSettledMsg(settled))
		case <-deadline:
			t.Fatal("path never settled")
		}
	}

	if m.file == nil || m.file.Name != "a.txt" {
		t.Errorf("file = %+v, want a.txt", m.file)
	}
}

func TestEnterRunsUpload(t *testing.T) {
	path := tempFile(t, "a.txt", 10)
	ctrl := &fakeUploader{}
	m := newTestModel(ctrl, nil, modelConfig{})

	m.input.SetValue(path)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(ctrl.runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(ctrl.runs))
	}
	if ctrl.runs[0] == nil || ctrl.runs[0].Name != "a.txt" {
		t.Errorf("ran with %+v, want a.txt", ctrl.runs[0])
	}
	if m.input.Focused() {
		t.Error("input should blur on upload")
	}
	if m.snap.Phase != action.PhaseRunning {
		t.Errorf("phase = %s, want running", m.snap.Phase)
	}
}

func TestEnterWithoutFileStillRuns(t *testing.T) {
	ctrl := &fakeUploader{}
	m := newTestModel(ctrl, nil, modelConfig{})

	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(ctrl.runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(ctrl.runs))
	}
	if ctrl.runs[0] != nil {
		t.Errorf("ran with %+v, want nil file", ctrl.runs[0])
	}
}

func TestRetryKey(t *testing.T) {
	ctrl := &fakeUploader{retryOK: true}
	ctrl.setSnapshot(action.Snapshot[string]{Phase: action.PhaseFailed, RetryLimit: 3, Error: "Upload Failed"})
	m := newTestModel(ctrl, nil, modelConfig{})
	m.input.Blur()

	m, _ = update(t, m, runeKey('r'))
	if len(ctrl.retries) != 1 {
		t.Fatalf("retries = %d, want 1", len(ctrl.retries))
	}
	if !m.retryPending {
		t.Error("retryPending = false, want true")
	}

	m, _ = update(t, m, runeKey('r'))
	if len(ctrl.retries) != 1 {
		t.Errorf("retries = %d, want 1 while a retry is pending", len(ctrl.retries))
	}

	m, _ = update(t, m, eventMsg(&events.RunStartedEvent{
		BaseEvent: events.NewControllerEvent(events.EventActionStarted),
		Attempt:   1,
	}))
	if m.retryPending {
		t.Error("retryPending should clear when the retry starts")
	}
}

func TestRetryKeyIgnoredUnlessFailed(t *testing.T) {
	ctrl := &fakeUploader{retryOK: true}
	ctrl.setSnapshot(action.Snapshot[string]{Phase: action.PhaseSucceeded, Result: "ok"})
	m := newTestModel(ctrl, nil, modelConfig{})
	m.input.Blur()

	_, _ = update(t, m, runeKey('r'))
	if len(ctrl.retries) != 0 {
		t.Errorf("retries = %d, want 0", len(ctrl.retries))
	}
}

func TestRetryKeyAtLimit(t *testing.T) {
	ctrl := &fakeUploader{retryOK: false}
	ctrl.setSnapshot(action.Snapshot[string]{Phase: action.PhaseFailed, Attempt: 3, RetryLimit: 3})
	m := newTestModel(ctrl, nil, modelConfig{})
	m.input.Blur()

	m, _ = update(t, m, runeKey('r'))
	if m.retryPending {
		t.Error("retryPending = true after a refused retry")
	}
}

func TestFullReset(t *testing.T) {
	path := tempFile(t, "a.txt", 10)
	ctrl := &fakeUploader{}
	ctrl.setSnapshot(action.Snapshot[string]{Phase: action.PhaseFailed, Error: "boom"})
	m := newTestModel(ctrl, nil, modelConfig{initialPath: path})
	m.input.Blur()

	m, _ = update(t, m, runeKey('x'))

	if ctrl.resets != 1 {
		t.Errorf("resets = %d, want 1", ctrl.resets)
	}
	if m.file != nil || m.input.Value() != "" {
		t.Errorf("selection not cleared: file=%+v input=%q", m.file, m.input.Value())
	}
	if m.snap.Phase != action.PhaseIdle {
		t.Errorf("phase = %s, want idle", m.snap.Phase)
	}
	if !m.input.Focused() {
		t.Error("input should be focused after reset")
	}
}

func TestThemeToggle(t *testing.T) {
	themes := &fakeThemes{values: map[string]bool{}}
	m := newTestModel(&fakeUploader{}, themes, modelConfig{})
	m.input.Blur()

	if m.dark {
		t.Fatal("dark = true, want light by default")
	}

	m, _ = update(t, m, runeKey('t'))
	if !m.dark {
		t.Error("dark = false after toggle")
	}
	if !themes.values[prefs.KeyDarkMode] {
		t.Error("toggle was not persisted")
	}

	m, _ = update(t, m, runeKey('t'))
	if m.dark {
		t.Error("dark = true after second toggle")
	}
}

func TestThemeToggleSaveError(t *testing.T) {
	themes := &fakeThemes{values: map[string]bool{}, err: errors.New("disk full")}
	m := newTestModel(&fakeUploader{}, themes, modelConfig{})
	m.input.Blur()

	m, _ = update(t, m, runeKey('t'))
	if m.notice == "" {
		t.Error("notice is empty, want save error")
	}
}

func TestThemeFromStore(t *testing.T) {
	themes := &fakeThemes{values: map[string]bool{prefs.KeyDarkMode: true}}
	m := newTestModel(&fakeUploader{}, themes, modelConfig{})
	if !m.dark {
		t.Error("dark = false, want stored value")
	}
}

func TestPrefChangedEventUpdatesTheme(t *testing.T) {
	m := newTestModel(&fakeUploader{}, nil, modelConfig{})

	m, _ = update(t, m, eventMsg(&events.PrefChangedEvent{
		BaseEvent: events.NewEvent(events.EventPrefChanged, events.SourcePrefs),
		Key:       prefs.KeyDarkMode,
		Value:     true,
	}))
	if !m.dark {
		t.Error("dark = false after external change")
	}
}

func TestEventLogTrimmed(t *testing.T) {
	m := newTestModel(&fakeUploader{}, nil, modelConfig{})

	for i := range maxEventLines + 4 {
		m, _ = update(t, m, eventMsg(&events.RunStartedEvent{
			BaseEvent: events.NewControllerEvent(events.EventActionStarted),
			Action:    "upload",
			Attempt:   i,
		}))
	}
	m, _ = update(t, m, eventMsg(&events.ProgressEvent{
		BaseEvent: events.NewControllerEvent(events.EventActionProgress),
		Progress:  40,
	}))

	if len(m.eventLines) != maxEventLines {
		t.Errorf("eventLines = %d, want %d", len(m.eventLines), maxEventLines)
	}
	for _, el := range m.eventLines {
		if el.Type == events.EventActionProgress {
			t.Error("progress events should not be logged")
		}
	}
}

func TestEventRefreshesSnapshot(t *testing.T) {
	ctrl := &fakeUploader{}
	m := newTestModel(ctrl, nil, modelConfig{})

	ctrl.setSnapshot(action.Snapshot[string]{Phase: action.PhaseRunning, Progress: 60})
	m, _ = update(t, m, eventMsg(&events.ProgressEvent{
		BaseEvent: events.NewControllerEvent(events.EventActionProgress),
		Progress:  60,
	}))
	if m.snap.Progress != 60 {
		t.Errorf("progress = %v, want 60", m.snap.Progress)
	}
}

func TestQuitKeys(t *testing.T) {
	t.Run("q while typing edits the path", func(t *testing.T) {
		m := newTestModel(&fakeUploader{}, nil, modelConfig{})
		m, cmd := update(t, m, runeKey('q'))
		if isQuit(cmd) {
			t.Error("q should not quit while the input is focused")
		}
		if m.input.Value() != "q" {
			t.Errorf("input = %q, want %q", m.input.Value(), "q")
		}
	})

	t.Run("q when not typing", func(t *testing.T) {
		var quitCalled bool
		m := newTestModel(&fakeUploader{}, nil, modelConfig{onQuit: func() { quitCalled = true }})
		m.input.Blur()
		_, cmd := update(t, m, runeKey('q'))
		if !isQuit(cmd) {
			t.Error("q should quit")
		}
		if !quitCalled {
			t.Error("quit callback was not invoked")
		}
	})

	t.Run("ctrl+c always", func(t *testing.T) {
		m := newTestModel(&fakeUploader{}, nil, modelConfig{})
		_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		if !isQuit(cmd) {
			t.Error("ctrl+c should quit")
		}
	})

	t.Run("channel closed", func(t *testing.T) {
		m := newTestModel(&fakeUploader{}, nil, modelConfig{})
		_, cmd := update(t, m, channelClosedMsg{})
		if !isQuit(cmd) {
			t.Error("closed event channel should quit")
		}
	})
}

func TestTabTogglesFocus(t *testing.T) {
	m := newTestModel(&fakeUploader{}, nil, modelConfig{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Focused() {
		t.Error("tab should blur the input")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.input.Focused() {
		t.Error("tab should focus the input again")
	}
}
