// Package prefs persists boolean user preferences, such as the color theme,
// in a small YAML file shared by every actionctl process.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/npratt/actionctl/internal/debounce"
	"github.com/npratt/actionctl/internal/events"
)

// KeyDarkMode selects the dark color theme.
const KeyDarkMode = "dark_mode"

// watchDebounce is how long file changes must settle before a reload.
const watchDebounce = 100 * time.Millisecond

// Store is a set of boolean preferences backed by a YAML file.
type Store struct {
	path   string
	lock   *fileLock
	router *events.Router
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]bool
}

// Open loads the preferences at path. A missing file yields an empty store;
// a corrupt file is logged and treated as empty, and is replaced on the next
// write. router may be nil.
func Open(path string, router *events.Router, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		lock:   newFileLock(path + ".lock"),
		router: router,
		logger: logger,
		values: make(map[string]bool),
	}

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the preferences file path.
func (s *Store) Path() string {
	return s.path
}

// Bool returns the stored value for key, or def when it has never been set.
func (s *Store) Bool(key string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Values returns a copy of every stored preference.
func (s *Store) Values() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// SetBool stores value under key and writes the file.
func (s *Store) SetBool(key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value)
}

// Toggle flips key (starting from def when unset) and returns the new value.
func (s *Store) Toggle(key string, def bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.values[key]
	if !ok {
		current = def
	}
	next := !current
	if err := s.setLocked(key, next); err != nil {
		return current, err
	}
	return next, nil
}

func (s *Store) setLocked(key string, value bool) error {
	if err := s.lock.lock(); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.unlock(); err != nil {
			s.logger.Warn("failed to release preferences lock", "error", err)
		}
	}()

	// Merge with what is on disk so keys written by another process survive.
	onDisk, err := s.read()
	if err != nil {
		return err
	}
	previous, existed := onDisk[key]
	onDisk[key] = value

	data, err := yaml.Marshal(onDisk)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		s.emitError(fmt.Sprintf("failed to save preferences: %v", err))
		return err
	}

	changed := s.diffLocked(onDisk)
	s.values = onDisk
	if !existed || previous != value {
		s.logger.Debug("preference updated", "key", key, "value", value)
	}
	for _, k := range changed {
		s.emitChange(k, onDisk[k])
	}
	return nil
}

// read parses the file. Missing and corrupt files both yield an empty map.
func (s *Store) read() (map[string]bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]bool), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences %s: %w", s.path, err)
	}

	values := make(map[string]bool)
	if err := yaml.Unmarshal(data, &values); err != nil {
		s.logger.Warn("ignoring corrupt preferences file", "path", s.path, "error", err)
		return make(map[string]bool), nil
	}
	if values == nil {
		values = make(map[string]bool)
	}
	return values, nil
}

// diffLocked returns the keys whose value differs between the cached values
// and next, in sorted order.
func (s *Store) diffLocked(next map[string]bool) []string {
	var changed []string
	for k, v := range next {
		if old, ok := s.values[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range s.values {
		if _, ok := next[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

// Reload re-reads the file and returns the keys that changed.
func (s *Store) Reload() ([]string, error) {
	values, err := s.read()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.diffLocked(values)
	s.values = values
	for _, k := range changed {
		s.emitChange(k, values[k])
	}
	return changed, nil
}

// Watch reloads the store whenever the file is changed by another process
// and calls fn for each changed key. It returns once the watch is set up;
// watching stops when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, fn func(key string, value bool)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create preferences watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = w.Close()
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	reload := debounce.New(watchDebounce, func(struct{}) {
		changed, err := s.Reload()
		if err != nil {
			s.emitError(fmt.Sprintf("preferences reload failed: %v", err))
			return
		}
		if fn == nil {
			return
		}
		for _, k := range changed {
			fn(k, s.Bool(k, false))
		}
	})

	target := filepath.Base(s.path)
	s.logger.Info("watching preferences", "path", s.path)

	go func() {
		defer func() { _ = w.Close() }()
		defer reload.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
					reload.Set(struct{}{})
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.emitError(fmt.Sprintf("preferences watcher error: %v", err))
			}
		}
	}()
	return nil
}

func (s *Store) emitChange(key string, value bool) {
	if s.router == nil {
		return
	}
	s.router.Emit(&events.PrefChangedEvent{
		BaseEvent: events.NewEvent(events.EventPrefChanged, events.SourcePrefs),
		Key:       key,
		Value:     value,
	})
}

func (s *Store) emitError(msg string) {
	s.logger.Warn(msg)
	if s.router == nil {
		return
	}
	s.router.Emit(&events.ErrorEvent{
		BaseEvent: events.NewEvent(events.EventError, events.SourcePrefs),
		Message:   msg,
		Severity:  events.SeverityWarning,
	})
}
