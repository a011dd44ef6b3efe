package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// LogSinkOptions controls rotation of the events log.
// Zero values fall back to lumberjack's own defaults.
type LogSinkOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// LogSink writes events as JSON lines to a size-rotated file so past runs can
// be replayed with `actionctl events`.
type LogSink struct {
	path    string
	opts    LogSinkOptions
	out     io.WriteCloser
	encoder *json.Encoder
	logger  *slog.Logger
	mu      sync.Mutex
	done    chan struct{}
}

// NewLogSink creates a LogSink that writes to path.
func NewLogSink(path string, opts LogSinkOptions, logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{
		path:   path,
		opts:   opts,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start opens the log and begins consuming events until ctx is canceled or
// the channel is closed.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	out := &lumberjack.Logger{
		Filename:   s.path,
		MaxSize:    s.opts.MaxSizeMB,
		MaxBackups: s.opts.MaxBackups,
		MaxAge:     s.opts.MaxAgeDays,
		Compress:   s.opts.Compress,
	}

	s.mu.Lock()
	s.out = out
	s.encoder = json.NewEncoder(out)
	s.mu.Unlock()

	go s.run(ctx, events)
	return nil
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(event)
		}
	}
}

func (s *LogSink) write(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return
	}

	if err := s.encoder.Encode(event); err != nil {
		s.logger.Warn("log sink: failed to write event",
			"event_type", event.Type(),
			"error", err)
	}
}

// Stop waits for the consumer goroutine and closes the file.
// Must only be called after Start succeeded.
func (s *LogSink) Stop() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out == nil {
		return nil
	}
	err := s.out.Close()
	s.out = nil
	s.encoder = nil
	return err
}

// Path returns the log file path.
func (s *LogSink) Path() string {
	return s.path
}
