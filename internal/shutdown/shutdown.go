// Package shutdown runs a blocking task and stops it cleanly on SIGINT,
// SIGTERM, or context cancellation.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultTimeout bounds how long cleanup may take once a stop is requested.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when the task does not stop within the timeout.
var ErrTimeout = errors.New("shutdown timed out")

// Guard runs a task until it returns or a stop is requested.
type Guard struct {
	logger  *slog.Logger
	timeout time.Duration
	signals <-chan os.Signal
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used for shutdown messages.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithTimeout sets how long cleanup and the task have to finish after a stop.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		g.timeout = d
	}
}

// WithSignals replaces OS signal delivery with ch.
func WithSignals(ch <-chan os.Signal) Option {
	return func(g *Guard) {
		g.signals = ch
	}
}

// New creates a Guard. Without WithSignals it listens for SIGINT and SIGTERM.
func New(opts ...Option) *Guard {
	g := &Guard{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	return g
}

// Run calls task and blocks until it returns. On a signal or when ctx is
// cancelled, the task's context is cancelled and cleanup runs with a
// deadline. A task that returns context.Canceled after a stop is treated as a
// clean exit. cleanup may be nil.
func (g *Guard) Run(ctx context.Context, task, cleanup func(ctx context.Context) error) error {
	sigs := g.signals
	if sigs == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigs = ch
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- task(taskCtx)
	}()

	select {
	case err := <-done:
		return err
	case sig := <-sigs:
		g.logger.Info("received signal, stopping", "signal", sig)
	case <-ctx.Done():
		g.logger.Debug("context cancelled, stopping", "error", ctx.Err())
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), g.timeout)
	defer stopCancel()

	var cleanupErr error
	if cleanup != nil {
		if cleanupErr = cleanup(stopCtx); cleanupErr != nil {
			g.logger.Error("cleanup failed", "error", cleanupErr)
		}
	}

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return errors.Join(err, cleanupErr)
		}
		return cleanupErr
	case <-stopCtx.Done():
		g.logger.Warn("shutdown timeout exceeded", "timeout", g.timeout)
		return errors.Join(ErrTimeout, cleanupErr)
	}
}
