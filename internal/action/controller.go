// Package action runs one caller-supplied asynchronous operation at a time,
// tracks its lifecycle and progress, and offers a bounded, delayed retry
// policy.
//
// Every run is identified by a token. Completion signals, progress reports,
// auto-reset timers and retry timers all carry the token of the run that
// created them and are discarded once a newer run or a reset has moved the
// controller's token on. This is the only cancellation mechanism: the
// superseded action's context is canceled, but whatever side effects it has
// outside the controller are not guaranteed to stop.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/npratt/actionctl/internal/events"
)

// tracerName is the OpenTelemetry instrumentation scope for run spans.
const tracerName = "github.com/npratt/actionctl/internal/action"

// Phase is the controller's coarse lifecycle stage.
type Phase string

// Controller phases.
const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase ends a run.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Policy defaults.
const (
	DefaultRetryLimit          = 3
	DefaultDelayBetweenRetries = 2 * time.Second

	// AutoResetDelay is how long a succeeded controller with AutoReset set
	// stays in PhaseSucceeded before returning to idle.
	AutoResetDelay = 2 * time.Second

	// DefaultErrorMessage is stored when an action fails with an error whose
	// message is empty.
	DefaultErrorMessage = "Something went wrong"
)

// Action is the operation a controller manages. It receives the caller's
// input and a Reporter bound to the current run, and returns a result or an
// error describing the failure. It may be invoked many times across retries
// and must tolerate that.
type Action[In, Out any] func(ctx context.Context, in In, report Reporter) (Out, error)

// Policy configures auto-reset and retry behavior.
type Policy struct {
	// AutoReset returns a succeeded controller to idle after AutoResetDelay.
	AutoReset bool
	// RetryLimit is the maximum number of retries after the first run.
	RetryLimit int
	// DelayBetweenRetries is the wait before a retry's run starts.
	DelayBetweenRetries time.Duration
}

// DefaultPolicy returns the policy used when the caller has no preference.
func DefaultPolicy() Policy {
	return Policy{
		AutoReset:           false,
		RetryLimit:          DefaultRetryLimit,
		DelayBetweenRetries: DefaultDelayBetweenRetries,
	}
}

func (p Policy) normalized() Policy {
	if p.RetryLimit < 0 {
		p.RetryLimit = 0
	}
	if p.DelayBetweenRetries < 0 {
		p.DelayBetweenRetries = 0
	}
	return p
}

// Snapshot is a read-only copy of a controller's state.
type Snapshot[Out any] struct {
	Phase      Phase
	Attempt    int
	RetryLimit int
	Progress   float64
	// Result is meaningful only when HasResult is true.
	Result    Out
	HasResult bool
	// Error holds the failure description while Phase is PhaseFailed.
	Error string
	Token uint64
	RunID string
}

// RetriesExhausted reports whether Retry would be a no-op.
func (s Snapshot[Out]) RetriesExhausted() bool {
	return s.Attempt >= s.RetryLimit
}

// settings holds the non-policy collaborators of a controller.
type settings struct {
	name           string
	logger         *slog.Logger
	router         *events.Router
	tracer         trace.Tracer
	autoResetDelay time.Duration
}

// Option configures a Controller.
type Option func(*settings)

// WithName sets the action name used in logs, events and spans.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithRouter publishes lifecycle events to router.
func WithRouter(router *events.Router) Option {
	return func(s *settings) {
		s.router = router
	}
}

// WithTracer overrides the tracer used for run spans. By default the global
// OpenTelemetry provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// Controller owns the state of one action. All methods are safe for
// concurrent use. Run and Retry return immediately; outcomes are observed
// through Snapshot or the event router.
type Controller[In, Out any] struct {
	action Action[In, Out]
	policy Policy
	settings

	mu        sync.Mutex
	phase     Phase
	attempt   int
	progress  float64
	result    Out
	hasResult bool
	errInfo   string
	token     uint64
	runID     string
	closed    bool

	// Per-run resources, released when the run settles or is superseded.
	startedAt time.Time
	cancelRun context.CancelFunc
	span      trace.Span

	// Timers are bound to the token current when they were armed.
	autoResetTimer *time.Timer
	retryTimer     *time.Timer
}

// New creates an idle controller for act.
func New[In, Out any](act Action[In, Out], policy Policy, opts ...Option) *Controller[In, Out] {
	s := settings{
		name:           "action",
		autoResetDelay: AutoResetDelay,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	return &Controller[In, Out]{
		action:   act,
		policy:   policy.normalized(),
		settings: s,
		phase:    PhaseIdle,
	}
}

// Policy returns the controller's retry policy.
func (c *Controller[In, Out]) Policy() Policy {
	return c.policy
}

// Name returns the action name.
func (c *Controller[In, Out]) Name() string {
	return c.name
}

// Run starts a new run with in, superseding any run in flight. Progress,
// result, error and attempt are cleared before the action is invoked.
// Calls after Close are ignored.
func (c *Controller[In, Out]) Run(in In) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Debug("run ignored: controller closed", "action", c.name)
		return
	}
	c.startLocked(in, 0)
}

// Retry schedules a fresh run with in after the policy's delay. It returns
// false without touching state or arming a timer when the retry limit is
// reached, when a retry is already pending, or after Close.
//
// The attempt counter is read and incremented when the timer fires, under
// the same lock as Run and Reset, so overlapping calls can never push it past
// the limit.
//
// Retry does not check the phase. A retry armed while a run is in flight
// still fires after that run settles, even if it succeeded, and starts the
// next attempt. Only Run, Reset and Close cancel it. Callers that retry only
// on failure check Snapshot().Phase first.
func (c *Controller[In, Out]) Retry(in In) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return false
	case c.attempt >= c.policy.RetryLimit:
		c.logger.Debug("retry ignored: limit reached",
			"action", c.name,
			"attempt", c.attempt,
			"retry_limit", c.policy.RetryLimit)
		return false
	case c.retryTimer != nil:
		c.logger.Debug("retry ignored: already pending", "action", c.name, "token", c.token)
		return false
	}

	token := c.token
	c.retryTimer = time.AfterFunc(c.policy.DelayBetweenRetries, func() {
		c.fireRetry(token, in)
	})

	c.logger.Info("retry scheduled",
		"action", c.name,
		"token", token,
		"attempt", c.attempt+1,
		"retry_limit", c.policy.RetryLimit,
		"delay", c.policy.DelayBetweenRetries)
	c.emit(&events.RetryScheduledEvent{
		BaseEvent:  events.NewControllerEvent(events.EventRetryScheduled),
		Action:     c.name,
		Token:      token,
		Attempt:    c.attempt + 1,
		RetryLimit: c.policy.RetryLimit,
		DelayMs:    c.policy.DelayBetweenRetries.Milliseconds(),
	})
	return true
}

// Reset immediately returns the controller to its initial idle state and
// invalidates the current run, so an in-flight completion is discarded.
func (c *Controller[In, Out]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
}

// Close resets the controller and ignores all later Run and Retry calls.
// No timer fires after Close returns.
func (c *Controller[In, Out]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
}

// Snapshot returns a consistent copy of the controller's state.
func (c *Controller[In, Out]) Snapshot() Snapshot[Out] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot[Out]{
		Phase:      c.phase,
		Attempt:    c.attempt,
		RetryLimit: c.policy.RetryLimit,
		Progress:   c.progress,
		Result:     c.result,
		HasResult:  c.hasResult,
		Error:      c.errInfo,
		Token:      c.token,
		RunID:      c.runID,
	}
}

// startLocked begins a run as the given attempt. c.mu must be held.
func (c *Controller[In, Out]) startLocked(in In, attempt int) {
	from := c.phase
	c.invalidateLocked("superseded")

	c.token++
	token := c.token
	c.runID = uuid.NewString()
	c.phase = PhaseRunning
	c.attempt = attempt
	c.progress = MinProgress
	c.clearOutcomeLocked()
	c.startedAt = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	ctx, span := c.startSpan(ctx, token, attempt)
	c.cancelRun = cancel
	c.span = span

	c.logger.Info("run started",
		"action", c.name,
		"token", token,
		"run_id", c.runID,
		"attempt", attempt)
	c.emit(&events.RunStartedEvent{
		BaseEvent: events.NewControllerEvent(events.EventActionStarted),
		Action:    c.name,
		RunID:     c.runID,
		Token:     token,
		Attempt:   attempt,
	})
	c.emitPhaseLocked(from)

	go c.execute(ctx, token, in)
}

// execute invokes the action outside the lock and applies its outcome.
func (c *Controller[In, Out]) execute(ctx context.Context, token uint64, in In) {
	out, err := c.invoke(ctx, token, in)
	c.complete(token, out, err)
}

// invoke converts a panicking action into an ordinary failure.
func (c *Controller[In, Out]) invoke(ctx context.Context, token uint64, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return c.action(ctx, in, c.reporter(token))
}

// complete applies a run's terminal signal if the run is still current.
func (c *Controller[In, Out]) complete(token uint64, out Out, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token || c.phase != PhaseRunning {
		c.logger.Debug("discarding stale completion",
			"action", c.name,
			"token", token,
			"current_token", c.token)
		return
	}

	duration := time.Since(c.startedAt)
	if err != nil {
		c.failLocked(err, duration)
	} else {
		c.succeedLocked(out, duration)
	}
	c.releaseRunLocked()
}

func (c *Controller[In, Out]) succeedLocked(out Out, duration time.Duration) {
	c.phase = PhaseSucceeded
	c.result = out
	c.hasResult = true
	c.endSpan(nil)

	c.logger.Info("run succeeded",
		"action", c.name,
		"token", c.token,
		"run_id", c.runID,
		"duration", duration)
	c.emit(&events.RunSucceededEvent{
		BaseEvent:  events.NewControllerEvent(events.EventActionSucceeded),
		Action:     c.name,
		RunID:      c.runID,
		Token:      c.token,
		Attempt:    c.attempt,
		Result:     fmt.Sprint(out),
		DurationMs: duration.Milliseconds(),
	})
	c.emitPhaseLocked(PhaseRunning)

	if c.policy.AutoReset {
		token := c.token
		c.autoResetTimer = time.AfterFunc(c.autoResetDelay, func() {
			c.fireAutoReset(token)
		})
	}
}

func (c *Controller[In, Out]) failLocked(err error, duration time.Duration) {
	c.phase = PhaseFailed
	c.errInfo = describe(err)
	c.endSpan(err)

	c.logger.Warn("run failed",
		"action", c.name,
		"token", c.token,
		"run_id", c.runID,
		"attempt", c.attempt,
		"retry_limit", c.policy.RetryLimit,
		"error", c.errInfo,
		"duration", duration)
	c.emit(&events.RunFailedEvent{
		BaseEvent:  events.NewControllerEvent(events.EventActionFailed),
		Action:     c.name,
		RunID:      c.runID,
		Token:      c.token,
		Attempt:    c.attempt,
		RetryLimit: c.policy.RetryLimit,
		Error:      c.errInfo,
		DurationMs: duration.Milliseconds(),
	})
	c.emitPhaseLocked(PhaseRunning)
}

// fireAutoReset returns a succeeded run to idle. The result is cleared from
// controller state; snapshots already handed out keep their copy.
func (c *Controller[In, Out]) fireAutoReset(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token || c.phase != PhaseSucceeded {
		return
	}
	c.autoResetTimer = nil
	c.phase = PhaseIdle
	c.clearOutcomeLocked()

	c.logger.Debug("auto-reset fired", "action", c.name, "token", token)
	c.emitPhaseLocked(PhaseSucceeded)
}

// fireRetry runs when a retry timer expires. The attempt count is read at
// fire time, not captured when the retry was scheduled.
func (c *Controller[In, Out]) fireRetry(token uint64, in In) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || token != c.token {
		return
	}
	c.retryTimer = nil
	if c.attempt >= c.policy.RetryLimit {
		return
	}
	c.startLocked(in, c.attempt+1)
}

func (c *Controller[In, Out]) resetLocked() {
	from := c.phase
	c.invalidateLocked("reset")

	c.token++
	c.phase = PhaseIdle
	c.attempt = 0
	c.progress = MinProgress
	c.clearOutcomeLocked()
	c.runID = ""

	c.logger.Info("controller reset", "action", c.name, "token", c.token)
	c.emit(&events.ResetEvent{
		BaseEvent: events.NewControllerEvent(events.EventActionReset),
		Action:    c.name,
		Token:     c.token,
	})
	c.emitPhaseLocked(from)
}

// invalidateLocked stops every timer and releases the in-flight run, if any.
// The caller bumps the token afterwards.
func (c *Controller[In, Out]) invalidateLocked(reason string) {
	if c.autoResetTimer != nil {
		c.autoResetTimer.Stop()
		c.autoResetTimer = nil
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.phase == PhaseRunning && c.span != nil {
		c.span.AddEvent(reason)
		c.logger.Debug("run abandoned",
			"action", c.name,
			"token", c.token,
			"run_id", c.runID,
			"reason", reason)
	}
	c.endSpan(nil)
	c.releaseRunLocked()
}

func (c *Controller[In, Out]) releaseRunLocked() {
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
}

func (c *Controller[In, Out]) clearOutcomeLocked() {
	var zero Out
	c.result = zero
	c.hasResult = false
	c.errInfo = ""
}

// describe returns the stored description of a failure.
func describe(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

func (c *Controller[In, Out]) emit(event events.Event) {
	if c.router != nil {
		c.router.Emit(event)
	}
}

func (c *Controller[In, Out]) emitPhaseLocked(from Phase) {
	if from == c.phase {
		return
	}
	c.emit(&events.PhaseChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventPhaseChanged),
		Action:    c.name,
		From:      from.String(),
		To:        c.phase.String(),
	})
}

func (c *Controller[In, Out]) emitProgressLocked() {
	c.emit(&events.ProgressEvent{
		BaseEvent: events.NewControllerEvent(events.EventActionProgress),
		Action:    c.name,
		RunID:     c.runID,
		Token:     c.token,
		Progress:  c.progress,
	})
}
