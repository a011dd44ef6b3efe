package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/config"
	"github.com/npratt/actionctl/internal/events"
	"github.com/npratt/actionctl/internal/telemetry"
	"github.com/npratt/actionctl/internal/upload"
)

// uploadRuntime wires the upload controller to the event router, the event
// log, and tracing.
type uploadRuntime struct {
	cfg    *config.Config
	logger *slog.Logger
	router *events.Router
	ctrl   *action.Controller[*upload.File, string]

	sink       *events.LogSink
	sinkCancel context.CancelFunc
	tracer     *sdktrace.TracerProvider
}

// newUploadRuntime builds the router, starts the event log, and creates the
// controller. Close must be called to flush and release them.
func newUploadRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*uploadRuntime, error) {
	rt := &uploadRuntime{
		cfg:    cfg,
		logger: logger,
		router: events.NewRouter(cfg.Events.BufferSize, logger),
	}

	if cfg.Events.Log {
		sinkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		sink := events.NewLogSink(cfg.Paths.Events, cfg.LogSinkOptions(), logger)
		if err := sink.Start(sinkCtx, rt.router.Subscribe()); err != nil {
			cancel()
			rt.router.Close()
			return nil, fmt.Errorf("start event log: %w", err)
		}
		rt.sink = sink
		rt.sinkCancel = cancel
	}

	if cfg.Tracing.Enabled {
		rt.tracer = telemetry.NewFileProvider(cfg.TraceOptions())
		otel.SetTracerProvider(rt.tracer)
	}

	sim := upload.NewSimulator(cfg.Upload.FailureRate, nil)
	sim.Interval = cfg.Upload.Interval
	sim.Step = cfg.Upload.Step

	rt.ctrl = action.New(sim.Action(), cfg.Policy(),
		action.WithName("upload"),
		action.WithLogger(logger),
		action.WithRouter(rt.router),
	)

	logger.Debug("upload runtime ready",
		"retry_limit", cfg.Action.RetryLimit,
		"retry_delay", cfg.Action.RetryDelay,
		"auto_reset", cfg.Action.AutoReset,
		"failure_rate", cfg.Upload.FailureRate,
		"event_log", cfg.Events.Log,
		"tracing", cfg.Tracing.Enabled,
	)
	return rt, nil
}

// Close stops the controller, drains the event log, and flushes spans.
func (rt *uploadRuntime) Close(ctx context.Context) error {
	rt.ctrl.Close()
	rt.router.Close()

	var errs []error
	if rt.sink != nil {
		if err := rt.sink.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop event log: %w", err))
		}
		rt.sinkCancel()
	}
	if rt.tracer != nil {
		if err := rt.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
	}
	if dropped := rt.router.Dropped(); dropped > 0 {
		rt.logger.Warn("events dropped for slow subscribers", "count", dropped)
	}
	return errors.Join(errs...)
}
