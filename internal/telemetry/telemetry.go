// Package telemetry sets up OpenTelemetry tracing for actionctl. Finished
// spans are written as JSON lines to a rotated file.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// spanRecord is the JSON shape of one exported span.
type spanRecord struct {
	Name       string            `json:"name"`
	TraceID    string            `json:"trace_id"`
	SpanID     string            `json:"span_id"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"`
	Message    string            `json:"message,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Events     []string          `json:"events,omitempty"`
}

// Exporter writes spans as JSON lines.
type Exporter struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *json.Encoder
	closed bool
}

var _ sdktrace.SpanExporter = (*Exporter)(nil)

// NewExporter returns an exporter writing to w. If w is an io.Closer it is
// closed on Shutdown.
func NewExporter(w io.Writer) *Exporter {
	return &Exporter{w: w, enc: json.NewEncoder(w)}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.enc.Encode(toRecord(s)); err != nil {
			return fmt.Errorf("write span: %w", err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func toRecord(s sdktrace.ReadOnlySpan) spanRecord {
	rec := spanRecord{
		Name:       s.Name(),
		TraceID:    s.SpanContext().TraceID().String(),
		SpanID:     s.SpanContext().SpanID().String(),
		Start:      s.StartTime(),
		End:        s.EndTime(),
		DurationMs: s.EndTime().Sub(s.StartTime()).Milliseconds(),
		Status:     s.Status().Code.String(),
		Message:    s.Status().Description,
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		rec.Attributes = make(map[string]string, len(attrs))
		for _, kv := range attrs {
			rec.Attributes[string(kv.Key)] = kv.Value.Emit()
		}
	}
	for _, ev := range s.Events() {
		rec.Events = append(rec.Events, ev.Name)
	}
	return rec
}

// Options controls the trace file.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileProvider returns a tracer provider that exports to a rotated file.
// The caller must Shutdown the provider to flush pending spans.
func NewFileProvider(opts Options) *sdktrace.TracerProvider {
	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	return NewProvider(NewExporter(w))
}

// NewProvider returns a tracer provider that exports synchronously to exp.
func NewProvider(exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
}
