package action

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	attrAction  = attribute.Key("action.name")
	attrToken   = attribute.Key("action.token")
	attrAttempt = attribute.Key("action.attempt")
	attrRunID   = attribute.Key("action.run_id")
)

// startSpan opens the span covering one run. It stays open until the run
// settles or is superseded.
func (c *Controller[In, Out]) startSpan(ctx context.Context, token uint64, attempt int) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "action.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attrAction.String(c.name),
			attrToken.Int64(int64(token)),
			attrAttempt.Int(attempt),
			attrRunID.String(c.runID),
		),
	)
}

// endSpan closes the current run span, recording err when non-nil.
// c.mu must be held.
func (c *Controller[In, Out]) endSpan(err error) {
	if c.span == nil {
		return
	}
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, describe(err))
	} else if c.phase == PhaseSucceeded {
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()
	c.span = nil
}
