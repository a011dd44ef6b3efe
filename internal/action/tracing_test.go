package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRunSpans(t *testing.T) {
	sr, tp := newRecorder(t)

	c := newTestController(t, alwaysFail("boom"), Policy{RetryLimit: 1, DelayBetweenRetries: time.Millisecond},
		WithName("upload"), WithTracer(tp.Tracer("test")))

	c.Run("in")
	waitFor(t, c, func(s Snapshot[string]) bool { return s.Phase == PhaseFailed }, "run should fail")
	require.True(t, c.Retry("in"))
	waitFor(t, c, func(s Snapshot[string]) bool { return s.Attempt == 1 && s.Phase == PhaseFailed }, "retry should fail")

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for i, span := range spans {
		assert.Equal(t, "action.run", span.Name())
		assert.Equal(t, codes.Error, span.Status().Code)
		assert.Equal(t, "boom", span.Status().Description)

		name, ok := spanAttr(span, attrAction)
		require.True(t, ok)
		assert.Equal(t, "upload", name.AsString())

		attempt, ok := spanAttr(span, attrAttempt)
		require.True(t, ok)
		assert.Equal(t, int64(i), attempt.AsInt64())
	}
}

func TestSupersededRunSpanEnded(t *testing.T) {
	sr, tp := newRecorder(t)

	act := func(ctx context.Context, in string, report Reporter) (string, error) {
		if in == "slow" {
			<-ctx.Done()
			return "", errors.New("canceled")
		}
		return "fast", nil
	}
	c := newTestController(t, act, DefaultPolicy(), WithTracer(tp.Tracer("test")))

	c.Run("slow")
	c.Run("fast")
	waitFor(t, c, func(s Snapshot[string]) bool { return s.Phase == PhaseSucceeded }, "fast run should succeed")

	spans := sr.Ended()
	require.Len(t, spans, 2)

	superseded := spans[0]
	assert.Equal(t, codes.Unset, superseded.Status().Code)
	require.NotEmpty(t, superseded.Events())
	assert.Equal(t, "superseded", superseded.Events()[0].Name)

	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}
