package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func decodeSpans(t *testing.T, data []byte) []spanRecord {
	t.Helper()
	var out []spanRecord
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var rec spanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp := NewProvider(NewExporter(&buf))

	_, span := tp.Tracer("test").Start(context.Background(), "action.run")
	span.SetAttributes(attribute.String("action.name", "upload"), attribute.Int("action.attempt", 2))
	span.AddEvent("progress")
	span.SetStatus(codes.Error, "Upload Failed")
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))

	spans := decodeSpans(t, buf.Bytes())
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "action.run", got.Name)
	assert.Equal(t, "Error", got.Status)
	assert.Equal(t, "Upload Failed", got.Message)
	assert.Equal(t, "upload", got.Attributes["action.name"])
	assert.Equal(t, "2", got.Attributes["action.attempt"])
	assert.Equal(t, []string{"progress"}, got.Events)
	assert.Len(t, got.TraceID, 32)
	assert.Len(t, got.SpanID, 16)
}

func TestExporterIgnoresSpansAfterShutdown(t *testing.T) {
	var buf bytes.Buffer
	exp := NewExporter(&buf)
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()))

	assert.NoError(t, exp.ExportSpans(context.Background(), nil))
	assert.Zero(t, buf.Len())
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestExporterClosesWriter(t *testing.T) {
	w := &closeRecorder{}
	exp := NewExporter(w)
	require.NoError(t, exp.Shutdown(context.Background()))
	assert.True(t, w.closed)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExporterWriteError(t *testing.T) {
	tp := NewProvider(NewExporter(failWriter{}))
	tr := tp.Tracer("test")

	// The sync processor reports export errors through the otel error
	// handler, so the span ends normally.
	_, span := tr.Start(context.Background(), "action.run")
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	tp := NewFileProvider(Options{Path: path, MaxSizeMB: 1})

	_, span := tp.Tracer("test").Start(context.Background(), "action.run")
	span.SetStatus(codes.Ok, "")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	spans := decodeSpans(t, data)
	require.Len(t, spans, 1)
	assert.Equal(t, "Ok", spans[0].Status)
}
