package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func restoreDefault(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestInstrument_JSONWithTraceContext(t *testing.T) {
	restoreDefault(t)
	var out syncBuffer

	shutdown, err := Instrument(context.Background(), slog.LevelInfo, "json", WithWriter(&out), WithGetenv(env(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	slog.DebugContext(ctx, "hidden")
	slog.InfoContext(ctx, "task created", "task_id", 7)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1, "debug is below the configured level")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "task created", record["msg"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", record["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", record["span_id"])
	assert.EqualValues(t, 7, record["task_id"])
}

func TestInstrument_TextWithoutSpan(t *testing.T) {
	restoreDefault(t)
	var out syncBuffer

	shutdown, err := Instrument(context.Background(), slog.LevelDebug, "text", WithWriter(&out), WithGetenv(env(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	slog.Debug("refreshing session")

	assert.Contains(t, out.String(), `msg="refreshing session"`)
	assert.NotContains(t, out.String(), "trace_id")
}

func TestInstrument_UnsupportedFormat(t *testing.T) {
	_, err := Instrument(context.Background(), slog.LevelInfo, "xml", WithGetenv(env(nil)))
	assert.ErrorContains(t, err, "unsupported log format")
}

func TestInstrument_ConsoleExporter(t *testing.T) {
	restoreDefault(t)
	var out syncBuffer

	shutdown, err := Instrument(context.Background(), slog.LevelInfo, "text",
		WithWriter(&out),
		WithGetenv(env(map[string]string{"OTEL_LOGS_EXPORTER": "console"})),
	)
	require.NoError(t, err)

	slog.Info("exported record")
	require.NoError(t, shutdown(context.Background()))

	assert.GreaterOrEqual(t, strings.Count(out.String(), "exported record"), 2, "console and exporter both receive the record")
	assert.Contains(t, out.String(), ServiceName)
}

func TestExporterKind(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want exporter
	}{
		{name: "nothing set", want: exporterNone},
		{name: "console", env: map[string]string{"OTEL_LOGS_EXPORTER": "console"}, want: exporterConsole},
		{name: "explicitly disabled", env: map[string]string{"OTEL_LOGS_EXPORTER": "none", "OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4318"}, want: exporterNone},
		{name: "endpoint defaults to http", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4318"}, want: exporterHTTP},
		{name: "grpc protocol", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4317", "OTEL_EXPORTER_OTLP_PROTOCOL": "grpc"}, want: exporterGRPC},
		{name: "logs protocol wins", env: map[string]string{"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT": "http://collector:4318", "OTEL_EXPORTER_OTLP_PROTOCOL": "grpc", "OTEL_EXPORTER_OTLP_LOGS_PROTOCOL": "http/protobuf"}, want: exporterHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exporterKind(env(tt.env)))
		})
	}
}

func TestFanout_RespectsHandlerLevels(t *testing.T) {
	var debugOut, warnOut bytes.Buffer
	logger := slog.New(fanout(
		slog.NewTextHandler(&debugOut, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnOut, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)).With("component", "test").WithGroup("req")

	logger.Debug("detail", "id", 1)
	logger.Warn("problem", "id", 2)

	assert.Contains(t, debugOut.String(), "detail")
	assert.Contains(t, debugOut.String(), "problem")
	assert.Contains(t, debugOut.String(), "component=test")
	assert.Contains(t, debugOut.String(), "req.id=2")
	assert.NotContains(t, warnOut.String(), "detail")
	assert.Contains(t, warnOut.String(), "problem")
}
