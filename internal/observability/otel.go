package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ServiceName identifies this process in exported telemetry.
const ServiceName = "kanbanctl"

type exporter string

const (
	exporterNone    exporter = ""
	exporterConsole exporter = "console"
	exporterHTTP    exporter = "otlp-http"
	exporterGRPC    exporter = "otlp-grpc"
)

// exporterKind picks the log exporter from the standard OTEL_* variables.
func exporterKind(getenv func(string) string) exporter {
	switch getenv("OTEL_LOGS_EXPORTER") {
	case "none":
		return exporterNone
	case "console":
		return exporterConsole
	}
	if getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") == "" {
		return exporterNone
	}

	protocol := getenv("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL")
	if protocol == "" {
		protocol = getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	}
	if protocol == "grpc" {
		return exporterGRPC
	}
	return exporterHTTP
}

func newExporter(ctx context.Context, kind exporter, w io.Writer) (sdklog.Exporter, error) {
	switch kind {
	case exporterConsole:
		return stdoutlog.New(stdoutlog.WithWriter(w))
	case exporterGRPC:
		return otlploggrpc.New(ctx)
	case exporterHTTP:
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported log exporter: %s", kind)
	}
}

// newOTelHandler bridges slog into an OpenTelemetry logger provider.
func newOTelHandler(ctx context.Context, kind exporter, level slog.Level, w io.Writer) (slog.Handler, func(context.Context) error, error) {
	exp, err := newExporter(ctx, kind, w)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s exporter: %w", kind, err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("building resource: %w", err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exp), severity(level))
	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)
	global.SetLoggerProvider(provider)

	// Exporter failures must not recurse into the bridged logger.
	console := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		console.Warn("telemetry export failed", "error", err)
	}))

	handler := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))
	return handler, provider.Shutdown, nil
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
