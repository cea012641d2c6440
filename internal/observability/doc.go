// Package observability installs the process-wide slog logger.
//
// Records always go to a console handler. When the standard OpenTelemetry exporter
// environment is present, they are also bridged into OpenTelemetry logs and exported.
package observability
