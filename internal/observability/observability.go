package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Option configures Instrument.
type Option func(*options)

type options struct {
	writer io.Writer
	getenv func(string) string
}

// WithWriter sets the console destination. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithGetenv replaces os.Getenv for exporter detection.
func WithGetenv(getenv func(string) string) Option {
	return func(o *options) {
		o.getenv = getenv
	}
}

// Instrument installs the default slog logger at the given level and format (text|json).
// The returned function flushes and stops exporters and must be called before exit.
func Instrument(ctx context.Context, level slog.Level, format string, opts ...Option) (func(context.Context) error, error) {
	o := &options{writer: os.Stderr, getenv: os.Getenv}
	for _, opt := range opts {
		opt(o)
	}

	console, err := newConsoleHandler(o.writer, level, format)
	if err != nil {
		return nil, err
	}

	handlers := []slog.Handler{console}
	shutdown := func(context.Context) error { return nil }

	exporter := exporterKind(o.getenv)
	if exporter != exporterNone {
		otelHandler, otelShutdown, err := newOTelHandler(ctx, exporter, level, o.writer)
		if err != nil {
			return nil, fmt.Errorf("setting up log export: %w", err)
		}
		handlers = append(handlers, otelHandler)
		shutdown = otelShutdown
	}

	slog.SetDefault(slog.New(withTraceContext(fanout(handlers...))))
	if exporter != exporterNone {
		slog.DebugContext(ctx, "log export enabled", "exporter", string(exporter))
	}

	return shutdown, nil
}

func newConsoleHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, errors.New("unsupported log format: " + format)
	}
}
