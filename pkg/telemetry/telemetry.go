// Package telemetry builds the loggers and tracer shared by a process's participants.
package telemetry

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Telemetry struct {
	Logger      zerolog.Logger
	Tracer      trace.Tracer
	serviceName string

	shutdown func(context.Context) error
}

// New creates telemetry from the environment, overridden by the non-zero fields of opts.
func New(opts Options) (Telemetry, error) {
	config, err := loadConfig()
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to load telemetry config")
	}

	options := newDefaultOptions()
	config.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return Telemetry{}, eris.Wrap(err, "invalid telemetry options")
	}

	tracer, shutdown, err := setupTracing(context.Background(), options)
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup tracing")
	}

	return Telemetry{
		Logger:      newLogger(options),
		Tracer:      tracer,
		serviceName: options.ServiceName,
		shutdown:    shutdown,
	}, nil
}

// NewNop returns telemetry that discards logs and spans.
func NewNop() Telemetry {
	return Telemetry{
		Logger:      zerolog.Nop(),
		Tracer:      noop.NewTracerProvider().Tracer("nop"),
		serviceName: "nop",
	}
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.shutdown != nil {
		return t.shutdown(ctx)
	}
	return nil
}

// GetLogger returns a component-specific logger.
func (t *Telemetry) GetLogger(component string) zerolog.Logger {
	return t.Logger.With().Str("component", t.serviceName+"."+component).Logger()
}

// GetLoggerWithTrace returns a component-specific logger enriched with trace context.
func (t *Telemetry) GetLoggerWithTrace(ctx context.Context, component string) zerolog.Logger {
	span := trace.SpanFromContext(ctx)

	logger := t.Logger.With().Str("component", t.serviceName+"."+component)

	if span.IsRecording() {
		spanCtx := span.SpanContext()
		logger = logger.
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String())
	}

	return logger.Logger()
}
