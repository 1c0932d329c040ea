package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for lifecycle operations

func (l *Logger) LogScheduleFired(ctx context.Context, scheduleID, resourceID string, action string) {
	l.WithContext(ctx).Info().
		Str("schedule_id", scheduleID).
		Str("resource_id", resourceID).
		Str("action", action).
		Msg("schedule fired")
}

func (l *Logger) LogActionOutcome(ctx context.Context, resourceID string, action string, success, skipped bool, msg string) {
	event := l.WithContext(ctx).Info()
	if !success && !skipped {
		event = l.WithContext(ctx).Warn()
	}
	event.
		Str("resource_id", resourceID).
		Str("action", action).
		Bool("success", success).
		Bool("skipped", skipped).
		Str("outcome", msg).
		Msg("action completed")
}

func (l *Logger) LogSweepError(ctx context.Context, sweep string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("sweep", sweep).
		Msg("sweep failed")
}

func (l *Logger) LogStoreError(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", operation).
		Msg("store operation failed")
}
