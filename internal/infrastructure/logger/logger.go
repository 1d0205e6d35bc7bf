package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface
type Logger interface {
	LogDebug(ctx context.Context, msg string, attrs ...any)
	LogInfo(ctx context.Context, msg string, attrs ...any)
	LogError(ctx context.Context, msg string, err error, attrs ...any)
	LogWarning(ctx context.Context, msg string, attrs ...any)
	WithRequestID(requestID string) Logger
	Sync() error
}

// StructuredLogger implements the Logger interface on top of zap
type StructuredLogger struct {
	logger *zap.SugaredLogger
}

// NewLogger creates a JSON logger writing to stdout at the given level.
// Unknown levels fall back to info.
func NewLogger(level string) Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &StructuredLogger{logger: z.Sugar()}
}

// NewWithCore wraps an existing zap core
func NewWithCore(core zapcore.Core) Logger {
	return &StructuredLogger{logger: zap.New(core).Sugar()}
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return &StructuredLogger{logger: zap.NewNop().Sugar()}
}

// WithRequestID adds a request ID to the logger context
func (l *StructuredLogger) WithRequestID(requestID string) Logger {
	return &StructuredLogger{logger: l.logger.With("request_id", requestID)}
}

// LogDebug logs a debug message with context
func (l *StructuredLogger) LogDebug(ctx context.Context, msg string, attrs ...any) {
	l.logger.Debugw(msg, withTrace(ctx, attrs)...)
}

// LogError logs an error with context
func (l *StructuredLogger) LogError(ctx context.Context, msg string, err error, attrs ...any) {
	allAttrs := append([]any{"error", errString(err)}, attrs...)
	l.logger.Errorw(msg, withTrace(ctx, allAttrs)...)
}

// LogInfo logs an info message with context
func (l *StructuredLogger) LogInfo(ctx context.Context, msg string, attrs ...any) {
	l.logger.Infow(msg, withTrace(ctx, attrs)...)
}

// LogWarning logs a warning message with context
func (l *StructuredLogger) LogWarning(ctx context.Context, msg string, attrs ...any) {
	l.logger.Warnw(msg, withTrace(ctx, attrs)...)
}

// Sync flushes buffered entries
func (l *StructuredLogger) Sync() error {
	return l.logger.Sync()
}

// withTrace appends trace_id and span_id when ctx carries a sampled span.
func withTrace(ctx context.Context, attrs []any) []any {
	if ctx == nil {
		return attrs
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	return attrs
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
