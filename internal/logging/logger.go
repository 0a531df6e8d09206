package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// requestIDKey is the key used to store request ID in context
type requestIDKey struct{}

var base = zap.NewNop()

// Init builds the process logger and installs it as the base for request loggers.
func Init(env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	base = l
	return l, nil
}

// SetBase replaces the base logger. Tests use it with zap.NewNop or an observer core.
func SetBase(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base = l
}

// Base returns the process logger.
func Base() *zap.Logger {
	return base
}

// WithRequestID stores the request ID in a standard context.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from a standard context
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services
type Logger struct {
	z *zap.Logger
}

// New creates a logger with request context
func New(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{z: base.With(zap.String("request_id", requestID))}
}

// Error logs an error with context
func (l *Logger) Error(operation string, err error, fields ...zap.Field) {
	l.z.Error(operation, append(fields, zap.String("operation", operation), zap.Error(err))...)
}

// Info logs an info message with context
func (l *Logger) Info(operation, message string, fields ...zap.Field) {
	l.z.Info(message, append(fields, zap.String("operation", operation))...)
}

// Warn logs a warning with context
func (l *Logger) Warn(operation, message string, fields ...zap.Field) {
	l.z.Warn(message, append(fields, zap.String("operation", operation))...)
}

// Debug logs a debug message with context.
func (l *Logger) Debug(operation, message string, fields ...zap.Field) {
	l.z.Debug(message, append(fields, zap.String("operation", operation))...)
}
