package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	callerIDKey  contextKey = "caller_id"
	fileKey      contextKey = "file"
)

var defaultLogger *slog.Logger

func Init(level string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Default() *slog.Logger {
	if defaultLogger == nil {
		Init("info")
	}
	return defaultLogger
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := FromContext(ctx).With("request_id", requestID)
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithLogger(ctx, l)
}

// WithCallerID tags the context logger with the identity uploads are
// namespaced under. The pipeline performs no authorization itself.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	l := FromContext(ctx).With("caller_id", callerID)
	ctx = context.WithValue(ctx, callerIDKey, callerID)
	return WithLogger(ctx, l)
}

// WithFile tags the context logger with the input file a pipeline run is
// working on. Re-tagging the same name is a no-op so nested stages can call
// it without stacking duplicate attributes.
func WithFile(ctx context.Context, name string) context.Context {
	if File(ctx) == name {
		return ctx
	}
	l := FromContext(ctx).With("file", name)
	ctx = context.WithValue(ctx, fileKey, name)
	return WithLogger(ctx, l)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func CallerID(ctx context.Context) string {
	if id, ok := ctx.Value(callerIDKey).(string); ok {
		return id
	}
	return ""
}

func File(ctx context.Context) string {
	if name, ok := ctx.Value(fileKey).(string); ok {
		return name
	}
	return ""
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
