package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the global structured logger
var Logger *slog.Logger

// InitLogger initializes the structured logger
func InitLogger(level string, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Rename fields for better compatibility with log aggregators
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if a.Key == slog.LevelKey {
				a.Key = "level"
			}
			if a.Key == slog.MessageKey {
				a.Key = "message"
			}
			return a
		},
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// contextKeys are the plain string context keys WithContext looks up:
// trace/request ids, tenant/integration/job ids and the job-execution
// token. A field is attached only when a value is stored under that exact
// string key; no package in this module stores one.
var contextKeys = []string{"trace_id", "request_id", "tenant_id", "integration_id", "job_id", "token"}

// WithContext returns the global logger enriched with whichever
// correlation fields the context carries.
func WithContext(ctx context.Context) *slog.Logger {
	logger := Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			logger = logger.With(key, v)
		}
	}
	return logger
}

// LogError logs an error with the context's correlation fields attached.
func LogError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)*2+2)
	args = append(args, "error", err.Error())
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value.Any())
	}
	WithContext(ctx).Error(msg, args...)
}
