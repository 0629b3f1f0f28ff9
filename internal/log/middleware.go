package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

// LoggerContextKey is the context key for the request-scoped logger.
const LoggerContextKey ContextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to the
// default slog logger.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware stores a request-scoped logger in the request context. When
// extractRequestID is set, the logger carries the request id.
func Middleware(logger *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if extractRequestID != nil {
				if id := extractRequestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the ledger's operation log lines.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogOperation records a committed ledger operation.
func (sl *StructuredLogger) LogOperation(ctx context.Context, op string, fields LogFields) {
	sl.logger.InfoContext(ctx, "Ledger operation committed", fields.WithOperation(op).ToSlice()...)
}

// LogRejected records an operation refused for a user-facing reason.
func (sl *StructuredLogger) LogRejected(ctx context.Context, op, kind string, err error, fields LogFields) {
	fields = fields.WithOperation(op).WithError(err)
	fields[FieldErrorKind] = kind
	sl.logger.WarnContext(ctx, "Ledger operation rejected", fields.ToSlice()...)
}

// LogError records an infrastructure failure with its cause.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, op string, fields LogFields) {
	sl.logger.ErrorContext(ctx, msg, fields.WithOperation(op).WithError(err).ToSlice()...)
}
