package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Structured log keys shared by handlers and services.
const (
	LogFieldRequestID = "request_id"
	LogFieldUserID    = "user_id"
	LogFieldOperation = "operation"
	LogFieldDuration  = "duration_ms"
	LogFieldErrorCode = "error_code"
	LogFieldSessionID = "session_id"
)

// RequestContext carries the identity of one API call through its logs.
type RequestContext struct {
	RequestID string
	UserID    string
	Operation string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext starts a request context with a fresh request id.
func NewRequestContext(logger *slog.Logger, operation, userID string) *RequestContext {
	return NewRequestContextWithID(logger, "", operation, userID)
}

// NewRequestContextWithID starts a request context with a caller supplied
// request id, generating one when requestID is empty.
func NewRequestContextWithID(logger *slog.Logger, requestID, operation, userID string) *RequestContext {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		RequestID: requestID,
		UserID:    userID,
		Operation: operation,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelInfo, msg, attrs)
}

func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelDebug, msg, attrs)
}

func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelWarn, msg, attrs)
}

func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	r.log(slog.LevelError, msg, append(attrs, slog.String("error", err.Error())))
}

// Duration is the time elapsed since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

func (r *RequestContext) log(level slog.Level, msg string, attrs []slog.Attr) {
	r.Logger.LogAttrs(context.Background(), level, msg, append(r.identity(), attrs...)...)
}

// identity returns the request fields; the user is omitted until known.
func (r *RequestContext) identity() []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String(LogFieldRequestID, r.RequestID))
	if r.UserID != "" {
		attrs = append(attrs, slog.String(LogFieldUserID, r.UserID))
	}
	return append(attrs, slog.String(LogFieldOperation, r.Operation))
}

type ctxKey struct{}

func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return rc, ok
}

// Logger returns a logger tagged with the request id and operation of ctx,
// or the default logger outside a request.
func Logger(ctx context.Context) *slog.Logger {
	rc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	return rc.Logger.With(LogFieldRequestID, rc.RequestID, LogFieldOperation, rc.Operation)
}
