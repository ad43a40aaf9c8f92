package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id used to correlate audit records
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, or ""
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger writes one structured "audit" record per security-relevant action
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, organizationID, actorID, action, resource, resourceID, status, details string) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("organization_id", organizationID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

// LogEmployeeAction records an admin or self-service mutation of an employee record
func (al *Logger) LogEmployeeAction(ctx context.Context, organizationID, actorID, action, employeeID string, err error) {
	status, details := "success", ""
	if err != nil {
		status, details = "failed", err.Error()
	}
	al.LogAction(ctx, organizationID, actorID, action, "employee", employeeID, status, details)
}

// LogLogin records a login attempt; email is kept for failed attempts only
func (al *Logger) LogLogin(ctx context.Context, organizationID, principalID, email string, err error) {
	if err != nil {
		al.LogAction(ctx, organizationID, principalID, "login", "session", "", "failed", email)
		return
	}
	al.LogAction(ctx, organizationID, principalID, "login", "session", principalID, "success", "")
}

func (al *Logger) LogDenied(ctx context.Context, organizationID, actorID, reason string) {
	al.LogAction(ctx, organizationID, actorID, "access_denied", "api", "", "denied", reason)
}
