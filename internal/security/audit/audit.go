// Package audit records security-relevant identity events (registrations,
// logins, logouts, password resets, denied attempts) as structured log
// entries, separate from general application logging.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/collabcore/internal/domain"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// LogEvent is the generic entry point; the helpers below cover the common
// identity events.
func (al *Logger) LogEvent(ctx context.Context, action string, userID domain.UserID, email, status, details string) {
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.Int64("user_id", int64(userID)),
		slog.String("email", email),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogRegister(ctx context.Context, userID domain.UserID, email, handle string) {
	al.LogEvent(ctx, "register", userID, email, "ok", "handle="+handle)
}

func (al *Logger) LogLogin(ctx context.Context, userID domain.UserID, email string) {
	al.LogEvent(ctx, "login", userID, email, "ok", "")
}

func (al *Logger) LogLogout(ctx context.Context, userID domain.UserID) {
	al.LogEvent(ctx, "logout", userID, "", "ok", "")
}

func (al *Logger) LogPasswordReset(ctx context.Context, userID domain.UserID) {
	al.LogEvent(ctx, "password_reset", userID, "", "ok", "")
}

func (al *Logger) LogDenied(ctx context.Context, action, email, reason string) {
	al.LogEvent(ctx, action, 0, email, "denied", reason)
}
