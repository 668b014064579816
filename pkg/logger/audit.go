package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Audit event types
const (
	EventLogin             = "login"
	EventLoginMFARequired  = "login_mfa_required"
	EventMFAVerify         = "mfa_verify"
	EventTokenRefresh      = "token_refresh"
	EventLogout            = "logout"
	EventLogoutAll         = "logout_all"
	EventSessionRevoke     = "session_revoke"
	EventAccountLocked     = "account_locked"
	EventRegister          = "register"
	EventEmailVerified     = "email_verified"
	EventPasswordReset     = "password_reset"
	EventPasswordChange    = "password_change"
	EventMFAEnabled        = "mfa_enabled"
	EventMFADisabled       = "mfa_disabled"
	EventRecoveryCodesNew  = "recovery_codes_regenerated"
	EventTrustedDeviceAdd  = "trusted_device_added"
	EventTrustedDeviceDrop = "trusted_device_removed"
	EventUserDeactivated   = "user_deactivated"
	EventUserUnlocked      = "user_unlocked"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        int64
	Email         string // masked before it is written
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through the application's slog logger.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	al.write(ctx, "auth", event)
}

// LogMFAEvent logs enrollment changes and second-factor outcomes.
func (al *AuditLogger) LogMFAEvent(ctx context.Context, event AuditEvent) {
	al.write(ctx, "mfa", event)
}

// LogSessionEvent logs refresh token and trusted device lifecycle changes.
func (al *AuditLogger) LogSessionEvent(ctx context.Context, event AuditEvent) {
	al.write(ctx, "session", event)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType string, userID int64, ipAddress string, metadata map[string]string) {
	al.write(ctx, "account", AuditEvent{
		EventType: eventType,
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  metadata,
	})
}

func (al *AuditLogger) write(ctx context.Context, auditType string, event AuditEvent) {
	if al == nil || al.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != 0 {
		attrs = append(attrs, slog.String("user_id", strconv.FormatInt(event.UserID, 10)))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
