package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@b.io", "a@*.io"},
		{"no-at-sign", "[invalid-email]"},
		{"@example.com", "[invalid-email]"},
		{"a@b@c.com", "[invalid-email]"},
		{"user@localhost", "u***@localhost"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.in), tt.in)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.False(t, SanitizeQueryString(""))
	assert.False(t, SanitizeQueryString("limit=10&offset=20"))
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("limit=1&Reset_Token=abc"))
	assert.True(t, SanitizeQueryString("code=123456&state=xyz"))
	assert.True(t, SanitizeQueryString("%zz"))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", RedactedAttr("k", "v", "production").Value.String())
	assert.Equal(t, "v", RedactedAttr("k", "v", "development").Value.String())
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(context.Background(), AuditEvent{
		EventType:     EventLogin,
		UserID:        42,
		Email:         "user@example.com",
		IPAddress:     "203.0.113.1",
		Success:       false,
		FailureReason: "invalid_credentials",
		Metadata:      map[string]string{"method": "password"},
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "auth", record["audit_type"])
	assert.Equal(t, "login", record["event_type"])
	assert.Equal(t, "42", record["user_id"])
	assert.Equal(t, "u***@*******.com", record["email"])
	assert.Equal(t, "invalid_credentials", record["failure_reason"])
	assert.Equal(t, "password", record["method"])
}

func TestAuditLogger_LogAccountAction(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAccountAction(context.Background(), EventUserDeactivated, 7, "", nil)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "account", record["audit_type"])
	assert.NotContains(t, record, "ip_address")
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var al *AuditLogger
	assert.NotPanics(t, func() {
		al.LogSessionEvent(context.Background(), AuditEvent{EventType: EventLogout})
	})
}
