package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureLogger(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		wantPath  string
		wantLevel string
	}{
		{"plain", "/health", http.StatusOK, "/health", "INFO"},
		{"keeps harmless query", "/users?limit=10", http.StatusOK, "/users?limit=10", "INFO"},
		{"redacts token", "/auth/verify-email?token=abc", http.StatusUnauthorized, "/auth/verify-email?[REDACTED]", "WARN"},
		{"server error", "/auth/login", http.StatusInternalServerError, "/auth/login", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			handler := SecureLogger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest("GET", tt.target, nil)
			req.RemoteAddr = "192.0.2.10:1234"
			serve(handler, req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "http_request", entry["msg"])
			assert.Equal(t, tt.wantPath, entry["path"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, "192.0.2.10", entry["client_ip"])
			assert.NotContains(t, buf.String(), "abc")
		})
	}
}
