package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
)

type SessionServiceInterface interface {
	ListActive(ctx context.Context, userID int64, currentPlain string) ([]models.SessionInfo, error)
	RevokeByID(ctx context.Context, userID, id int64) error
}

type TrustedDeviceServiceInterface interface {
	List(ctx context.Context, userID int64) ([]*models.TrustedDevice, error)
	Delete(ctx context.Context, userID, id int64) error
}

// SessionHandler exposes the caller's refresh-token sessions and trusted devices.
type SessionHandler struct {
	sessions SessionServiceInterface
	devices  TrustedDeviceServiceInterface
}

func NewSessionHandler(sessions SessionServiceInterface, devices TrustedDeviceServiceInterface) *SessionHandler {
	return &SessionHandler{sessions: sessions, devices: devices}
}

type SessionListResponse struct {
	Sessions []models.SessionInfo `json:"sessions"`
}

type TrustedDeviceListResponse struct {
	Devices []*models.TrustedDevice `json:"devices"`
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListSessions returns the caller's active sessions; the one belonging to the
// presented refresh cookie is flagged as current.
// @Router /auth/sessions [get]
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	current, _ := auth.GetRefreshTokenCookie(r)
	sessions, err := h.sessions.ListActive(r.Context(), claims.UserID, current)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.SessionInfo{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions})
}

// RevokeSession revokes one of the caller's sessions
// @Router /auth/sessions/{id} [delete]
func (h *SessionHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid session ID")
		return
	}

	if err := h.sessions.RevokeByID(r.Context(), claims.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTrustedDevices
// @Router /auth/trusted-devices [get]
func (h *SessionHandler) ListTrustedDevices(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	devices, err := h.devices.List(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if devices == nil {
		devices = []*models.TrustedDevice{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, TrustedDeviceListResponse{Devices: devices})
}

// DeleteTrustedDevice forgets a device so the next login on it asks for MFA again.
// @Router /auth/trusted-devices/{id} [delete]
func (h *SessionHandler) DeleteTrustedDevice(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid device ID")
		return
	}

	if err := h.devices.Delete(r.Context(), claims.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
