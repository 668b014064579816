package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// SessionRevokerInterface revokes every refresh token a user holds.
type SessionRevokerInterface interface {
	RevokeAll(ctx context.Context, userID int64, exceptPlain string) (int64, error)
}

// SyncMonitor exposes the profile syncer's failure log.
type SyncMonitor interface {
	Failures() []models.SyncFailure
	Stats() services.SyncStats
}

// ManagementHandler serves the operator surface under /mgmt. Requests have
// already passed the API key check; there is no acting user.
type ManagementHandler struct {
	users    UserServiceInterface
	sessions SessionRevokerInterface
	sync     SyncMonitor
}

func NewManagementHandler(users UserServiceInterface, sessions SessionRevokerInterface, sync SyncMonitor) *ManagementHandler {
	return &ManagementHandler{users: users, sessions: sessions, sync: sync}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email         string   `json:"email" validate:"required,email,max=254"`
	Password      string   `json:"password" validate:"required,max=128"`
	FullName      string   `json:"full_name" validate:"max=255"`
	IsActive      *bool    `json:"is_active"`
	IsSuperuser   bool     `json:"is_superuser"`
	EmailVerified bool     `json:"email_verified"`
	Roles         []string `json:"roles" validate:"omitempty,dive,min=1,max=50"`
}

type RevokeSessionsResponse struct {
	RevokedSessions int64 `json:"revoked_sessions"`
}

type SyncFailuresResponse struct {
	Stats    services.SyncStats   `json:"stats"`
	Failures []models.SyncFailure `json:"failures"`
}

// CreateUser
// @Router /mgmt/users [post]
func (h *ManagementHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), services.CreateUserInput{
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		IsActive:      req.IsActive,
		IsSuperuser:   req.IsSuperuser,
		EmailVerified: req.EmailVerified,
		Roles:         req.Roles,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user.ToResponse())
}

// ListUsers
// @Router /mgmt/users [get]
func (h *ManagementHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, total, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ListUsersResponse{
		Users:  toUserResponses(users),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// UnlockUser clears a lockout
// @Router /mgmt/users/{id}/unlock [post]
func (h *ManagementHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.users.Unlock(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeSessions signs a user out everywhere
// @Router /mgmt/users/{id}/revoke-sessions [post]
func (h *ManagementHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if _, err := h.users.Get(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	n, err := h.sessions.RevokeAll(r.Context(), id, "")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RevokeSessionsResponse{RevokedSessions: n})
}

// SyncFailures returns the newest profile sync failures
// @Router /mgmt/sync/failures [get]
func (h *ManagementHandler) SyncFailures(w http.ResponseWriter, r *http.Request) {
	failures := h.sync.Failures()
	if failures == nil {
		failures = []models.SyncFailure{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, SyncFailuresResponse{
		Stats:    h.sync.Stats(),
		Failures: failures,
	})
}
