package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// UserServiceInterface defines the interface for user business logic
type UserServiceInterface interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd services.ProfileUpdate, currentRefresh string) (*models.User, error)
	AdminUpdate(ctx context.Context, actorID, id int64, upd models.UserUpdate) (*models.User, error)
	Deactivate(ctx context.Context, actorID, id int64) error
	Unlock(ctx context.Context, id int64) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Request/Response DTOs

// UpdateMeRequest changes the caller's own profile. Changing the password needs
// the current one; refresh_token names the session to keep signed in.
type UpdateMeRequest struct {
	FullName        *string `json:"full_name" validate:"omitempty,max=255"`
	CurrentPassword string  `json:"current_password" validate:"required_with=NewPassword"`
	NewPassword     string  `json:"new_password" validate:"omitempty,max=128"`
	RefreshToken    string  `json:"refresh_token"`
}

// AdminUpdateUserRequest represents the request body for updating a user
type AdminUpdateUserRequest struct {
	FullName      *string  `json:"full_name" validate:"omitempty,max=255"`
	IsActive      *bool    `json:"is_active"`
	IsSuperuser   *bool    `json:"is_superuser"`
	EmailVerified *bool    `json:"email_verified"`
	Roles         []string `json:"roles" validate:"omitempty,dive,min=1,max=50"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users  []models.UserResponse `json:"users"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

func toUserResponses(users []*models.User) []models.UserResponse {
	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}
	return out
}

// parsePagination reads limit and offset with sane bounds.
func parsePagination(r *http.Request) (int, int) {
	limit := defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// GetMe returns the authenticated user's profile
// @Router /users/me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	user, err := h.service.Get(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !user.IsActive {
		writeServiceError(w, models.ErrAccountInactive)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user.ToResponse())
}

// UpdateMe updates the authenticated user's profile
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	var req UpdateMeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, services.ProfileUpdate{
		FullName:        req.FullName,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user.ToResponse())
}

// ListUsers handles listing users with pagination
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, total, err := h.service.List(r.Context(), limit, offset)
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

// GetUser handles retrieving a user by ID
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user.ToResponse())
}

// UpdateUser handles administrative user updates
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req AdminUpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.AdminUpdate(r.Context(), claims.UserID, id, models.UserUpdate{
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

	pkghttp.WriteJSON(w, http.StatusOK, user.ToResponse())
}

// DeactivateUser soft-deletes a user and revokes their sessions
// @Router /users/{id}/deactivate [post]
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	id, ok := parseIDParam(r, "id")
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.Deactivate(r.Context(), claims.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
