package replica

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// ProfileStore is what the handler needs from Store.
type ProfileStore interface {
	GetOrCreateByEmail(ctx context.Context, in models.SyncProfile) (*Profile, bool, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Ping(ctx context.Context) error
}

// SyncUserRequest is the body the identity service pushes.
type SyncUserRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	FullName    string `json:"full_name" validate:"max=255"`
	Password    string `json:"password" validate:"max=128"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

type Handler struct {
	store    ProfileStore
	tokens   auth.AccessTokenValidator
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(store ProfileStore, tokens auth.AccessTokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// SyncUser handles POST /users/internal/sync_user. 201 when the profile was
// created, 200 when it already existed.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req SyncUserRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid profile")
		return
	}

	// An omitted is_active means active.
	active := req.IsActive == nil || *req.IsActive

	profile, created, err := h.store.GetOrCreateByEmail(r.Context(), models.SyncProfile{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		IsActive:    active,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		h.logger.Error("profile sync failed", slog.String("email", pkglogger.SanitizedEmail(req.Email)), slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Info("profile synced", slog.String("email", pkglogger.SanitizedEmail(profile.Email)))
	}
	pkghttp.WriteJSON(w, status, profile)
}

// Me handles GET /users/me. The caller's access token comes from the identity
// service; the profile is resolved by its email claim.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.Email == "" {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	profile, err := h.store.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Profile not found, needs sync")
			return
		}
		h.logger.Error("failed to load profile", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	if !profile.IsActive {
		pkghttp.WriteForbidden(w, "Inactive user")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
}

// Router wires the replica's three endpoints.
func (h *Handler) Router(syncAPIKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.Health)
	r.With(auth.RequireAPIKey(syncAPIKey)).Post("/users/internal/sync_user", h.SyncUser)
	r.With(auth.AuthMiddleware(h.tokens)).Get("/users/me", h.Me)
	return r
}
