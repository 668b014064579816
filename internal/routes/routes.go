package routes

import (
	"log/slog"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups every HTTP handler the identity service exposes.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Sessions *handlers.SessionHandler
	MFA      *handlers.MFAHandler
	Users    *handlers.UserHandler
	Mgmt     *handlers.ManagementHandler
	Google   *handlers.GoogleHandler
	Health   *handlers.HealthHandler
}

// Security holds what the route guards need.
type Security struct {
	Tokens           auth.AccessTokenValidator
	Revocations      auth.TokenRevocationChecker
	Revocation       auth.RevocationConfig
	UserRepo         auth.UserRepository
	ManagementAPIKey string
	AuthRateLimit    middleware.RateLimitConfig
	UserRateLimit    middleware.RateLimitConfig
	Logger           *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, sec Security) {
	limitByIP := middleware.RateLimitByIP(sec.AuthRateLimit)
	requireAuth := auth.AuthMiddlewareWithRevocation(sec.Tokens, sec.Revocations, sec.Revocation, sec.Logger)

	router.Get("/health", h.Health.Health)

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(limitByIP)

		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/verify-email", h.Auth.VerifyEmail)
		r.Post("/auth/resend-verification", h.Auth.ResendVerification)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/mfa/verify", h.Auth.VerifyMFA)
		r.Post("/auth/refresh", h.Auth.Refresh)
		r.Post("/auth/forgot-password", h.Auth.ForgotPassword)
		r.Post("/auth/reset-password", h.Auth.ResetPassword)
	})

	router.Get("/auth/google/url", h.Google.AuthURL)
	router.Post("/auth/google/login", h.Google.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(requireAuth, auth.RequireActiveUser(sec.UserRepo))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Post("/auth/logout-all", h.Auth.LogoutAll)

		r.Get("/auth/sessions", h.Sessions.ListSessions)
		r.Delete("/auth/sessions/{id}", h.Sessions.RevokeSession)
		r.Get("/auth/trusted-devices", h.Sessions.ListTrustedDevices)
		r.Delete("/auth/trusted-devices/{id}", h.Sessions.DeleteTrustedDevice)

		r.Route("/mfa", func(r chi.Router) {
			r.Use(middleware.RateLimitByUser(sec.UserRateLimit))
			r.Get("/status", h.MFA.Status)
			r.Post("/enable", h.MFA.Enable)
			r.Post("/confirm", h.MFA.Confirm)
			r.Post("/disable", h.MFA.Disable)
			r.Post("/recovery-codes", h.MFA.RegenerateRecoveryCodes)
		})

		r.Get("/users/me", h.Users.GetMe)
		r.Put("/users/me", h.Users.UpdateMe)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(sec.UserRepo, "admin"))
			r.Get("/users", h.Users.ListUsers)
			r.Get("/users/{id}", h.Users.GetUser)
			r.Put("/users/{id}", h.Users.UpdateUser)
			r.Post("/users/{id}/deactivate", h.Users.DeactivateUser)
		})
	})

	// Management surface for operators and sibling services
	router.Route("/mgmt", func(r chi.Router) {
		r.Use(auth.RequireAPIKey(sec.ManagementAPIKey))
		r.Post("/users", h.Mgmt.CreateUser)
		r.Get("/users", h.Mgmt.ListUsers)
		r.Post("/users/{id}/unlock", h.Mgmt.UnlockUser)
		r.Post("/users/{id}/revoke-sessions", h.Mgmt.RevokeSessions)
		r.Get("/sync/failures", h.Mgmt.SyncFailures)
	})
}
