package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
	// TokenContextKey holds the raw bearer token
	TokenContextKey contextKey = "token"
)

// AccessTokenValidator is the part of TokenManager the middleware needs.
type AccessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// UserRepository interface for fetching user data
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // deny access when the revocation store cannot be reached
}

// AuthMiddleware validates access tokens and injects the claims into the request context.
func AuthMiddleware(tv AccessTokenValidator) func(next http.Handler) http.Handler {
	return AuthMiddlewareWithRevocation(tv, nil, RevocationConfig{}, nil)
}

// AuthMiddlewareWithRevocation also rejects access tokens revoked by logout.
func AuthMiddlewareWithRevocation(tv AccessTokenValidator, revocationChecker TokenRevocationChecker, revocationConfig RevocationConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := pkghttp.BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				pkghttp.WriteUnauthorized(w, "Could not validate credentials")
				return
			}

			claims, err := tv.ValidateAccessToken(tokenString)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				pkghttp.WriteUnauthorized(w, "Could not validate credentials")
				return
			}

			if revocationChecker != nil && claims.ID != "" {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					if logger != nil {
						logger.Error("revocation check failed", slog.String("error", err.Error()))
					}
					if revocationConfig.FailClosed {
						pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Unable to verify token status")
						return
					}
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "Could not validate credentials")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			ctx = context.WithValue(ctx, TokenContextKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActiveUser rejects tokens whose account has since been deactivated.
func RequireActiveUser(userRepo UserRepository) func(next http.Handler) http.Handler {
	return requireUser(userRepo, func(*models.User) bool { return true })
}

// RequireRole loads the current user and requires an active account holding
// role. Superusers pass every role check.
func RequireRole(userRepo UserRepository, role string) func(next http.Handler) http.Handler {
	return requireUser(userRepo, func(u *models.User) bool { return u.HasRole(role) })
}

// RequireSuperuser allows only active superusers.
func RequireSuperuser(userRepo UserRepository) func(next http.Handler) http.Handler {
	return requireUser(userRepo, func(u *models.User) bool { return u.IsSuperuser })
}

func requireUser(userRepo UserRepository, allowed func(*models.User) bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Must be used after AuthMiddleware
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Could not validate credentials")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "Could not validate credentials")
					return
				}
				pkghttp.WriteInternalError(w, "Internal server error")
				return
			}

			if !user.IsActive {
				pkghttp.WriteForbidden(w, "Inactive user")
				return
			}
			if !allowed(user) {
				pkghttp.WriteForbidden(w, "The user doesn't have enough privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetTokenFromContext returns the raw bearer token accepted by AuthMiddleware.
func GetTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(TokenContextKey).(string)
	return token
}
