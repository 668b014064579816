package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// writeServiceError translates service sentinels into the JSON error envelope.
// Anything unrecognised is reported as a 500 without leaking the cause.
func writeServiceError(w http.ResponseWriter, err error) {
	var policyErr *pkgauth.PasswordValidationError
	switch {
	case errors.As(err, &policyErr):
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "weak_password",
			"Password does not meet requirements", policyErr.Details())
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteAccountLocked(w, "Too many failed login attempts. Please try again later.")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_code", "Invalid verification code")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
	case errors.Is(err, models.ErrEmailNotVerified):
		pkghttp.WriteError(w, http.StatusForbidden, "email_not_verified", "Email address has not been verified")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteForbidden(w, "Account is inactive")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Operation not permitted")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrProviderDisabled):
		pkghttp.WriteNotFound(w, "Sign-in provider is not configured")
	case errors.Is(err, models.ErrMFAAlreadyEnabled):
		pkghttp.WriteConflict(w, "MFA is already enabled")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrMFANotEnabled):
		pkghttp.WriteBadRequest(w, "MFA is not enabled")
	case errors.Is(err, models.ErrMFASetupRequired):
		pkghttp.WriteBadRequest(w, "Start MFA enrollment first")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
