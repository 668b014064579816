package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid verification code")

	// Account state errors
	ErrAccountInactive  = errors.New("account is inactive")
	ErrAccountLocked    = errors.New("account is temporarily locked")
	ErrEmailNotVerified = errors.New("email address not verified")

	// MFA enrollment state
	ErrMFANotEnabled     = errors.New("mfa is not enabled")
	ErrMFAAlreadyEnabled = errors.New("mfa is already enabled")
	ErrMFASetupRequired  = errors.New("mfa enrollment has not been started")

	// ErrSyncFailed is recorded for sibling sync failures; it never reaches a client.
	ErrSyncFailed = errors.New("profile sync failed")

	ErrProviderDisabled = errors.New("identity provider is not configured")
)
