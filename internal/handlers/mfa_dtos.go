package handlers

import "github.com/BradenHooton/warden/internal/models"

// MFA enrollment DTOs

// ConfirmMFARequest finishes enrollment with the first code from the authenticator app
type ConfirmMFARequest struct {
	Code string `json:"code" validate:"required,totp"`
}

// MFACodeRequest proves possession of the second factor for sensitive MFA changes
type MFACodeRequest struct {
	Code string `json:"code" validate:"required,totp"`
}

// DisableMFAResponse confirms MFA disablement
type DisableMFAResponse struct {
	MFAEnabled bool   `json:"mfa_enabled"`
	Message    string `json:"message"`
}

// RecoveryCodesResponse carries freshly generated recovery codes. They are
// shown exactly once.
type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

// MFAStatusResponse shows current MFA configuration
type MFAStatusResponse = models.MFAStatus
