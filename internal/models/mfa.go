package models

import (
	"time"
)

// RecoveryCode is one single-use MFA backup credential. Only the hash is stored.
type RecoveryCode struct {
	ID        int64
	UserID    int64
	CodeHash  string
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// MFARequiredResponse is returned when a password login still needs a second factor.
type MFARequiredResponse struct {
	MFARequired       bool   `json:"mfa_required"`
	MFAChallengeToken string `json:"mfa_challenge_token"`
	ExpiresIn         int64  `json:"expires_in"`
	Detail            string `json:"detail"`
}

// MFAStatus represents the MFA status for a user
type MFAStatus struct {
	MFAEnabled             bool       `json:"mfa_enabled"`
	EnrollmentPending      bool       `json:"enrollment_pending"`
	EnrolledAt             *time.Time `json:"enrolled_at,omitempty"`
	RecoveryCodesRemaining int        `json:"recovery_codes_remaining"`
}

// MFASetupResponse contains provisioning data for an authenticator app.
type MFASetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURI string `json:"otp_uri"`
	QRCode     string `json:"qr_code"` // PNG data URL
}

// MFAConfirmResponse hands out the recovery codes exactly once.
type MFAConfirmResponse struct {
	User          UserResponse `json:"user"`
	RecoveryCodes []string     `json:"recovery_codes"`
}
