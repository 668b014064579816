package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token classes. Each class is signed with its own key.
const (
	TokenTypeAccess        = "access"
	TokenTypeMFAChallenge  = "mfa_challenge"
	TokenTypePasswordReset = "password_reset"
)

// Authentication method references carried in the amr claim.
const (
	AMRPassword      = "pwd"
	AMROTP           = "otp"
	AMRRecoveryCode  = "recovery"
	AMRTrustedDevice = "device"
	AMRGoogle        = "google"
)

type TokenClaims struct {
	Type   string   `json:"type"`
	Email  string   `json:"email,omitempty"`
	AMR    []string `json:"amr,omitempty"`
	UserID int64    `json:"-"` // parsed from the subject during validation
	jwt.RegisteredClaims
}

// TokenPair is what a completed login hands back to the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RevokedToken tracks a signed token that must no longer be accepted,
// including consumed MFA challenges and password reset tokens.
type RevokedToken struct {
	JTI       string
	UserID    int64
	TokenType string
	Reason    string
	RevokedAt time.Time
	ExpiresAt time.Time
}
