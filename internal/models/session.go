package models

import "time"

// RefreshToken is the persisted half of a refresh token. The plaintext is
// returned once at creation and never stored.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	UserAgent string
	IPAddress string
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsValid requires the token to be unrevoked and unexpired at t.
func (r *RefreshToken) IsValid(t time.Time) bool {
	return !r.Revoked && r.ExpiresAt.After(t)
}

// SessionInfo is the client-facing view of an active refresh token.
type SessionInfo struct {
	ID        int64     `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

type TrustedDevice struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	TokenHash string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (d *TrustedDevice) IsExpired(t time.Time) bool {
	return !d.ExpiresAt.After(t)
}

// ClientInfo is request metadata recorded with sessions and devices.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
