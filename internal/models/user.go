package models

import (
	"slices"
	"time"
)

const RoleAdmin = "admin"

type User struct {
	ID                  int64
	Email               string
	PasswordHash        string // empty for Google-only accounts
	FullName            string
	IsActive            bool
	EmailVerified       bool
	IsSuperuser         bool
	Roles               []string
	MFAEnabled          bool
	TOTPSecretEncrypted []byte
	TOTPSecretNonce     []byte
	TOTPLastStep        int64 // last accepted TOTP time step, replay guard
	MFAEnrolledAt       *time.Time
	FailedLoginAttempts int
	LockoutUntil        *time.Time
	PasswordChangedAt   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether a lockout window is still open at t.
func (u *User) IsLocked(t time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(t)
}

// HasRole checks the free-form role claims. Superusers implicitly hold every role.
func (u *User) HasRole(role string) bool {
	if u.IsSuperuser {
		return true
	}
	return slices.Contains(u.Roles, role)
}

// HasPendingMFASecret is true between enrollment start and confirmation.
func (u *User) HasPendingMFASecret() bool {
	return !u.MFAEnabled && len(u.TOTPSecretEncrypted) > 0
}

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	IsSuperuser   bool       `json:"is_superuser"`
	Roles         []string   `json:"roles"`
	MFAEnabled    bool       `json:"mfa_enabled"`
	LockoutUntil  *time.Time `json:"lockout_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (u *User) ToResponse() UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		IsSuperuser:   u.IsSuperuser,
		Roles:         roles,
		MFAEnabled:    u.MFAEnabled,
		LockoutUntil:  u.LockoutUntil,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// UserUpdate carries optional administrative changes. Nil fields are left alone.
type UserUpdate struct {
	FullName      *string
	IsActive      *bool
	IsSuperuser   *bool
	EmailVerified *bool
	Roles         []string
}
