package models

import "time"

// SyncProfile is pushed to sibling services once, right after a user is created.
// Password is the plaintext so the receiver can hash it locally.
type SyncProfile struct {
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Password    string `json:"password,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// SyncFailure is one entry of the bounded failure log.
type SyncFailure struct {
	ID         uint64    `json:"id"`
	Target     string    `json:"target"`
	Email      string    `json:"email"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}
