package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_IsLocked(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&User{}).IsLocked(now))
	assert.True(t, (&User{LockoutUntil: &future}).IsLocked(now))
	assert.False(t, (&User{LockoutUntil: &past}).IsLocked(now))
}

func TestUser_HasRole(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"plain user", User{}, false},
		{"role claim", User{Roles: []string{"support", RoleAdmin}}, true},
		{"superuser", User{IsSuperuser: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasRole(RoleAdmin))
		})
	}
}

func TestUser_ToResponseOmitsSecrets(t *testing.T) {
	u := &User{
		ID:                  3,
		Email:               "jane@example.com",
		PasswordHash:        "$2a$12$hash",
		TOTPSecretEncrypted: []byte("ciphertext"),
	}

	body, err := json.Marshal(u.ToResponse())
	require.NoError(t, err)

	assert.NotContains(t, string(body), "hash")
	assert.NotContains(t, string(body), "totp")
	assert.Contains(t, string(body), `"roles":[]`)
}
